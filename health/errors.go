package health

import "errors"

var (
	// ErrCheckFailed marks an unhealthy result that has no better cause.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is the error of a check cut off by the aggregate deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned for an unregistered name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
