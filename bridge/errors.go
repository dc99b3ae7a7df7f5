package bridge

import "errors"

var (
	// ErrTargetMismatch is returned when a request's target disagrees
	// with its template's target.
	ErrTargetMismatch = errors.New("bridge: request target does not match template")

	// ErrInvalidTimeout is returned when a request has no positive timeout.
	ErrInvalidTimeout = errors.New("bridge: timeout must be positive")
)
