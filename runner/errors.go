package runner

import "errors"

var (
	// ErrInvalidTimeout is returned when Execute is called with a non-positive timeout.
	ErrInvalidTimeout = errors.New("runner: timeout must be positive")

	// ErrSpawn is returned when the interpreter process cannot be started.
	ErrSpawn = errors.New("runner: failed to start interpreter")

	// ErrCanceled is returned when the caller's context ends before the script does.
	ErrCanceled = errors.New("runner: execution canceled")
)
