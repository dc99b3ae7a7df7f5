package secret

import "errors"

var (
	// ErrNotFound is returned when a provider has no value for a ref.
	ErrNotFound = errors.New("secret: not found")

	// ErrUnknownProvider is returned for a provider name nothing registered.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrInvalidRef is returned for an empty provider name or ref.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrEmptyValue is returned by a strict resolver for an empty secret.
	ErrEmptyValue = errors.New("secret: empty value")

	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")
)
