package script

import "errors"

var (
	// ErrUnsupportedType is returned by From for Go values with no Value form.
	ErrUnsupportedType = errors.New("script: unsupported value type")

	// ErrInvalidString is returned by From for strings that are not valid UTF-8.
	ErrInvalidString = errors.New("script: string is not valid UTF-8")

	// ErrInvalidTemplate is returned when a template fails registration checks.
	ErrInvalidTemplate = errors.New("script: invalid template")

	// ErrDuplicateTemplate is returned when a template id is registered twice.
	ErrDuplicateTemplate = errors.New("script: duplicate template")

	// ErrUnknownPreamble is returned when a template requires an unregistered preamble.
	ErrUnknownPreamble = errors.New("script: unknown preamble")

	// ErrSealed is returned when registering into a sealed registry.
	ErrSealed = errors.New("script: registry is sealed")

	// ErrUnknownTemplate is returned when rendering an unregistered template id.
	ErrUnknownTemplate = errors.New("script: unknown template")

	// ErrMissingParam is returned when a required parameter is absent or null.
	ErrMissingParam = errors.New("script: missing required parameter")

	// ErrUnknownParam is returned when a call passes an undeclared parameter.
	ErrUnknownParam = errors.New("script: unknown parameter")

	// ErrParamKind is returned when a parameter value has the wrong kind.
	ErrParamKind = errors.New("script: parameter kind mismatch")

	// ErrMixedTargets is returned when composed templates target different contexts.
	ErrMixedTargets = errors.New("script: templates target different contexts")

	// ErrNoCalls is returned when Render is called without templates.
	ErrNoCalls = errors.New("script: nothing to render")
)
