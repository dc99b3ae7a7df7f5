package outcome

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/focusops/runner"
	"github.com/jonwraymond/focusops/script"
)

// Error is a classified execution failure.
type Error struct {
	Kind        Kind
	Code        string
	Message     string
	Remediation string
	Raw         string
}

// Sentinel values for errors.Is. A sentinel matches any Error of the
// same kind.
var (
	ErrScript            = &Error{Kind: ScriptError}
	ErrPermissionDenied  = &Error{Kind: PermissionDenied}
	ErrTimeout           = &Error{Kind: Timeout}
	ErrTargetUnavailable = &Error{Kind: TargetUnavailable}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Code != "" {
		return fmt.Sprintf("omnifocus %s [%s]: %s", e.Kind, e.Code, msg)
	}
	return fmt.Sprintf("omnifocus %s: %s", e.Kind, msg)
}

// Is matches another *Error of the same kind, and the same code when the
// target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// KindOf returns the kind of err: Success for nil, the classified kind
// for an *Error anywhere in the chain, ScriptError otherwise.
func KindOf(err error) Kind {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ScriptError
}

// CodeOf returns the code of the *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Classify maps an error raised before or around execution (rendering,
// spawning, cancellation) onto the taxonomy. Errors already classified
// are returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	code := CodeScriptError
	kind := ScriptError
	switch {
	case errors.Is(err, script.ErrMissingParam):
		code = CodeMissingParameter
	case errors.Is(err, script.ErrParamKind), errors.Is(err, script.ErrUnknownParam):
		code = CodeInvalidParameter
	case errors.Is(err, context.DeadlineExceeded):
		kind, code = Timeout, CodeTimeout
	case errors.Is(err, runner.ErrSpawn):
		kind, code = TargetUnavailable, CodeTargetUnavailable
	}
	return &Error{
		Kind:        kind,
		Code:        code,
		Message:     err.Error(),
		Remediation: Remediation(code),
	}
}
