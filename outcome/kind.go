package outcome

import "fmt"

// Kind is the classified outcome of one execution.
type Kind uint8

const (
	Success Kind = iota
	ScriptError
	PermissionDenied
	Timeout
	TargetUnavailable
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ScriptError:
		return "script_error"
	case PermissionDenied:
		return "permission_denied"
	case Timeout:
		return "timeout"
	case TargetUnavailable:
		return "target_unavailable"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Retryable reports whether a later attempt may succeed without changing
// the request. Timeouts are retryable only with a narrower request.
func (k Kind) Retryable() bool {
	return k == TargetUnavailable
}

// Error codes carried by ScriptError outcomes and by the other kinds.
const (
	CodeMalformedOutput   = "MALFORMED_OUTPUT"
	CodeScriptError       = "SCRIPT_ERROR"
	CodeTypeCoercion      = "TYPE_COERCION"
	CodeNotFound          = "NOT_FOUND"
	CodeMissingParameter  = "MISSING_PARAMETER"
	CodeInvalidParameter  = "INVALID_PARAMETER"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeTimeout           = "TIMEOUT"
	CodeTargetUnavailable = "TARGET_UNAVAILABLE"
)

var remediations = map[string]string{
	CodePermissionDenied:  "Allow automation: System Settings > Privacy & Security > Automation, enable OmniFocus for the app running this server, then retry.",
	CodeTargetUnavailable: "Start OmniFocus and make sure a document window is open, then retry.",
	CodeTimeout:           "Narrow the request with a project, tag or smaller limit, or raise the timeout.",
	CodeTypeCoercion:      "Check parameter types; dates, numbers and ids must match what OmniFocus expects.",
	CodeNotFound:          "The referenced item no longer exists; list again and retry with a current id.",
	CodeMalformedOutput:   "The script produced unreadable output; inspect the execution journal for the rendered script.",
	CodeMissingParameter:  "Supply every required parameter.",
	CodeInvalidParameter:  "Check parameter names and types.",
}

// Remediation returns the user-facing next step for code, or "".
func Remediation(code string) string { return remediations[code] }
