// Package outcome turns raw interpreter results into classified outcomes.
//
// Parse is a pure function of a runner.Result: it decodes the script
// envelope on success and otherwise matches stderr against an ordered
// list of known osascript failure signatures. It never retries.
//
// Taxonomy:
//
//	Success            data decoded from the envelope
//	ScriptError        target-side fault, bad parameters or unreadable output
//	PermissionDenied   automation access not granted
//	Timeout            the script exceeded its bound
//	TargetUnavailable  OmniFocus not running or no document open
package outcome
