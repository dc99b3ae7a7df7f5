// Package runner executes rendered scripts in an external interpreter
// process, osascript -l JavaScript by default.
//
// Each call spawns exactly one process and writes the script to its
// standard input, so script size is never limited by the OS argument
// ceiling. The process runs in its own process group; on timeout or
// cancellation the whole group is killed and Execute returns only after
// the process has exited.
package runner
