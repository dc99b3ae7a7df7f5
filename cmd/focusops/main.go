// focusops: an MCP server for OmniFocus.
//
// Usage:
//
//	focusops serve              # MCP over stdio
//	focusops serve --http :8765 # MCP over streamable HTTP
//	focusops warm               # run the cache warmer once and report
//	focusops diagnose           # health checks and recent failures
package main

func main() {
	Execute()
}
