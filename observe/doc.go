// Package observe provides the logging, tracing and metrics primitives used
// across focusops.
//
// Every script execution is wrapped by Middleware, which opens a span named
// after the template, records execution metrics labelled with the classified
// outcome kind and writes one structured log line. The cache manager reports
// lookups and evictions through the same Metrics value.
//
// Logging is backed by logrus and always defaults to stderr: when the server
// runs over stdio, stdout carries the MCP protocol stream and must never
// receive log or exporter output.
package observe
