// Package gateway is the caller-facing entry point for OmniFocus reads
// and writes.
//
// Queries go through the cache: a hit returns without executing, a miss
// renders, dispatches, parses and stores the result. Mutations execute
// uncached and hand invalidation events to the cache on completion.
//
// The gateway owns the retry policy. Target unavailability is retried
// with backoff behind a circuit breaker; a timed-out query is retried
// once when it knows how to narrow itself; permission and script
// errors are returned as they are. Every attempt is traced, measured,
// logged and written to the execution journal.
package gateway
