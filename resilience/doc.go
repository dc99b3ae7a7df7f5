// Package resilience guards script executions against an unreliable
// automation target.
//
// The executor, dispatcher and result parser never retry. The gateway
// composes the guards in this package around each execution:
//
//   - RateLimiter: caps how fast writes reach OmniFocus.
//   - Bulkhead: caps concurrent osascript processes.
//   - CircuitBreaker: stops spawning processes after repeated target
//     unavailability and probes again after a cooldown.
//   - Retry: re-runs an execution whose error the caller marks as
//     retryable, with exponential, linear or constant backoff.
//   - Timeout: bounds an operation that has no timeout of its own, such
//     as one warming target.
//
// Guards compose through Executor:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 4})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        IsFailure: func(err error) bool { return outcome.KindOf(err) == outcome.TargetUnavailable },
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	)
//	err := exec.Execute(ctx, run)
package resilience
