package resilience

import (
	"context"
	"time"
)

// Executor composes guards around an operation. From the outside in:
// rate limiter, bulkhead, circuit breaker, retry, timeout. The breaker
// sits outside the retry so one exhausted retry sequence counts as one
// failure.
type Executor struct {
	limiter  *RateLimiter
	bulkhead *Bulkhead
	breaker  *CircuitBreaker
	retry    *Retry
	timeout  *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an Executor. Without options it runs op directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter adds rl as the outermost guard.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.limiter = rl }
}

// WithBulkhead adds b.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithCircuitBreaker adds cb.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

// WithRetry adds r.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds each attempt by d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker { return e.breaker }

// Bulkhead returns the configured bulkhead, or nil.
func (e *Executor) Bulkhead() *Bulkhead { return e.bulkhead }

// Execute runs op through every configured guard.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	if e.timeout != nil {
		run = wrap(e.timeout.Execute, run)
	}
	if e.retry != nil {
		run = wrap(e.retry.Execute, run)
	}
	if e.breaker != nil {
		run = wrap(e.breaker.Execute, run)
	}
	if e.bulkhead != nil {
		run = wrap(e.bulkhead.Execute, run)
	}
	if e.limiter != nil {
		run = wrap(e.limiter.Execute, run)
	}
	return run(ctx)
}

type guard func(context.Context, func(context.Context) error) error

func wrap(g guard, inner func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error { return g(ctx, inner) }
}
