package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffStrategy selects how the delay grows between attempts.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear adds InitialDelay each attempt.
	BackoffLinear
	// BackoffConstant waits InitialDelay between every attempt.
	BackoffConstant
)

// RetryConfig configures a Retry.
type RetryConfig struct {
	// MaxAttempts counts the first attempt. Default: 3
	MaxAttempts int

	// InitialDelay is the wait before the second attempt. Default: 250ms
	InitialDelay time.Duration

	// MaxDelay caps a single wait. Default: 5s
	MaxDelay time.Duration

	// Multiplier grows exponential delays. Default: 2.0
	Multiplier float64

	// Strategy selects the backoff shape. Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter randomizes exponential delays by up to 25%.
	Jitter bool

	// RetryIf reports whether err is worth another attempt. Default:
	// every non-nil error.
	RetryIf func(err error) bool

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs operations whose errors RetryIf accepts.
type Retry struct {
	cfg RetryConfig
}

// NewRetry creates a Retry with defaults applied.
func NewRetry(cfg RetryConfig) *Retry {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{cfg: cfg}
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig { return r.cfg }

// Execute runs op up to MaxAttempts times. An error RetryIf rejects is
// returned as is; running out of attempts returns ErrRetriesExhausted
// wrapping the last error.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	delays := r.delays()

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !r.cfg.RetryIf(err) {
			return err
		}
		if attempt >= r.cfg.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		delay := delays.NextBackOff()
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delays returns a fresh backoff sequence for one Execute call.
func (r *Retry) delays() backoff.BackOff {
	switch r.cfg.Strategy {
	case BackoffConstant:
		return &backoff.ConstantBackOff{Interval: min(r.cfg.InitialDelay, r.cfg.MaxDelay)}
	case BackoffLinear:
		return &linearBackOff{step: r.cfg.InitialDelay, ceiling: r.cfg.MaxDelay}
	default:
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = r.cfg.InitialDelay
		b.MaxInterval = r.cfg.MaxDelay
		b.Multiplier = r.cfg.Multiplier
		b.RandomizationFactor = 0
		if r.cfg.Jitter {
			b.RandomizationFactor = 0.25
		}
		b.Reset()
		return b
	}
}

type linearBackOff struct {
	step, ceiling time.Duration
	n         int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.n++
	return min(l.step*time.Duration(l.n), l.ceiling)
}

func (l *linearBackOff) Reset() { l.n = 0 }
