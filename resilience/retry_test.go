package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errUnavailable
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry:      func(_ int, _ error, d time.Duration) { delays = append(delays, d) },
	})

	err := r.Execute(context.Background(), fail(errUnavailable))
	if !errors.Is(err, ErrRetriesExhausted) || !errors.Is(err, errUnavailable) {
		t.Fatalf("expected exhausted wrapping the last error, got %v", err)
	}
	if len(delays) != 2 {
		t.Errorf("OnRetry ran %d times, want 2", len(delays))
	}
}

func TestRetry_RetryIfRejects(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		RetryIf:      func(err error) bool { return errors.Is(err, errUnavailable) },
	})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		return errScript
	})
	if err != errScript {
		t.Errorf("non-retryable error should return unchanged, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_ContextCanceledDuringWait(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	err := r.Execute(ctx, func(context.Context) error {
		cancel()
		return errUnavailable
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_BackoffShapes(t *testing.T) {
	tests := []struct {
		name     string
		strategy BackoffStrategy
		want     []time.Duration
	}{
		{"exponential", BackoffExponential, []time.Duration{100, 200, 400, 500}},
		{"linear", BackoffLinear, []time.Duration{100, 200, 300, 400, 500, 500}},
		{"constant", BackoffConstant, []time.Duration{100, 100, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     500 * time.Millisecond,
				Strategy:     tt.strategy,
			})
			b := r.delays()
			for i, w := range tt.want {
				if got := b.NextBackOff(); got != w*time.Millisecond {
					t.Errorf("delay %d = %v, want %v", i, got, w*time.Millisecond)
				}
			}
		})
	}
}

func TestRetry_JitterBounds(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: true})
	for i := 0; i < 50; i++ {
		d := r.delays().NextBackOff()
		if d < 75*time.Millisecond || d > 125*time.Millisecond {
			t.Fatalf("jittered delay %v outside [75ms, 125ms]", d)
		}
	}
}

func TestNewRetry_Defaults(t *testing.T) {
	cfg := NewRetry(RetryConfig{}).Config()
	if cfg.MaxAttempts != 3 || cfg.InitialDelay != 250*time.Millisecond || cfg.MaxDelay != 5*time.Second || cfg.Multiplier != 2 {
		t.Errorf("defaults = %+v", cfg)
	}
}
