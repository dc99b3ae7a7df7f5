package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/focusops/resilience"
)

var errAppNotRunning = errors.New("application isn't running")

func ExampleRetry_Execute() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		RetryIf:      func(err error) bool { return errors.Is(err, errAppNotRunning) },
	})

	attempt := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempt++
		if attempt == 1 {
			return errAppNotRunning
		}
		return nil
	})
	fmt.Println(attempt, err)
	// Output:
	// 2 <nil>
}

func ExampleCircuitBreaker() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return errAppNotRunning })
	}
	err := cb.Execute(ctx, func(context.Context) error { return nil })
	fmt.Println(cb.State(), errors.Is(err, resilience.ErrCircuitOpen))
	// Output:
	// open true
}
