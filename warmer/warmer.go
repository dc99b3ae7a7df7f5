package warmer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/observe"
	"github.com/jonwraymond/focusops/resilience"
)

// DefaultTimeout bounds a target that sets no timeout of its own.
const DefaultTimeout = 45 * time.Second

var (
	// ErrInvalidTarget is returned by Add for an incomplete target.
	ErrInvalidTarget = errors.New("warmer: invalid target")

	// ErrDuplicateTarget is returned by Add for a name already registered.
	ErrDuplicateTarget = errors.New("warmer: duplicate target")
)

// Refresher stores a freshly fetched value. *cache.Manager satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, key string, category cache.Category, scope cache.Scope, fetch cache.Fetch) ([]byte, error)
}

// Target is one warming query.
type Target struct {
	// Name identifies the target in reports. Defaults to the category.
	Name     string
	Category cache.Category
	Key      string
	Scope    cache.Scope
	Fetch    cache.Fetch

	// Timeout bounds this target only. Zero uses the warmer default.
	Timeout time.Duration
}

// Result is the outcome of one target.
type Result struct {
	Name     string
	Category cache.Category
	Duration time.Duration
	Bytes    int
	Err      error
}

// OK reports whether the target warmed.
func (r Result) OK() bool { return r.Err == nil }

// Report summarizes one Warm call. Results follow registration order.
type Report struct {
	Started  time.Time
	Duration time.Duration
	Results  []Result
}

// Succeeded counts targets that warmed.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed counts targets that did not warm.
func (r Report) Failed() int { return len(r.Results) - r.Succeeded() }

// Result returns the result for a target name.
func (r Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Option configures a Warmer.
type Option func(*Warmer)

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(w *Warmer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDefaultTimeout replaces DefaultTimeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(w *Warmer) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// Warmer refreshes a fixed set of targets.
//
// Contract:
//   - Concurrency: safe for concurrent use; overlapping Warm calls share
//     the cache's per-key single-flight.
//   - Context: cancelling ctx stops every target; a target's own timeout
//     stops only that target.
type Warmer struct {
	cache   Refresher
	logger  observe.Logger
	timeout time.Duration

	mu      sync.Mutex
	targets []Target
	last    *Report
}

// New creates a Warmer that stores into c.
func New(c Refresher, opts ...Option) *Warmer {
	w := &Warmer{cache: c, logger: observe.NopLogger(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add registers targets.
func (w *Warmer) Add(targets ...Target) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range targets {
		if t.Name == "" {
			t.Name = string(t.Category)
		}
		if !t.Category.Valid() || t.Key == "" || t.Fetch == nil {
			return fmt.Errorf("%w: %q", ErrInvalidTarget, t.Name)
		}
		for _, existing := range w.targets {
			if existing.Name == t.Name {
				return fmt.Errorf("%w: %q", ErrDuplicateTarget, t.Name)
			}
		}
		w.targets = append(w.targets, t)
	}
	return nil
}

// Targets returns the registered target names.
func (w *Warmer) Targets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, len(w.targets))
	for i, t := range w.targets {
		names[i] = t.Name
	}
	return names
}

// Warm refreshes every target concurrently and returns when all of them
// have finished or timed out.
func (w *Warmer) Warm(ctx context.Context) Report {
	w.mu.Lock()
	targets := append([]Target(nil), w.targets...)
	w.mu.Unlock()

	report := Report{Started: time.Now(), Results: make([]Result, len(targets))}

	// No WithContext: one failed target must not cancel the rest.
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			report.Results[i] = w.warm(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(report.Started)

	w.logger.Info(ctx, "cache warming finished",
		observe.Int("targets", len(targets)),
		observe.Int("succeeded", report.Succeeded()),
		observe.Int("failed", report.Failed()),
		observe.Duration("duration_ms", report.Duration),
	)

	w.mu.Lock()
	w.last = &report
	w.mu.Unlock()
	return report
}

func (w *Warmer) warm(ctx context.Context, t Target) Result {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = w.timeout
	}

	// The refresh may outlive its timeout until it observes ctx.
	var size atomic.Int64
	res := Result{Name: t.Name, Category: t.Category}
	start := time.Now()
	res.Err = resilience.ExecuteWithTimeout(ctx, timeout, func(ctx context.Context) error {
		value, err := w.cache.Refresh(ctx, t.Key, t.Category, t.Scope, t.Fetch)
		size.Store(int64(len(value)))
		return err
	})
	res.Duration = time.Since(start)
	if res.Err == nil {
		res.Bytes = int(size.Load())
	}

	if res.Err != nil {
		w.logger.Warn(ctx, "cache warming target failed",
			observe.String("target", t.Name),
			observe.String("category", string(t.Category)),
			observe.Duration("duration_ms", res.Duration),
			observe.Err(res.Err),
		)
	}
	return res
}

// LastReport returns the report of the most recent Warm call.
func (w *Warmer) LastReport() (Report, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return Report{}, false
	}
	return *w.last, true
}
