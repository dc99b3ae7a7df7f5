package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/focusops/bridge"
	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/journal"
	"github.com/jonwraymond/focusops/observe"
	"github.com/jonwraymond/focusops/outcome"
	"github.com/jonwraymond/focusops/resilience"
	"github.com/jonwraymond/focusops/runner"
	"github.com/jonwraymond/focusops/script"
	"github.com/jonwraymond/focusops/warmer"
)

// DefaultTimeout bounds an execution whose request sets none.
const DefaultTimeout = 30 * time.Second

// Journal records executions. *journal.Journal satisfies it.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (string, error)
}

// Query is a cached read.
type Query struct {
	Template string
	Params   script.Params

	// Category selects the cache policy and invalidation domain.
	Category cache.Category

	// Shape names the query form in the cache key. Defaults to Template.
	Shape string

	// Scope records the entities and shape tags the result depends on.
	Scope cache.Scope

	Timeout time.Duration

	// Narrow returns a cheaper form of the query to try once after a
	// timeout, or false when there is none.
	Narrow func(Query) (Query, bool)
}

// Mutation is an uncached write.
type Mutation struct {
	Template string
	Params   script.Params
	Timeout  time.Duration

	// Events are handed to the cache after the write. They also apply
	// when the write timed out and its effect is unknown.
	Events []cache.Event

	// Invalidate, when set, derives events from a successful write's
	// result and replaces Events.
	Invalidate func(data json.RawMessage) []cache.Event
}

// Result is a successful execution or cache hit.
type Result struct {
	Data json.RawMessage

	// ExecID identifies the execution; empty for cache hits.
	ExecID string

	Cached      bool
	Narrowed    bool
	Invalidated int
}

// Config tunes the guards around executions.
type Config struct {
	DefaultTimeout time.Duration

	// MaxConcurrent caps live osascript processes. Default: 4
	MaxConcurrent int

	// MaxWait bounds the wait for a free process slot. Default: 10s
	MaxWait time.Duration

	// Retry applies to target unavailability only; RetryIf is replaced.
	Retry resilience.RetryConfig

	// Breaker counts target unavailability only; IsFailure is replaced.
	Breaker resilience.CircuitBreakerConfig

	// WriteRate and WriteBurst pace mutations. Default: 5/s, burst 5
	WriteRate  float64
	WriteBurst int
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithJournal records every execution in j.
func WithJournal(j Journal) Option {
	return func(g *Gateway) { g.journal = j }
}

// WithMiddleware wraps every execution with mw.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(g *Gateway) {
		if mw != nil {
			g.middleware = mw
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithKeyer replaces the cache keyer.
func WithKeyer(k cache.Keyer) Option {
	return func(g *Gateway) {
		if k != nil {
			g.keyer = k
		}
	}
}

// WithIDGenerator replaces uuid execution ids.
func WithIDGenerator(fn func() string) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// Gateway runs queries and mutations against OmniFocus.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: cancellation stops waiting and kills the running process.
//   - Errors: classified failures are *outcome.Error in the chain;
//     cancellation returns the context error.
type Gateway struct {
	dispatcher *bridge.Dispatcher
	cache      *cache.Manager
	keyer      cache.Keyer
	journal    Journal
	middleware *observe.Middleware
	logger     observe.Logger
	newID      func() string
	timeout    time.Duration

	breaker *resilience.CircuitBreaker
	reads   *resilience.Executor
	writes  *resilience.Executor
}

// New creates a Gateway.
func New(d *bridge.Dispatcher, c *cache.Manager, cfg Config, opts ...Option) *Gateway {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 10 * time.Second
	}

	unavailable := func(err error) bool {
		return outcome.KindOf(err) == outcome.TargetUnavailable
	}
	cfg.Retry.RetryIf = unavailable
	cfg.Breaker.IsFailure = unavailable

	g := &Gateway{
		dispatcher: d,
		cache:      c,
		keyer:      cache.NewDefaultKeyer(),
		logger:     observe.NopLogger(),
		newID:      uuid.NewString,
		timeout:    cfg.DefaultTimeout,
		breaker:    resilience.NewCircuitBreaker(cfg.Breaker),
	}
	g.middleware = observe.NewMiddleware(nil, nil, nil, Classify)
	for _, opt := range opts {
		opt(g)
	}

	bulkhead := resilience.NewBulkhead(resilience.BulkheadConfig{
		MaxConcurrent: cfg.MaxConcurrent,
		MaxWait:       cfg.MaxWait,
	})
	retry := resilience.NewRetry(cfg.Retry)
	g.reads = resilience.NewExecutor(
		resilience.WithBulkhead(bulkhead),
		resilience.WithCircuitBreaker(g.breaker),
		resilience.WithRetry(retry),
	)
	g.writes = resilience.NewExecutor(
		resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        cfg.WriteRate,
			Burst:       cfg.WriteBurst,
			WaitOnLimit: true,
		})),
		resilience.WithBulkhead(bulkhead),
		resilience.WithCircuitBreaker(g.breaker),
		resilience.WithRetry(retry),
	)
	return g
}

// Cache returns the cache manager.
func (g *Gateway) Cache() *cache.Manager { return g.cache }

// Breaker returns the circuit breaker guarding the target.
func (g *Gateway) Breaker() *resilience.CircuitBreaker { return g.breaker }

// Classify labels err with its outcome kind for metrics and spans.
func Classify(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return outcome.KindOf(err).String()
}

// Key returns the cache key of q.
func (g *Gateway) Key(q Query) (string, error) {
	shape := q.Shape
	if shape == "" {
		shape = q.Template
	}
	input := make(map[string]any, len(q.Params)+1)
	for name, v := range q.Params {
		input[name] = script.Serialize(v)
	}
	return g.keyer.Key(q.Category, shape, input)
}

// Query returns the cached result of q or executes it.
func (g *Gateway) Query(ctx context.Context, q Query) (Result, error) {
	res, err := g.query(ctx, q)
	if err == nil || q.Narrow == nil || outcome.KindOf(err) != outcome.Timeout || ctx.Err() != nil {
		return res, err
	}

	narrowed, ok := q.Narrow(q)
	if !ok {
		return res, err
	}
	narrowed.Narrow = nil
	g.logger.Info(ctx, "retrying timed out query in narrower form",
		observe.String("template", q.Template),
		observe.String("narrowed_template", narrowed.Template),
	)
	res, err = g.query(ctx, narrowed)
	res.Narrowed = err == nil
	return res, err
}

func (g *Gateway) query(ctx context.Context, q Query) (Result, error) {
	tmpl, err := g.template(q.Template)
	if err != nil {
		return Result{}, err
	}
	if tmpl.Mutating {
		return Result{}, fmt.Errorf("%w: %s", ErrMutatingQuery, q.Template)
	}
	if q.Category == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingCategory, q.Template)
	}
	key, err := g.Key(q)
	if err != nil {
		return Result{}, err
	}

	var execID string
	data, hit, err := g.cache.GetOrFetch(ctx, key, q.Category, q.Scope, func(ctx context.Context) ([]byte, error) {
		raw, id, err := g.execute(ctx, g.reads, tmpl, q.Params, q.Timeout, q.Category)
		execID = id
		return raw, err
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Data: data, Cached: hit, ExecID: execID}, nil
}

// Fetcher returns the cache fetch of q without consulting the cache.
func (g *Gateway) Fetcher(q Query) (cache.Fetch, error) {
	tmpl, err := g.template(q.Template)
	if err != nil {
		return nil, err
	}
	if tmpl.Mutating {
		return nil, fmt.Errorf("%w: %s", ErrMutatingQuery, q.Template)
	}
	return func(ctx context.Context) ([]byte, error) {
		data, _, err := g.execute(ctx, g.reads, tmpl, q.Params, q.Timeout, q.Category)
		return data, err
	}, nil
}

// WarmTarget turns q into a cache warming target.
func (g *Gateway) WarmTarget(name string, q Query, timeout time.Duration) (warmer.Target, error) {
	key, err := g.Key(q)
	if err != nil {
		return warmer.Target{}, err
	}
	fetch, err := g.Fetcher(q)
	if err != nil {
		return warmer.Target{}, err
	}
	return warmer.Target{
		Name:     name,
		Category: q.Category,
		Key:      key,
		Scope:    q.Scope,
		Fetch:    fetch,
		Timeout:  timeout,
	}, nil
}

// Mutate executes m and invalidates what it affected. A timed-out write
// may have been applied, so it invalidates as well.
func (g *Gateway) Mutate(ctx context.Context, m Mutation) (Result, error) {
	tmpl, err := g.template(m.Template)
	if err != nil {
		return Result{}, err
	}
	if !tmpl.Mutating {
		return Result{}, fmt.Errorf("%w: %s", ErrNotMutating, m.Template)
	}

	data, execID, err := g.execute(ctx, g.writes, tmpl, m.Params, m.Timeout, "")
	res := Result{Data: data, ExecID: execID}
	if err != nil && outcome.KindOf(err) != outcome.Timeout {
		return res, err
	}

	events := m.Events
	if m.Invalidate != nil && err == nil {
		events = m.Invalidate(data)
	}
	for _, ev := range events {
		res.Invalidated += g.cache.Invalidate(ctx, ev)
	}
	return res, err
}

// Run executes a non-mutating template without caching, for probes and
// verification reads.
func (g *Gateway) Run(ctx context.Context, template string, params script.Params, timeout time.Duration) (Result, error) {
	tmpl, err := g.template(template)
	if err != nil {
		return Result{}, err
	}
	if tmpl.Mutating {
		return Result{}, fmt.Errorf("%w: %s", ErrMutatingQuery, template)
	}
	data, execID, err := g.execute(ctx, g.reads, tmpl, params, timeout, "")
	return Result{Data: data, ExecID: execID}, err
}

func (g *Gateway) template(id string) (script.Template, error) {
	tmpl, ok := g.dispatcher.Template(id)
	if !ok {
		return script.Template{}, outcome.Classify(fmt.Errorf("%w: %q", script.ErrUnknownTemplate, id))
	}
	return tmpl, nil
}

// execute runs one guarded execution and returns its data and the id of
// the last attempt.
func (g *Gateway) execute(ctx context.Context, guards *resilience.Executor, tmpl script.Template, params script.Params, timeout time.Duration, category cache.Category) (json.RawMessage, string, error) {
	if timeout <= 0 {
		timeout = g.timeout
	}
	req := bridge.Request{Template: tmpl.ID, Params: params, Timeout: timeout}

	var (
		data   json.RawMessage
		execID string
	)
	run := g.middleware.Wrap(func(ctx context.Context, meta observe.ExecMeta) error {
		var err error
		data, err = g.attempt(ctx, req, meta)
		return err
	})
	err := guards.Execute(ctx, func(ctx context.Context) error {
		execID = g.newID()
		return run(ctx, observe.ExecMeta{
			ID:       execID,
			Template: tmpl.ID,
			Target:   tmpl.Target.String(),
			Category: string(category),
			Mutating: tmpl.Mutating,
		})
	})
	return data, execID, g.guardError(err)
}

func (g *Gateway) attempt(ctx context.Context, req bridge.Request, meta observe.ExecMeta) (json.RawMessage, error) {
	start := time.Now()
	exec, err := g.dispatcher.Execute(ctx, req)
	duration := time.Since(start)

	var oc outcome.Outcome
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		return nil, err
	case err != nil && errors.Is(err, runner.ErrCanceled) && errors.Is(err, context.DeadlineExceeded):
		oc = outcome.Parse(exec.Result)
		if oc.Kind != outcome.Timeout {
			err = outcome.Classify(err)
		} else {
			err = oc.Err()
		}
	case err != nil:
		err = outcome.Classify(err)
	default:
		oc = outcome.Parse(exec.Result)
		err = oc.Err()
	}

	g.record(ctx, meta, exec, start, duration, err)
	if err != nil {
		return nil, err
	}
	if len(oc.Data) == 0 {
		return json.RawMessage("null"), nil
	}
	return oc.Data, nil
}

func (g *Gateway) record(ctx context.Context, meta observe.ExecMeta, exec bridge.Execution, start time.Time, d time.Duration, err error) {
	rendered := exec.Script
	if exec.Inner != nil {
		rendered = *exec.Inner
	}
	kind := outcome.KindOf(err)

	if kind == outcome.ScriptError {
		g.logger.Error(ctx, "script failed",
			observe.String("exec_id", meta.ID),
			observe.String("template", meta.Template),
			observe.String("code", outcome.CodeOf(err)),
			observe.Err(err),
			observe.Int("script_bytes", rendered.Size()),
			observe.String("script", rendered.Text),
		)
	}
	if g.journal == nil {
		return
	}

	entry := journal.Entry{
		ID:          meta.ID,
		Template:    meta.Template,
		Target:      meta.Target,
		Mutating:    meta.Mutating,
		Started:     start,
		Duration:    d,
		ExitCode:    exec.Result.ExitCode,
		Kind:        kind.String(),
		Code:        outcome.CodeOf(err),
		ScriptBytes: exec.Script.Size(),
		Script:      rendered.Text,
	}
	if err != nil {
		entry.Message = err.Error()
	}
	if _, jerr := g.journal.Record(ctx, entry); jerr != nil {
		g.logger.Warn(ctx, "journal record failed", observe.String("exec_id", meta.ID), observe.Err(jerr))
	}
}

// guardError maps guard rejections onto the outcome taxonomy.
func (g *Gateway) guardError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, resilience.ErrCircuitOpen):
		return &outcome.Error{
			Kind:        outcome.TargetUnavailable,
			Code:        outcome.CodeTargetUnavailable,
			Message:     "recent executions could not reach OmniFocus; not trying again until the breaker cools down",
			Remediation: outcome.Remediation(outcome.CodeTargetUnavailable),
		}
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrRateLimitExceeded):
		return fmt.Errorf("%w: %w", ErrBackpressure, err)
	default:
		return err
	}
}
