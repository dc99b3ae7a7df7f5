package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature Middleware wraps: one script execution
// described by meta.
type ExecuteFunc func(ctx context.Context, meta ExecMeta) error

// Classifier maps an execution error to an outcome kind label.
type Classifier func(err error) string

// DefaultClassifier labels nil as KindSuccess and everything else "error".
func DefaultClassifier(err error) string {
	if err == nil {
		return KindSuccess
	}
	return "error"
}

// Middleware wraps script execution with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer   Tracer
	metrics  Metrics
	logger   Logger
	classify Classifier
}

// NewMiddleware creates a Middleware. A nil classifier uses DefaultClassifier.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger, classify Classifier) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	if classify == nil {
		classify = DefaultClassifier
	}
	return &Middleware{
		tracer:   tracer,
		metrics:  metrics,
		logger:   logger,
		classify: classify,
	}
}

// Wrap wraps fn with a span, execution metrics and one log line.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, meta ExecMeta) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx, meta)

		duration := time.Since(start)
		kind := m.classify(err)
		m.tracer.EndSpan(span, kind, err)
		m.metrics.RecordExecution(ctx, meta, duration, kind)

		fields := []Field{
			String("template", meta.Template),
			String("target", meta.Target),
			String("outcome", kind),
			Duration("duration_ms", duration),
		}
		if meta.ID != "" {
			fields = append(fields, String("exec_id", meta.ID))
		}
		if meta.Category != "" {
			fields = append(fields, String("category", meta.Category))
		}

		if err != nil {
			m.logger.Warn(ctx, "script execution failed", append(fields, Err(err))...)
		} else {
			m.logger.Debug(ctx, "script execution completed", fields...)
		}

		return err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer, classify Classifier) (*Middleware, Metrics, error) {
	if obs == nil {
		return nil, nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger(), classify), metrics, nil
}
