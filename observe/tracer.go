package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ExecMeta describes one script execution for telemetry purposes.
type ExecMeta struct {
	ID       string // Execution id, unique per call (optional)
	Template string // Template id (required)
	Target   string // primary|bridge
	Category string // Cache category for queries, empty for writes
	Mutating bool   // True for writes
}

// SpanName returns the deterministic span name for this execution.
// Format: focusops.exec.<template>
func (m ExecMeta) SpanName() string {
	return "focusops.exec." + m.Template
}

// Validate reports whether the metadata can be recorded.
func (m ExecMeta) Validate() error {
	if m.Template == "" {
		return ErrMissingTemplate
	}
	return nil
}

func (m ExecMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("script.template", m.Template),
		attribute.String("script.target", m.Target),
		attribute.Bool("script.mutating", m.Mutating),
	}
	if m.Category != "" {
		attrs = append(attrs, attribute.String("cache.category", m.Category))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with execution-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a script execution.
	StartSpan(ctx context.Context, meta ExecMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the outcome kind and any error.
	EndSpan(span trace.Span, kind string, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta ExecMeta) (context.Context, trace.Span) {
	attrs := meta.attributes()
	if meta.ID != "" {
		attrs = append(attrs, attribute.String("exec.id", meta.ID))
	}
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, kind string, err error) {
	span.SetAttributes(attribute.String("outcome.kind", kind))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a Tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
