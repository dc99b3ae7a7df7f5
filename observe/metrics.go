package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// KindSuccess is the outcome kind recorded for successful executions.
const KindSuccess = "success"

// Metrics records execution and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records one script execution and its outcome kind.
	RecordExecution(ctx context.Context, meta ExecMeta, duration time.Duration, kind string)

	// RecordCacheLookup records a cache hit or miss for category.
	RecordCacheLookup(ctx context.Context, category string, hit bool)

	// RecordEviction records n entries evicted from category. scope is
	// "entity", "shape", "all" or "expired".
	RecordEviction(ctx context.Context, category, scope string, n int)
}

type metricsImpl struct {
	execTotal    metric.Int64Counter
	execFailures metric.Int64Counter
	execDuration metric.Float64Histogram
	cacheLookups metric.Int64Counter
	cacheEvicted metric.Int64Counter
}

// NewMetrics creates the focusops instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	execTotal, err := meter.Int64Counter(
		"focusops.exec.total",
		metric.WithDescription("Total number of script executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	execFailures, err := meter.Int64Counter(
		"focusops.exec.failures",
		metric.WithDescription("Script executions that did not succeed, by outcome kind"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	execDuration, err := meter.Float64Histogram(
		"focusops.exec.duration_ms",
		metric.WithDescription("Script execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"focusops.cache.lookups",
		metric.WithDescription("Cache lookups by category and result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	cacheEvicted, err := meter.Int64Counter(
		"focusops.cache.evictions",
		metric.WithDescription("Cache entries evicted by category and scope"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		execTotal:    execTotal,
		execFailures: execFailures,
		execDuration: execDuration,
		cacheLookups: cacheLookups,
		cacheEvicted: cacheEvicted,
	}, nil
}

func (m *metricsImpl) RecordExecution(ctx context.Context, meta ExecMeta, duration time.Duration, kind string) {
	attrs := append(meta.attributes(), attribute.String("outcome.kind", kind))
	opt := metric.WithAttributes(attrs...)

	m.execTotal.Add(ctx, 1, opt)
	if kind != KindSuccess {
		m.execFailures.Add(ctx, 1, opt)
	}
	m.execDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, category string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.category", category),
		attribute.String("cache.result", result),
	))
}

func (m *metricsImpl) RecordEviction(ctx context.Context, category, scope string, n int) {
	if n <= 0 {
		return
	}
	m.cacheEvicted.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("cache.category", category),
		attribute.String("cache.scope", scope),
	))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

type nopMetrics struct{}

func (nopMetrics) RecordExecution(context.Context, ExecMeta, time.Duration, string) {}
func (nopMetrics) RecordCacheLookup(context.Context, string, bool)                  {}
func (nopMetrics) RecordEviction(context.Context, string, string, int)              {}
