package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewTracingExporter(t *testing.T) {
	ctx := context.Background()

	exp, err := NewTracingExporter(ctx, "stdout", Options{Writer: &bytes.Buffer{}})
	if err != nil || exp == nil {
		t.Fatalf("stdout: exp=%v err=%v", exp, err)
	}
	_ = exp.Shutdown(ctx)

	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(ctx, name, Options{})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
		if exp != nil {
			t.Errorf("%q: expected no exporter", name)
		}
	}

	if _, err := NewTracingExporter(ctx, "zipkin", Options{}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestOTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewTracingExporter(context.Background(), "otlp", Options{}); !errors.Is(err, ErrNoOTLPEndpoint) {
		t.Errorf("traces: err = %v", err)
	}
	if _, err := NewMetricsReader(context.Background(), "otlp", Options{}); !errors.Is(err, ErrNoOTLPEndpoint) {
		t.Errorf("metrics: err = %v", err)
	}
}

func TestNewMetricsReader(t *testing.T) {
	ctx := context.Background()

	reader, err := NewMetricsReader(ctx, "stdout", Options{Writer: &bytes.Buffer{}})
	if err != nil || reader == nil {
		t.Fatalf("stdout: reader=%v err=%v", reader, err)
	}
	_ = reader.Shutdown(ctx)

	if reader, err := NewMetricsReader(ctx, "none", Options{}); err != nil || reader != nil {
		t.Errorf("none: reader=%v err=%v", reader, err)
	}

	reader, err = NewMetricsReader(ctx, "prometheus", Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("prometheus: %v", err)
	}
	if reader == nil {
		t.Fatal("expected prometheus reader")
	}

	if _, err := NewMetricsReader(ctx, "statsd", Options{}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}
