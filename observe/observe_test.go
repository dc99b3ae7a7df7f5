package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/focusops/observe/exporters"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "minimal",
			cfg:  Config{ServiceName: "focusops"},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "bad tracing exporter",
			cfg: Config{
				ServiceName: "focusops",
				Tracing:     TracingConfig{Enabled: true, Exporter: "zipkin", SamplePct: 1},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct out of range",
			cfg: Config{
				ServiceName: "focusops",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "prometheus is not a tracing exporter",
			cfg: Config{
				ServiceName: "focusops",
				Tracing:     TracingConfig{Enabled: true, Exporter: "prometheus"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "bad metrics exporter",
			cfg: Config{
				ServiceName: "focusops",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "bad log level",
			cfg: Config{
				ServiceName: "focusops",
				Logging:     LoggingConfig{Enabled: true, Level: "trace"},
			},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "bad log format",
			cfg: Config{
				ServiceName: "focusops",
				Logging:     LoggingConfig{Enabled: true, Level: "info", Format: "xml"},
			},
			wantErr: ErrInvalidLogFormat,
		},
		{
			name: "disabled subsystems skip validation",
			cfg: Config{
				ServiceName: "focusops",
				Tracing:     TracingConfig{Exporter: "zipkin"},
				Metrics:     MetricsConfig{Exporter: "statsd"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "focusops"})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("observer accessors must never return nil")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestNewObserver_StdoutAndPrometheus(t *testing.T) {
	var traces bytes.Buffer
	reg := prometheus.NewRegistry()

	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "focusops",
		Version:     "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Exporters:   exporters.Options{Writer: &traces, Registerer: reg},
	})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	metrics.RecordCacheLookup(context.Background(), "tags", true)

	_, span := obs.Tracer().Start(context.Background(), "op")
	span.End()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected metric families in the dedicated registry")
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if traces.Len() == 0 {
		t.Error("expected spans flushed to the stdout exporter writer on shutdown")
	}
}
