package health

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/outcome"
	"github.com/jonwraymond/focusops/resilience"
	"github.com/jonwraymond/focusops/warmer"
)

func TestOmniFocusChecker(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		err    error
		status Status
		kind   string
	}{
		{"reachable", `{"running":true,"version":"4.5"}`, nil, StatusHealthy, ""},
		{"slow", "", &outcome.Error{Kind: outcome.Timeout}, StatusDegraded, "timeout"},
		{"denied", "", &outcome.Error{Kind: outcome.PermissionDenied, Code: "OF_AUTOMATION_DENIED"}, StatusUnhealthy, "permission_denied"},
		{"not running", "", &outcome.Error{Kind: outcome.TargetUnavailable}, StatusUnhealthy, "target_unavailable"},
		{"script error", "", errors.New("boom"), StatusUnhealthy, "script_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOmniFocusChecker(func(context.Context) (json.RawMessage, error) {
				return json.RawMessage(tt.data), tt.err
			}, 0)
			r := c.Check(context.Background())
			if r.Status != tt.status {
				t.Errorf("status = %v, want %v (%s)", r.Status, tt.status, r.Message)
			}
			if tt.kind != "" && r.Details["kind"] != tt.kind {
				t.Errorf("kind = %v, want %s", r.Details["kind"], tt.kind)
			}
			if tt.err == nil && r.Details["version"] != "4.5" {
				t.Errorf("details = %v, want probe data", r.Details)
			}
		})
	}
}

func TestOmniFocusChecker_BoundsProbe(t *testing.T) {
	c := NewOmniFocusChecker(func(ctx context.Context) (json.RawMessage, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("probe should run under a deadline")
		}
		return json.RawMessage(`{}`), nil
	}, time.Second)
	if c.Name() != "omnifocus" {
		t.Errorf("Name() = %q", c.Name())
	}
	c.Check(context.Background())
}

func TestBreakerChecker(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Minute, Now: clock})
	c := NewBreakerChecker(cb)

	if r := c.Check(context.Background()); r.Status != StatusHealthy {
		t.Fatalf("closed breaker = %+v", r)
	}

	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("unavailable") })
	r := c.Check(context.Background())
	if r.Status != StatusUnhealthy || r.Details["state"] != "open" {
		t.Errorf("open breaker = %+v", r)
	}

	now = now.Add(2 * time.Minute)
	if r := c.Check(context.Background()); r.Status != StatusDegraded {
		t.Errorf("half-open breaker = %+v", r)
	}
}

type fixedStats cache.Stats

func (s fixedStats) Stats() cache.Stats { return cache.Stats(s) }

func TestCacheChecker(t *testing.T) {
	tests := []struct {
		name   string
		stats  cache.Stats
		status Status
	}{
		{"empty", cache.Stats{}, StatusHealthy},
		{"few fetches failing", cache.Stats{Fetches: 3, FetchErrors: 3}, StatusHealthy},
		{"most fetches failing", cache.Stats{Fetches: 20, FetchErrors: 11}, StatusDegraded},
		{"some failures", cache.Stats{Fetches: 20, FetchErrors: 4, Entries: 6}, StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCacheChecker(fixedStats(tt.stats)).Check(context.Background())
			if r.Status != tt.status {
				t.Errorf("status = %v, want %v", r.Status, tt.status)
			}
		})
	}
}

type fixedReport struct {
	report warmer.Report
	ok     bool
}

func (f fixedReport) LastReport() (warmer.Report, bool) { return f.report, f.ok }

func TestWarmChecker(t *testing.T) {
	if r := NewWarmChecker(fixedReport{}).Check(context.Background()); r.Status != StatusDegraded {
		t.Errorf("never warmed = %+v", r)
	}

	report := warmer.Report{Started: time.Now(), Results: []warmer.Result{
		{Name: "tasks", Category: cache.Tasks},
		{Name: "tags", Category: cache.Tags, Err: errors.New("timeout after 45s")},
	}}
	r := NewWarmChecker(fixedReport{report: report, ok: true}).Check(context.Background())
	if r.Status != StatusDegraded || r.Message != "warming failed for tags" {
		t.Errorf("partial = %+v", r)
	}

	report.Results = report.Results[:1]
	if r := NewWarmChecker(fixedReport{report: report, ok: true}).Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("warmed = %+v", r)
	}
}

func TestProcessChecker(t *testing.T) {
	tests := []struct {
		name       string
		heap       uint64
		goroutines int
		status     Status
	}{
		{"normal", 10 << 20, 50, StatusHealthy},
		{"heap high", 90 << 20, 50, StatusDegraded},
		{"goroutines over", 10 << 20, 1500, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessChecker(ProcessCheckerConfig{MaxHeapBytes: 100 << 20, MaxGoroutines: 1000})
			p.heap = func() uint64 { return tt.heap }
			p.goroutines = func() int { return tt.goroutines }
			if r := p.Check(context.Background()); r.Status != tt.status {
				t.Errorf("status = %v, want %v (%s)", r.Status, tt.status, r.Message)
			}
		})
	}
}

func TestProcessChecker_Defaults(t *testing.T) {
	p := NewProcessChecker(ProcessCheckerConfig{WarnRatio: 2})
	if p.cfg.MaxHeapBytes != 512<<20 || p.cfg.MaxGoroutines != 10000 || p.cfg.WarnRatio != 0.8 {
		t.Errorf("cfg = %+v", p.cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if r := p.Check(ctx); r.Status != StatusUnhealthy {
		t.Errorf("canceled check = %+v", r)
	}
}
