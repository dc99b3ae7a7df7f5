package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAggregator(omnifocus, warm Result) *Aggregator {
	agg := NewAggregator()
	agg.Register("omnifocus", fixed("omnifocus", omnifocus))
	agg.RegisterOptional("warm", fixed("warm", warm))
	return agg
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name      string
		omnifocus Result
		warm      Result
		code      int
		body      string
	}{
		{"healthy", Healthy(""), Healthy(""), http.StatusOK, "OK"},
		{"cold cache", Healthy(""), Unhealthy("", nil), http.StatusOK, "DEGRADED"},
		{"omnifocus down", Unhealthy("not running", ErrCheckFailed), Healthy(""), http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ReadinessHandler(newTestAggregator(tt.omnifocus, tt.warm))(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.code || rec.Body.String() != tt.body {
				t.Errorf("got %d %q, want %d %q", rec.Code, rec.Body.String(), tt.code, tt.body)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	agg := newTestAggregator(
		Unhealthy("automation permission denied", ErrCheckFailed).WithDetails(map[string]any{"code": "OF_AUTOMATION_DENIED"}),
		Healthy("5 targets warmed"),
	)
	rec := httptest.NewRecorder()
	DetailedHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unhealthy" || resp.Timestamp == "" {
		t.Errorf("resp = %+v", resp)
	}
	of := resp.Checks["omnifocus"]
	if of.Error != ErrCheckFailed.Error() || of.Details["code"] != "OF_AUTOMATION_DENIED" {
		t.Errorf("omnifocus = %+v", of)
	}
	if resp.Checks["warm"].Message != "5 targets warmed" {
		t.Errorf("warm = %+v", resp.Checks["warm"])
	}
}

func TestSingleCheckHandler(t *testing.T) {
	agg := newTestAggregator(Degraded("slow"), Healthy(""))

	rec := httptest.NewRecorder()
	SingleCheckHandler(agg, "omnifocus")(rec, httptest.NewRequest(http.MethodGet, "/health/omnifocus", nil))
	var resp CheckResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || resp.Status != "degraded" {
		t.Errorf("got %d %+v", rec.Code, resp)
	}

	rec = httptest.NewRecorder()
	SingleCheckHandler(agg, "missing")(rec, httptest.NewRequest(http.MethodGet, "/health/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing checker code = %d", rec.Code)
	}
}

func TestRegisterHandlers(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux, newTestAggregator(Healthy(""), Healthy("")))

	for _, path := range []string{"/healthz", "/readyz", "/health", "/health/omnifocus", "/health/warm"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s = %d", path, rec.Code)
		}
	}
}

func TestDetailedHandler_HonorsRequestContext(t *testing.T) {
	agg := NewAggregator()
	agg.Register("stuck", NewCheckerFunc("stuck", func(ctx context.Context) Result {
		<-ctx.Done()
		return Unhealthy("canceled", ctx.Err())
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	DetailedHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d", rec.Code)
	}
}
