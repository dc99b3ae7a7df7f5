package health

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/outcome"
	"github.com/jonwraymond/focusops/resilience"
	"github.com/jonwraymond/focusops/warmer"
)

// Probe runs the OmniFocus reachability script and returns its data.
type Probe func(ctx context.Context) (json.RawMessage, error)

// OmniFocusChecker reports whether OmniFocus answers a trivial script.
type OmniFocusChecker struct {
	probe   Probe
	timeout time.Duration
}

// NewOmniFocusChecker creates a checker around probe. A zero timeout
// means 15 seconds.
func NewOmniFocusChecker(probe Probe, timeout time.Duration) *OmniFocusChecker {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OmniFocusChecker{probe: probe, timeout: timeout}
}

// Name returns the name of this checker.
func (c *OmniFocusChecker) Name() string { return "omnifocus" }

// Check runs the probe. A timeout degrades; an unreachable application
// or a missing automation permission is unhealthy.
func (c *OmniFocusChecker) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.probe(ctx)
	if err == nil {
		details := map[string]any{}
		_ = json.Unmarshal(data, &details)
		return Healthy("OmniFocus is reachable").WithDetails(details)
	}

	kind := outcome.KindOf(err)
	details := map[string]any{"kind": kind.String()}
	if code := outcome.CodeOf(err); code != "" {
		details["code"] = code
		if rem := outcome.Remediation(code); rem != "" {
			details["remediation"] = rem
		}
	}
	switch kind {
	case outcome.Timeout:
		return Degraded("OmniFocus is slow to respond").WithDetails(details)
	case outcome.PermissionDenied:
		return Unhealthy("automation permission denied", err).WithDetails(details)
	case outcome.TargetUnavailable:
		return Unhealthy("OmniFocus is not reachable", err).WithDetails(details)
	default:
		return Unhealthy("probe script failed", err).WithDetails(details)
	}
}

// BreakerSource exposes circuit breaker state. *resilience.CircuitBreaker
// satisfies it.
type BreakerSource interface {
	Metrics() resilience.CircuitBreakerMetrics
}

// NewBreakerChecker reports the breaker guarding script execution: open
// is unhealthy, half-open is degraded.
func NewBreakerChecker(b BreakerSource) Checker {
	return NewCheckerFunc("breaker", func(context.Context) Result {
		m := b.Metrics()
		details := map[string]any{
			"state":     m.State.String(),
			"failures":  m.Failures,
			"successes": m.Successes,
			"rejected":  m.Rejected,
			"opened":    m.Opened,
		}
		if !m.LastFailure.IsZero() {
			details["last_failure"] = m.LastFailure.Format(time.RFC3339)
		}
		switch m.State {
		case resilience.StateOpen:
			return Unhealthy("circuit open: executions are rejected", resilience.ErrCircuitOpen).WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("circuit half-open: probing the target").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}

// StatsSource exposes cache counters. *cache.Manager satisfies it.
type StatsSource interface {
	Stats() cache.Stats
}

// minFetchesForRatio is the fetch count below which the error ratio is
// not judged.
const minFetchesForRatio = 10

// NewCacheChecker reports cache counters. It degrades when most fetches
// behind the cache fail.
func NewCacheChecker(s StatsSource) Checker {
	return NewCheckerFunc("cache", func(context.Context) Result {
		st := s.Stats()
		details := map[string]any{
			"entries":      st.Entries,
			"hits":         st.Hits,
			"misses":       st.Misses,
			"hit_ratio":    st.HitRatio(),
			"fetches":      st.Fetches,
			"fetch_errors": st.FetchErrors,
		}
		if st.Fetches >= minFetchesForRatio && st.FetchErrors*2 > st.Fetches {
			return Degraded(fmt.Sprintf("%d of %d fetches failed", st.FetchErrors, st.Fetches)).WithDetails(details)
		}
		return Healthy(fmt.Sprintf("%d live entries", st.Entries)).WithDetails(details)
	})
}

// ReportSource exposes the last warming report. *warmer.Warmer
// satisfies it.
type ReportSource interface {
	LastReport() (warmer.Report, bool)
}

// NewWarmChecker reports the last warming pass. No pass yet, or any
// failed target, is degraded.
func NewWarmChecker(s ReportSource) Checker {
	return NewCheckerFunc("warm", func(context.Context) Result {
		r, ok := s.LastReport()
		if !ok {
			return Degraded("cache not warmed yet")
		}
		var failed []string
		for _, res := range r.Results {
			if !res.OK() {
				failed = append(failed, res.Name)
			}
		}
		details := map[string]any{
			"started":   r.Started.Format(time.RFC3339),
			"duration":  r.Duration.String(),
			"succeeded": r.Succeeded(),
			"failed":    len(failed),
		}
		if len(failed) > 0 {
			return Degraded("warming failed for " + strings.Join(failed, ", ")).WithDetails(details)
		}
		return Healthy(fmt.Sprintf("%d targets warmed", r.Succeeded())).WithDetails(details)
	})
}
