package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/health"
	"github.com/jonwraymond/focusops/journal"
	"github.com/jonwraymond/focusops/warmer"
)

// CacheReporter exposes cache counters. *cache.Manager satisfies it.
type CacheReporter interface {
	Stats() cache.Stats
}

// CacheWarmer runs a warming pass. *warmer.Warmer satisfies it.
type CacheWarmer interface {
	Warm(ctx context.Context) warmer.Report
}

// HealthReporter runs the registered health checks.
// *health.Aggregator satisfies it.
type HealthReporter interface {
	CheckAll(ctx context.Context) map[string]health.Result
	OverallStatus(results map[string]health.Result) health.Status
}

// ExecutionLog reads the execution journal. *journal.Journal satisfies it.
type ExecutionLog interface {
	Recent(ctx context.Context, f journal.Filter) ([]journal.Entry, error)
	Summary(ctx context.Context) (journal.Summary, error)
}

// CacheStatsTool handles the cache_stats MCP tool.
type CacheStatsTool struct {
	cache CacheReporter
}

// NewCacheStatsTool creates a CacheStatsTool.
func NewCacheStatsTool(c CacheReporter) *CacheStatsTool {
	return &CacheStatsTool{cache: c}
}

// Definition returns the MCP tool definition for registration.
func (t *CacheStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("cache_stats",
		mcp.WithDescription("Report cache hit ratio, fetch and eviction counters, and live entries per category."),
	)
}

type statsResponse struct {
	Hits            int64          `json:"hits"`
	Misses          int64          `json:"misses"`
	HitRatio        float64        `json:"hit_ratio"`
	Fetches         int64          `json:"fetches"`
	Coalesced       int64          `json:"coalesced"`
	FetchErrors     int64          `json:"fetch_errors"`
	Expired         int64          `json:"expired"`
	ScopedEvictions int64          `json:"scoped_evictions"`
	WideEvictions   int64          `json:"wide_evictions"`
	StaleDiscards   int64          `json:"stale_discards"`
	Entries         int            `json:"entries"`
	PerCategory     map[string]int `json:"per_category"`
}

// Handle processes the cache_stats tool call.
func (t *CacheStatsTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s := t.cache.Stats()
	out := statsResponse{
		Hits:            s.Hits,
		Misses:          s.Misses,
		HitRatio:        s.HitRatio(),
		Fetches:         s.Fetches,
		Coalesced:       s.Coalesced,
		FetchErrors:     s.FetchErrors,
		Expired:         s.Expired,
		ScopedEvictions: s.ScopedEvictions,
		WideEvictions:   s.WideEvictions,
		StaleDiscards:   s.StaleDiscards,
		Entries:         s.Entries,
		PerCategory:     make(map[string]int, len(s.PerCategory)),
	}
	for c, n := range s.PerCategory {
		out.PerCategory[string(c)] = n
	}
	return jsonResult(out), nil
}

// WarmCacheTool handles the warm_cache MCP tool.
type WarmCacheTool struct {
	warmer CacheWarmer
}

// NewWarmCacheTool creates a WarmCacheTool.
func NewWarmCacheTool(w CacheWarmer) *WarmCacheTool {
	return &WarmCacheTool{warmer: w}
}

// Definition returns the MCP tool definition for registration.
func (t *WarmCacheTool) Definition() mcp.Tool {
	return mcp.NewTool("warm_cache",
		mcp.WithDescription(
			"Refresh the common queries (tasks, projects, tags, folders, analytics) concurrently. "+
				"Each query has its own timeout; a slow one does not hold back the rest.",
		),
	)
}

type warmResult struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	DurationMS int64  `json:"duration_ms"`
	Bytes      int64  `json:"bytes,omitempty"`
	Error      string `json:"error,omitempty"`
}

type warmResponse struct {
	DurationMS int64        `json:"duration_ms"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Results    []warmResult `json:"results"`
}

func newWarmResponse(r warmer.Report) warmResponse {
	out := warmResponse{
		DurationMS: r.Duration.Milliseconds(),
		Succeeded:  r.Succeeded(),
		Failed:     r.Failed(),
		Results:    make([]warmResult, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		wr := warmResult{
			Name:       res.Name,
			Category:   string(res.Category),
			DurationMS: res.Duration.Milliseconds(),
			Bytes:      int64(res.Bytes),
		}
		if res.Err != nil {
			wr.Error = res.Err.Error()
		}
		out.Results = append(out.Results, wr)
	}
	return out
}

// Handle processes the warm_cache tool call.
func (t *WarmCacheTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := t.warmer.Warm(ctx)
	if len(report.Results) == 0 {
		return mcp.NewToolResultError("warm_cache: no warming targets are configured"), nil
	}
	return jsonResult(newWarmResponse(report)), nil
}

// DiagnoseTool handles the diagnose MCP tool.
type DiagnoseTool struct {
	health  HealthReporter
	journal ExecutionLog
}

// NewDiagnoseTool creates a DiagnoseTool. log may be nil.
func NewDiagnoseTool(h HealthReporter, log ExecutionLog) *DiagnoseTool {
	return &DiagnoseTool{health: h, journal: log}
}

// Definition returns the MCP tool definition for registration.
func (t *DiagnoseTool) Definition() mcp.Tool {
	return mcp.NewTool("diagnose",
		mcp.WithDescription(
			"Check OmniFocus reachability, automation permission, cache and circuit breaker state, "+
				"and list recent failed executions with their error codes.",
		),
		mcp.WithNumber("limit", mcp.Description("Recent executions to include. Default: 10.")),
		mcp.WithBoolean("failures_only", mcp.Description("Only include failed executions. Default: true.")),
	)
}

type checkResponse struct {
	Status     string         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Details    map[string]any `json:"details,omitempty"`
}

type executionResponse struct {
	ID         string    `json:"id"`
	Template   string    `json:"template"`
	Target     string    `json:"target"`
	Started    time.Time `json:"started"`
	DurationMS int64     `json:"duration_ms"`
	Kind       string    `json:"kind"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message,omitempty"`
	ExitCode   int       `json:"exit_code"`
}

type templateResponse struct {
	Template      string `json:"template"`
	Count         int    `json:"count"`
	Failures      int    `json:"failures"`
	AvgDurationMS int64  `json:"avg_duration_ms"`
	MaxDurationMS int64  `json:"max_duration_ms"`
}

type diagnoseResponse struct {
	Status     string                   `json:"status"`
	Checks     map[string]checkResponse `json:"checks"`
	Executions *journalResponse         `json:"executions,omitempty"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

type journalResponse struct {
	Total      int                 `json:"total"`
	ByKind     map[string]int      `json:"by_kind"`
	ByTemplate []templateResponse  `json:"by_template"`
	Recent     []executionResponse `json:"recent"`
}

// Handle processes the diagnose tool call.
func (t *DiagnoseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results := t.health.CheckAll(ctx)
	out := diagnoseResponse{
		Status: t.health.OverallStatus(results).String(),
		Checks: make(map[string]checkResponse, len(results)),
	}
	for name, r := range results {
		cr := checkResponse{
			Status:     r.Status.String(),
			Message:    r.Message,
			DurationMS: r.Duration.Milliseconds(),
			Details:    r.Details,
		}
		if r.Error != nil {
			cr.Error = r.Error.Error()
		}
		out.Checks[name] = cr
	}

	if t.journal != nil {
		jr, err := t.executions(ctx, intArg(req, "limit", 10), req.GetBool("failures_only", true))
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("execution journal unavailable: %v", err))
		} else {
			out.Executions = jr
		}
	}
	return jsonResult(out), nil
}

func (t *DiagnoseTool) executions(ctx context.Context, limit int, failuresOnly bool) (*journalResponse, error) {
	sum, err := t.journal.Summary(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := t.journal.Recent(ctx, journal.Filter{FailuresOnly: failuresOnly, Limit: limit})
	if err != nil {
		return nil, err
	}
	jr := &journalResponse{
		Total:      sum.Total,
		ByKind:     sum.ByKind,
		ByTemplate: make([]templateResponse, 0, len(sum.ByTemplate)),
		Recent:     make([]executionResponse, 0, len(recent)),
	}
	for _, ts := range sum.ByTemplate {
		jr.ByTemplate = append(jr.ByTemplate, templateResponse{
			Template:      ts.Template,
			Count:         ts.Count,
			Failures:      ts.Failures,
			AvgDurationMS: ts.AvgDuration.Milliseconds(),
			MaxDurationMS: ts.MaxDuration.Milliseconds(),
		})
	}
	sort.SliceStable(jr.ByTemplate, func(i, j int) bool {
		return jr.ByTemplate[i].Failures > jr.ByTemplate[j].Failures
	})
	for _, e := range recent {
		jr.Recent = append(jr.Recent, executionResponse{
			ID:         e.ID,
			Template:   e.Template,
			Target:     e.Target,
			Started:    e.Started,
			DurationMS: e.Duration.Milliseconds(),
			Kind:       e.Kind,
			Code:       e.Code,
			Message:    e.Message,
			ExitCode:   e.ExitCode,
		})
	}
	return jr, nil
}
