package health

import (
	"context"
	"fmt"
	"runtime"
)

// ProcessCheckerConfig sets the limits of the server process.
type ProcessCheckerConfig struct {
	// MaxHeapBytes is the heap size considered unhealthy.
	// Default: 512 MiB.
	MaxHeapBytes uint64

	// MaxGoroutines is the goroutine count considered unhealthy. Leaked
	// execution waiters show up here first. Default: 10000.
	MaxGoroutines int

	// WarnRatio of either limit degrades the check. Default: 0.8.
	WarnRatio float64
}

// ProcessChecker reports heap and goroutine usage of the server.
type ProcessChecker struct {
	cfg        ProcessCheckerConfig
	goroutines func() int
	heap       func() uint64
}

// NewProcessChecker creates a process checker.
func NewProcessChecker(cfg ProcessCheckerConfig) *ProcessChecker {
	if cfg.MaxHeapBytes == 0 {
		cfg.MaxHeapBytes = 512 << 20
	}
	if cfg.MaxGoroutines <= 0 {
		cfg.MaxGoroutines = 10000
	}
	if cfg.WarnRatio <= 0 || cfg.WarnRatio >= 1 {
		cfg.WarnRatio = 0.8
	}
	return &ProcessChecker{
		cfg:        cfg,
		goroutines: runtime.NumGoroutine,
		heap: func() uint64 {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			return ms.HeapAlloc
		},
	}
}

// Name returns the name of this checker.
func (p *ProcessChecker) Name() string { return "process" }

// Check compares current usage with the configured limits.
func (p *ProcessChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	heap := p.heap()
	goroutines := p.goroutines()
	heapRatio := float64(heap) / float64(p.cfg.MaxHeapBytes)
	goRatio := float64(goroutines) / float64(p.cfg.MaxGoroutines)
	details := map[string]any{
		"heap_bytes":      heap,
		"heap_mb":         float64(heap) / (1 << 20),
		"heap_limit":      p.cfg.MaxHeapBytes,
		"goroutines":      goroutines,
		"goroutine_limit": p.cfg.MaxGoroutines,
	}

	worst := max(heapRatio, goRatio)
	msg := fmt.Sprintf("heap %.1f MiB, %d goroutines", float64(heap)/(1<<20), goroutines)
	switch {
	case worst >= 1:
		return Unhealthy("process over limits: "+msg, ErrCheckFailed).WithDetails(details)
	case worst >= p.cfg.WarnRatio:
		return Degraded("process near limits: "+msg).WithDetails(details)
	default:
		return Healthy(msg).WithDetails(details)
	}
}
