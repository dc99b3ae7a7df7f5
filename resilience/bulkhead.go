package resilience

import (
	"context"
	"sync"
	"time"
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent caps operations running at once. Default: 4
	MaxConcurrent int

	// MaxWait bounds how long Acquire waits for a slot. Zero fails
	// immediately when full.
	MaxWait time.Duration
}

// Bulkhead caps concurrent operations, such as live osascript processes.
type Bulkhead struct {
	cfg   BulkheadConfig
	slots chan struct{}

	mu        sync.Mutex
	maxActive int
	rejected  int64
}

// BulkheadMetrics is a snapshot of bulkhead occupancy.
type BulkheadMetrics struct {
	Active        int
	MaxActive     int
	Available     int
	MaxConcurrent int
	Rejected      int64
}

// NewBulkhead creates a Bulkhead with defaults applied.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Bulkhead{cfg: cfg, slots: make(chan struct{}, cfg.MaxConcurrent)}
}

// Acquire takes a slot, waiting up to MaxWait. Every successful Acquire
// must be paired with Release.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		b.noteAcquired()
		return nil
	default:
	}

	if b.cfg.MaxWait <= 0 {
		b.noteRejected()
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.cfg.MaxWait)
	defer timer.Stop()
	select {
	case b.slots <- struct{}{}:
		b.noteAcquired()
		return nil
	case <-timer.C:
		b.noteRejected()
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (b *Bulkhead) Release() {
	select {
	case <-b.slots:
	default:
	}
}

// Execute runs op inside a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

// Metrics returns a snapshot of occupancy.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	active := len(b.slots)
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadMetrics{
		Active:        active,
		MaxActive:     b.maxActive,
		Available:     b.cfg.MaxConcurrent - active,
		MaxConcurrent: b.cfg.MaxConcurrent,
		Rejected:      b.rejected,
	}
}

func (b *Bulkhead) noteAcquired() {
	active := len(b.slots)
	b.mu.Lock()
	b.maxActive = max(b.maxActive, active)
	b.mu.Unlock()
}

func (b *Bulkhead) noteRejected() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}
