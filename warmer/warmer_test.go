package warmer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/resilience"
)

func valueFetch(v string) cache.Fetch {
	return func(context.Context) ([]byte, error) { return []byte(v), nil }
}

func blockingFetch() cache.Fetch {
	return func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func TestWarm_TimeoutIsolatedPerTarget(t *testing.T) {
	m := cache.NewManager()
	w := New(m)
	err := w.Add(
		Target{Category: cache.Tasks, Key: "tasks", Fetch: valueFetch("T")},
		Target{Category: cache.Projects, Key: "projects", Fetch: valueFetch("P")},
		Target{Category: cache.Tags, Key: "tags", Fetch: blockingFetch(), Timeout: 20 * time.Millisecond},
		Target{Category: cache.Analytics, Key: "analytics", Fetch: valueFetch("A")},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	report := w.Warm(context.Background())

	if report.Succeeded() != 3 || report.Failed() != 1 {
		t.Fatalf("succeeded=%d failed=%d", report.Succeeded(), report.Failed())
	}
	tags, _ := report.Result("tags")
	if !errors.Is(tags.Err, resilience.ErrTimeout) {
		t.Errorf("tags error = %v, want timeout", tags.Err)
	}
	for _, key := range []string{"tasks", "projects", "analytics"} {
		if _, ok := m.Get(context.Background(), key); !ok {
			t.Errorf("%s should be cached", key)
		}
	}
	if _, ok := m.Get(context.Background(), "tags"); ok {
		t.Error("timed out target must not be cached")
	}
	if report.Results[0].Name != "tasks" || report.Results[3].Name != "analytics" {
		t.Errorf("results should follow registration order: %+v", report.Results)
	}
}

func TestWarm_RunsConcurrently(t *testing.T) {
	w := New(cache.NewManager())

	const n = 4
	var arrived sync.WaitGroup
	arrived.Add(n)
	rendezvous := func(context.Context) ([]byte, error) {
		arrived.Done()
		arrived.Wait()
		return []byte("x"), nil
	}
	for i, c := range []cache.Category{cache.Tasks, cache.Projects, cache.Tags, cache.Folders} {
		_ = w.Add(Target{Category: c, Key: string(c) + string(rune('0'+i)), Fetch: rendezvous, Timeout: time.Second})
	}

	// Sequential warming would time out at the rendezvous.
	report := w.Warm(context.Background())
	if report.Failed() != 0 {
		t.Errorf("failed = %d, targets did not run concurrently", report.Failed())
	}
}

func TestWarm_FailureDoesNotCancelOthers(t *testing.T) {
	w := New(cache.NewManager())
	boom := errors.New("boom")
	_ = w.Add(
		Target{Category: cache.Tasks, Key: "a", Fetch: func(context.Context) ([]byte, error) { return nil, boom }},
		Target{Category: cache.Tags, Key: "b", Fetch: func(ctx context.Context) ([]byte, error) {
			time.Sleep(10 * time.Millisecond)
			return []byte("ok"), ctx.Err()
		}},
	)

	report := w.Warm(context.Background())
	a, _ := report.Result("tasks")
	b, _ := report.Result("tags")
	if !errors.Is(a.Err, boom) {
		t.Errorf("tasks err = %v", a.Err)
	}
	if !b.OK() || b.Bytes != 2 {
		t.Errorf("tags result = %+v", b)
	}
}

func TestWarm_DefaultTimeout(t *testing.T) {
	w := New(cache.NewManager(), WithDefaultTimeout(10*time.Millisecond))
	_ = w.Add(Target{Category: cache.Reviews, Key: "r", Fetch: blockingFetch()})

	report := w.Warm(context.Background())
	if report.Failed() != 1 {
		t.Errorf("default timeout should apply, report = %+v", report)
	}
}

func TestWarm_LastReport(t *testing.T) {
	w := New(cache.NewManager())
	if _, ok := w.LastReport(); ok {
		t.Fatal("no report before the first Warm")
	}
	_ = w.Add(Target{Category: cache.Folders, Key: "f", Fetch: valueFetch("F")})
	w.Warm(context.Background())

	last, ok := w.LastReport()
	if !ok || last.Succeeded() != 1 {
		t.Errorf("LastReport = %+v, %v", last, ok)
	}
}

func TestWarm_NoTargets(t *testing.T) {
	report := New(cache.NewManager()).Warm(context.Background())
	if len(report.Results) != 0 || report.Failed() != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestAdd_Validation(t *testing.T) {
	w := New(cache.NewManager())
	tests := []struct {
		name   string
		target Target
		want   error
	}{
		{"unknown category", Target{Category: "notes", Key: "k", Fetch: valueFetch("")}, ErrInvalidTarget},
		{"missing key", Target{Category: cache.Tasks, Fetch: valueFetch("")}, ErrInvalidTarget},
		{"missing fetch", Target{Category: cache.Tasks, Key: "k"}, ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.Add(tt.target); !errors.Is(err, tt.want) {
				t.Errorf("Add() = %v, want %v", err, tt.want)
			}
		})
	}

	_ = w.Add(Target{Name: "inbox", Category: cache.Tasks, Key: "k", Fetch: valueFetch("")})
	if err := w.Add(Target{Name: "inbox", Category: cache.Tasks, Key: "k2", Fetch: valueFetch("")}); !errors.Is(err, ErrDuplicateTarget) {
		t.Errorf("expected ErrDuplicateTarget, got %v", err)
	}
	if got := w.Targets(); len(got) != 1 || got[0] != "inbox" {
		t.Errorf("Targets() = %v", got)
	}
}
