package cache_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/focusops/cache"
)

func ExampleManager_GetOrFetch() {
	m := cache.NewManager()
	ctx := context.Background()

	fetch := func(context.Context) ([]byte, error) {
		fmt.Println("fetching")
		return []byte(`[{"id":"t1"}]`), nil
	}

	v, hit, _ := m.GetOrFetch(ctx, "focusops:tasks:list:demo", cache.Tasks, cache.Scope{}, fetch)
	fmt.Println(string(v), hit)

	v, hit, _ = m.GetOrFetch(ctx, "focusops:tasks:list:demo", cache.Tasks, cache.Scope{}, fetch)
	fmt.Println(string(v), hit)
	// Output:
	// fetching
	// [{"id":"t1"}] false
	// [{"id":"t1"}] true
}

func ExampleManager_Invalidate() {
	m := cache.NewManager()
	ctx := context.Background()

	_ = m.Set(ctx, "inbox", []byte("a"), cache.Tasks, cache.EntityScope("proj-1"))
	_ = m.Set(ctx, "errands", []byte("b"), cache.Tasks, cache.EntityScope("proj-2"))

	n := m.Invalidate(ctx, cache.InvalidateEntities(cache.Tasks, "proj-1"))
	fmt.Println("evicted:", n)

	_, ok := m.Get(ctx, "errands")
	fmt.Println("proj-2 cached:", ok)
	// Output:
	// evicted: 1
	// proj-2 cached: true
}

func ExampleKeyer() {
	keyer := cache.NewDefaultKeyer()

	a, _ := keyer.Key(cache.Tasks, "list", map[string]any{"view": "overdue", "limit": 25})
	b, _ := keyer.Key(cache.Tasks, "list", map[string]any{"limit": 25, "view": "overdue"})
	fmt.Println(a == b)
	// Output:
	// true
}
