package cache

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkManager_GetOrFetch_Hit(b *testing.B) {
	m := NewManager()
	ctx := context.Background()
	_ = m.Set(ctx, "key", []byte("value"), Tasks, Scope{})
	fetch := func(context.Context) ([]byte, error) { return []byte("value"), nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.GetOrFetch(ctx, "key", Tasks, Scope{}, fetch)
	}
}

func BenchmarkManager_Set(b *testing.B) {
	m := NewManager()
	ctx := context.Background()
	value := []byte("value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Set(ctx, "key", value, Tasks, Scope{})
	}
}

func BenchmarkManager_InvalidateByEntity(b *testing.B) {
	ctx := context.Background()
	for _, size := range []int{100, 1000} {
		b.Run(fmt.Sprintf("entries=%d", size), func(b *testing.B) {
			m := NewManager(WithDependents(nil))
			for i := 0; i < size; i++ {
				_ = m.Set(ctx, fmt.Sprintf("k%d", i), nil, Tasks, EntityScope(fmt.Sprintf("proj-%d", i)))
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				m.Invalidate(ctx, InvalidateEntities(Tasks, "proj-none"))
			}
		})
	}
}

func BenchmarkKeyer_Key(b *testing.B) {
	keyer := NewDefaultKeyer()
	input := map[string]any{"view": "overdue", "limit": 50, "tags": []any{"a", "b"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Key(Tasks, "list", input)
	}
}
