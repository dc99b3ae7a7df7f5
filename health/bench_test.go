package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func BenchmarkAggregator_CheckAll(b *testing.B) {
	for _, n := range []int{1, 5, 20} {
		b.Run(fmt.Sprintf("checkers=%d", n), func(b *testing.B) {
			agg := NewAggregator()
			for i := range n {
				name := fmt.Sprintf("c%d", i)
				agg.Register(name, fixed(name, Healthy("")))
			}
			ctx := context.Background()
			b.ResetTimer()
			for b.Loop() {
				_ = agg.CheckAll(ctx)
			}
		})
	}
}

func BenchmarkDetailedHandler(b *testing.B) {
	agg := newTestAggregator(Healthy("ok"), Healthy("ok"))
	h := DetailedHandler(agg)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	for b.Loop() {
		h(httptest.NewRecorder(), req)
	}
}
