package health_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/focusops/health"
)

func ExampleAggregator_OverallStatus() {
	agg := health.NewAggregator()
	agg.Register("omnifocus", health.NewCheckerFunc("omnifocus", func(context.Context) health.Result {
		return health.Healthy("OmniFocus is reachable")
	}))
	agg.RegisterOptional("warm", health.NewCheckerFunc("warm", func(context.Context) health.Result {
		return health.Unhealthy("warming failed for tags", health.ErrCheckFailed)
	}))

	results := agg.CheckAll(context.Background())
	fmt.Println(results["omnifocus"].Status)
	fmt.Println(results["warm"].Status)
	fmt.Println(agg.OverallStatus(results))
	// Output:
	// healthy
	// unhealthy
	// degraded
}

func ExampleResult_WithDetails() {
	r := health.Degraded("circuit half-open").WithDetails(map[string]any{"state": "half-open"})
	fmt.Println(r.Status, r.Details["state"])
	// Output: degraded half-open
}
