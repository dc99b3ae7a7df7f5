package tools

// Deps carries what the tool set needs. Warmer, Health and Journal are
// optional; the tools that need them are left out when they are nil.
type Deps struct {
	Gateway Gateway
	Cache   CacheReporter
	Warmer  CacheWarmer
	Health  HealthReporter
	Journal ExecutionLog
}

// All returns every tool the deps can serve, in registration order.
func All(d Deps) []Tool {
	out := []Tool{
		NewListTasksTool(d.Gateway),
		NewGetTaskTool(d.Gateway),
		NewCreateTaskTool(d.Gateway),
		NewUpdateTaskTool(d.Gateway),
		NewCompleteTaskTool(d.Gateway),
		NewDeleteTaskTool(d.Gateway),
		NewListProjectsTool(d.Gateway),
		NewListFoldersTool(d.Gateway),
		NewListTagsTool(d.Gateway),
		NewProductivitySummaryTool(d.Gateway),
		NewReviewQueueTool(d.Gateway),
		NewMarkProjectReviewedTool(d.Gateway),
	}
	if d.Cache != nil {
		out = append(out, NewCacheStatsTool(d.Cache))
	}
	if d.Warmer != nil {
		out = append(out, NewWarmCacheTool(d.Warmer))
	}
	if d.Health != nil {
		out = append(out, NewDiagnoseTool(d.Health, d.Journal))
	}
	return out
}
