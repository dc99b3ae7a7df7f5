package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/gateway"
	"github.com/jonwraymond/focusops/script"
)

const defaultProjectLimit = 200

// projectListQuery leaves Entities empty: any project event evicts
// project lists.
func projectListQuery(status, folder script.Value, limit int) gateway.Query {
	scope := cache.Scope{}
	if s, ok := status.AsString(); ok {
		scope.Shapes = []string{"status:" + s}
	}
	return gateway.Query{
		Template: script.ProjectsList,
		Params: script.Params{
			"status":    status,
			"folder_id": folder,
			"limit":     script.Int(limit),
		},
		Category: cache.Projects,
		Scope:    scope,
	}
}

// ListProjectsTool handles the list_projects MCP tool.
type ListProjectsTool struct {
	gw Gateway
}

// NewListProjectsTool creates a ListProjectsTool.
func NewListProjectsTool(gw Gateway) *ListProjectsTool {
	return &ListProjectsTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_projects",
		mcp.WithDescription("List OmniFocus projects with status, folder, review dates and remaining task count."),
		mcp.WithString("status",
			mcp.Description("Only projects with this status."),
			mcp.Enum("active", "on hold", "done", "dropped"),
		),
		mcp.WithString("folder_id", mcp.Description("Only projects in this folder.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of projects. Default: 200.")),
	)
}

// Handle processes the list_projects tool call.
func (t *ListProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := projectListQuery(optString(req, "status"), optString(req, "folder_id"), intArg(req, "limit", defaultProjectLimit))
	res, err := t.gw.Query(ctx, q)
	if err != nil {
		return failure("list_projects", err), nil
	}
	return dataResult(res), nil
}

func folderListQuery() gateway.Query {
	return gateway.Query{Template: script.FoldersList, Category: cache.Folders}
}

// ListFoldersTool handles the list_folders MCP tool.
type ListFoldersTool struct {
	gw Gateway
}

// NewListFoldersTool creates a ListFoldersTool.
func NewListFoldersTool(gw Gateway) *ListFoldersTool {
	return &ListFoldersTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *ListFoldersTool) Definition() mcp.Tool {
	return mcp.NewTool("list_folders",
		mcp.WithDescription("List OmniFocus folders with their parent and project count."),
	)
}

// Handle processes the list_folders tool call.
func (t *ListFoldersTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.gw.Query(ctx, folderListQuery())
	if err != nil {
		return failure("list_folders", err), nil
	}
	return dataResult(res), nil
}

// reviewQueueQuery with a null as_of means "now" in the script, so the
// default queue shares one cache entry.
func reviewQueueQuery(asOf script.Value) gateway.Query {
	return gateway.Query{
		Template: script.ReviewsDue,
		Params:   script.Params{"as_of": asOf},
		Category: cache.Reviews,
	}
}

// ReviewQueueTool handles the review_queue MCP tool.
type ReviewQueueTool struct {
	gw Gateway
}

// NewReviewQueueTool creates a ReviewQueueTool.
func NewReviewQueueTool(gw Gateway) *ReviewQueueTool {
	return &ReviewQueueTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *ReviewQueueTool) Definition() mcp.Tool {
	return mcp.NewTool("review_queue",
		mcp.WithDescription("List active projects whose next review date has passed."),
		mcp.WithString("as_of", mcp.Description("Review cutoff, YYYY-MM-DD or RFC 3339. Default: now.")),
	)
}

// Handle processes the review_queue tool call.
func (t *ReviewQueueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	asOf, err := optDate(req, "as_of")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := t.gw.Query(ctx, reviewQueueQuery(asOf))
	if err != nil {
		return failure("review_queue", err), nil
	}
	return dataResult(res), nil
}

// MarkProjectReviewedTool handles the mark_project_reviewed MCP tool.
// Review state is only writable from the bridge context.
type MarkProjectReviewedTool struct {
	gw Gateway
}

// NewMarkProjectReviewedTool creates a MarkProjectReviewedTool.
func NewMarkProjectReviewedTool(gw Gateway) *MarkProjectReviewedTool {
	return &MarkProjectReviewedTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *MarkProjectReviewedTool) Definition() mcp.Tool {
	return mcp.NewTool("mark_project_reviewed",
		mcp.WithDescription("Mark an OmniFocus project reviewed, advancing its next review date."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Project id.")),
	)
}

// Handle processes the mark_project_reviewed tool call.
func (t *MarkProjectReviewedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "id")
	if bad != nil {
		return bad, nil
	}
	res, err := t.gw.Mutate(ctx, gateway.Mutation{
		Template: script.ProjectsMarkReviewed,
		Params:   script.Params{"id": script.String(id)},
		Events: []cache.Event{
			cache.InvalidateEntities(cache.Projects, id),
			cache.InvalidateAll(cache.Reviews),
		},
	})
	if err != nil {
		return failure("mark_project_reviewed", err), nil
	}
	return dataResult(res), nil
}

func tagListQuery(includeEmpty bool) gateway.Query {
	return gateway.Query{
		Template: script.TagsList,
		Params:   script.Params{"include_empty": script.Bool(includeEmpty)},
		Category: cache.Tags,
	}
}

// ListTagsTool handles the list_tags MCP tool.
type ListTagsTool struct {
	gw Gateway
}

// NewListTagsTool creates a ListTagsTool.
func NewListTagsTool(gw Gateway) *ListTagsTool {
	return &ListTagsTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTagsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_tags",
		mcp.WithDescription("List OmniFocus tags with their parent and available task count."),
		mcp.WithBoolean("include_empty", mcp.Description("Include tags with no available tasks. Default: true.")),
	)
}

// Handle processes the list_tags tool call.
func (t *ListTagsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.gw.Query(ctx, tagListQuery(req.GetBool("include_empty", true)))
	if err != nil {
		return failure("list_tags", err), nil
	}
	return dataResult(res), nil
}

const defaultSummaryDays = 7

func summaryQuery(days int) gateway.Query {
	return gateway.Query{
		Template: script.AnalyticsSummary,
		Params:   script.Params{"days": script.Int(days)},
		Category: cache.Analytics,
	}
}

// ProductivitySummaryTool handles the productivity_summary MCP tool.
type ProductivitySummaryTool struct {
	gw Gateway
}

// NewProductivitySummaryTool creates a ProductivitySummaryTool.
func NewProductivitySummaryTool(gw Gateway) *ProductivitySummaryTool {
	return &ProductivitySummaryTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *ProductivitySummaryTool) Definition() mcp.Tool {
	return mcp.NewTool("productivity_summary",
		mcp.WithDescription(
			"Summarize recent OmniFocus activity: tasks completed in the window, "+
				"overdue, flagged and inbox counts, completion rate and completions per project. "+
				"Expensive on large databases; results are cached for an hour.",
		),
		mcp.WithNumber("days", mcp.Description("Window length in days. Default: 7.")),
	)
}

// Handle processes the productivity_summary tool call.
func (t *ProductivitySummaryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.gw.Query(ctx, summaryQuery(intArg(req, "days", defaultSummaryDays)))
	if err != nil {
		return failure("productivity_summary", err), nil
	}
	return dataResult(res), nil
}
