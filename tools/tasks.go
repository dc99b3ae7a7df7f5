package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/gateway"
	"github.com/jonwraymond/focusops/script"
)

// Task list views understood by tasks.list.
var taskViews = []string{"all", "inbox", "flagged", "today", "overdue", "available"}

const (
	defaultTaskLimit = 100

	// narrowTaskLimit is the limit a timed-out task list is retried with.
	narrowTaskLimit = 25
)

// taskRef is the part of a task payload that drives invalidation.
type taskRef struct {
	ID      string `json:"id"`
	Project *struct {
		ID string `json:"id"`
	} `json:"project"`
	Tags        []string `json:"tags"`
	PendingTags []string `json:"pendingTags"`
}

func (r taskRef) projectID() string {
	if r.Project == nil {
		return ""
	}
	return r.Project.ID
}

// taskEvents derives invalidation events from a task payload: the task
// and its containing project in the tasks category, the project in the
// projects category, and every tag when counts may have moved.
func taskEvents(known string, tags bool) func(json.RawMessage) []cache.Event {
	return func(data json.RawMessage) []cache.Event {
		var ref taskRef
		_ = json.Unmarshal(data, &ref)
		ids := compact(known, ref.ID, ref.projectID())
		events := []cache.Event{cache.InvalidateEntities(cache.Tasks, ids...)}
		if p := ref.projectID(); p != "" {
			events = append(events, cache.InvalidateEntities(cache.Projects, p))
		}
		if tags {
			events = append(events, cache.InvalidateAll(cache.Tags))
		}
		return events
	}
}

// unknownTaskEvents covers a write that timed out: it may have applied,
// and without its result the task's project is unknown.
func unknownTaskEvents(tags bool) []cache.Event {
	events := []cache.Event{cache.InvalidateAll(cache.Tasks), cache.InvalidateAll(cache.Projects)}
	if tags {
		events = append(events, cache.InvalidateAll(cache.Tags))
	}
	return events
}

func compact(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// narrowTaskList retries a timed-out list with a smaller limit.
func narrowTaskList(q gateway.Query) (gateway.Query, bool) {
	limit, _ := q.Params["limit"].AsNumber()
	if limit > 0 && limit <= narrowTaskLimit {
		return q, false
	}
	q.Params = maps.Clone(q.Params)
	q.Params["limit"] = script.Int(narrowTaskLimit)
	return q, true
}

// taskListQuery scopes a list by view and tag shapes, and by project
// entity when one is given.
func taskListQuery(view string, project, tag script.Value, limit int) gateway.Query {
	scope := cache.Scope{Shapes: []string{"view:" + view}}
	if id, ok := project.AsString(); ok {
		scope.Entities = []string{id}
	}
	if name, ok := tag.AsString(); ok {
		scope.Shapes = append(scope.Shapes, "tag:"+name)
	}
	return gateway.Query{
		Template: script.TasksList,
		Params: script.Params{
			"view":       script.String(view),
			"project_id": project,
			"tag":        tag,
			"limit":      script.Int(limit),
		},
		Category: cache.Tasks,
		Scope:    scope,
		Narrow:   narrowTaskList,
	}
}

// ListTasksTool handles the list_tasks MCP tool.
type ListTasksTool struct {
	gw Gateway
}

// NewListTasksTool creates a ListTasksTool.
func NewListTasksTool(gw Gateway) *ListTasksTool {
	return &ListTasksTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("list_tasks",
		mcp.WithDescription(
			"List incomplete OmniFocus tasks. "+
				"Filter by view, project or tag. Results are cached for a few minutes "+
				"and refreshed automatically after any write made through this server.",
		),
		mcp.WithString("view",
			mcp.Description("Which tasks to list."),
			mcp.Enum(taskViews...),
			mcp.DefaultString("all"),
		),
		mcp.WithString("project_id",
			mcp.Description("Only tasks in this project."),
		),
		mcp.WithString("tag",
			mcp.Description("Only tasks carrying this tag name."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of tasks to return. Default: 100."),
		),
	)
}

// Handle processes the list_tasks tool call.
func (t *ListTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view := req.GetString("view", "all")
	if !slices.Contains(taskViews, view) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid view %q: use one of %v", view, taskViews)), nil
	}
	project := optString(req, "project_id")
	tag := optString(req, "tag")

	res, err := t.gw.Query(ctx, taskListQuery(view, project, tag, intArg(req, "limit", defaultTaskLimit)))
	if err != nil {
		return failure("list_tasks", err), nil
	}
	return dataResult(res), nil
}

// GetTaskTool handles the get_task MCP tool.
type GetTaskTool struct {
	gw Gateway
}

// NewGetTaskTool creates a GetTaskTool.
func NewGetTaskTool(gw Gateway) *GetTaskTool {
	return &GetTaskTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *GetTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("get_task",
		mcp.WithDescription("Get one OmniFocus task by id, including its project and tags."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task id."),
		),
	)
}

// Handle processes the get_task tool call.
func (t *GetTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "id")
	if bad != nil {
		return bad, nil
	}
	res, err := t.gw.Query(ctx, gateway.Query{
		Template: script.TasksGet,
		Params:   script.Params{"id": script.String(id)},
		Category: cache.Tasks,
		Scope:    cache.EntityScope(id),
	})
	if err != nil {
		return failure("get_task", err), nil
	}
	return dataResult(res), nil
}

// CreateTaskTool handles the create_task MCP tool.
//
// Creation runs in the primary context. Tags are applied afterwards
// through the bridge context, which can create missing tags, and the
// result is read back through the bridge to confirm them.
type CreateTaskTool struct {
	gw Gateway
}

// NewCreateTaskTool creates a CreateTaskTool.
func NewCreateTaskTool(gw Gateway) *CreateTaskTool {
	return &CreateTaskTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("create_task",
		mcp.WithDescription(
			"Create an OmniFocus task in a project or the inbox. "+
				"Tags that do not exist yet are created. "+
				"The response reports whether the tags were verified on the new task.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Task name."),
		),
		mcp.WithString("note", mcp.Description("Task note.")),
		mcp.WithString("project_id", mcp.Description("Project to add the task to. Default: inbox.")),
		mcp.WithString("due", mcp.Description("Due date, YYYY-MM-DD or RFC 3339.")),
		mcp.WithString("defer", mcp.Description("Defer date, YYYY-MM-DD or RFC 3339.")),
		mcp.WithBoolean("flagged", mcp.Description("Flag the task.")),
		mcp.WithNumber("estimated_minutes", mcp.Description("Estimated duration in minutes.")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names. Example: 'errands, home'")),
	)
}

type createResponse struct {
	Task        json.RawMessage `json:"task"`
	ExecID      string          `json:"exec_id,omitempty"`
	Verified    bool            `json:"verified"`
	MissingTags []string        `json:"missing_tags,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// Handle processes the create_task tool call.
func (t *CreateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, bad := required(req, "name")
	if bad != nil {
		return bad, nil
	}
	due, err := optDate(req, "due")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deferDate, err := optDate(req, "defer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := splitList(req.GetString("tags", ""))

	params := script.Params{
		"name":              script.String(name),
		"note":              optString(req, "note"),
		"project_id":        optString(req, "project_id"),
		"due":               due,
		"defer":             deferDate,
		"flagged":           optBool(req, "flagged"),
		"estimated_minutes": optNumber(req, "estimated_minutes"),
	}
	if len(tags) > 0 {
		params["tags"] = script.Strings(tags...)
	}

	created, err := t.gw.Mutate(ctx, gateway.Mutation{
		Template:   script.TasksCreate,
		Params:     params,
		Events:     []cache.Event{cache.InvalidateAll(cache.Tasks)},
		Invalidate: taskEvents("", false),
	})
	if err != nil {
		return failure("create_task", err), nil
	}

	var ref taskRef
	if err := json.Unmarshal(created.Data, &ref); err != nil || ref.ID == "" {
		return mcp.NewToolResultError("create_task failed: no task id in the result"), nil
	}
	out := createResponse{Task: created.Data, ExecID: created.ExecID, Verified: true}

	if len(ref.PendingTags) > 0 {
		tagged, err := t.gw.Mutate(ctx, gateway.Mutation{
			Template: script.TasksSetTags,
			Params: script.Params{
				"id":   script.String(ref.ID),
				"tags": script.Strings(ref.PendingTags...),
				"mode": script.String("add"),
			},
			Events: []cache.Event{
				cache.InvalidateEntities(cache.Tasks, ref.ID),
				cache.InvalidateAll(cache.Tags),
			},
		})
		if err != nil {
			out.Verified = false
			out.MissingTags = ref.PendingTags
			out.Warnings = append(out.Warnings, fmt.Sprintf("task created but tags were not applied: %v", err))
			return jsonResult(out), nil
		}
		out.Task = tagged.Data
	}

	verified, err := t.gw.Run(ctx, script.TasksVerify, script.Params{"id": script.String(ref.ID)}, 0)
	if err != nil {
		out.Verified = false
		out.Warnings = append(out.Warnings, fmt.Sprintf("task created but could not be verified: %v", err))
		return jsonResult(out), nil
	}
	var seen taskRef
	_ = json.Unmarshal(verified.Data, &seen)
	for _, tag := range ref.PendingTags {
		if !slices.Contains(seen.Tags, tag) {
			out.MissingTags = append(out.MissingTags, tag)
		}
	}
	out.Verified = seen.ID == ref.ID && len(out.MissingTags) == 0
	out.Task = verified.Data
	return jsonResult(out), nil
}

// UpdateTaskTool handles the update_task MCP tool.
type UpdateTaskTool struct {
	gw Gateway
}

// NewUpdateTaskTool creates an UpdateTaskTool.
func NewUpdateTaskTool(gw Gateway) *UpdateTaskTool {
	return &UpdateTaskTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("update_task",
		mcp.WithDescription(
			"Update fields of an existing OmniFocus task. Only the given fields change. "+
				"Pass 'tags' with 'tag_mode' to add, remove or replace tags.",
		),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id.")),
		mcp.WithString("name", mcp.Description("New name.")),
		mcp.WithString("note", mcp.Description("New note.")),
		mcp.WithString("due", mcp.Description("New due date, YYYY-MM-DD or RFC 3339.")),
		mcp.WithBoolean("clear_due", mcp.Description("Remove the due date.")),
		mcp.WithString("defer", mcp.Description("New defer date, YYYY-MM-DD or RFC 3339.")),
		mcp.WithBoolean("flagged", mcp.Description("Set or clear the flag.")),
		mcp.WithNumber("estimated_minutes", mcp.Description("Estimated duration in minutes.")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names.")),
		mcp.WithString("tag_mode",
			mcp.Description("How 'tags' applies."),
			mcp.Enum("add", "remove", "replace"),
			mcp.DefaultString("replace"),
		),
	)
}

// Handle processes the update_task tool call.
func (t *UpdateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "id")
	if bad != nil {
		return bad, nil
	}
	due, err := optDate(req, "due")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deferDate, err := optDate(req, "defer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := req.GetString("tag_mode", "replace")
	if !slices.Contains([]string{"add", "remove", "replace"}, mode) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid tag_mode %q", mode)), nil
	}

	res, err := t.gw.Mutate(ctx, gateway.Mutation{
		Template: script.TasksUpdate,
		Params: script.Params{
			"id":                script.String(id),
			"name":              optString(req, "name"),
			"note":              optString(req, "note"),
			"due":               due,
			"clear_due":         optBool(req, "clear_due"),
			"defer":             deferDate,
			"flagged":           optBool(req, "flagged"),
			"estimated_minutes": optNumber(req, "estimated_minutes"),
		},
		Events:     unknownTaskEvents(false),
		Invalidate: taskEvents(id, false),
	})
	if err != nil {
		return failure("update_task", err), nil
	}

	_, hasTags := req.GetArguments()["tags"]
	tags := splitList(req.GetString("tags", ""))
	if !hasTags || (len(tags) == 0 && mode != "replace") {
		return dataResult(res), nil
	}
	tagged, err := t.gw.Mutate(ctx, gateway.Mutation{
		Template: script.TasksSetTags,
		Params: script.Params{
			"id":   script.String(id),
			"tags": script.Strings(tags...),
			"mode": script.String(mode),
		},
		Events: []cache.Event{
			cache.InvalidateEntities(cache.Tasks, id),
			cache.InvalidateAll(cache.Tags),
		},
	})
	if err != nil {
		return failure("update_task (tags)", err), nil
	}
	tagged.Invalidated += res.Invalidated
	return dataResult(tagged), nil
}

// CompleteTaskTool handles the complete_task MCP tool.
type CompleteTaskTool struct {
	gw Gateway
}

// NewCompleteTaskTool creates a CompleteTaskTool.
func NewCompleteTaskTool(gw Gateway) *CompleteTaskTool {
	return &CompleteTaskTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *CompleteTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("complete_task",
		mcp.WithDescription("Mark an OmniFocus task complete."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id.")),
	)
}

// Handle processes the complete_task tool call.
func (t *CompleteTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "id")
	if bad != nil {
		return bad, nil
	}
	res, err := t.gw.Mutate(ctx, gateway.Mutation{
		Template:   script.TasksComplete,
		Params:     script.Params{"id": script.String(id)},
		Events:     unknownTaskEvents(true),
		Invalidate: taskEvents(id, true),
	})
	if err != nil {
		return failure("complete_task", err), nil
	}
	return dataResult(res), nil
}

// DeleteTaskTool handles the delete_task MCP tool.
type DeleteTaskTool struct {
	gw Gateway
}

// NewDeleteTaskTool creates a DeleteTaskTool.
func NewDeleteTaskTool(gw Gateway) *DeleteTaskTool {
	return &DeleteTaskTool{gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_task",
		mcp.WithDescription("Permanently delete an OmniFocus task. This cannot be undone from here."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id.")),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true to delete."),
		),
	)
}

// Handle processes the delete_task tool call.
func (t *DeleteTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "id")
	if bad != nil {
		return bad, nil
	}
	if !req.GetBool("confirm", false) {
		return mcp.NewToolResultError("delete_task requires confirm=true"), nil
	}
	res, err := t.gw.Mutate(ctx, gateway.Mutation{
		Template:   script.TasksDelete,
		Params:     script.Params{"id": script.String(id)},
		Events:     unknownTaskEvents(true),
		Invalidate: taskEvents(id, true),
	})
	if err != nil {
		return failure("delete_task", err), nil
	}
	return dataResult(res), nil
}
