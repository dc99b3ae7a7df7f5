package script

// Preamble names.
const (
	PreambleJXA  = "jxa-core"
	PreambleOmni = "omni-core"
)

// Built-in template ids.
const (
	TasksList        = "tasks.list"
	TasksGet         = "tasks.get"
	TasksCreate      = "tasks.create"
	TasksUpdate      = "tasks.update"
	TasksComplete    = "tasks.complete"
	TasksDelete      = "tasks.delete"
	ProjectsList     = "projects.list"
	FoldersList      = "folders.list"
	TagsList         = "tags.list"
	AnalyticsSummary = "analytics.summary"
	ReviewsDue       = "reviews.due"
	AppPing          = "app.ping"

	TasksSetTags         = "tasks.set_tags"
	TasksVerify          = "tasks.verify"
	ProjectsMarkReviewed = "projects.mark_reviewed"
	TagsCreate           = "tags.create"
)

// Catalog returns an unsealed registry holding the built-in OmniFocus
// preambles and templates.
func Catalog() (*Registry, error) {
	reg := NewRegistry()
	for _, p := range builtinPreambles {
		if err := reg.RegisterPreamble(p); err != nil {
			return nil, err
		}
	}
	for _, t := range builtinTemplates {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

var builtinPreambles = []Preamble{
	{Name: PreambleJXA, Target: Primary, Body: jxaCore},
	{Name: PreambleOmni, Target: Bridge, Body: omniCore},
}

const jxaCore = `const app = Application("OmniFocus");
const doc = app.defaultDocument;
function isoDate(d) { return d ? d.toISOString() : null; }
function safe(fn, fallback) {
  try { const v = fn(); return (v === undefined || v === null) ? fallback : v; } catch (e) { return fallback; }
}
function ref(o) { return o ? { id: o.id(), name: o.name() } : null; }
function taskJSON(t) {
  return {
    id: t.id(),
    name: t.name(),
    note: safe(() => t.note(), ""),
    completed: safe(() => t.completed(), false),
    flagged: safe(() => t.flagged(), false),
    dueDate: isoDate(safe(() => t.dueDate(), null)),
    deferDate: isoDate(safe(() => t.deferDate(), null)),
    completionDate: isoDate(safe(() => t.completionDate(), null)),
    estimatedMinutes: safe(() => t.estimatedMinutes(), null),
    inInbox: safe(() => t.inInbox(), false),
    project: safe(() => ref(t.containingProject()), null),
    tags: safe(() => t.tags().map(g => g.name()), [])
  };
}
function projectJSON(p) {
  return {
    id: p.id(),
    name: p.name(),
    status: safe(() => p.status(), "active"),
    folder: safe(() => ref(p.folder()), null),
    flagged: safe(() => p.flagged(), false),
    dueDate: isoDate(safe(() => p.dueDate(), null)),
    lastReviewDate: isoDate(safe(() => p.lastReviewDate(), null)),
    nextReviewDate: isoDate(safe(() => p.nextReviewDate(), null)),
    remaining: safe(() => p.numberOfAvailableTasks(), 0)
  };
}
function tagJSON(g) {
  return {
    id: g.id(),
    name: g.name(),
    parent: safe(() => ref(g.container()), null),
    available: safe(() => g.availableTaskCount(), 0),
    allowsNextAction: safe(() => g.allowsNextAction(), true)
  };
}
function folderJSON(f) {
  return {
    id: f.id(),
    name: f.name(),
    parent: safe(() => ref(f.container()), null),
    projects: safe(() => f.projects().length, 0)
  };
}
function byID(collection, id, kind) {
  const found = collection.whose({ id: id })();
  if (found.length === 0) { throw new Error(kind + " not found: " + id); }
  return found[0];
}
function findTask(id) { return byID(doc.flattenedTasks, id, "task"); }
function findProject(id) { return byID(doc.flattenedProjects, id, "project"); }
`

const omniCore = `function isoDate(d) { return d ? d.toISOString() : null; }
function taskByID(id) {
  const t = Task.byIdentifier(id);
  if (!t) { throw new Error("task not found: " + id); }
  return t;
}
function projectByID(id) {
  const p = Project.byIdentifier(id);
  if (!p) { throw new Error("project not found: " + id); }
  return p;
}
function tagNamed(name, create) {
  let g = flattenedTags.byName(name);
  if (!g && create) { g = new Tag(name); }
  return g;
}
function taskJSON(t) {
  return {
    id: t.id.primaryKey,
    name: t.name,
    completed: t.completed,
    flagged: t.flagged,
    dueDate: isoDate(t.dueDate),
    deferDate: isoDate(t.deferDate),
    project: t.containingProject ? { id: t.containingProject.id.primaryKey, name: t.containingProject.name } : null,
    tags: t.tags.map(g => g.name)
  };
}
`

var builtinTemplates = []Template{
	{
		ID:       TasksList,
		Target:   Primary,
		Requires: []string{PreambleJXA},
		Params: []Param{
			{Name: "view", Kind: KindString},
			{Name: "project_id", Kind: KindString},
			{Name: "tag", Kind: KindString},
			{Name: "limit", Kind: KindNumber},
		},
		Body: `const view = {{view}} || "all";
const projectID = {{project_id}};
const tagName = {{tag}};
const limit = {{limit}} || 100;
const now = new Date();
const endOfDay = new Date(now.getFullYear(), now.getMonth(), now.getDate() + 1);
const source = view === "inbox" ? doc.inboxTasks() : doc.flattenedTasks();
const out = [];
for (const t of source) {
  if (out.length >= limit) { break; }
  if (safe(() => t.completed(), false)) { continue; }
  const due = safe(() => t.dueDate(), null);
  if (view === "flagged" && !safe(() => t.flagged(), false)) { continue; }
  if (view === "today" && !(due && due < endOfDay)) { continue; }
  if (view === "overdue" && !(due && due < now)) { continue; }
  if (view === "available" && safe(() => t.blocked(), false)) { continue; }
  if (projectID !== null) {
    const p = safe(() => t.containingProject(), null);
    if (!p || p.id() !== projectID) { continue; }
  }
  if (tagName !== null && !safe(() => t.tags().some(g => g.name() === tagName), false)) { continue; }
  out.push(taskJSON(t));
}
return out;`,
	},
	{
		ID:       TasksGet,
		Target:   Primary,
		Requires: []string{PreambleJXA},
		Params:   []Param{{Name: "id", Kind: KindString, Required: true}},
		Body:     `return taskJSON(findTask({{id}}));`,
	},
	{
		ID:       TasksCreate,
		Target:   Primary,
		Mutating: true,
		Requires: []string{PreambleJXA},
		Params: []Param{
			{Name: "name", Kind: KindString, Required: true},
			{Name: "note", Kind: KindString},
			{Name: "project_id", Kind: KindString},
			{Name: "due", Kind: KindDate},
			{Name: "defer", Kind: KindDate},
			{Name: "flagged", Kind: KindBool},
			{Name: "estimated_minutes", Kind: KindNumber},
			{Name: "tags", Kind: KindArray},
		},
		Body: `const props = { name: {{name}} };
const note = {{note}};
if (note !== null) { props.note = note; }
const flagged = {{flagged}};
if (flagged !== null) { props.flagged = flagged; }
const due = {{due}};
if (due !== null) { props.dueDate = due; }
const deferDate = {{defer}};
if (deferDate !== null) { props.deferDate = deferDate; }
const minutes = {{estimated_minutes}};
if (minutes !== null) { props.estimatedMinutes = minutes; }
const task = app.Task(props);
const projectID = {{project_id}};
if (projectID !== null) {
  findProject(projectID).tasks.push(task);
} else {
  doc.inboxTasks.push(task);
}
const result = taskJSON(task);
result.pendingTags = {{tags}} || [];
return result;`,
	},
	{
		ID:       TasksUpdate,
		Target:   Primary,
		Mutating: true,
		Requires: []string{PreambleJXA},
		Params: []Param{
			{Name: "id", Kind: KindString, Required: true},
			{Name: "name", Kind: KindString},
			{Name: "note", Kind: KindString},
			{Name: "due", Kind: KindDate},
			{Name: "defer", Kind: KindDate},
			{Name: "clear_due", Kind: KindBool},
			{Name: "flagged", Kind: KindBool},
			{Name: "estimated_minutes", Kind: KindNumber},
		},
		Body: `const task = findTask({{id}});
const name = {{name}};
if (name !== null) { task.name = name; }
const note = {{note}};
if (note !== null) { task.note = note; }
const flagged = {{flagged}};
if (flagged !== null) { task.flagged = flagged; }
const due = {{due}};
if (due !== null) { task.dueDate = due; }
if ({{clear_due}} === true) { task.dueDate = null; }
const deferDate = {{defer}};
if (deferDate !== null) { task.deferDate = deferDate; }
const minutes = {{estimated_minutes}};
if (minutes !== null) { task.estimatedMinutes = minutes; }
return taskJSON(task);`,
	},
	{
		ID:       TasksComplete,
		Target:   Primary,
		Mutating: true,
		Requires: []string{PreambleJXA},
		Params:   []Param{{Name: "id", Kind: KindString, Required: true}},
		Body: `const task = findTask({{id}});
app.markComplete(task);
return taskJSON(task);`,
	},
	{
		ID:       TasksDelete,
		Target:   Primary,
		Mutating: true,
		Requires: []string{PreambleJXA},
		Params:   []Param{{Name: "id", Kind: KindString, Required: true}},
		Body: `const task = findTask({{id}});
const gone = { id: task.id(), name: task.name(), project: safe(() => ref(task.containingProject()), null) };
app.delete(task);
return gone;`,
	},
	{
		ID:       ProjectsList,
		Target:   Primary,
		Requires: []string{PreambleJXA},
		Params: []Param{
			{Name: "status", Kind: KindString},
			{Name: "folder_id", Kind: KindString},
			{Name: "limit", Kind: KindNumber},
		},
		Body: `const status = {{status}};
const folderID = {{folder_id}};
const limit = {{limit}} || 200;
const out = [];
for (const p of doc.flattenedProjects()) {
  if (out.length >= limit) { break; }
  const j = projectJSON(p);
  if (status !== null && j.status !== status) { continue; }
  if (folderID !== null && (!j.folder || j.folder.id !== folderID)) { continue; }
  out.push(j);
}
return out;`,
	},
	{
		ID:       FoldersList,
		Target:   Primary,
		Requires: []string{PreambleJXA},
		Body:     `return doc.flattenedFolders().map(folderJSON);`,
	},
	{
		ID:       TagsList,
		Target:   Primary,
		Requires: []string{PreambleJXA},
		Params:   []Param{{Name: "include_empty", Kind: KindBool}},
		Body: `const includeEmpty = {{include_empty}} !== false;
return doc.flattenedTags().map(tagJSON).filter(g => includeEmpty || g.available > 0);`,
	},
	{
		ID:       AnalyticsSummary,
		Target:   Primary,
		Requires: []string{PreambleJXA},
		Params:   []Param{{Name: "days", Kind: KindNumber}},
		Body: `const days = {{days}} || 7;
const now = new Date();
const since = new Date(now.getTime() - days * 86400000);
const summary = { days: days, completed: 0, overdue: 0, flagged: 0, remaining: 0, inbox: 0, byProject: {} };
for (const t of doc.flattenedTasks()) {
  const done = safe(() => t.completed(), false);
  if (done) {
    const at = safe(() => t.completionDate(), null);
    if (at && at >= since) {
      summary.completed++;
      const p = safe(() => t.containingProject(), null);
      const key = p ? p.name() : "Inbox";
      summary.byProject[key] = (summary.byProject[key] || 0) + 1;
    }
    continue;
  }
  summary.remaining++;
  const due = safe(() => t.dueDate(), null);
  if (due && due < now) { summary.overdue++; }
  if (safe(() => t.flagged(), false)) { summary.flagged++; }
  if (safe(() => t.inInbox(), false)) { summary.inbox++; }
}
summary.completionRate = (summary.completed + summary.remaining) === 0 ? 0 : summary.completed / (summary.completed + summary.remaining);
return summary;`,
	},
	{
		ID:       ReviewsDue,
		Target:   Primary,
		Requires: []string{PreambleJXA},
		Params:   []Param{{Name: "as_of", Kind: KindDate}},
		Body: `const asOf = {{as_of}} || new Date();
const out = [];
for (const p of doc.flattenedProjects()) {
  const j = projectJSON(p);
  if (j.status !== "active" && j.status !== "active status") { continue; }
  const next = safe(() => p.nextReviewDate(), null);
  if (next && next <= asOf) { out.push(j); }
}
return out;`,
	},
	{
		ID:       AppPing,
		Target:   Primary,
		Requires: []string{PreambleJXA},
		Body: `return {
  running: app.running(),
  version: safe(() => app.version(), null),
  document: safe(() => doc.name(), null)
};`,
	},
	{
		ID:       TasksSetTags,
		Target:   Bridge,
		Mutating: true,
		Requires: []string{PreambleOmni},
		Params: []Param{
			{Name: "id", Kind: KindString, Required: true},
			{Name: "tags", Kind: KindArray, Required: true},
			{Name: "mode", Kind: KindString},
		},
		Body: `const task = taskByID({{id}});
const mode = {{mode}} || "replace";
const tags = {{tags}}.map(n => tagNamed(n, mode !== "remove")).filter(g => g);
if (mode === "replace") {
  task.clearTags();
  task.addTags(tags);
} else if (mode === "add") {
  task.addTags(tags);
} else if (mode === "remove") {
  task.removeTags(tags);
} else {
  throw new Error("invalid tag mode: " + mode);
}
return taskJSON(task);`,
	},
	{
		ID:       TasksVerify,
		Target:   Bridge,
		Requires: []string{PreambleOmni},
		Params:   []Param{{Name: "id", Kind: KindString, Required: true}},
		Body:     `return taskJSON(taskByID({{id}}));`,
	},
	{
		ID:       ProjectsMarkReviewed,
		Target:   Bridge,
		Mutating: true,
		Requires: []string{PreambleOmni},
		Params:   []Param{{Name: "id", Kind: KindString, Required: true}},
		Body: `const p = projectByID({{id}});
p.markReviewed();
return {
  id: p.id.primaryKey,
  name: p.name,
  lastReviewDate: isoDate(p.lastReviewDate),
  nextReviewDate: isoDate(p.nextReviewDate)
};`,
	},
	{
		ID:       TagsCreate,
		Target:   Bridge,
		Mutating: true,
		Requires: []string{PreambleOmni},
		Params: []Param{
			{Name: "name", Kind: KindString, Required: true},
			{Name: "parent", Kind: KindString},
		},
		Body: `const name = {{name}};
const existing = flattenedTags.byName(name);
if (existing) {
  return { id: existing.id.primaryKey, name: existing.name, created: false };
}
const parentName = {{parent}};
const parent = parentName !== null ? tagNamed(parentName, true) : null;
const tag = parent ? new Tag(name, parent.ending) : new Tag(name);
return { id: tag.id.primaryKey, name: tag.name, created: true };`,
	},
}
