package cache

import (
	"fmt"
	"slices"
)

// Scope records what a cached result was derived from. An empty Entities
// list means the result may depend on any entity in its category; an
// empty Shapes list means it may depend on any query shape.
type Scope struct {
	// Entities are ids of the entities the result touched, for example
	// the project a task list was filtered to.
	Entities []string

	// Shapes are tags describing the query, for example "view:overdue".
	Shapes []string
}

// EntityScope returns a scope over ids.
func EntityScope(ids ...string) Scope { return Scope{Entities: ids} }

// ShapeScope returns a scope over shape tags.
func ShapeScope(tags ...string) Scope { return Scope{Shapes: tags} }

func (s Scope) clone() Scope {
	return Scope{Entities: slices.Clone(s.Entities), Shapes: slices.Clone(s.Shapes)}
}

// EventKind selects how an Event matches entries.
type EventKind uint8

const (
	// All evicts every entry in the category.
	All EventKind = iota

	// ByEntity evicts entries whose entities intersect the event's IDs,
	// and entries with no recorded entities.
	ByEntity

	// ByQueryShape evicts entries whose shapes intersect the event's
	// Tags, and entries with no recorded shapes.
	ByQueryShape
)

func (k EventKind) String() string {
	switch k {
	case All:
		return "all"
	case ByEntity:
		return "entity"
	case ByQueryShape:
		return "shape"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event describes what a write affected. Writes hand events to
// Manager.Invalidate; the manager has no knowledge of what a write means.
type Event struct {
	Category Category
	Kind     EventKind
	IDs      []string
	Tags     []string
}

// InvalidateAll returns a category-wide event.
func InvalidateAll(c Category) Event { return Event{Category: c, Kind: All} }

// InvalidateEntities returns an event scoped to entity ids. Without ids
// it falls back to a category-wide event.
func InvalidateEntities(c Category, ids ...string) Event {
	if len(ids) == 0 {
		return InvalidateAll(c)
	}
	return Event{Category: c, Kind: ByEntity, IDs: ids}
}

// InvalidateShapes returns an event scoped to query shape tags. Without
// tags it falls back to a category-wide event.
func InvalidateShapes(c Category, tags ...string) Event {
	if len(tags) == 0 {
		return InvalidateAll(c)
	}
	return Event{Category: c, Kind: ByQueryShape, Tags: tags}
}

// matches reports whether an entry with scope s is affected by ev.
func (ev Event) matches(s Scope) bool {
	switch ev.Kind {
	case ByEntity:
		return len(s.Entities) == 0 || intersects(s.Entities, ev.IDs)
	case ByQueryShape:
		return len(s.Shapes) == 0 || intersects(s.Shapes, ev.Tags)
	default:
		return true
	}
}

func (ev Event) String() string {
	switch ev.Kind {
	case ByEntity:
		return fmt.Sprintf("%s/%s%v", ev.Category, ev.Kind, ev.IDs)
	case ByQueryShape:
		return fmt.Sprintf("%s/%s%v", ev.Category, ev.Kind, ev.Tags)
	default:
		return fmt.Sprintf("%s/%s", ev.Category, ev.Kind)
	}
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
