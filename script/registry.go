package script

import (
	"fmt"
	"slices"
	"sync"
)

// Registry holds templates and preambles. It is populated at startup and
// sealed before serving; a sealed registry rejects registration.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: registration errors wrap ErrInvalidTemplate, ErrDuplicateTemplate,
//     ErrUnknownPreamble or ErrSealed.
type Registry struct {
	mu        sync.RWMutex
	sealed    bool
	templates map[string]*compiled
	preambles map[string]Preamble
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]*compiled),
		preambles: make(map[string]Preamble),
	}
}

// RegisterPreamble adds a shared helper block.
func (r *Registry) RegisterPreamble(p Preamble) error {
	if p.Name == "" || p.Body == "" {
		return fmt.Errorf("%w: preamble needs a name and body", ErrInvalidTemplate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	if _, dup := r.preambles[p.Name]; dup {
		return fmt.Errorf("%w: preamble %s", ErrDuplicateTemplate, p.Name)
	}
	r.preambles[p.Name] = p
	return nil
}

// Register parses and adds a template. Every required preamble must
// already be registered for the same target.
func (r *Registry) Register(t Template) error {
	c, err := compile(t)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	if _, dup := r.templates[t.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTemplate, t.ID)
	}
	for _, name := range t.Requires {
		p, ok := r.preambles[name]
		if !ok {
			return fmt.Errorf("%w: %s requires %q", ErrUnknownPreamble, t.ID, name)
		}
		if p.Target != t.Target {
			return fmt.Errorf("%w: %s: preamble %q targets %s", ErrInvalidTemplate, t.ID, name, p.Target)
		}
	}
	c.tmpl.Requires = slices.Clone(t.Requires)
	c.tmpl.Params = slices.Clone(t.Params)
	r.templates[t.ID] = c
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Template returns the registered template with id.
func (r *Registry) Template(id string) (Template, bool) {
	c, ok := r.lookup(id)
	if !ok {
		return Template{}, false
	}
	t := c.tmpl
	t.Requires = slices.Clone(t.Requires)
	t.Params = slices.Clone(t.Params)
	return t, true
}

// IDs returns every registered template id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) lookup(id string) (*compiled, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.templates[id]
	return c, ok
}

func (r *Registry) preamble(name string) (Preamble, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.preambles[name]
	return p, ok
}
