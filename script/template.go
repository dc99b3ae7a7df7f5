package script

import (
	"fmt"
	"regexp"
	"strings"
)

// Target identifies the execution context a script runs in.
type Target uint8

const (
	// Primary is the JXA context driven by osascript.
	Primary Target = iota

	// Bridge is the Omni Automation context reached through
	// evaluateJavascript from inside a running primary script.
	Bridge
)

func (t Target) String() string {
	switch t {
	case Primary:
		return "primary"
	case Bridge:
		return "bridge"
	default:
		return fmt.Sprintf("target(%d)", uint8(t))
	}
}

// ParseTarget parses "primary" or "bridge".
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "primary", "jxa":
		return Primary, nil
	case "bridge", "omni":
		return Bridge, nil
	}
	return 0, fmt.Errorf("script: unknown target %q", s)
}

// Param declares one template parameter. Kind KindNull accepts any kind.
type Param struct {
	Name     string
	Kind     Kind
	Required bool
}

// Template is a named script pattern with {{name}} placeholders.
//
// Body runs inside a function: it must return its result with a
// top-level return statement.
type Template struct {
	ID       string
	Target   Target
	Mutating bool
	Requires []string
	Params   []Param
	Body     string
}

// Preamble is a shared helper block included at most once per script.
type Preamble struct {
	Name   string
	Target Target
	Body   string
}

var (
	placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)
	paramNameRE   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// segment is either literal text or a placeholder reference.
type segment struct {
	text  string
	param string
}

type compiled struct {
	tmpl     Template
	params   map[string]Param
	segments []segment
}

func compile(t Template) (*compiled, error) {
	if t.ID == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidTemplate)
	}
	if strings.TrimSpace(t.Body) == "" {
		return nil, fmt.Errorf("%w: %s: empty body", ErrInvalidTemplate, t.ID)
	}

	c := &compiled{tmpl: t, params: make(map[string]Param, len(t.Params))}
	for _, p := range t.Params {
		if !paramNameRE.MatchString(p.Name) {
			return nil, fmt.Errorf("%w: %s: invalid parameter name %q", ErrInvalidTemplate, t.ID, p.Name)
		}
		if _, dup := c.params[p.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate parameter %q", ErrInvalidTemplate, t.ID, p.Name)
		}
		c.params[p.Name] = p
	}

	last := 0
	for _, m := range placeholderRE.FindAllStringSubmatchIndex(t.Body, -1) {
		name := t.Body[m[2]:m[3]]
		if _, ok := c.params[name]; !ok {
			return nil, fmt.Errorf("%w: %s: undeclared placeholder %q", ErrInvalidTemplate, t.ID, name)
		}
		if m[0] > last {
			c.segments = append(c.segments, segment{text: t.Body[last:m[0]]})
		}
		c.segments = append(c.segments, segment{param: name})
		last = m[1]
	}
	if last < len(t.Body) {
		c.segments = append(c.segments, segment{text: t.Body[last:]})
	}
	return c, nil
}

// bind checks params against the declaration and writes the body with
// every placeholder replaced by its serialized value.
func (c *compiled) bind(b *strings.Builder, params Params) error {
	for name := range params {
		if _, ok := c.params[name]; !ok {
			return fmt.Errorf("%w: %s: %q", ErrUnknownParam, c.tmpl.ID, name)
		}
	}
	for _, p := range c.tmpl.Params {
		v, ok := params[p.Name]
		if !ok || v.IsNull() {
			if p.Required {
				return fmt.Errorf("%w: %s: %q", ErrMissingParam, c.tmpl.ID, p.Name)
			}
			continue
		}
		if p.Kind != KindNull && v.Kind() != p.Kind {
			return fmt.Errorf("%w: %s: %q is %s, want %s", ErrParamKind, c.tmpl.ID, p.Name, v.Kind(), p.Kind)
		}
	}

	for _, seg := range c.segments {
		if seg.param == "" {
			b.WriteString(seg.text)
			continue
		}
		writeValue(b, params[seg.param])
	}
	return nil
}
