package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/focusops/observe"
)

// Limits are the script size ceilings per context. Scripts above the
// ceiling are still executed; the engine only warns.
type Limits struct {
	Primary   int     // bytes, default 500000
	Bridge    int     // bytes, default 250000
	WarnRatio float64 // fraction of the ceiling that triggers a warning, default 0.9
}

// DefaultLimits returns the measured osascript ceilings.
func DefaultLimits() Limits {
	return Limits{Primary: 500_000, Bridge: 250_000, WarnRatio: 0.9}
}

// Ceiling returns the size ceiling for target.
func (l Limits) Ceiling(t Target) int {
	if t == Bridge {
		return l.Bridge
	}
	return l.Primary
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.Primary <= 0 {
		l.Primary = d.Primary
	}
	if l.Bridge <= 0 {
		l.Bridge = d.Bridge
	}
	if l.WarnRatio <= 0 || l.WarnRatio > 1 {
		l.WarnRatio = d.WarnRatio
	}
	return l
}

// Call names a template and the parameters to render it with.
type Call struct {
	Template string
	Params   Params
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for size warnings.
func WithLogger(l observe.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLimits overrides the size ceilings.
func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l.withDefaults() }
}

// Engine renders registered templates into scripts.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: parameter problems are reported before anything executes.
type Engine struct {
	reg    *Registry
	logger observe.Logger
	limits Limits
}

// NewEngine creates an Engine over reg.
func NewEngine(reg *Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:    reg,
		logger: observe.NopLogger(),
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's template registry.
func (e *Engine) Registry() *Registry { return e.reg }

// Limits returns the configured size ceilings.
func (e *Engine) Limits() Limits { return e.limits }

// Render composes one or more templates into a single unwrapped script.
//
// Every preamble required by any call is emitted once, in first-seen
// order. A single call renders to its body; several calls evaluate to an
// array holding each body's result in call order.
func (e *Engine) Render(ctx context.Context, calls ...Call) (Script, error) {
	if len(calls) == 0 {
		return Script{}, ErrNoCalls
	}

	compiledCalls := make([]*compiled, len(calls))
	for i, call := range calls {
		c, ok := e.reg.lookup(call.Template)
		if !ok {
			return Script{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, call.Template)
		}
		if i > 0 && c.tmpl.Target != compiledCalls[0].tmpl.Target {
			return Script{}, fmt.Errorf("%w: %s is %s, %s is %s", ErrMixedTargets,
				compiledCalls[0].tmpl.ID, compiledCalls[0].tmpl.Target, c.tmpl.ID, c.tmpl.Target)
		}
		compiledCalls[i] = c
	}

	s := Script{Target: compiledCalls[0].tmpl.Target}
	var b strings.Builder

	seen := make(map[string]bool)
	for _, c := range compiledCalls {
		for _, name := range c.tmpl.Requires {
			if seen[name] {
				continue
			}
			seen[name] = true
			p, ok := e.reg.preamble(name)
			if !ok {
				return Script{}, fmt.Errorf("%w: %q", ErrUnknownPreamble, name)
			}
			b.WriteString(strings.TrimRight(p.Body, "\n"))
			b.WriteString("\n")
		}
	}

	if len(calls) == 1 {
		b.WriteString("return (() => {\n")
		if err := compiledCalls[0].bind(&b, calls[0].Params); err != nil {
			return Script{}, err
		}
		b.WriteString("\n})();")
	} else {
		b.WriteString("return [\n")
		for i, c := range compiledCalls {
			b.WriteString("(() => {\n")
			if err := c.bind(&b, calls[i].Params); err != nil {
				return Script{}, err
			}
			b.WriteString("\n})(),\n")
		}
		b.WriteString("];")
	}

	for _, c := range compiledCalls {
		s.Templates = append(s.Templates, c.tmpl.ID)
		s.Mutating = s.Mutating || c.tmpl.Mutating
	}
	s.Text = b.String()

	e.CheckSize(ctx, s.Target, Wrap(s).Size(), s.Templates...)
	return s, nil
}

// CheckSize logs a warning when size reaches WarnRatio of the target's
// ceiling and reports whether it did. It never rejects a script.
func (e *Engine) CheckSize(ctx context.Context, target Target, size int, templates ...string) bool {
	ceiling := e.limits.Ceiling(target)
	if float64(size) < float64(ceiling)*e.limits.WarnRatio {
		return false
	}
	e.logger.Warn(ctx, "rendered script is near the context size ceiling",
		observe.String("target", target.String()),
		observe.Int("size", size),
		observe.Int("ceiling", ceiling),
		observe.String("templates", strings.Join(templates, ",")),
		observe.Bool("over", size > ceiling),
	)
	return true
}
