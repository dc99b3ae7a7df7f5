package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/focusops/runner"
	"github.com/jonwraymond/focusops/script"
)

// Runner executes a script. *runner.Executor satisfies it.
type Runner interface {
	Execute(ctx context.Context, s script.Script, timeout time.Duration) (runner.Result, error)
}

// Request is one execution request.
type Request struct {
	Template string
	Params   script.Params

	// Target, when set, must match the template's target.
	Target *script.Target

	Timeout time.Duration
}

// Execution is the script that ran and its raw result.
type Execution struct {
	// Script is the script handed to the runner. For bridge templates
	// this is the primary carrier script.
	Script script.Script

	// Inner is the wrapped Omni Automation script for bridge templates.
	Inner *script.Script

	Result runner.Result
}

// Dispatcher renders requests and hands them to a Runner, routing bridge
// templates through evaluateJavascript.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: rendering errors are returned before anything executes;
//     runner errors are returned with whatever result was produced. The
//     dispatcher never retries.
type Dispatcher struct {
	engine *script.Engine
	runner Runner
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(engine *script.Engine, r Runner) *Dispatcher {
	return &Dispatcher{engine: engine, runner: r}
}

// Template returns the registered template id.
func (d *Dispatcher) Template(id string) (script.Template, bool) {
	return d.engine.Registry().Template(id)
}

// Prepare renders req into the script that Execute would run, without
// running it.
func (d *Dispatcher) Prepare(ctx context.Context, req Request) (script.Script, *script.Script, error) {
	tmpl, ok := d.engine.Registry().Template(req.Template)
	if !ok {
		return script.Script{}, nil, fmt.Errorf("%w: %q", script.ErrUnknownTemplate, req.Template)
	}
	if req.Target != nil && *req.Target != tmpl.Target {
		return script.Script{}, nil, fmt.Errorf("%w: %s targets %s, request asked for %s",
			ErrTargetMismatch, tmpl.ID, tmpl.Target, *req.Target)
	}

	s, err := d.engine.Render(ctx, script.Call{Template: req.Template, Params: req.Params})
	if err != nil {
		return script.Script{}, nil, err
	}
	if s.Target == script.Primary {
		return script.Wrap(s), nil, nil
	}

	inner := script.Wrap(s)
	outer := Carrier(inner)
	d.engine.CheckSize(ctx, script.Primary, outer.Size(), s.Templates...)
	return outer, &inner, nil
}

// Execute renders and runs req.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (Execution, error) {
	if req.Timeout <= 0 {
		return Execution{}, ErrInvalidTimeout
	}
	s, inner, err := d.Prepare(ctx, req)
	if err != nil {
		return Execution{}, err
	}

	res, err := d.runner.Execute(ctx, s, req.Timeout)
	return Execution{Script: s, Inner: inner, Result: res}, err
}

// Carrier builds the primary script that evaluates inner in the Omni
// Automation context and relays its envelope on stdout. inner must
// already be wrapped; Carrier wraps it otherwise.
func Carrier(inner script.Script) script.Script {
	inner = script.Wrap(inner)

	var b strings.Builder
	b.Grow(len(inner.Text) + len(inner.Text)/8 + 256)
	b.WriteString("const app = Application(\"OmniFocus\");\n")
	b.WriteString("const doc = app.defaultDocument;\n")
	b.WriteString("try { doc.name(); } catch (e) { throw new Error(\"document is not available\"); }\n")
	b.WriteString("return app.evaluateJavascript(")
	b.WriteString(script.Quote(inner.Text))
	b.WriteString(");")

	return script.WrapRelay(script.Script{
		Target:    script.Primary,
		Templates: inner.Templates,
		Mutating:  inner.Mutating,
		Text:      b.String(),
	})
}
