package script

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/focusops/observe"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(reg.RegisterPreamble(Preamble{Name: "helpers", Target: Primary, Body: "function helper() { return 1; }"}))
	must(reg.RegisterPreamble(Preamble{Name: "dates", Target: Primary, Body: "function iso(d) { return d.toISOString(); }"}))
	must(reg.RegisterPreamble(Preamble{Name: "omni", Target: Bridge, Body: "function omni() { return 2; }"}))
	must(reg.Register(Template{
		ID:       "a",
		Target:   Primary,
		Requires: []string{"helpers"},
		Params:   []Param{{Name: "name", Kind: KindString, Required: true}},
		Body:     "return helper() + {{name}};",
	}))
	must(reg.Register(Template{
		ID:       "b",
		Target:   Primary,
		Requires: []string{"helpers", "dates"},
		Params:   []Param{{Name: "when", Kind: KindDate}},
		Body:     "return iso({{ when }} || new Date());",
	}))
	must(reg.Register(Template{
		ID:       "c",
		Target:   Bridge,
		Requires: []string{"omni"},
		Body:     "return omni();",
	}))
	return reg
}

func TestRender_SingleTemplate(t *testing.T) {
	e := NewEngine(newTestRegistry(t))

	s, err := e.Render(context.Background(), Call{Template: "a", Params: Params{"name": String("x")}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "function helper() { return 1; }\nreturn (() => {\nreturn helper() + \"x\";\n})();"
	if s.Text != want {
		t.Errorf("Text =\n%s\nwant\n%s", s.Text, want)
	}
	if s.Target != Primary || s.Wrapped {
		t.Errorf("unexpected script metadata: %+v", s)
	}
}

func TestRender_PreambleIncludedOnce(t *testing.T) {
	e := NewEngine(newTestRegistry(t))

	s, err := e.Render(context.Background(),
		Call{Template: "a", Params: Params{"name": String("x")}},
		Call{Template: "b"},
		Call{Template: "a", Params: Params{"name": String("y")}},
	)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n := strings.Count(s.Text, "function helper()"); n != 1 {
		t.Errorf("helper preamble appears %d times", n)
	}
	if n := strings.Count(s.Text, "function iso("); n != 1 {
		t.Errorf("dates preamble appears %d times", n)
	}
	if strings.Index(s.Text, "function helper()") > strings.Index(s.Text, "function iso(") {
		t.Error("preambles should be emitted in first-seen order")
	}
	if len(s.Templates) != 3 {
		t.Errorf("Templates = %v", s.Templates)
	}
	if !strings.Contains(s.Text, "return [\n") {
		t.Error("multiple calls should evaluate to an array")
	}
}

func TestRender_Errors(t *testing.T) {
	e := NewEngine(newTestRegistry(t))
	ctx := context.Background()

	tests := []struct {
		name  string
		calls []Call
		want  error
	}{
		{"no calls", nil, ErrNoCalls},
		{"unknown template", []Call{{Template: "zzz"}}, ErrUnknownTemplate},
		{"missing required", []Call{{Template: "a"}}, ErrMissingParam},
		{"explicit null for required", []Call{{Template: "a", Params: Params{"name": Null()}}}, ErrMissingParam},
		{"wrong kind", []Call{{Template: "a", Params: Params{"name": Int(1)}}}, ErrParamKind},
		{"undeclared param", []Call{{Template: "a", Params: Params{"name": String("x"), "extra": Int(1)}}}, ErrUnknownParam},
		{"mixed targets", []Call{{Template: "a", Params: Params{"name": String("x")}}, {Template: "c"}}, ErrMixedTargets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Render(ctx, tt.calls...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRender_OptionalParamRendersNull(t *testing.T) {
	e := NewEngine(newTestRegistry(t))
	s, err := e.Render(context.Background(), Call{Template: "b"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(s.Text, "return iso(null || new Date());") {
		t.Errorf("optional param should render as null:\n%s", s.Text)
	}
}

func TestRender_SizeWarningDoesNotTruncate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Template{
		ID:     "big",
		Target: Primary,
		Params: []Param{{Name: "blob", Kind: KindString, Required: true}},
		Body:   "return {{blob}}.length;",
	}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger, _ := observe.NewLoggerWithWriter("info", "json", &buf)
	e := NewEngine(reg, WithLogger(logger), WithLimits(Limits{Primary: 2000, WarnRatio: 0.9}))

	blob := strings.Repeat("x", 5000)
	s, err := e.Render(context.Background(), Call{Template: "big", Params: Params{"blob": String(blob)}})
	if err != nil {
		t.Fatalf("oversized script must still render: %v", err)
	}
	if !strings.Contains(s.Text, blob) {
		t.Error("rendered script was truncated")
	}
	if !strings.Contains(buf.String(), "near the context size ceiling") {
		t.Errorf("expected size warning, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"over":true`) {
		t.Errorf("expected over=true, got %q", buf.String())
	}
}

func TestCheckSize(t *testing.T) {
	e := NewEngine(NewRegistry(), WithLimits(Limits{Primary: 1000, Bridge: 500, WarnRatio: 0.5}))
	ctx := context.Background()

	if e.CheckSize(ctx, Primary, 499) {
		t.Error("499 bytes is below the primary warning threshold")
	}
	if !e.CheckSize(ctx, Primary, 500) {
		t.Error("500 bytes reaches the primary warning threshold")
	}
	if !e.CheckSize(ctx, Bridge, 250) {
		t.Error("250 bytes reaches the bridge warning threshold")
	}
}

func TestWrap_Idempotent(t *testing.T) {
	s := Script{Target: Primary, Text: "return 1;"}
	w := Wrap(s)
	if !w.Wrapped {
		t.Fatal("Wrap should mark the script wrapped")
	}
	if !strings.Contains(w.Text, "JSON.stringify({ ok: true") || !strings.Contains(w.Text, "ok: false") {
		t.Errorf("missing envelope:\n%s", w.Text)
	}
	if again := Wrap(w); again.Text != w.Text {
		t.Error("wrapping twice must not nest the wrapper")
	}
	if relay := WrapRelay(w); relay.Text != w.Text {
		t.Error("WrapRelay must not rewrap a wrapped script")
	}
}

func TestWrap_DoesNotInspectText(t *testing.T) {
	s := Script{Text: "(() => {\n  try {\n    const __data = 1;\n  } catch (e) {}\n})()"}
	if w := Wrap(s); w.Text == s.Text {
		t.Error("a script that merely looks wrapped must still be wrapped")
	}
}

func TestWrapRelay_PassesStrings(t *testing.T) {
	w := WrapRelay(Script{Text: "return inner;"})
	if !strings.Contains(w.Text, `if (typeof __data === "string")`) {
		t.Errorf("relay wrapper must pass string results through:\n%s", w.Text)
	}
}
