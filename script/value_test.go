package script

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestValue_Equal(t *testing.T) {
	negZero := Number(math.Copysign(0, -1))
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nulls", Null(), Value{}, true},
		{"nan equals nan", Number(math.NaN()), Number(math.NaN()), true},
		{"signed zero differs", Number(0), negZero, false},
		{"number vs string", Int(1), String("1"), false},
		{"dates by instant", Date(time.Date(2024, 1, 1, 9, 0, 0, 0, time.FixedZone("X", 3600))), Date(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)), true},
		{"dates truncate to millis", Date(time.UnixMilli(5).Add(999 * time.Microsecond)), DateMillis(5), true},
		{"arrays ordered", Strings("a", "b"), Strings("b", "a"), false},
		{"objects structural", Object(map[string]Value{"a": Int(1)}), Object(map[string]Value{"a": Int(1)}), true},
		{"objects differing keys", Object(map[string]Value{"a": Int(1)}), Object(map[string]Value{"b": Int(1)}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	when := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	name := "inbox"
	var nilPtr *string

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"string", "x", String("x")},
		{"string pointer", &name, String("inbox")},
		{"nil pointer", nilPtr, Null()},
		{"bool", true, Bool(true)},
		{"int64", int64(-3), Int(-3)},
		{"uint8", uint8(7), Int(7)},
		{"float32", float32(0.5), Number(0.5)},
		{"time", when, Date(when)},
		{"string slice", []string{"errands", "home"}, Strings("errands", "home")},
		{"nil slice", []string(nil), Null()},
		{"any slice", []any{"a", 1, nil}, Array(String("a"), Int(1), Null())},
		{"map", map[string]any{"flagged": true, "n": 2}, Object(map[string]Value{"flagged": Bool(true), "n": Int(2)})},
		{"value passthrough", Strings("z"), Strings("z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.in)
			if err != nil {
				t.Fatalf("From: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("From() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFrom_Errors(t *testing.T) {
	if _, err := From("bad\xff"); !errors.Is(err, ErrInvalidString) {
		t.Errorf("expected ErrInvalidString, got %v", err)
	}
	if _, err := From(map[int]string{1: "a"}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := From(struct{}{}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := From([]any{func() {}}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType for nested func, got %v", err)
	}
}

func TestParamsFrom(t *testing.T) {
	p, err := ParamsFrom(map[string]any{"name": "x", "tags": []string{"a"}})
	if err != nil {
		t.Fatalf("ParamsFrom: %v", err)
	}
	if !p["tags"].Equal(Strings("a")) {
		t.Errorf("tags = %#v", p["tags"])
	}
	if _, err := ParamsFrom(map[string]any{"bad": make(chan int)}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestValue_Accessors(t *testing.T) {
	obj := Object(map[string]Value{"b": Int(2), "a": String("x")})
	if keys := obj.Keys(); len(keys) != 2 || keys[0] != "a" {
		t.Errorf("Keys() = %v", keys)
	}
	if f, ok := obj.Field("a"); !ok || !f.Equal(String("x")) {
		t.Errorf("Field(a) = %#v, %v", f, ok)
	}
	if _, ok := Int(1).Field("a"); ok {
		t.Error("Field on a scalar should fail")
	}
	if obj.Len() != 2 || Strings("a").Len() != 1 || Int(3).Len() != 0 {
		t.Error("Len mismatch")
	}
	if tm, ok := DateMillis(1000).AsTime(); !ok || tm.Unix() != 1 || tm.Location() != time.UTC {
		t.Errorf("AsTime() = %v, %v", tm, ok)
	}
	if KindDate.String() != "date" || Kind(99).String() != "kind(99)" {
		t.Error("Kind.String mismatch")
	}
}
