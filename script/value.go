package script

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a typed script parameter. The zero Value is null.
//
// Values are immutable once built; Array and Object copy their inputs.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	ms   int64
	arr  []Value
	obj  map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// String returns a string Value. Invalid UTF-8 sequences are replaced
// with U+FFFD so that the Value always equals its decoded literal.
func String(s string) Value {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return Value{kind: KindString, str: s}
}

// Number returns a number Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a number Value for an integer.
func Int(i int) Value { return Number(float64(i)) }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date returns a date Value at millisecond precision.
func Date(t time.Time) Value { return Value{kind: KindDate, ms: t.UnixMilli()} }

// DateMillis returns a date Value from milliseconds since the Unix epoch.
func DateMillis(ms int64) Value { return Value{kind: KindDate, ms: ms} }

// Array returns an array Value.
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: slices.Clone(items)}
}

// Strings returns an array Value of strings.
func Strings(items ...string) Value {
	arr := make([]Value, len(items))
	for i, s := range items {
		arr[i] = String(s)
	}
	return Value{kind: KindArray, arr: arr}
}

// Object returns an object Value.
func Object(fields map[string]Value) Value {
	obj := make(map[string]Value, len(fields))
	for k, v := range fields {
		obj[strings.ToValidUTF8(k, "\uFFFD")] = v
	}
	return Value{kind: KindObject, obj: obj}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsTime returns the instant held by v in UTC.
func (v Value) AsTime() (time.Time, bool) {
	return time.UnixMilli(v.ms).UTC(), v.kind == KindDate
}

// AsArray returns a copy of the items held by v.
func (v Value) AsArray() ([]Value, bool) { return slices.Clone(v.arr), v.kind == KindArray }

// Len returns the number of items or fields, or zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Field returns the named field of an object Value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// Keys returns the sorted field names of an object Value.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Equal reports structural equality. Numbers compare by IEEE value with
// NaN equal to NaN and the sign of zero significant; dates compare by
// instant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		if math.IsNaN(v.num) || math.IsNaN(o.num) {
			return math.IsNaN(v.num) && math.IsNaN(o.num)
		}
		return v.num == o.num && math.Signbit(v.num) == math.Signbit(o.num)
	case KindBool:
		return v.b == o.b
	case KindDate:
		return v.ms == o.ms
	case KindArray:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, a := range v.obj {
			b, ok := o.obj[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// GoString renders v for debugging and test failure messages.
func (v Value) GoString() string { return Serialize(v) }

var timeType = reflect.TypeOf(time.Time{})

// From converts a Go value into a Value. Supported inputs are nil,
// Value, string, bool, every integer and float kind, time.Time and
// pointers, slices, arrays and string-keyed maps of those.
func From(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		if !utf8.ValidString(t) {
			return Value{}, ErrInvalidString
		}
		return Value{kind: KindString, str: t}, nil
	case bool:
		return Bool(t), nil
	case time.Time:
		return Date(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Int(t), nil
	}
	return fromReflect(reflect.ValueOf(x))
}

func fromReflect(rv reflect.Value) (Value, error) {
	if rv.Type() == timeType {
		return Date(rv.Interface().(time.Time)), nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromReflect(rv.Elem())
	case reflect.String:
		return From(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), nil
		}
		fallthrough
	case reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			item, err := fromReflect(rv.Index(i))
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = item
		}
		return Value{kind: KindArray, arr: items}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
		}
		if rv.IsNil() {
			return Null(), nil
		}
		obj := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if !utf8.ValidString(key) {
				return Value{}, fmt.Errorf("key %q: %w", key, ErrInvalidString)
			}
			field, err := fromReflect(iter.Value())
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", key, err)
			}
			obj[key] = field
		}
		return Value{kind: KindObject, obj: obj}, nil
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
}

// Params maps template parameter names to values.
type Params map[string]Value

// ParamsFrom converts a map of Go values into Params.
func ParamsFrom(m map[string]any) (Params, error) {
	p := make(Params, len(m))
	for k, x := range m {
		v, err := From(x)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		p[k] = v
	}
	return p, nil
}
