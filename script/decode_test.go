package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// jsDecoder evaluates the literal subset Serialize emits, the same way a
// JavaScript engine reads it back.
type jsDecoder struct {
	s   string
	pos int
}

func decodeLiteral(s string) (Value, error) {
	d := &jsDecoder{s: s}
	v, err := d.value()
	if err != nil {
		return Value{}, err
	}
	if d.pos != len(d.s) {
		return Value{}, fmt.Errorf("trailing input at %d: %q", d.pos, d.s[d.pos:])
	}
	return v, nil
}

func (d *jsDecoder) consume(prefix string) bool {
	if strings.HasPrefix(d.s[d.pos:], prefix) {
		d.pos += len(prefix)
		return true
	}
	return false
}

func (d *jsDecoder) expect(prefix string) error {
	if !d.consume(prefix) {
		return fmt.Errorf("expected %q at %d", prefix, d.pos)
	}
	return nil
}

func (d *jsDecoder) value() (Value, error) {
	if d.pos >= len(d.s) {
		return Value{}, fmt.Errorf("unexpected end of input")
	}
	switch {
	case d.consume("null"):
		return Null(), nil
	case d.consume("true"):
		return Bool(true), nil
	case d.consume("false"):
		return Bool(false), nil
	case d.consume("NaN"):
		return Number(math.NaN()), nil
	case d.consume("Infinity"):
		return Number(math.Inf(1)), nil
	}

	switch c := d.s[d.pos]; {
	case c == '"':
		s, err := d.str()
		return Value{kind: KindString, str: s}, err
	case c == '[':
		return d.array()
	case c == '(':
		d.pos++
		v, err := d.paren()
		if err != nil {
			return Value{}, err
		}
		return v, d.expect(")")
	case c >= '0' && c <= '9':
		return d.number()
	}
	return Value{}, fmt.Errorf("unexpected %q at %d", d.s[d.pos], d.pos)
}

func (d *jsDecoder) paren() (Value, error) {
	switch {
	case d.consume("new Date("):
		start := d.pos
		for d.pos < len(d.s) && (d.s[d.pos] == '-' || (d.s[d.pos] >= '0' && d.s[d.pos] <= '9')) {
			d.pos++
		}
		ms, err := strconv.ParseInt(d.s[start:d.pos], 10, 64)
		if err != nil {
			return Value{}, err
		}
		return DateMillis(ms), d.expect(")")
	case d.consume("-"):
		v, err := d.value()
		if err != nil {
			return Value{}, err
		}
		if v.kind != KindNumber {
			return Value{}, fmt.Errorf("unary minus on %s", v.kind)
		}
		return Number(-v.num), nil
	case d.consume("{"):
		return d.object()
	}
	return d.value()
}

func (d *jsDecoder) number() (Value, error) {
	start := d.pos
	for d.pos < len(d.s) && strings.IndexByte("0123456789.eE+-", d.s[d.pos]) >= 0 {
		d.pos++
	}
	f, err := strconv.ParseFloat(d.s[start:d.pos], 64)
	if err != nil {
		return Value{}, err
	}
	return Number(f), nil
}

func (d *jsDecoder) array() (Value, error) {
	d.pos++
	items := []Value{}
	if d.consume("]") {
		return Value{kind: KindArray, arr: items}, nil
	}
	for {
		v, err := d.value()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
		if d.consume("]") {
			return Value{kind: KindArray, arr: items}, nil
		}
		if err := d.expect(","); err != nil {
			return Value{}, err
		}
	}
}

func (d *jsDecoder) object() (Value, error) {
	obj := map[string]Value{}
	if d.consume("}") {
		return Value{kind: KindObject, obj: obj}, nil
	}
	for {
		computed := d.consume("[")
		if d.pos >= len(d.s) || d.s[d.pos] != '"' {
			return Value{}, fmt.Errorf("expected key at %d", d.pos)
		}
		key, err := d.str()
		if err != nil {
			return Value{}, err
		}
		if computed {
			if err := d.expect("]"); err != nil {
				return Value{}, err
			}
		}
		if err := d.expect(":"); err != nil {
			return Value{}, err
		}
		v, err := d.value()
		if err != nil {
			return Value{}, err
		}
		// A non-computed "__proto__" replaces the prototype instead of
		// defining a field.
		if key != "__proto__" || computed {
			obj[key] = v
		}
		if d.consume("}") {
			return Value{kind: KindObject, obj: obj}, nil
		}
		if err := d.expect(","); err != nil {
			return Value{}, err
		}
	}
}

func (d *jsDecoder) str() (string, error) {
	d.pos++
	var units []uint16
	for d.pos < len(d.s) {
		c := d.s[d.pos]
		switch {
		case c == '"':
			d.pos++
			return string(utf16.Decode(units)), nil
		case c == '\n' || c == '\r':
			return "", fmt.Errorf("raw line terminator in string literal at %d", d.pos)
		case c == '\\':
			if d.pos+1 >= len(d.s) {
				return "", fmt.Errorf("dangling escape")
			}
			esc := d.s[d.pos+1]
			d.pos += 2
			switch esc {
			case '"', '\\', '/':
				units = append(units, uint16(esc))
			case 'n':
				units = append(units, '\n')
			case 'r':
				units = append(units, '\r')
			case 't':
				units = append(units, '\t')
			case 'b':
				units = append(units, '\b')
			case 'f':
				units = append(units, '\f')
			case 'u':
				if d.pos+4 > len(d.s) {
					return "", fmt.Errorf("short unicode escape")
				}
				n, err := strconv.ParseUint(d.s[d.pos:d.pos+4], 16, 16)
				if err != nil {
					return "", err
				}
				units = append(units, uint16(n))
				d.pos += 4
			default:
				return "", fmt.Errorf("unknown escape \\%c", esc)
			}
		case c >= 0x80:
			return "", fmt.Errorf("non-ASCII byte in literal at %d", d.pos)
		default:
			units = append(units, uint16(c))
			d.pos++
		}
	}
	return "", fmt.Errorf("unterminated string")
}
