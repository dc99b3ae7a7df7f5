package script

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// Serialize returns the JavaScript literal for v.
//
// The output is pure ASCII and evaluates to a value equal to v in both
// the JXA and Omni Automation contexts. Negative numbers, dates and
// objects are parenthesized so the literal is a single primary
// expression wherever a placeholder appears.
func Serialize(v Value) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

// Quote returns s as a double-quoted JavaScript string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	writeQuoted(&b, s)
	return b.String()
}

func writeValue(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindString:
		writeQuoted(b, v.str)
	case KindNumber:
		writeNumber(b, v.num)
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindDate:
		b.WriteString("(new Date(")
		b.WriteString(strconv.FormatInt(v.ms, 10))
		b.WriteString("))")
	case KindArray:
		b.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, item)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteString("({")
		for i, k := range v.Keys() {
			if i > 0 {
				b.WriteByte(',')
			}
			// A literal "__proto__" key sets the prototype; the computed
			// form defines an own property.
			if k == "__proto__" {
				b.WriteByte('[')
				writeQuoted(b, k)
				b.WriteByte(']')
			} else {
				writeQuoted(b, k)
			}
			b.WriteByte(':')
			writeValue(b, v.obj[k])
		}
		b.WriteString("})")
	}
}

func writeNumber(b *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		b.WriteString("NaN")
	case math.IsInf(f, 1):
		b.WriteString("Infinity")
	case math.IsInf(f, -1):
		b.WriteString("(-Infinity)")
	case math.Signbit(f):
		b.WriteByte('(')
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		b.WriteByte(')')
	default:
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			i++
			switch c {
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			default:
				if c < 0x20 || c == 0x7f {
					writeUnicodeEscape(b, rune(c))
				} else {
					b.WriteByte(c)
				}
			}
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			writeUnicodeEscape(b, r1)
			writeUnicodeEscape(b, r2)
			continue
		}
		writeUnicodeEscape(b, r)
	}
	b.WriteByte('"')
}

func writeUnicodeEscape(b *strings.Builder, r rune) {
	b.WriteString(`\u`)
	b.WriteByte(hexDigits[(r>>12)&0xf])
	b.WriteByte(hexDigits[(r>>8)&0xf])
	b.WriteByte(hexDigits[(r>>4)&0xf])
	b.WriteByte(hexDigits[r&0xf])
}
