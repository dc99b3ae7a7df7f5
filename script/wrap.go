package script

import "strings"

// Script is a rendered, executable script.
type Script struct {
	// Target is the context the script runs in.
	Target Target

	// Templates lists the template ids composed into the script.
	Templates []string

	// Mutating reports whether any composed template writes.
	Mutating bool

	// Text is the script source.
	Text string

	// Wrapped is set by Wrap and WrapRelay; executors consult it instead
	// of inspecting Text.
	Wrapped bool
}

// Size returns the script length in bytes.
func (s Script) Size() int { return len(s.Text) }

const envelopeCatch = `  } catch (e) {
    return JSON.stringify({
      ok: false,
      error: {
        name: String((e && e.name) || "Error"),
        message: String((e && e.message) || e),
        number: (e && typeof e.errorNumber === "number") ? e.errorNumber : null
      }
    });
  }
})()
`

// Wrap encloses s in the top-level error envelope. The wrapped script
// evaluates to {"ok":true,"data":...} or {"ok":false,"error":{...}} as a
// JSON string. Wrapping an already wrapped script returns it unchanged.
func Wrap(s Script) Script {
	if s.Wrapped {
		return s
	}
	var b strings.Builder
	b.Grow(len(s.Text) + 512)
	b.WriteString("(() => {\n  try {\n    const __data = (() => {\n")
	b.WriteString(s.Text)
	b.WriteString("\n    })();\n")
	b.WriteString("    return JSON.stringify({ ok: true, data: __data === undefined ? null : __data });\n")
	b.WriteString(envelopeCatch)
	s.Text = b.String()
	s.Wrapped = true
	return s
}

// WrapRelay encloses s in the error envelope like Wrap, except that a
// string result is returned as-is. It wraps scripts whose body already
// produces an envelope, such as a bridge call relaying the nested
// context's answer.
func WrapRelay(s Script) Script {
	if s.Wrapped {
		return s
	}
	var b strings.Builder
	b.Grow(len(s.Text) + 512)
	b.WriteString("(() => {\n  try {\n    const __data = (() => {\n")
	b.WriteString(s.Text)
	b.WriteString("\n    })();\n")
	b.WriteString("    if (typeof __data === \"string\") {\n      return __data;\n    }\n")
	b.WriteString("    return JSON.stringify({ ok: true, data: __data === undefined ? null : __data });\n")
	b.WriteString(envelopeCatch)
	s.Text = b.String()
	s.Wrapped = true
	return s
}
