package outcome

import "strings"

// signature maps failure text to a kind. Needles starting with '-' are
// osascript error numbers and must not be part of a longer number.
type signature struct {
	kind    Kind
	code    string
	needles []string
}

var signatures = []signature{
	{PermissionDenied, CodePermissionDenied, []string{
		"-1743",
		"not authorized to send apple events",
		"not allowed assistive access",
		"not allowed to send keystrokes",
	}},
	{TargetUnavailable, CodeTargetUnavailable, []string{
		"-600",
		"-609",
		"-10814",
		"isn't running",
		"application can't be found",
		"connection is invalid",
		"document is not available",
	}},
	{ScriptError, CodeTypeCoercion, []string{
		"-1700",
		"can't convert types",
		"can't make",
	}},
	{ScriptError, CodeNotFound, []string{
		"-1728",
		"can't get object",
		"not found",
	}},
}

var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'")

// match returns the outcome for the first signature found in text.
func match(text string) (Outcome, bool) {
	if text == "" {
		return Outcome{}, false
	}
	norm := strings.ToLower(apostrophes.Replace(text))
	for _, sig := range signatures {
		for _, needle := range sig.needles {
			if contains(norm, needle) {
				o := failure(sig.kind, sig.code, summarize(text), "")
				return o, true
			}
		}
	}
	return Outcome{}, false
}

func contains(text, needle string) bool {
	if needle[0] != '-' {
		return strings.Contains(text, needle)
	}
	for i := 0; ; {
		j := strings.Index(text[i:], needle)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(needle)
		if !isDigit(text, start-1) && !isDigit(text, end) {
			return true
		}
		i = start + 1
	}
}

func isDigit(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}

// summarize strips osascript's "execution error:" prefix and keeps the
// first line.
func summarize(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if _, rest, ok := strings.Cut(line, "execution error: "); ok {
		line = rest
	}
	return strings.TrimPrefix(line, "Error: ")
}
