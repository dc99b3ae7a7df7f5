package outcome

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/focusops/runner"
)

// Outcome is the classified result of one execution. Only Data of a
// Success outcome is ever cached.
type Outcome struct {
	Kind        Kind
	Data        json.RawMessage
	Code        string
	Message     string
	Remediation string
	Raw         string
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Kind == Success }

// Err returns nil for Success and an *Error otherwise.
func (o Outcome) Err() error {
	if o.Kind == Success {
		return nil
	}
	return &Error{
		Kind:        o.Kind,
		Code:        o.Code,
		Message:     o.Message,
		Remediation: o.Remediation,
		Raw:         o.Raw,
	}
}

type envelope struct {
	OK    *bool           `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		Number  *int   `json:"number"`
	} `json:"error"`
}

// Parse classifies res.
func Parse(res runner.Result) Outcome {
	if res.TimedOut {
		return failure(Timeout, CodeTimeout, fmt.Sprintf("script did not finish within %s", res.Duration.Round(time.Millisecond)), res.Stderr)
	}

	out := strings.TrimSpace(res.Stdout)
	if res.ExitCode == 0 {
		if out == "" {
			return Outcome{Kind: Success}
		}
		if o, ok := decode(out); ok {
			return o
		}
	}

	text := strings.TrimSpace(res.Stderr)
	if text == "" {
		text = out
	}
	if o, ok := match(text); ok {
		o.Raw = rawText(res)
		return o
	}

	if res.ExitCode == 0 {
		msg := "script output is not valid JSON"
		if res.Truncated {
			msg = "script output was truncated and is not valid JSON"
		}
		return failure(ScriptError, CodeMalformedOutput, msg, rawText(res))
	}
	return failure(ScriptError, CodeScriptError, firstLine(text, res.ExitCode), rawText(res))
}

func decode(out string) (Outcome, bool) {
	if !json.Valid([]byte(out)) {
		return Outcome{}, false
	}
	if out[0] == '{' {
		var env envelope
		if err := json.Unmarshal([]byte(out), &env); err == nil && env.OK != nil {
			if *env.OK {
				data := env.Data
				if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
					data = nil
				}
				return Outcome{Kind: Success, Data: data}, true
			}
			return scriptFailure(env, out), true
		}
	}
	return Outcome{Kind: Success, Data: json.RawMessage(out)}, true
}

func scriptFailure(env envelope, raw string) Outcome {
	msg := "script reported an error"
	if env.Error != nil {
		msg = env.Error.Message
		if env.Error.Name != "" && env.Error.Name != "Error" {
			msg = env.Error.Name + ": " + msg
		}
		if env.Error.Number != nil {
			msg = fmt.Sprintf("%s (%d)", msg, *env.Error.Number)
		}
	}
	if o, ok := match(msg); ok {
		o.Raw = raw
		return o
	}
	return failure(ScriptError, CodeScriptError, msg, raw)
}

func failure(kind Kind, code, msg, raw string) Outcome {
	return Outcome{
		Kind:        kind,
		Code:        code,
		Message:     msg,
		Remediation: Remediation(code),
		Raw:         raw,
	}
}

func rawText(res runner.Result) string {
	switch {
	case res.Stderr == "":
		return res.Stdout
	case res.Stdout == "":
		return res.Stderr
	default:
		return res.Stderr + "\n" + res.Stdout
	}
}

func firstLine(text string, exitCode int) string {
	if text == "" {
		return fmt.Sprintf("interpreter exited with status %d", exitCode)
	}
	line, _, _ := strings.Cut(text, "\n")
	return line
}
