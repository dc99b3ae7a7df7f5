// Package tools implements the MCP tool handlers exposed by focusops.
//
// Each tool is a struct that receives its dependencies through its
// constructor and exposes Definition and Handle for registration with an
// mcp-go server. Tools are thin mappers: a read becomes a gateway.Query
// (template, params, cache category and scope hint), a write becomes a
// gateway.Mutation carrying its invalidation events.
//
// Handlers report domain failures as tool error results, never as Go
// errors, so the calling model sees the kind, code and remediation.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/focusops/gateway"
	"github.com/jonwraymond/focusops/outcome"
	"github.com/jonwraymond/focusops/script"
)

// Gateway is the execution surface the data tools depend on.
// *gateway.Gateway satisfies it.
type Gateway interface {
	Query(ctx context.Context, q gateway.Query) (gateway.Result, error)
	Mutate(ctx context.Context, m gateway.Mutation) (gateway.Result, error)
	Run(ctx context.Context, template string, params script.Params, timeout time.Duration) (gateway.Result, error)
}

// Tool is implemented by every handler in this package.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// response is the envelope returned by data tools.
type response struct {
	Data        json.RawMessage `json:"data"`
	Cached      bool            `json:"cached,omitempty"`
	Narrowed    bool            `json:"narrowed,omitempty"`
	ExecID      string          `json:"exec_id,omitempty"`
	Invalidated int             `json:"invalidated,omitempty"`
}

func dataResult(res gateway.Result) *mcp.CallToolResult {
	return jsonResult(response{
		Data:        res.Data,
		Cached:      res.Cached,
		Narrowed:    res.Narrowed,
		ExecID:      res.ExecID,
		Invalidated: res.Invalidated,
	})
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err))
	}
	return mcp.NewToolResultText(string(out))
}

// failure renders err for the caller. Classified failures carry their
// remediation.
func failure(tool string, err error) *mcp.CallToolResult {
	var oe *outcome.Error
	if !errors.As(err, &oe) {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
	}
	msg := fmt.Sprintf("%s failed: %s", tool, oe.Error())
	rem := oe.Remediation
	if rem == "" {
		rem = outcome.Remediation(oe.Code)
	}
	if rem != "" {
		msg += "\nRemediation: " + rem
	}
	return mcp.NewToolResultError(msg)
}

func required(req mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	v := strings.TrimSpace(req.GetString(key, ""))
	if v == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("'%s' is required", key))
	}
	return v, nil
}

// optString returns null for an absent or blank argument.
func optString(req mcp.CallToolRequest, key string) script.Value {
	v := strings.TrimSpace(req.GetString(key, ""))
	if v == "" {
		return script.Null()
	}
	return script.String(v)
}

// optBool distinguishes an absent argument (null) from false.
func optBool(req mcp.CallToolRequest, key string) script.Value {
	if b, ok := req.GetArguments()[key].(bool); ok {
		return script.Bool(b)
	}
	return script.Null()
}

func optNumber(req mcp.CallToolRequest, key string) script.Value {
	if f, ok := req.GetArguments()[key].(float64); ok {
		return script.Number(f)
	}
	return script.Null()
}

// dateLayouts lists the accepted date argument forms. A bare date is
// local midnight.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func optDate(req mcp.CallToolRequest, key string) (script.Value, error) {
	s := strings.TrimSpace(req.GetString(key, ""))
	if s == "" {
		return script.Null(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return script.Date(t), nil
		}
	}
	return script.Value{}, fmt.Errorf("'%s': invalid date %q, use YYYY-MM-DD or RFC 3339", key, s)
}

// splitList parses a comma-separated argument, dropping blanks and
// duplicates.
func splitList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// intArg returns a positive integer argument or def.
func intArg(req mcp.CallToolRequest, key string, def int) int {
	f := req.GetFloat(key, float64(def))
	if f < 1 {
		return def
	}
	return int(f)
}
