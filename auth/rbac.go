package auth

import (
	"context"
	"strings"
)

const (
	RoleReader   = "reader"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// RBACConfig maps role names to tool permissions.
type RBACConfig struct {
	Roles map[string]RoleConfig

	// DefaultRole applies to identities with no roles.
	DefaultRole string
}

// RoleConfig grants tools to a role. Patterns are exact names, "*", or
// a prefix ending in "*". DeniedTools wins over AllowedTools within a
// role, but another role can still grant the tool.
type RoleConfig struct {
	AllowedTools []string
	DeniedTools  []string
	Inherits     []string
}

// DefaultRBACConfig is the built-in policy.
func DefaultRBACConfig() RBACConfig {
	return RBACConfig{
		DefaultRole: RoleReader,
		Roles: map[string]RoleConfig{
			RoleReader: {AllowedTools: []string{
				"list_*", "get_task", "productivity_summary", "review_queue", "cache_stats", "diagnose",
			}},
			RoleOperator: {
				Inherits:     []string{RoleReader},
				AllowedTools: []string{"*"},
				DeniedTools:  []string{"delete_task"},
			},
			RoleAdmin: {AllowedTools: []string{"*"}},
		},
	}
}

// RBACAuthorizer enforces an RBACConfig.
type RBACAuthorizer struct {
	cfg RBACConfig
}

// NewRBACAuthorizer creates an authorizer.
func NewRBACAuthorizer(cfg RBACConfig) *RBACAuthorizer {
	return &RBACAuthorizer{cfg: cfg}
}

// Authorize allows the call when any of the identity's roles, or the
// roles they inherit, grants tool.
func (a *RBACAuthorizer) Authorize(_ context.Context, id *Identity, tool string) error {
	if id == nil {
		return &AuthzError{Tool: tool, Reason: "no identity"}
	}
	for _, name := range a.expand(id.Roles) {
		role, ok := a.cfg.Roles[name]
		if ok && permits(role, tool) {
			return nil
		}
	}
	return &AuthzError{Principal: id.Principal, Tool: tool, Reason: "no role grants this tool"}
}

// expand walks inheritance breadth-first, visiting each role once.
func (a *RBACAuthorizer) expand(roles []string) []string {
	queue := append([]string(nil), roles...)
	if len(queue) == 0 && a.cfg.DefaultRole != "" {
		queue = append(queue, a.cfg.DefaultRole)
	}
	seen := make(map[string]bool)
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, a.cfg.Roles[cur].Inherits...)
	}
	return out
}

func permits(role RoleConfig, tool string) bool {
	for _, p := range role.DeniedTools {
		if matchPattern(p, tool) {
			return false
		}
	}
	for _, p := range role.AllowedTools {
		if matchPattern(p, tool) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(value, prefix)
	}
	return pattern == value
}

var _ Authorizer = (*RBACAuthorizer)(nil)
