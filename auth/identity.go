package auth

import (
	"slices"
	"time"
)

// Method records how a request authenticated.
type Method string

const (
	MethodAPIKey    Method = "api_key"
	MethodJWT       Method = "jwt"
	MethodAnonymous Method = "anonymous"
)

// Identity is an authenticated caller.
type Identity struct {
	// Principal is the key name or the token subject.
	Principal string

	Roles  []string
	Method Method

	// Claims holds token claims, or key metadata for API keys.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the identity carries role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsExpired reports whether ExpiresAt is set and in the past.
func (id *Identity) IsExpired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}

// AnonymousIdentity is what the middleware attaches when auth is disabled.
func AnonymousIdentity() *Identity {
	return &Identity{Principal: "anonymous", Method: MethodAnonymous, Roles: []string{RoleAdmin}}
}
