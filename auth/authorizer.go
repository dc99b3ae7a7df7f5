package auth

import (
	"context"
	"fmt"
)

// Authorizer decides whether an identity may call a tool.
type Authorizer interface {
	// Authorize returns nil when allowed, or an error matching
	// ErrForbidden.
	Authorize(ctx context.Context, id *Identity, tool string) error
}

// AuthzError is a denied tool call.
type AuthzError struct {
	Principal string
	Tool      string
	Reason    string
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: %q may not call %s: %s", e.Principal, e.Tool, e.Reason)
}

// Is matches ErrForbidden.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// AllowAll permits every call.
type AllowAll struct{}

// Authorize returns nil.
func (AllowAll) Authorize(context.Context, *Identity, string) error { return nil }

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, id *Identity, tool string) error

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, id *Identity, tool string) error {
	return f(ctx, id, tool)
}
