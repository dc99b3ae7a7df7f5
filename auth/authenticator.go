package auth

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials on a request.
//
// Authenticate returns (nil, err) only for internal failures; rejected
// credentials come back as a Result with Authenticated false.
type Authenticator interface {
	Name() string

	// Supports reports whether the request carries this authenticator's
	// kind of credential.
	Supports(ctx context.Context, req *Request) bool

	Authenticate(ctx context.Context, req *Request) (*Result, error)
}

// Request is the credential-bearing part of an HTTP request.
type Request struct {
	Headers http.Header
	Path    string
}

// NewRequest captures r's headers and path.
func NewRequest(r *http.Request) *Request {
	return &Request{Headers: r.Header, Path: r.URL.Path}
}

// Header returns the first value of key, canonicalized.
func (r *Request) Header(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// Result is the outcome of one authentication attempt.
type Result struct {
	Authenticated bool
	Identity      *Identity
	Err           error
	Method        Method
}

// Success wraps an identity.
func Success(id *Identity) *Result {
	return &Result{Authenticated: true, Identity: id, Method: id.Method}
}

// Failure records a rejected attempt.
func Failure(err error, method Method) *Result {
	return &Result{Err: err, Method: method}
}

// AuthenticatorFunc adapts a function to Authenticator. Supports is
// always true.
type AuthenticatorFunc struct {
	name string
	fn   func(ctx context.Context, req *Request) (*Result, error)
}

// NewAuthenticatorFunc creates an AuthenticatorFunc.
func NewAuthenticatorFunc(name string, fn func(ctx context.Context, req *Request) (*Result, error)) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, fn: fn}
}

// Name returns the name given to NewAuthenticatorFunc.
func (f *AuthenticatorFunc) Name() string { return f.name }

// Supports returns true.
func (f *AuthenticatorFunc) Supports(context.Context, *Request) bool { return true }

// Authenticate calls the wrapped function.
func (f *AuthenticatorFunc) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	return f.fn(ctx, req)
}
