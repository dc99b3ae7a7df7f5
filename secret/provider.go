package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log
// secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves a ref as an environment variable name, with an
// optional prefix.
type EnvProvider struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates an env provider. With prefix "FOCUSOPS_",
// "secretref:env:jwt_secret" reads FOCUSOPS_JWT_SECRET.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix, lookup: os.LookupEnv}
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve reads the variable named by ref.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	name := ref
	if p.prefix != "" && !strings.HasPrefix(strings.ToUpper(ref), strings.ToUpper(p.prefix)) {
		name = p.prefix + ref
	}
	name = strings.ToUpper(name)
	v, ok := p.lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, name)
	}
	return v, nil
}

// Close is a no-op.
func (p *EnvProvider) Close() error { return nil }
