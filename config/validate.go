package config

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jonwraymond/focusops/auth"
	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/secret"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Validate checks ranges and cross-field rules. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Executor.Command == "" {
		bad("executor.command is empty")
	}
	if c.Executor.MaxTimeout <= 0 {
		bad("executor.max_timeout must be positive")
	}
	if c.Gateway.DefaultTimeout <= 0 || c.Gateway.DefaultTimeout > c.Executor.MaxTimeout {
		bad("gateway.default_timeout must be in (0, executor.max_timeout]")
	}
	if c.Gateway.MaxConcurrent < 1 || c.Gateway.MaxConcurrent > 32 {
		bad("gateway.max_concurrent must be 1-32, got %d", c.Gateway.MaxConcurrent)
	}
	if c.Gateway.RetryAttempts < 1 || c.Gateway.RetryAttempts > 10 {
		bad("gateway.retry_attempts must be 1-10, got %d", c.Gateway.RetryAttempts)
	}
	if c.Gateway.BreakerFailures < 1 {
		bad("gateway.breaker_failures must be at least 1")
	}
	if c.Gateway.WriteRate <= 0 || c.Gateway.WriteBurst < 1 {
		bad("gateway.write_rate and write_burst must be positive")
	}
	for name, ttl := range c.Cache.TTL {
		if _, err := cache.ParseCategory(name); err != nil {
			bad("cache.ttl: %v", err)
		} else if ttl < 0 {
			bad("cache.ttl.%s must not be negative", name)
		}
	}
	if c.Warm.Interval < 0 || c.Warm.Timeout < 0 {
		bad("warm durations must not be negative")
	}
	if c.Journal.Capacity < 1 {
		bad("journal.capacity must be at least 1")
	}

	if c.Auth.Enabled {
		if len(c.Auth.APIKeys) == 0 && c.Auth.JWTSecret == "" {
			bad("auth.enabled needs auth.api_keys or auth.jwt_secret")
		}
		roles := auth.DefaultRBACConfig().Roles
		if _, ok := roles[c.Auth.DefaultRole]; !ok {
			bad("auth.default_role %q is not a role", c.Auth.DefaultRole)
		}
		for i, k := range c.Auth.APIKeys {
			if k.Name == "" || k.Key == "" {
				bad("auth.api_keys[%d] needs name and key", i)
			}
			for _, r := range k.Roles {
				if _, ok := roles[r]; !ok {
					bad("auth.api_keys[%d]: unknown role %q", i, r)
				}
			}
		}
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Observe.LogLevel) {
		bad("observe.log_level %q is not one of %v", c.Observe.LogLevel, levels)
	}
	if c.Observe.LogFormat != "json" && c.Observe.LogFormat != "text" {
		bad("observe.log_format must be json or text")
	}
	if c.Observe.LogOutput == "stdout" && c.Server.HTTPAddr == "" {
		bad("observe.log_output cannot be stdout with the stdio transport")
	}

	return errors.Join(errs...)
}

// Resolver builds the secret resolver for c: env always, keychain when
// it opens.
func (c *Config) Resolver() *secret.Resolver {
	r := secret.NewResolver(c.Secrets.Strict, secret.NewEnvProvider(c.Secrets.EnvPrefix))
	if kc, err := secret.NewKeychainProvider(secret.KeychainConfig{Service: c.Secrets.KeychainService}); err == nil {
		r.Register(kc)
	}
	return r
}

// ResolveSecrets expands and resolves every credential field in place.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	fields := map[string]*string{"auth.jwt_secret": &c.Auth.JWTSecret}
	for i := range c.Auth.APIKeys {
		fields[fmt.Sprintf("auth.api_keys[%d].key", i)] = &c.Auth.APIKeys[i].Key
	}
	return r.ResolveFields(ctx, fields)
}
