// Package config loads focusops settings from a YAML file, FOCUSOPS_*
// environment variables and command-line flags, in increasing order of
// precedence.
//
// Credential fields (auth.jwt_secret, auth.api_keys[].key) accept
// ${VAR} expansion and secretref: values; call [Config.ResolveSecrets]
// before using them.
package config

import (
	"time"

	"github.com/jonwraymond/focusops/auth"
	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/gateway"
	"github.com/jonwraymond/focusops/observe"
	"github.com/jonwraymond/focusops/resilience"
	"github.com/jonwraymond/focusops/runner"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Warm     WarmConfig     `mapstructure:"warm"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Health   HealthConfig   `mapstructure:"health"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
	Observe  ObserveConfig  `mapstructure:"observe"`
}

// ServerConfig controls the MCP transports.
type ServerConfig struct {
	// HTTPAddr serves streamable HTTP on this address instead of stdio.
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExecutorConfig controls the osascript process.
type ExecutorConfig struct {
	Command        string        `mapstructure:"command"`
	Args           []string      `mapstructure:"args"`
	MaxTimeout     time.Duration `mapstructure:"max_timeout"`
	MaxOutputBytes int           `mapstructure:"max_output_bytes"`
}

// GatewayConfig controls the guards around executions.
type GatewayConfig struct {
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	MaxWait           time.Duration `mapstructure:"max_wait"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerReset      time.Duration `mapstructure:"breaker_reset"`
	WriteRate         float64       `mapstructure:"write_rate"`
	WriteBurst        int           `mapstructure:"write_burst"`
}

// CacheConfig overrides per-category TTLs. A zero TTL disables caching
// for that category.
type CacheConfig struct {
	TTL map[string]time.Duration `mapstructure:"ttl"`
}

// WarmConfig controls background cache warming.
type WarmConfig struct {
	OnStart  bool          `mapstructure:"on_start"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// JournalConfig sizes the execution journal.
type JournalConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// HealthConfig bounds health checks.
type HealthConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// APIKeyConfig is one configured API key.
type APIKeyConfig struct {
	Name  string   `mapstructure:"name"`
	Key   string   `mapstructure:"key"`
	Roles []string `mapstructure:"roles"`
}

// AuthConfig guards the HTTP transport.
type AuthConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	APIKeyHeader string         `mapstructure:"api_key_header"`
	APIKeys      []APIKeyConfig `mapstructure:"api_keys"`
	JWTSecret    string         `mapstructure:"jwt_secret"`
	JWTIssuer    string         `mapstructure:"jwt_issuer"`
	JWTAudience  string         `mapstructure:"jwt_audience"`
	DefaultRole  string         `mapstructure:"default_role"`
}

// SecretsConfig configures secretref resolution.
type SecretsConfig struct {
	EnvPrefix       string `mapstructure:"env_prefix"`
	KeychainService string `mapstructure:"keychain_service"`
	Strict          bool   `mapstructure:"strict"`
}

// ObserveConfig configures logging, tracing and metrics.
type ObserveConfig struct {
	LogLevel        string  `mapstructure:"log_level"`
	LogFormat       string  `mapstructure:"log_format"`
	LogOutput       string  `mapstructure:"log_output"`
	TracingExporter string  `mapstructure:"tracing_exporter"`
	SamplePct       float64 `mapstructure:"sample_pct"`
	MetricsExporter string  `mapstructure:"metrics_exporter"`
}

// Default returns the built-in configuration.
func Default() Config {
	rc := runner.DefaultConfig()
	return Config{
		Server: ServerConfig{ShutdownTimeout: 10 * time.Second},
		Executor: ExecutorConfig{
			Command:        rc.Command,
			Args:           rc.Args,
			MaxTimeout:     rc.MaxTimeout,
			MaxOutputBytes: rc.MaxOutputBytes,
		},
		Gateway: GatewayConfig{
			DefaultTimeout:    gateway.DefaultTimeout,
			MaxConcurrent:     4,
			MaxWait:           10 * time.Second,
			RetryAttempts:     3,
			RetryInitialDelay: 250 * time.Millisecond,
			RetryMaxDelay:     5 * time.Second,
			BreakerFailures:   5,
			BreakerReset:      30 * time.Second,
			WriteRate:         5,
			WriteBurst:        5,
		},
		Cache: CacheConfig{TTL: defaultTTLs()},
		Warm: WarmConfig{
			OnStart: true,
			Timeout: 45 * time.Second,
		},
		Journal: JournalConfig{Capacity: 500},
		Health: HealthConfig{
			Timeout:      20 * time.Second,
			ProbeTimeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			APIKeyHeader: auth.DefaultAPIKeyHeader,
			DefaultRole:  auth.RoleReader,
		},
		Secrets: SecretsConfig{
			EnvPrefix:       "FOCUSOPS_",
			KeychainService: "focusops",
			Strict:          true,
		},
		Observe: ObserveConfig{
			LogLevel:        "info",
			LogFormat:       "text",
			LogOutput:       "stderr",
			TracingExporter: "none",
			SamplePct:       1,
			MetricsExporter: "none",
		},
	}
}

func defaultTTLs() map[string]time.Duration {
	out := make(map[string]time.Duration)
	for c, p := range cache.DefaultPolicies() {
		out[string(c)] = p.DefaultTTL
	}
	return out
}

// RunnerConfig converts to the executor's configuration.
func (c ExecutorConfig) RunnerConfig() runner.Config {
	return runner.Config{
		Command:        c.Command,
		Args:           c.Args,
		MaxTimeout:     c.MaxTimeout,
		MaxOutputBytes: c.MaxOutputBytes,
	}
}

// GatewayConfig converts to the gateway's configuration.
func (c GatewayConfig) GatewayConfig() gateway.Config {
	return gateway.Config{
		DefaultTimeout: c.DefaultTimeout,
		MaxConcurrent:  c.MaxConcurrent,
		MaxWait:        c.MaxWait,
		Retry: resilience.RetryConfig{
			MaxAttempts:  c.RetryAttempts,
			InitialDelay: c.RetryInitialDelay,
			MaxDelay:     c.RetryMaxDelay,
			Jitter:       true,
		},
		Breaker: resilience.CircuitBreakerConfig{
			MaxFailures:  c.BreakerFailures,
			ResetTimeout: c.BreakerReset,
		},
		WriteRate:  c.WriteRate,
		WriteBurst: c.WriteBurst,
	}
}

// CacheOptions turns TTL overrides into cache.Manager options. MaxTTL
// keeps the default unless the override exceeds it.
func (c CacheConfig) CacheOptions() []cache.Option {
	defaults := cache.DefaultPolicies()
	var opts []cache.Option
	for name, ttl := range c.TTL {
		cat, err := cache.ParseCategory(name)
		if err != nil {
			continue
		}
		p := defaults[cat]
		p.DefaultTTL = ttl
		if ttl > p.MaxTTL {
			p.MaxTTL = ttl
		}
		opts = append(opts, cache.WithPolicy(cat, p))
	}
	return opts
}

// ObserveConfig converts to an observe.Config for service name and
// version.
func (c ObserveConfig) ObserveConfig(service, version string) observe.Config {
	return observe.Config{
		ServiceName: service,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.TracingExporter != "none" && c.TracingExporter != "",
			Exporter:  c.TracingExporter,
			SamplePct: c.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.MetricsExporter != "none" && c.MetricsExporter != "",
			Exporter: c.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.LogLevel,
			Format:  c.LogFormat,
			Output:  c.LogOutput,
		},
	}
}

// RBACConfig returns the default policy with DefaultRole applied.
func (c AuthConfig) RBACConfig() auth.RBACConfig {
	rc := auth.DefaultRBACConfig()
	if c.DefaultRole != "" {
		rc.DefaultRole = c.DefaultRole
	}
	return rc
}
