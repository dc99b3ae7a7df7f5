package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: FOCUSOPS_GATEWAY_MAX_CONCURRENT
// sets gateway.max_concurrent.
const EnvPrefix = "FOCUSOPS"

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// File is an explicit config path. Empty searches DefaultDir.
	File string

	// Flags are bound by name through FlagKeys.
	Flags *pflag.FlagSet

	// FlagKeys maps flag names to config keys. Default: DefaultFlagKeys.
	FlagKeys map[string]string
}

// DefaultFlagKeys binds the CLI's flags.
var DefaultFlagKeys = map[string]string{
	"log-level":  "observe.log_level",
	"log-format": "observe.log_format",
	"http":       "server.http_addr",
}

// DefaultDir returns $XDG_CONFIG_HOME/focusops, or ~/.config/focusops.
func DefaultDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "focusops")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "focusops")
}

// Load reads the configuration. A missing config file in the default
// location is not an error; a missing explicit file is.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir := DefaultDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("config: read: %w", err)
		}
	}

	if opts.Flags != nil {
		keys := opts.FlagKeys
		if keys == nil {
			keys = DefaultFlagKeys
		}
		for name, key := range keys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, v.ConfigFileUsed(), nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.http_addr", d.Server.HTTPAddr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("executor.command", d.Executor.Command)
	v.SetDefault("executor.args", d.Executor.Args)
	v.SetDefault("executor.max_timeout", d.Executor.MaxTimeout)
	v.SetDefault("executor.max_output_bytes", d.Executor.MaxOutputBytes)

	v.SetDefault("gateway.default_timeout", d.Gateway.DefaultTimeout)
	v.SetDefault("gateway.max_concurrent", d.Gateway.MaxConcurrent)
	v.SetDefault("gateway.max_wait", d.Gateway.MaxWait)
	v.SetDefault("gateway.retry_attempts", d.Gateway.RetryAttempts)
	v.SetDefault("gateway.retry_initial_delay", d.Gateway.RetryInitialDelay)
	v.SetDefault("gateway.retry_max_delay", d.Gateway.RetryMaxDelay)
	v.SetDefault("gateway.breaker_failures", d.Gateway.BreakerFailures)
	v.SetDefault("gateway.breaker_reset", d.Gateway.BreakerReset)
	v.SetDefault("gateway.write_rate", d.Gateway.WriteRate)
	v.SetDefault("gateway.write_burst", d.Gateway.WriteBurst)

	for name, ttl := range d.Cache.TTL {
		v.SetDefault("cache.ttl."+name, ttl)
	}

	v.SetDefault("warm.on_start", d.Warm.OnStart)
	v.SetDefault("warm.interval", d.Warm.Interval)
	v.SetDefault("warm.timeout", d.Warm.Timeout)

	v.SetDefault("journal.capacity", d.Journal.Capacity)

	v.SetDefault("health.timeout", d.Health.Timeout)
	v.SetDefault("health.probe_timeout", d.Health.ProbeTimeout)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.api_key_header", d.Auth.APIKeyHeader)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.jwt_issuer", d.Auth.JWTIssuer)
	v.SetDefault("auth.jwt_audience", d.Auth.JWTAudience)
	v.SetDefault("auth.default_role", d.Auth.DefaultRole)

	v.SetDefault("secrets.env_prefix", d.Secrets.EnvPrefix)
	v.SetDefault("secrets.keychain_service", d.Secrets.KeychainService)
	v.SetDefault("secrets.strict", d.Secrets.Strict)

	v.SetDefault("observe.log_level", d.Observe.LogLevel)
	v.SetDefault("observe.log_format", d.Observe.LogFormat)
	v.SetDefault("observe.log_output", d.Observe.LogOutput)
	v.SetDefault("observe.tracing_exporter", d.Observe.TracingExporter)
	v.SetDefault("observe.sample_pct", d.Observe.SamplePct)
	v.SetDefault("observe.metrics_exporter", d.Observe.MetricsExporter)
}

// LoadEnvFiles loads .env files into the process environment without
// overriding variables already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}
