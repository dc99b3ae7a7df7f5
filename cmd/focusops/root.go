package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/focusops/config"
	"github.com/jonwraymond/focusops/server"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "focusops",
	Short:         "MCP server for OmniFocus",
	Long:          `focusops exposes an OmniFocus database to MCP clients through osascript, with a category cache, a warmer and an execution journal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnvFiles(envFile)
	},
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/focusops/config.yaml)")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
}

// loadConfig reads the config for cmd and resolves its credentials.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	cfg, _, err := config.Load(config.LoadOptions{File: configFile, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}
	r := cfg.Resolver()
	defer r.Close()
	if err := cfg.ResolveSecrets(ctx, r); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// newServer loads the config and builds the server. The caller closes it.
func newServer(ctx context.Context, cmd *cobra.Command) (*server.Server, error) {
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return server.New(ctx, cfg)
}
