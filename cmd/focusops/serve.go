package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var noWarm bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `serve starts the MCP server on stdio. With --http (or server.http_addr)
it serves streamable HTTP on that address instead, together with the health
endpoints and, when configured, /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := newServer(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close(context.WithoutCancel(ctx))

		if !noWarm {
			s.StartWarming(ctx)
		}

		if addr := s.Config().Server.HTTPAddr; addr != "" {
			return s.ServeHTTP(ctx, addr)
		}
		return s.ServeStdio(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	serveCmd.Flags().String("http", "", "serve streamable HTTP on this address instead of stdio")
	serveCmd.Flags().BoolVar(&noWarm, "no-warm", false, "skip cache warming")
	rootCmd.AddCommand(serveCmd)
}
