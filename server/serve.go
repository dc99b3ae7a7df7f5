package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/focusops/auth"
	"github.com/jonwraymond/focusops/observe"
	"github.com/jonwraymond/focusops/warmer"
)

// authorize is the tool-call middleware. Calls without an identity come
// from the stdio transport and are allowed.
func (s *Server) authorize(next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := auth.IdentityFromContext(ctx)
		if id == nil {
			return next(ctx, req)
		}
		if err := s.authz.Authorize(ctx, id, req.Params.Name); err != nil {
			s.log.Warn(ctx, "tool call denied",
				observe.String("tool", req.Params.Name),
				observe.String("principal", id.Principal),
				observe.Any("roles", id.Roles))
			return mcp.NewToolResultError(fmt.Sprintf("permission denied: %s may not call %s", id.Principal, req.Params.Name)), nil
		}
		return next(ctx, req)
	}
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// StartWarming warms the cache in the background: once now when
// warm.on_start is set, then every warm.interval when positive. It
// returns at once; warming stops with ctx. Requests are never queued
// behind it.
func (s *Server) StartWarming(ctx context.Context) {
	interval := s.cfg.Warm.Interval
	if !s.cfg.Warm.OnStart && interval <= 0 {
		return
	}
	go func() {
		if s.cfg.Warm.OnStart {
			s.logReport(ctx, s.warmer.Warm(ctx))
		}
		if interval <= 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.logReport(ctx, s.warmer.Warm(ctx))
			}
		}
	}()
}

func (s *Server) logReport(ctx context.Context, r warmer.Report) {
	if ctx.Err() != nil {
		return
	}
	fields := []observe.Field{
		observe.Duration("duration_ms", r.Duration),
		observe.Int("succeeded", r.Succeeded()),
		observe.Int("failed", r.Failed()),
	}
	if r.Failed() > 0 {
		for _, res := range r.Results {
			if !res.OK() {
				fields = append(fields, observe.String("failed_"+res.Name, res.Err.Error()))
			}
		}
		s.log.Warn(ctx, "cache warming incomplete", fields...)
		return
	}
	s.log.Info(ctx, "cache warmed", fields...)
}

// ServeStdio serves MCP over in and out until ctx ends or in closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.Info(ctx, "serving MCP over stdio", observe.Int("tools", len(s.tools)))
	err := mcpserver.NewStdioServer(s.mcp).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServeHTTP serves Handler on addr until ctx ends, then shuts down
// within server.shutdown_timeout.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.log.Info(ctx, "serving MCP over HTTP",
		observe.String("addr", ln.Addr().String()),
		observe.Bool("auth", s.authn != nil))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
