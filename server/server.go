// Package server wires every focusops component into one MCP server.
//
// This is the composition root: it builds the script catalog, executor,
// dispatcher, cache, journal, gateway, warmer and health checks from a
// config.Config and registers the tools. No domain logic lives here.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/focusops/auth"
	"github.com/jonwraymond/focusops/bridge"
	"github.com/jonwraymond/focusops/cache"
	"github.com/jonwraymond/focusops/config"
	"github.com/jonwraymond/focusops/gateway"
	"github.com/jonwraymond/focusops/health"
	"github.com/jonwraymond/focusops/journal"
	"github.com/jonwraymond/focusops/observe"
	"github.com/jonwraymond/focusops/runner"
	"github.com/jonwraymond/focusops/script"
	"github.com/jonwraymond/focusops/tools"
	"github.com/jonwraymond/focusops/warmer"
)

// Name is the MCP server name.
const Name = "focusops"

// Version is set at build time via ldflags.
var Version = "dev"

// Option configures New.
type Option func(*options)

type options struct {
	runner   bridge.Runner
	observer observe.Observer
}

// WithRunner replaces the osascript executor.
func WithRunner(r bridge.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithObserver replaces the observer built from config.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Server owns the wired components.
type Server struct {
	cfg      *config.Config
	obs      observe.Observer
	log      observe.Logger
	registry *prometheus.Registry

	gateway *gateway.Gateway
	cache   *cache.Manager
	journal *journal.Journal
	warmer  *warmer.Warmer
	health  *health.Aggregator
	tools   []tools.Tool
	mcp     *mcpserver.MCPServer

	authn auth.Authenticator
	authz auth.Authorizer
}

// New builds a Server. Credential fields in cfg must already be
// resolved. Close releases what New acquired.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{cfg: cfg, registry: prometheus.NewRegistry()}

	// --- Telemetry ---

	if o.observer != nil {
		s.obs = o.observer
	} else {
		ocfg := cfg.Observe.ObserveConfig(Name, Version)
		ocfg.Exporters.Registerer = s.registry
		obs, err := observe.NewObserver(ctx, ocfg)
		if err != nil {
			return nil, fmt.Errorf("server: observer: %w", err)
		}
		s.obs = obs
	}
	s.log = s.obs.Logger()
	mw, metrics, err := observe.MiddlewareFromObserver(s.obs, gateway.Classify)
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("server: middleware: %w", err))
	}

	// --- Execution path ---

	reg, err := script.Catalog()
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("server: script catalog: %w", err))
	}
	reg.Seal()
	engine := script.NewEngine(reg, script.WithLogger(s.log))

	run := o.runner
	if run == nil {
		run = runner.New(cfg.Executor.RunnerConfig(), runner.WithLogger(s.log))
	}

	s.cache = cache.NewManager(append(cfg.Cache.CacheOptions(), cache.WithRecorder(metrics))...)

	s.journal, err = journal.New(journal.Config{Capacity: cfg.Journal.Capacity})
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	s.gateway = gateway.New(bridge.NewDispatcher(engine, run), s.cache, cfg.Gateway.GatewayConfig(),
		gateway.WithJournal(s.journal),
		gateway.WithMiddleware(mw),
		gateway.WithLogger(s.log),
	)

	// --- Warming ---

	s.warmer = warmer.New(s.cache, warmer.WithLogger(s.log), warmer.WithDefaultTimeout(cfg.Warm.Timeout))
	for _, wq := range tools.WarmQueries() {
		target, err := s.gateway.WarmTarget(wq.Name, wq.Query, 0)
		if err == nil {
			err = s.warmer.Add(target)
		}
		if err != nil {
			return nil, s.fail(ctx, fmt.Errorf("server: warm target %s: %w", wq.Name, err))
		}
	}

	// --- Health ---

	s.health = health.NewAggregator(health.AggregatorConfig{Timeout: cfg.Health.Timeout})
	s.health.Register("omnifocus", health.NewOmniFocusChecker(s.ping, cfg.Health.ProbeTimeout))
	s.health.Register("breaker", health.NewBreakerChecker(s.gateway.Breaker()))
	s.health.Register("cache", health.NewCacheChecker(s.cache))
	s.health.RegisterOptional("warm", health.NewWarmChecker(s.warmer))
	s.health.RegisterOptional("process", health.NewProcessChecker(health.ProcessCheckerConfig{}))

	// --- Auth ---

	if cfg.Auth.Enabled {
		s.authn, err = newAuthenticator(cfg.Auth)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		s.authz = auth.NewRBACAuthorizer(cfg.Auth.RBACConfig())
	} else {
		s.authz = auth.AllowAll{}
	}

	// --- MCP ---

	s.mcp = mcpserver.NewMCPServer(Name, Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(instructions),
		mcpserver.WithToolHandlerMiddleware(s.authorize),
	)
	s.tools = tools.All(tools.Deps{
		Gateway: s.gateway,
		Cache:   s.cache,
		Warmer:  s.warmer,
		Health:  s.health,
		Journal: s.journal,
	})
	for _, t := range s.tools {
		s.mcp.AddTool(t.Definition(), t.Handle)
	}

	return s, nil
}

func newAuthenticator(cfg config.AuthConfig) (auth.Authenticator, error) {
	var auths []auth.Authenticator
	if len(cfg.APIKeys) > 0 {
		keys := make([]auth.APIKey, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			keys = append(keys, auth.APIKey{Name: k.Name, Key: k.Key, Roles: k.Roles})
		}
		a, err := auth.NewAPIKeyAuthenticator(cfg.APIKeyHeader, keys)
		if err != nil {
			return nil, err
		}
		auths = append(auths, a)
	}
	if cfg.JWTSecret != "" {
		a, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   30 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		auths = append(auths, a)
	}
	return auth.NewCompositeAuthenticator(auths...), nil
}

// ping runs app.ping for the omnifocus health check.
func (s *Server) ping(ctx context.Context) (json.RawMessage, error) {
	res, err := s.gateway.Run(ctx, script.AppPing, nil, 0)
	return res.Data, err
}

// fail tears down what New built so far and returns err.
func (s *Server) fail(ctx context.Context, err error) error {
	return errors.Join(err, s.Close(ctx))
}

// Close releases the journal and flushes telemetry.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	if s.obs != nil {
		errs = append(errs, s.obs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Config returns the configuration the server was built from.
func (s *Server) Config() *config.Config { return s.cfg }

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcpserver.MCPServer { return s.mcp }

// Gateway returns the gateway.
func (s *Server) Gateway() *gateway.Gateway { return s.gateway }

// Warmer returns the cache warmer.
func (s *Server) Warmer() *warmer.Warmer { return s.warmer }

// Health returns the health aggregator.
func (s *Server) Health() *health.Aggregator { return s.health }

// Journal returns the execution journal.
func (s *Server) Journal() *journal.Journal { return s.journal }

// Logger returns the configured logger.
func (s *Server) Logger() observe.Logger { return s.log }

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []tools.Tool { return s.tools }

// Handler returns the HTTP surface: /mcp behind auth, the health
// endpoints, and /metrics when metrics go to Prometheus.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	streamable := mcpserver.NewStreamableHTTPServer(s.mcp,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if id := auth.IdentityFromContext(r.Context()); id != nil {
				return auth.WithIdentity(ctx, id)
			}
			return ctx
		}),
	)
	mux.Handle("/mcp", auth.Middleware(s.authn, s.log)(streamable))

	health.RegisterHandlers(mux, s.health)
	if s.cfg.Observe.MetricsExporter == "prometheus" {
		mux.Handle("/metrics", metricsHandler(s.registry))
	}
	return mux
}

const instructions = `focusops reads and writes the user's OmniFocus database.

Reads (list_tasks, list_projects, list_tags, list_folders, review_queue,
productivity_summary) are cached per category and refreshed after every
write made through this server. Changes made directly in OmniFocus show up
when the cache entry expires, within a few minutes.

Writes (create_task, update_task, complete_task, delete_task,
mark_project_reviewed) run one at a time against the app. create_task
verifies the task and its tags afterwards and reports missing_tags when a
tag could not be applied.

Errors carry a remediation line. "permission_denied" means macOS
automation access for OmniFocus must be granted in System Settings >
Privacy & Security > Automation. Run diagnose when calls keep failing.`
