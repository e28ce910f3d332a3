package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/calprompt/internal/api"
	"github.com/teemow/calprompt/internal/config"
	"github.com/teemow/calprompt/internal/holidays"
	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/logging"
	"github.com/teemow/calprompt/internal/server"
	"github.com/teemow/calprompt/internal/tools/date_tools"
)

const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

// serveOptions are the flag values of the serve command.
type serveOptions struct {
	transport        string
	debug            bool
	httpAddr         string
	databaseURL      string
	redisAddr        string
	zone             string
	corsOrigins      string
	disableStreaming bool
	metricsEnabled   bool
	metricsAddr      string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the calendar API and MCP server",
		Long: `Start the calendar API. The HTTP transport serves the REST API, the
health endpoints and the MCP endpoint at /mcp on one listener. The stdio
transport exposes only the MCP date tools and holiday resources.

Configuration comes from the environment, optionally from a .env file in
the working directory. Flags win over both:
  DATABASE_URL          PostgreSQL URL; calendars are kept in memory without it
  REDIS_ADDR            Redis address for the undo history; memory without it
  ANTHROPIC_API_KEY     Reasoning backend key; instructions are not interpreted without it
  ANTHROPIC_MODEL       Model name
  REASONING_TIMEOUT     Budget of one reasoning round trip, e.g. 60s
  DEFAULT_SCHOOL_ZONE   A, B or C
  SCHOOL_HOLIDAYS_FILE  YAML school-holiday table replacing the built-in one
  CORS_ALLOWED_ORIGINS  Comma-separated origins, * for any`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyServeFlags(cmd, &opts, cfg); err != nil {
				return err
			}
			return runServe(opts, cfg)
		},
	}

	bindServeFlags(cmd, &opts)

	return cmd
}

func bindServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().StringVar(&opts.transport, "transport", transportHTTP, "Transport type: http or stdio")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", config.DefaultHTTPAddr, "HTTP listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for the undo history (overrides REDIS_ADDR)")
	cmd.Flags().StringVar(&opts.zone, "zone", "", "Default school zone A, B or C (overrides DEFAULT_SCHOOL_ZONE)")
	cmd.Flags().StringVar(&opts.corsOrigins, "cors-origins", "", "Comma-separated allowed origins (overrides CORS_ALLOWED_ORIGINS)")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Answer MCP requests without SSE streams")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics", false, "Serve Prometheus metrics on a dedicated port (or METRICS_ENABLED=true)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics listen address (or METRICS_ADDR)")
}

// applyServeFlags overrides the loaded configuration with the flags that
// were set explicitly.
func applyServeFlags(cmd *cobra.Command, opts *serveOptions, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("http-addr") {
		cfg.HTTPAddr = opts.httpAddr
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL = opts.databaseURL
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr = opts.redisAddr
	}
	if flags.Changed("cors-origins") {
		cfg.CORSAllowedOrigins = parseCommaSeparatedList(opts.corsOrigins)
	}
	if flags.Changed("zone") {
		zone, err := holidays.ParseZone(opts.zone)
		if err != nil {
			return err
		}
		cfg.DefaultSchoolZone = zone
	}

	if !flags.Changed("metrics") && os.Getenv("METRICS_ENABLED") == "true" {
		opts.metricsEnabled = true
	}
	if !flags.Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			opts.metricsAddr = addr
		}
	}

	switch opts.transport {
	case transportHTTP, transportStdio:
		return nil
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: http, stdio)", opts.transport)
	}
}

func runServe(opts serveOptions, cfg *config.Config) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the MCP stream in stdio mode, so logs always go to stderr.
	logger := logging.NewLogger(os.Stderr, opts.debug)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if opts.transport != transportStdio && opts.metricsEnabled && provider.Enabled() {
		metricsServer, err = startMetricsServer(opts.metricsAddr, provider)
		if err != nil {
			return err
		}
		logger.Info("metrics server started", "addr", metricsServer.Addr())
	}

	serverContext, err := server.NewServerContext(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	}
	defer func() {
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	st, err := buildStack(shutdownCtx, cfg, logger, serverContext, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing connections failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("calprompt", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := registerAllTools(mcpSrv, serverContext, st); err != nil {
		return err
	}

	switch opts.transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		if !opts.debug {
			gin.SetMode(gin.ReleaseMode)
		}
		return runHTTPServer(shutdownCtx, opts, st, serverContext, mcpSrv)
	}
}

func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers the MCP tools and resources.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, st *stack) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Date tools",
			register: func() error {
				return date_tools.RegisterDateTools(mcpSrv, sc)
			},
		},
		{
			name: "Holiday resources",
			register: func() error {
				return date_tools.RegisterHolidayResources(mcpSrv, st.school, st.cfg.DefaultSchoolZone)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runHTTPServer(ctx context.Context, opts serveOptions, st *stack, sc *server.ServerContext, mcpSrv *mcpserver.MCPServer) error {
	health := server.NewHealthChecker(sc)
	router := api.NewRouter(api.Options{
		Service:        st.service,
		Logger:         logging.NewSlogAdapter(st.logger),
		Metrics:        sc.Metrics(),
		Health:         health,
		MCP:            newMCPHandler(mcpSrv, opts.disableStreaming),
		AllowedOrigins: st.cfg.CORSAllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              st.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	st.logger.Info("calprompt server starting",
		"addr", st.cfg.HTTPAddr,
		"mcp", api.MCPPath,
		"origins", strings.Join(st.cfg.CORSAllowedOrigins, ","))

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		st.logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	st.logger.Info("HTTP server gracefully stopped")
	return nil
}

func newMCPHandler(mcpSrv *mcpserver.MCPServer, disableStreaming bool) http.Handler {
	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath(api.MCPPath)}
	if disableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	return mcpserver.NewStreamableHTTPServer(mcpSrv, opts...)
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
