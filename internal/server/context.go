package server

import (
	"context"
	"sync"

	"github.com/teemow/calprompt/internal/instrumentation"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerContext carries the process-wide shutdown context and the shared
// instrumentation of a running server.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	checks      map[string]Pinger
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a server context derived from ctx.
func NewServerContext(ctx context.Context) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		checks: make(map[string]Pinger),
	}, nil
}

// Context returns the server context. It is cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Metrics returns the metrics recorder, or nil when none is configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// AuditLogger returns the audit logger, or nil when none is configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AddHealthCheck registers a dependency probed by the readiness endpoints.
func (sc *ServerContext) AddHealthCheck(name string, p Pinger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.checks[name] = p
}

// Ping probes every registered dependency and returns each result by name.
func (sc *ServerContext) Ping(ctx context.Context) map[string]error {
	sc.mu.RLock()
	checks := make(map[string]Pinger, len(sc.checks))
	for name, p := range sc.checks {
		checks[name] = p
	}
	sc.mu.RUnlock()

	results := make(map[string]error, len(checks))
	for name, p := range checks {
		results[name] = p.Ping(ctx)
	}
	return results
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
