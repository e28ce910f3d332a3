package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/logging"
	"github.com/teemow/calprompt/internal/planner"
	"github.com/teemow/calprompt/internal/server"
)

// MCPPath is where the streamable HTTP MCP endpoint is mounted.
const MCPPath = "/mcp"

// Options configure NewRouter. Service is required.
type Options struct {
	Service *planner.Service
	Logger  logging.Logger
	Metrics *instrumentation.Metrics
	// Health adds /healthz, /readyz and /healthz/detailed when set.
	Health *server.HealthChecker
	// MCP is mounted at MCPPath when set.
	MCP            http.Handler
	AllowedOrigins []string
	Now            func() time.Time
}

// NewRouter builds the gin engine serving the calendar API.
func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(opts.Logger))
	r.Use(requestMetrics(opts.Metrics))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	if opts.Health != nil {
		r.GET("/healthz", gin.WrapH(opts.Health.LivenessHandler()))
		r.GET("/readyz", gin.WrapH(opts.Health.ReadinessHandler()))
		r.GET("/healthz/detailed", gin.WrapH(opts.Health.DetailedHealthHandler()))
	}
	if opts.MCP != nil {
		r.Any(MCPPath, gin.WrapH(opts.MCP))
	}

	h := &handlers{svc: opts.Service, logger: opts.Logger, now: opts.Now}

	r.POST("/calendars", Resolve(h.createCalendar))

	cal := r.Group("/calendars/:id")
	cal.GET("", Resolve(h.getCalendar))
	cal.GET("/holidays", Resolve(h.holidays))
	cal.GET("/export.ics", h.exportICS)

	cal.POST("/prompts", Resolve(h.processPrompt))
	cal.GET("/prompts", Resolve(h.listPrompts))
	cal.POST("/synthesis", Resolve(h.synthesize))
	cal.POST("/undo", Resolve(h.undo))

	cal.GET("/snapshots", Resolve(h.listSnapshots))
	cal.POST("/snapshots", Resolve(h.createSnapshot))
	cal.POST("/snapshots/:snapshotId/restore", Resolve(h.restoreSnapshot))

	cal.GET("/event-types", Resolve(h.listEventTypes))
	cal.GET("/events", Resolve(h.listEvents))
	cal.POST("/events", Resolve(h.createEvent))
	cal.POST("/events/reorder", Resolve(h.reorderEvents))
	cal.PUT("/events/:eventId", Resolve(h.updateEvent))
	cal.DELETE("/events/:eventId", Resolve(h.deleteEvent))
	cal.POST("/events/:eventId/split", Resolve(h.splitEvent))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "Mcp-Session-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
