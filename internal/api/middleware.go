package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/logging"
)

// routeLabel is the matched route template, which keeps metric labels
// bounded.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

func requestMetrics(m *instrumentation.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"route", routeLabel(c),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}
