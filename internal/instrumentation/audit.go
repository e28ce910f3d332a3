package instrumentation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Sources of a date tool invocation.
const (
	SourceMCP         = "mcp"
	SourceInterpreter = "interpreter"
)

// ToolInvocation is the audit record of one date tool call.
type ToolInvocation struct {
	Tool       string
	Source     string
	CalendarID string
	Arguments  map[string]any

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing an invocation of tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithSource records who called the tool.
func (ti *ToolInvocation) WithSource(source string) *ToolInvocation {
	ti.Source = source
	return ti
}

// WithCalendar records the calendar whose instruction triggered the call.
func (ti *ToolInvocation) WithCalendar(calendarID string) *ToolInvocation {
	ti.CalendarID = calendarID
	return ti
}

// WithArguments keeps the call arguments for audit lines.
func (ti *ToolInvocation) WithArguments(args map[string]any) *ToolInvocation {
	ti.Arguments = args
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Status returns "success" or "error".
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// Complete stops the timer.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteWithFailure marks the invocation as failed with a tool-level
// failure message rather than a Go error.
func (ti *ToolInvocation) CompleteWithFailure(msg string) *ToolInvocation {
	ti.Complete(false, nil)
	ti.Error = msg
	return ti
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// LogAttrs returns the structured log attributes of the invocation.
func (ti *ToolInvocation) LogAttrs(includeArguments bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.Source != "" {
		attrs = append(attrs, slog.String("source", ti.Source))
	}
	if ti.CalendarID != "" {
		attrs = append(attrs, slog.String("calendar_id", ti.CalendarID))
	}
	if includeArguments && len(ti.Arguments) > 0 {
		if data, err := json.Marshal(ti.Arguments); err == nil {
			attrs = append(attrs, slog.String("arguments", string(data)))
		}
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// AuditLogger writes one log line per tool invocation.
type AuditLogger struct {
	logger           *slog.Logger
	includeArguments bool
	enabled          bool
}

// NewAuditLogger returns an enabled AuditLogger that omits arguments.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger,
		enabled: true,
	}
}

// NewAuditLoggerWithConfig creates an AuditLogger from config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	al := NewAuditLogger(logger)
	al.includeArguments = config.IncludeArguments
	al.enabled = config.Enabled
	return al
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolInvocation logs ti. Failed invocations are logged at warn level.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs(al.includeArguments)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
