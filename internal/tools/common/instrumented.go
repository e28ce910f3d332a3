package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calprompt/internal/instrumentation"
	"github.com/teemow/calprompt/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with metrics and audit logging.
// A result flagged IsError counts as a failed invocation even when the
// handler returns a nil error.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSource(instrumentation.SourceMCP).
			WithArguments(request.GetArguments()).
			WithSpanContext(ctx)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
		case result != nil && result.IsError:
			invocation.CompleteWithFailure(resultText(result))
		default:
			invocation.CompleteSuccess()
		}

		metrics.RecordToolInvocation(ctx, toolName, invocation.Status(), duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}

// resultText returns the first text content of a result.
func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			return tc.Text
		case *mcp.TextContent:
			return tc.Text
		}
	}
	return ""
}
