// Package instrumentation wires OpenTelemetry metrics, tracing and audit
// logging for calprompt.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: API traffic by
//     method, route and status
//   - date_tool_invocations_total, date_tool_duration_seconds: date tool
//     calls from the interpreter and from MCP clients
//   - reasoning_roundtrips_total, reasoning_roundtrip_duration_seconds:
//     backend calls by stop reason
//   - interpretations_total, interpretation_roundtrips: finished
//     interpretation loops by outcome
//   - calendar_actions_total: calendar mutations by action and status
//
// # Tracing
//
// Spans cover each interpretation, each backend round trip
// (reasoning.roundtrip), each date tool call (tool.<name>) and the apply
// step.
//
// # Configuration
//
// Environment variables read by DefaultConfig:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: calprompt)
//   - METRICS_DETAILED_LABELS: add calendar ids to action metrics
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_ARGUMENTS
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordInterpretation(ctx, instrumentation.OutcomeAnswered, 3)
package instrumentation
