package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrTool     = "tool"
	attrStop     = "stop"
	attrOutcome  = "outcome"
	attrAction   = "action"
	attrCalendar = "calendar"
)

// Metrics records the service's counters and histograms. A zero Metrics is a
// valid no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	roundTripsTotal   metric.Int64Counter
	roundTripDuration metric.Float64Histogram

	interpretationsTotal    metric.Int64Counter
	interpretationRoundTrip metric.Int64Histogram

	calendarActionsTotal metric.Int64Counter

	detailedLabels bool
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"date_tool_invocations_total",
		metric.WithDescription("Total number of date tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create date_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"date_tool_duration_seconds",
		metric.WithDescription("Date tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.00001, 0.0001, 0.001, 0.01, 0.1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create date_tool_duration_seconds histogram: %w", err)
	}

	m.roundTripsTotal, err = meter.Int64Counter(
		"reasoning_roundtrips_total",
		metric.WithDescription("Total number of reasoning backend round trips by stop reason"),
		metric.WithUnit("{roundtrip}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning_roundtrips_total counter: %w", err)
	}

	m.roundTripDuration, err = meter.Float64Histogram(
		"reasoning_roundtrip_duration_seconds",
		metric.WithDescription("Reasoning backend round trip duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1.0, 2.5, 5.0, 10.0, 20.0, 45.0, 90.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning_roundtrip_duration_seconds histogram: %w", err)
	}

	m.interpretationsTotal, err = meter.Int64Counter(
		"interpretations_total",
		metric.WithDescription("Total number of interpreted instructions by outcome"),
		metric.WithUnit("{interpretation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create interpretations_total counter: %w", err)
	}

	m.interpretationRoundTrip, err = meter.Int64Histogram(
		"interpretation_roundtrips",
		metric.WithDescription("Reasoning round trips needed per interpretation"),
		metric.WithUnit("{roundtrip}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create interpretation_roundtrips histogram: %w", err)
	}

	m.calendarActionsTotal, err = meter.Int64Counter(
		"calendar_actions_total",
		metric.WithDescription("Total number of calendar mutations by action and status"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_actions_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request. path should be the route
// template, not the raw URL.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordToolInvocation records one date tool call, whether it came from the
// interpretation loop or an MCP client.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)

	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordReasoningRoundTrip records one backend call and how it stopped.
func (m *Metrics) RecordReasoningRoundTrip(ctx context.Context, stop string, duration time.Duration) {
	if m == nil || m.roundTripsTotal == nil || m.roundTripDuration == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStop, stop))
	m.roundTripsTotal.Add(ctx, 1, attrs)
	m.roundTripDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordInterpretation records a finished interpretation loop.
func (m *Metrics) RecordInterpretation(ctx context.Context, outcome string, roundTrips int) {
	if m == nil || m.interpretationsTotal == nil || m.interpretationRoundTrip == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))
	m.interpretationsTotal.Add(ctx, 1, attrs)
	m.interpretationRoundTrip.Record(ctx, int64(roundTrips), attrs)
}

// RecordCalendarAction records one applied, failed or skipped mutation. The
// calendar id is only attached when detailed labels are enabled.
func (m *Metrics) RecordCalendarAction(ctx context.Context, calendarID, action, status string) {
	if m == nil || m.calendarActionsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAction, BoundedLabel(action, CalendarOperations...)),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && calendarID != "" {
		attrs = append(attrs, attribute.String(attrCalendar, calendarID))
	}

	m.calendarActionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
