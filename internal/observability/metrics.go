package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds OTel metric instruments for the lens server.
type Metrics struct {
	ToolCalls       metric.Int64Counter
	ToolLatency     metric.Float64Histogram
	EventsProcessed metric.Int64Counter
	DecodeWarnings  metric.Int64Counter
}

// NewMetrics creates the lens metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("lens")

	toolCalls, err := meter.Int64Counter("lens.tool.calls",
		metric.WithDescription("Number of MCP tool invocations"),
	)
	if err != nil {
		return nil, err
	}

	toolLatency, err := meter.Float64Histogram("lens.tool.latency_seconds",
		metric.WithDescription("Time to serve one tool call"),
	)
	if err != nil {
		return nil, err
	}

	eventsProcessed, err := meter.Int64Counter("lens.history.events_processed",
		metric.WithDescription("History events run through the filter pipeline"),
	)
	if err != nil {
		return nil, err
	}

	decodeWarnings, err := meter.Int64Counter("lens.history.decode_warnings",
		metric.WithDescription("Payloads that could not be decoded"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ToolCalls:       toolCalls,
		ToolLatency:     toolLatency,
		EventsProcessed: eventsProcessed,
		DecodeWarnings:  decodeWarnings,
	}, nil
}

// RecordToolCall records one tool invocation and how long it took.
func (m *Metrics) RecordToolCall(ctx context.Context, tool string, d time.Duration, ok bool) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("ok", ok),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.ToolLatency.Record(ctx, d.Seconds(), attrs)
}

// RecordPipeline records pipeline throughput for one history fetch.
func (m *Metrics) RecordPipeline(ctx context.Context, events, warnings int) {
	m.EventsProcessed.Add(ctx, int64(events))
	if warnings > 0 {
		m.DecodeWarnings.Add(ctx, int64(warnings))
	}
}
