package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracerConfig identifies the lens process in exported traces.
type TracerConfig struct {
	ServiceName string
	Version     string
	// Namespace is the Temporal namespace the server is pointed at. It rides
	// along as a resource attribute so traces from lens instances watching
	// different namespaces stay distinguishable.
	Namespace string
	// Backend names the visibility backend in use, cli or sdk.
	Backend string
}

// InitTracer sets up an OTel trace provider with an OTLP HTTP exporter.
// Endpoint and headers come from the standard OTEL_EXPORTER_OTLP_* env vars.
// Returns a shutdown function that should be deferred.
func InitTracer(ctx context.Context, cfg TracerConfig) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("otel: create exporter: %w", err)
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	}
	if cfg.Namespace != "" {
		attrs = append(attrs, attribute.String("temporal.namespace", cfg.Namespace))
	}
	if cfg.Backend != "" {
		attrs = append(attrs, attribute.String("lens.backend", cfg.Backend))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("otel: create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	slog.Info("tracing initialized",
		"service", cfg.ServiceName,
		"namespace", cfg.Namespace,
		"backend", cfg.Backend)
	return tp.Shutdown, nil
}
