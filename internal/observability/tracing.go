package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracerName is the instrumentation scope for service spans.
const TracerName = "github.com/placementops/ticketing"

// InitTracing installs a tracer provider without an exporter. Spans are still
// created and propagated, so an exporter can be added without touching callers.
// The returned func flushes and stops the provider.
func InitTracing(service, version string, logger *zap.Logger) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
		)),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing initialized", zap.String("service", service), zap.String("exporter", "none"))
	return tp.Shutdown
}

// Tracer returns the service tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
