// Package telemetry wires OpenTelemetry providers for the engine.
//
// The engine itself only depends on the otel API: it records one span
// per subject evaluation and a handful of counters through whatever
// tracer and meter it is given. This package is the SDK side —
// applications embedding the engine use it to build real providers
// around their exporter of choice and install them, then pass tracers
// and meters in via engine options or let the engine fall back to the
// globals.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// DefaultServiceName identifies the engine in exported telemetry when
// the application does not set its own.
const DefaultServiceName = "pulsehr-engine"

// NewTracerProvider creates a TracerProvider that exports through the
// given exporter.
//
// Spans go through a batch processor; decision runs produce one span
// per subject, so batching keeps large runs from overwhelming the
// exporter. Callers own the provider and should Shutdown it when the
// application stops.
func NewTracerProvider(exporter sdktrace.SpanExporter, serviceName string, logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(serviceName, logger)),
	)
}

// NewMeterProvider creates a MeterProvider that collects through the
// given reader. Callers own the provider and should Shutdown it when
// the application stops.
func NewMeterProvider(reader sdkmetric.Reader, serviceName string, logger *slog.Logger) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(newResource(serviceName, logger)),
	)
}

// Install registers both providers as the process-wide otel globals so
// that engines built without explicit WithTracer/WithMeter options pick
// them up. The returned shutdown function flushes and stops both
// providers; the trace error is returned first if both fail.
func Install(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) func(context.Context) error {
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		traceErr := tp.Shutdown(ctx)
		metricErr := mp.Shutdown(ctx)
		if traceErr != nil {
			return traceErr
		}
		return metricErr
	}
}

// newResource builds the common resource carrying the service name.
func newResource(serviceName string, logger *slog.Logger) *resource.Resource {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to create resource, using default", "error", err)
		}
		res = resource.Default()
	}
	return res
}
