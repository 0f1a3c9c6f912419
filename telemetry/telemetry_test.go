package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/pulsehr/engine/telemetry"
)

func TestNewTracerProviderExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := telemetry.NewTracerProvider(exporter, "test-service", nil)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "evaluate")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "evaluate", spans[0].Name)
	assert.Contains(t, spans[0].Resource.Attributes(),
		semconv.ServiceNameKey.String("test-service"))
}

func TestNewTracerProviderDefaultServiceName(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := telemetry.NewTracerProvider(exporter, "", nil)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "evaluate")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Resource.Attributes(),
		semconv.ServiceNameKey.String(telemetry.DefaultServiceName))
}

func TestNewMeterProviderCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProvider(reader, "test-service", nil)
	defer func() { _ = mp.Shutdown(context.Background()) }()

	counter, err := mp.Meter("test").Int64Counter("engine.subjects_evaluated")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	assert.Equal(t, "engine.subjects_evaluated", rm.ScopeMetrics[0].Metrics[0].Name)
}

func TestInstallSetsGlobalsAndShutsDown(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevMP := otel.GetMeterProvider()
	defer otel.SetTracerProvider(prevTP)
	defer otel.SetMeterProvider(prevMP)

	tp := telemetry.NewTracerProvider(tracetest.NewInMemoryExporter(), "test-service", nil)
	mp := telemetry.NewMeterProvider(sdkmetric.NewManualReader(), "test-service", nil)

	shutdown := telemetry.Install(tp, mp)
	assert.Same(t, tp, otel.GetTracerProvider())
	assert.Same(t, mp, otel.GetMeterProvider())
	require.NoError(t, shutdown(context.Background()))
}
