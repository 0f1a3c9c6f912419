package engine

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pulsehr/engine/decision"
	"github.com/pulsehr/engine/sink"
)

// Option configures an Engine.
type Option func(*config)

// config holds configuration for an Engine instance.
type config struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter
	workers   int
	aggregate decision.Config
	sink      sink.Sink
}

// WithLogger sets a custom logger. If not provided, a JSON logger to
// stderr at info level is created.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer. The engine records one span
// per subject evaluation. Without it, the global tracer provider is
// used (a no-op unless the application configures one, for example via
// the telemetry package).
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for the engine's counters
// (subjects evaluated, candidates produced, actions selected). Without
// it, the global meter provider is used.
func WithMeter(meter metric.Meter) Option {
	return func(c *config) {
		c.meter = meter
	}
}

// WithWorkers bounds the evaluation worker pool. Values below 1 keep
// the default of runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithAggregatorConfig sets the aggregation policy: top-k cutoff,
// minimum score threshold and mutual exclusions. The zero Config keeps
// everything unbounded.
func WithAggregatorConfig(cfg decision.Config) Option {
	return func(c *config) {
		c.aggregate = cfg
	}
}

// WithSink streams completed records to a sink during the run, in
// completion order, from a single collector goroutine. Run's return
// value is unaffected.
func WithSink(s sink.Sink) Option {
	return func(c *config) {
		c.sink = s
	}
}
