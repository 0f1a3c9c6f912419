package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pulsehr/engine/decision"
	"github.com/pulsehr/engine/evaluate"
	"github.com/pulsehr/engine/feature"
	"github.com/pulsehr/engine/graph"
	"github.com/pulsehr/engine/rule"
	"github.com/pulsehr/engine/sink"
)

const instrumentationName = "github.com/pulsehr/engine"

// Engine evaluates rules over a frozen knowledge graph for many
// subjects concurrently and aggregates the results into decision
// records. An Engine is safe for concurrent use; all mutable state is
// per-run.
type Engine struct {
	graph     *graph.Graph
	features  feature.Store
	evaluator *evaluate.Evaluator
	agg       *decision.Aggregator
	logger    *slog.Logger
	tracer    trace.Tracer
	workers   int
	sink      sink.Sink

	subjectsEvaluated  metric.Int64Counter
	candidatesProduced metric.Int64Counter
	actionsSelected    metric.Int64Counter
}

// New creates an engine over a graph, a loaded rule set and a feature
// store. The graph is frozen here; any later mutation attempt fails
// with graph.ErrFrozen.
func New(g *graph.Graph, set *rule.Set, store feature.Store, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if set == nil {
		return nil, ErrNilRules
	}
	if store == nil {
		return nil, ErrNilFeatureStore
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(instrumentationName)
	}
	if cfg.meter == nil {
		cfg.meter = otel.Meter(instrumentationName)
	}
	if cfg.workers < 1 {
		cfg.workers = runtime.NumCPU()
	}

	g.Freeze()

	evaluator, err := evaluate.New(g, set, evaluate.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	agg, err := decision.NewAggregator(cfg.aggregate)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		graph:     g,
		features:  store,
		evaluator: evaluator,
		agg:       agg,
		logger:    cfg.logger,
		tracer:    cfg.tracer,
		workers:   cfg.workers,
		sink:      cfg.sink,
	}

	if e.subjectsEvaluated, err = cfg.meter.Int64Counter("engine.subjects_evaluated",
		metric.WithDescription("Subjects fully evaluated")); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if e.candidatesProduced, err = cfg.meter.Int64Counter("engine.candidates_produced",
		metric.WithDescription("Candidate decisions produced by firing rules")); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if e.actionsSelected, err = cfg.meter.Int64Counter("engine.actions_selected",
		metric.WithDescription("Actions surviving aggregation")); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}

	return e, nil
}

// RunAll evaluates every subject the feature store knows about.
func (e *Engine) RunAll(ctx context.Context) ([]decision.Record, error) {
	subjects, err := e.features.Subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return e.Run(ctx, subjects)
}

// Run evaluates the given subjects and returns one record per subject,
// in input order. Subject evaluations fan out across the worker pool;
// the graph and rule set are read-only for the duration, so no locking
// is involved.
//
// Cancellation is atomic per subject: if the context is cancelled
// mid-run, no partial record is emitted or returned — the whole run
// reports the context error. A configured sink receives completed
// records serially, in completion order, while the run progresses.
func (e *Engine) Run(ctx context.Context, subjects []string) ([]decision.Record, error) {
	runID := uuid.New()
	start := time.Now()
	logger := e.logger.With("run_id", runID.String())
	logger.Info("run started", "subjects", len(subjects), "workers", e.workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		results  = make([]decision.Record, len(subjects))
		jobs     = make(chan int)
		emitCh   = make(chan decision.Record, e.workers)
		workerWG sync.WaitGroup
		emitWG   sync.WaitGroup
		failOnce sync.Once
		failErr  error
	)

	fail := func(err error) {
		failOnce.Do(func() {
			failErr = err
			cancel()
		})
	}

	emitWG.Add(1)
	go func() {
		defer emitWG.Done()
		for rec := range emitCh {
			if e.sink == nil {
				continue
			}
			if err := e.sink.Emit(runCtx, rec); err != nil {
				logger.Error("sink emit failed", "subject_id", rec.SubjectID, "error", err)
			}
		}
	}()

	for w := 0; w < e.workers; w++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for idx := range jobs {
				rec, err := e.evaluateSubject(runCtx, runID, subjects[idx])
				if err != nil {
					fail(err)
					return
				}
				results[idx] = rec
				select {
				case emitCh <- rec:
				case <-runCtx.Done():
					fail(runCtx.Err())
					return
				}
			}
		}()
	}

dispatch:
	for idx := range subjects {
		select {
		case jobs <- idx:
		case <-runCtx.Done():
			fail(runCtx.Err())
			break dispatch
		}
	}
	close(jobs)
	workerWG.Wait()
	close(emitCh)
	emitWG.Wait()

	if failErr != nil {
		logger.Warn("run aborted", "error", failErr, "elapsed", time.Since(start))
		return nil, failErr
	}

	logger.Info("run finished", "subjects", len(subjects), "elapsed", time.Since(start))
	return results, nil
}

// evaluateSubject runs one subject end to end: feature lookup, rule
// evaluation, aggregation, run metadata.
func (e *Engine) evaluateSubject(ctx context.Context, runID uuid.UUID, subjectID string) (decision.Record, error) {
	ctx, span := e.tracer.Start(ctx, "engine.evaluate_subject",
		trace.WithAttributes(attribute.String("subject_id", subjectID)))
	defer span.End()

	vec, err := e.features.Vector(ctx, subjectID)
	switch {
	case errors.Is(err, feature.ErrSubjectNotFound):
		// No features is a data condition, not a failure: graph
		// predicates can still fire for the subject.
		e.logger.Warn("subject has no feature vector", "subject_id", subjectID)
		vec = feature.Vector{}
	case err != nil:
		return decision.Record{}, fmt.Errorf("feature lookup for %s: %w", subjectID, err)
	}

	candidates, err := e.evaluator.Subject(ctx, subjectID, vec)
	if err != nil {
		return decision.Record{}, err
	}

	rec := e.agg.Aggregate(subjectID, candidates)
	rec.RunID = runID
	rec.EvaluatedAt = time.Now().UTC()

	e.subjectsEvaluated.Add(ctx, 1)
	e.candidatesProduced.Add(ctx, int64(len(candidates)))
	e.actionsSelected.Add(ctx, int64(len(rec.Actions)))
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("actions", len(rec.Actions)),
	)
	return rec, nil
}
