// Package sink defines the boundary the decision engine emits records
// through. Delivery of actions (notifications, tickets, downstream
// queues) is a collaborator concern; implementations here only collect
// or serialize records.
//
// The engine calls Emit from a single collector goroutine, so a Sink
// needs no internal locking to satisfy the engine. CollectorSink locks
// anyway so tests and multi-engine setups can share one instance.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/pulsehr/engine/decision"
)

// Sink receives final decision records. Emit must not retain the
// record's slices past the call unless it copies them.
type Sink interface {
	Emit(ctx context.Context, rec decision.Record) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, rec decision.Record) error

// Emit calls the wrapped function.
func (f Func) Emit(ctx context.Context, rec decision.Record) error {
	return f(ctx, rec)
}

// Collector accumulates records in memory. Useful in tests and for
// callers that want the full result set after a run.
type Collector struct {
	mu      sync.Mutex
	records []decision.Record
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit appends the record.
func (c *Collector) Emit(_ context.Context, rec decision.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

// Records returns a copy of everything emitted so far.
func (c *Collector) Records() []decision.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]decision.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Writer streams records as JSON lines to an io.Writer.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriter creates a JSON-lines sink over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Emit writes one record as a JSON line.
func (w *Writer) Emit(_ context.Context, rec decision.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("sink: encode record for %s: %w", rec.SubjectID, err)
	}
	return nil
}
