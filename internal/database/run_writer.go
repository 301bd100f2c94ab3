package database

import (
	"context"
	"sync"

	"github.com/nao1215/reconscan/internal/engine"
)

// RunWriter stores the values of one run as the engine accepts them. It
// satisfies engine.Sink, and WriteSummary finishes the run.
type RunWriter struct {
	db  *ResultDB
	ctx context.Context
	run *Run

	mu  sync.Mutex
	seq int
}

// NewRunWriter returns a RunWriter for run. ctx bounds every database
// call; pass a context that outlives the engine run so a cancelled run is
// still recorded.
func (rdb *ResultDB) NewRunWriter(ctx context.Context, run *Run) *RunWriter {
	return &RunWriter{db: rdb, ctx: ctx, run: run}
}

// Run returns the run being written.
func (w *RunWriter) Run() *Run {
	return w.run
}

// Emit implements engine.Sink.
func (w *RunWriter) Emit(e engine.Entry) error {
	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.mu.Unlock()

	return w.db.SaveValue(w.ctx, w.run.ID, seq, StoredValue{
		Value:  e.Value,
		Depth:  e.Depth,
		Origin: e.Origin,
	}, e.Parent)
}

// WriteSummary marks the run finished with the counters of s.
func (w *RunWriter) WriteSummary(s *engine.Summary) error {
	status := StatusCompleted
	if s.Cancelled {
		status = StatusCancelled
	}
	counts := map[string]int{
		"roots":               s.Roots,
		"duplicates":          s.Duplicates,
		"out_of_scope":        s.OutOfScope,
		"contract_violations": s.Violations,
		"skipped":             s.Skipped,
		"sink_errors":         s.SinkErrors,
	}
	for state, n := range s.Invocations {
		counts[state.String()] = n
	}

	if err := w.db.FinishRun(w.ctx, w.run.ID, status, s.Discovered, counts); err != nil {
		return err
	}
	w.run.Status = status
	w.run.Discovered = s.Discovered
	w.run.Counts = counts
	return nil
}
