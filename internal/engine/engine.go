package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// Engine runs workers breadth-first over a growing set of values. An Engine
// holds configuration only and may be used for several runs, including
// concurrent ones.
type Engine struct {
	workers []worker.Worker
	router  *Router
	logger  *slog.Logger

	maxConcurrency  int
	intensityLimits map[worker.Intensity]int
	rateLimits      map[worker.Intensity]rate.Limit
	maxIntensity    worker.Intensity
	timeout         time.Duration
	maxDepth        int
	observer        func(worker.Invocation)
}

// New creates an engine over workers. Workers above the configured maximum
// intensity are left out of routing.
func New(workers []worker.Worker, opts ...Option) (*Engine, error) {
	e := &Engine{
		maxConcurrency:  DefaultMaxConcurrency,
		intensityLimits: make(map[worker.Intensity]int),
		rateLimits:      make(map[worker.Intensity]rate.Limit),
		maxIntensity:    worker.Aggressive,
		timeout:         DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	ids := make(map[string]bool, len(workers))
	for _, w := range workers {
		if w == nil {
			return nil, ErrNilWorker
		}
		desc := w.Descriptor()
		if err := desc.Validate(); err != nil {
			return nil, err
		}
		if ids[desc.ID] {
			return nil, fmt.Errorf("%w: %s", worker.ErrDuplicateWorkerID, desc.ID)
		}
		ids[desc.ID] = true

		if desc.Intensity > e.maxIntensity {
			e.logger.Debug("worker excluded by intensity",
				"worker", desc.ID,
				"intensity", desc.Intensity.String(),
				"max_intensity", e.maxIntensity.String(),
			)
			continue
		}
		e.workers = append(e.workers, w)
	}
	e.router = NewRouter(e.workers)
	return e, nil
}

// Workers returns the workers taking part in routing.
func (e *Engine) Workers() []worker.Worker {
	return append([]worker.Worker(nil), e.workers...)
}

// Router returns the engine's type router.
func (e *Engine) Router() *Router {
	return e.router
}

// run is the state of one Run call.
type run struct {
	store    *Store
	frontier *frontier
	sink     Sink

	tiers  map[worker.Intensity]*semaphore.Weighted
	rates  map[worker.Intensity]*rate.Limiter

	sinkMu sync.Mutex

	mu      sync.Mutex
	summary *Summary
}

// Run scans outward from roots and writes every accepted value to sink.
// Cancelling ctx stops scheduling, waits for running invocations and
// returns the partial summary with Cancelled set; cancellation is not an
// error. A nil sink discards values.
func (e *Engine) Run(ctx context.Context, roots []value.Value, sink Sink) (*Summary, error) {
	if sink == nil {
		sink = discardSink{}
	}

	nonNil := make([]value.Value, 0, len(roots))
	for _, r := range roots {
		if r != nil {
			nonNil = append(nonNil, r)
		}
	}
	if len(nonNil) == 0 {
		return nil, ErrNoRoots
	}

	r := &run{
		store:    NewStore(nonNil...),
		frontier: newFrontier(),
		sink:     sink,
		tiers:    make(map[worker.Intensity]*semaphore.Weighted, len(e.intensityLimits)),
		rates:    make(map[worker.Intensity]*rate.Limiter, len(e.rateLimits)),
		summary:  newSummary(),
	}
	for tier, n := range e.intensityLimits {
		r.tiers[tier] = semaphore.NewWeighted(int64(n))
	}
	for tier, limit := range e.rateLimits {
		r.rates[tier] = rate.NewLimiter(limit, 1)
	}

	e.logger.Info("starting run",
		"roots", len(nonNil),
		"workers", len(e.workers),
		"max_concurrency", e.maxConcurrency,
	)

	for _, root := range nonNil {
		if r.store.Offer(root) != Accepted {
			continue
		}
		entry := Entry{Value: root}
		r.summary.Roots++
		e.accept(r, entry)
	}

	// The group limit is the global bound. Go blocks the dispatch loop
	// while every slot is taken, so waiting tasks never pile up.
	var g errgroup.Group
	g.SetLimit(e.maxConcurrency)
	for {
		entry, ok := r.frontier.next(ctx)
		if !ok {
			break
		}
		for _, w := range e.router.Route(entry.Value.Kind()) {
			r.frontier.start()
			g.Go(func() error {
				defer r.frontier.done()
				e.invoke(ctx, r, w, entry)
				return nil
			})
		}
	}
	cancelled := ctx.Err() != nil
	if cancelled {
		e.logger.Warn("run cancelled, waiting for running invocations",
			"pending", r.frontier.pending(),
			"reason", ctx.Err(),
		)
	}
	_ = g.Wait() //nolint:errcheck // tasks never return errors

	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.summary
	s.Cancelled = cancelled
	s.Duration = time.Since(s.Started)

	e.logger.Info("run complete",
		"discovered", s.Discovered,
		"invocations", s.Total(),
		"failed", s.Invocations[worker.StateFailed],
		"timed_out", s.Invocations[worker.StateTimedOut],
		"cancelled_invocations", s.Invocations[worker.StateCancelled],
		"cancelled", s.Cancelled,
		"elapsed", s.Duration,
	)
	return s, nil
}

// accept emits an admitted entry and queues it for dispatch unless it sits
// at the depth limit.
func (e *Engine) accept(r *run, entry Entry) {
	r.mu.Lock()
	r.summary.Discovered++
	r.mu.Unlock()

	r.sinkMu.Lock()
	err := r.sink.Emit(entry)
	r.sinkMu.Unlock()
	if err != nil {
		e.logger.Error("failed to emit value",
			"value", entry.Value.String(),
			"error", err,
		)
		r.mu.Lock()
		r.summary.SinkErrors++
		r.mu.Unlock()
	}

	if e.maxDepth > 0 && entry.Depth >= e.maxDepth {
		return
	}
	r.frontier.push(entry)
}

// gate serializes the emissions of one invocation and rejects those that
// arrive after the invocation ended.
type gate struct {
	mu     sync.Mutex
	closed bool
}

func (g *gate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// invoke runs one (value, worker) pair and records its outcome.
func (e *Engine) invoke(ctx context.Context, r *run, w worker.Worker, entry Entry) {
	desc := w.Descriptor()
	inv := worker.Invocation{
		WorkerID: desc.ID,
		Input:    entry.Value,
		State:    worker.StatePending,
	}

	release, err := r.acquire(ctx, desc.Intensity)
	if err != nil {
		r.mu.Lock()
		r.summary.Skipped++
		r.mu.Unlock()
		return
	}
	defer release()

	tctx, cancel := ctx, context.CancelFunc(func() {})
	if e.timeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	g := &gate{}
	emit := func(v value.Value) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.closed || v == nil {
			return
		}
		if !desc.OutputsKind(v.Kind()) {
			inv.Violations++
			e.logger.Warn("dropping value",
				"worker", desc.ID,
				"value", v.String(),
				"error", &worker.ContractViolationError{WorkerID: desc.ID, Kind: v.Kind()},
			)
			return
		}
		e.ingest(r, entry, desc.ID, v, &inv)
	}

	inv.State = worker.StateRunning
	inv.Started = time.Now()
	e.logger.Debug("invoking worker", "worker", desc.ID, "value", entry.Value.String())

	done := make(chan error, 1)
	go func() {
		var pc panics.Catcher
		var perr error
		pc.Try(func() {
			perr = w.Process(tctx, entry.Value, emit)
		})
		if rec := pc.Recovered(); rec != nil {
			perr = rec.AsError()
		}
		done <- perr
	}()

	// Run cancellation reaches the worker through tctx and is waited out.
	// Only the invocation's own deadline abandons a worker that ignores
	// its context; the gate drops anything it emits from then on.
	var expired <-chan time.Time
	if e.timeout > 0 {
		timer := time.NewTimer(e.timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case err = <-done:
	case <-expired:
		select {
		case err = <-done:
		default:
			err = context.DeadlineExceeded
		}
	}
	g.close()
	inv.Finished = time.Now()

	switch {
	case err == nil:
		inv.State = worker.StateCompleted
	case errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		inv.State = worker.StateTimedOut
		inv.Err = err
		e.logger.Warn("worker timed out",
			"worker", desc.ID,
			"value", entry.Value.String(),
			"emitted", inv.Emitted,
			"timeout", e.timeout,
		)
	case ctx.Err() != nil:
		inv.State = worker.StateCancelled
		inv.Err = err
		e.logger.Debug("worker cancelled",
			"worker", desc.ID,
			"value", entry.Value.String(),
			"emitted", inv.Emitted,
		)
	default:
		inv.State = worker.StateFailed
		inv.Err = err
		e.logger.Warn("worker failed",
			"worker", desc.ID,
			"value", entry.Value.String(),
			"emitted", inv.Emitted,
			"error", err,
		)
	}

	r.mu.Lock()
	r.summary.Invocations[inv.State]++
	r.summary.Violations += inv.Violations
	r.mu.Unlock()

	if e.observer != nil {
		e.observer(inv)
	}
}

// ingest offers a produced value to the scope store.
func (e *Engine) ingest(r *run, parent Entry, origin string, v value.Value, inv *worker.Invocation) {
	switch r.store.Offer(v) {
	case Accepted:
		inv.Emitted++
		e.accept(r, Entry{
			Value:  v,
			Depth:  parent.Depth + 1,
			Origin: origin,
			Parent: parent.Value,
		})
	case Duplicate:
		r.mu.Lock()
		r.summary.Duplicates++
		r.mu.Unlock()
	case OutOfScope:
		e.logger.Debug("value out of scope", "worker", origin, "value", v.String())
		r.mu.Lock()
		r.summary.OutOfScope++
		r.mu.Unlock()
	}
}

// acquire waits for the tier slot and the tier rate limit of a task that
// already holds a global slot. It fails once ctx is done.
func (r *run) acquire(ctx context.Context, tier worker.Intensity) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tierSem := r.tiers[tier]
	if tierSem != nil {
		if err := tierSem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	release := func() {
		if tierSem != nil {
			tierSem.Release(1)
		}
	}

	if lim := r.rates[tier]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			release()
			return nil, err
		}
	}
	return release, nil
}
