// Package engine drives a reconnaissance run.
//
// Root values seed a frontier. Every frontier value is routed by its exact
// kind to the workers that accept it, and each (value, worker) pair runs once
// as its own task. Values emitted by a task pass through the scope store:
// those outside the roots' scope or already seen are dropped, the rest are
// written to the sink and pushed back onto the frontier. The run ends when
// the frontier is empty and no task is in flight, or when the context is
// cancelled and in-flight tasks have returned.
//
// Concurrency is bounded by the task group limit and, optionally, by a
// per-intensity semaphore and rate limit. A single invocation failing,
// panicking or timing out never stops the run.
package engine
