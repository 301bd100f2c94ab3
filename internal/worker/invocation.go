package worker

import (
	"fmt"
	"time"

	"github.com/nao1215/reconscan/internal/value"
)

// State is the lifecycle state of a single worker invocation.
//
//	Pending -> Running -> Completed | Failed | TimedOut | Cancelled
type State int

// Invocation states.
const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateTimedOut
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut || s == StateCancelled
}

// Invocation records one (value, worker) execution.
type Invocation struct {
	WorkerID string
	Input    value.Value
	State    State

	// Err is set for Failed and TimedOut invocations.
	Err error

	// Emitted counts values that passed the output contract.
	Emitted int

	// Violations counts values dropped for breaking the output contract.
	Violations int

	Started  time.Time
	Finished time.Time
}

// Duration returns how long the invocation ran.
func (i *Invocation) Duration() time.Duration {
	if i.Started.IsZero() || i.Finished.IsZero() {
		return 0
	}
	return i.Finished.Sub(i.Started)
}
