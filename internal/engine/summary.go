package engine

import (
	"time"

	"github.com/nao1215/reconscan/internal/worker"
)

// Summary describes a finished run.
type Summary struct {
	// Roots is the number of distinct roots that seeded the run.
	Roots int

	// Discovered counts accepted values, roots included.
	Discovered int

	// Duplicates and OutOfScope count emitted values the scope store rejected.
	Duplicates int
	OutOfScope int

	// Violations counts values dropped for an undeclared output type.
	Violations int

	// Invocations counts finished invocations by terminal state.
	Invocations map[worker.State]int

	// Skipped counts invocations that never started because the run was
	// cancelled while they waited for a slot.
	Skipped int

	// SinkErrors counts values the sink failed to store.
	SinkErrors int

	// Cancelled is true when the run stopped before the frontier drained.
	Cancelled bool

	Started  time.Time
	Duration time.Duration
}

func newSummary() *Summary {
	return &Summary{
		Invocations: make(map[worker.State]int),
		Started:     time.Now(),
	}
}

// Total returns the number of finished invocations.
func (s *Summary) Total() int {
	n := 0
	for _, c := range s.Invocations {
		n += c
	}
	return n
}
