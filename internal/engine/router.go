package engine

import (
	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// Router maps a value kind to the workers that accept it. Matching is on
// the exact kind only; scope relations between kinds play no part.
type Router struct {
	index map[value.Kind][]worker.Worker
}

// NewRouter builds the inverse index from accepted kind to workers. Workers
// keep the order in which they were given.
func NewRouter(workers []worker.Worker) *Router {
	index := make(map[value.Kind][]worker.Worker)
	for _, w := range workers {
		seen := make(map[value.Kind]bool)
		for _, k := range w.Descriptor().Accepts {
			if seen[k] {
				continue
			}
			seen[k] = true
			index[k] = append(index[k], w)
		}
	}
	return &Router{index: index}
}

// Route returns the workers accepting kind k. The returned slice must not
// be modified.
func (r *Router) Route(k value.Kind) []worker.Worker {
	return r.index[k]
}

// Kinds returns the number of kinds with at least one worker.
func (r *Router) Kinds() int {
	return len(r.index)
}
