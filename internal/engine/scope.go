package engine

import (
	"sync"

	"github.com/nao1215/reconscan/internal/value"
)

// Verdict is the outcome of offering a value to a Store.
type Verdict int

const (
	// Accepted means the value is in scope and seen for the first time.
	Accepted Verdict = iota
	// OutOfScope means no root subsumes the value.
	OutOfScope
	// Duplicate means a strictly equal value was accepted before.
	Duplicate
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case OutOfScope:
		return "out_of_scope"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Store holds the scan roots and the set of values seen so far. It is safe
// for concurrent use; the seen-set check and insert happen under one lock.
type Store struct {
	roots []value.Value

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewStore creates a store scoped to roots. Nil roots are ignored.
func NewStore(roots ...value.Value) *Store {
	s := &Store{
		roots: make([]value.Value, 0, len(roots)),
		seen:  make(map[string]struct{}),
	}
	for _, r := range roots {
		if r != nil {
			s.roots = append(s.roots, r)
		}
	}
	return s
}

// Admit reports whether v is in scope and new. A true result is returned
// at most once for every strict identity.
func (s *Store) Admit(v value.Value) bool {
	return s.Offer(v) == Accepted
}

// Offer is Admit with the reason for a rejection.
func (s *Store) Offer(v value.Value) Verdict {
	if v == nil || !s.InScope(v) {
		return OutOfScope
	}

	k := v.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[k]; ok {
		return Duplicate
	}
	s.seen[k] = struct{}{}
	return Accepted
}

// InScope reports whether v is a root or is subsumed by one.
func (s *Store) InScope(v value.Value) bool {
	for _, r := range s.roots {
		if value.Equal(r, v) || value.Subsumes(r, v) {
			return true
		}
	}
	return false
}

// Seen reports whether a value strictly equal to v was accepted.
func (s *Store) Seen(v value.Value) bool {
	if v == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[v.Key()]
	return ok
}

// Roots returns a copy of the scan roots.
func (s *Store) Roots() []value.Value {
	return append([]value.Value(nil), s.roots...)
}

// Len returns the number of accepted values.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
