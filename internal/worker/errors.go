package worker

import (
	"errors"
	"fmt"

	"github.com/nao1215/reconscan/internal/value"
)

var (
	// ErrClassNotFound is returned when a worker id or source file does not
	// resolve to a worker definition.
	ErrClassNotFound = errors.New("worker not found")

	// ErrDuplicateWorkerID is returned when registering an id twice.
	ErrDuplicateWorkerID = errors.New("worker id already registered")

	// ErrEmptyWorkerID is returned for descriptors or registrations without an id.
	ErrEmptyWorkerID = errors.New("worker id is empty")

	// ErrNilFactory is returned when registering a nil factory.
	ErrNilFactory = errors.New("worker factory is nil")

	// ErrNoAcceptedTypes is returned for descriptors that accept nothing.
	ErrNoAcceptedTypes = errors.New("worker accepts no value types")

	// ErrInvalidIntensity is returned for unknown intensity tiers.
	ErrInvalidIntensity = errors.New("invalid intensity")

	// ErrContractViolation matches every ContractViolationError.
	ErrContractViolation = errors.New("worker contract violation")
)

// LoadError wraps a failure that happened while building or loading a worker.
type LoadError struct {
	// Source is the worker id or file path being loaded.
	Source string

	// Err is the underlying failure.
	Err error
}

// Error implements error.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load worker %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying failure.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// ContractViolationError reports a value whose kind the worker did not
// declare as an output.
type ContractViolationError struct {
	WorkerID string
	Kind     value.Kind
}

// Error implements error.
func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("worker %s emitted undeclared value type %s", e.WorkerID, e.Kind)
}

// Is makes errors.Is(err, ErrContractViolation) match.
func (e *ContractViolationError) Is(target error) bool {
	return target == ErrContractViolation
}
