package worker

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Factory builds a worker instance.
type Factory func() (Worker, error)

// Registry maps worker ids to factories and loads workers from source files.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	source    SourceProvider
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSourceProvider replaces the provider used by LoadFromSource.
func WithSourceProvider(p SourceProvider) RegistryOption {
	return func(r *Registry) {
		if p != nil {
			r.source = p
		}
	}
}

// NewRegistry creates an empty registry. Unless overridden, LoadFromSource
// reads YAML worker files through FileSource.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		source:    NewFileSource(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a factory under id.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return ErrEmptyWorkerID
	}
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateWorkerID, id)
	}
	r.factories[id] = factory
	return nil
}

// Lookup builds the worker registered under id.
func (r *Registry) Lookup(id string) (Worker, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, id)
	}

	w, err := factory()
	if err != nil {
		return nil, &LoadError{Source: id, Err: err}
	}
	if w == nil {
		return nil, &LoadError{Source: id, Err: errors.New("factory returned no worker")}
	}
	desc := w.Descriptor()
	if err := desc.Validate(); err != nil {
		return nil, &LoadError{Source: id, Err: err}
	}
	if desc.ID != id {
		return nil, &LoadError{Source: id, Err: fmt.Errorf("factory built worker %q", desc.ID)}
	}
	return w, nil
}

// LoadFromSource loads exactly one worker definition from path through the
// configured SourceProvider.
func (r *Registry) LoadFromSource(path string) (Worker, error) {
	w, err := r.source.Load(path)
	if err != nil {
		var loadErr *LoadError
		if errors.Is(err, ErrClassNotFound) || errors.As(err, &loadErr) {
			return nil, err
		}
		return nil, &LoadError{Source: path, Err: err}
	}
	if w == nil {
		return nil, fmt.Errorf("%w: %s defines no worker", ErrClassNotFound, path)
	}
	if err := w.Descriptor().Validate(); err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	return w, nil
}

// IsRegistered reports whether id has a factory.
func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Workers builds the workers named by ids, or every registered worker when
// ids is empty.
func (r *Registry) Workers(ids ...string) ([]Worker, error) {
	if len(ids) == 0 {
		ids = r.IDs()
	}
	workers := make([]Worker, 0, len(ids))
	for _, id := range ids {
		w, err := r.Lookup(id)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, nil
}
