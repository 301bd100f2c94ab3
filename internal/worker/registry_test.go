package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/reconscan/internal/value"
)

func testFactory(id string) Factory {
	return func() (Worker, error) {
		return New(Descriptor{
			ID:      id,
			Accepts: []value.Kind{value.KindDomain},
			Outputs: []value.Kind{value.KindHost},
		}, func(_ context.Context, _ value.Value, _ Emit) error {
			return nil
		}), nil
	}
}

// TestRegistryRegister tests registration and duplicates.
func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("registers and looks up", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		if err := r.Register("dns/lookup", testFactory("dns/lookup")); err != nil {
			t.Fatalf("Register() error: %v", err)
		}
		w, err := r.Lookup("dns/lookup")
		if err != nil {
			t.Fatalf("Lookup() error: %v", err)
		}
		if w.Descriptor().ID != "dns/lookup" {
			t.Errorf("unexpected id %q", w.Descriptor().ID)
		}
		if !r.IsRegistered("dns/lookup") {
			t.Error("expected IsRegistered to be true")
		}
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		if err := r.Register("dns/lookup", testFactory("dns/lookup")); err != nil {
			t.Fatalf("Register() error: %v", err)
		}
		err := r.Register("dns/lookup", testFactory("dns/lookup"))
		if !errors.Is(err, ErrDuplicateWorkerID) {
			t.Errorf("expected ErrDuplicateWorkerID, got %v", err)
		}
	})

	t.Run("rejects empty id and nil factory", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		if err := r.Register("", testFactory("x")); !errors.Is(err, ErrEmptyWorkerID) {
			t.Errorf("expected ErrEmptyWorkerID, got %v", err)
		}
		if err := r.Register("x", nil); !errors.Is(err, ErrNilFactory) {
			t.Errorf("expected ErrNilFactory, got %v", err)
		}
	})

	t.Run("concurrent duplicate registration accepts exactly one", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		var wg sync.WaitGroup
		var mu sync.Mutex
		successes := 0
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := r.Register("race/worker", testFactory("race/worker")); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if successes != 1 {
			t.Errorf("expected exactly one successful registration, got %d", successes)
		}
	})
}

// TestRegistryLookup tests lookup failures.
func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	t.Run("unknown id is class not found", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		_, err := r.Lookup("nope/missing")
		if !errors.Is(err, ErrClassNotFound) {
			t.Errorf("expected ErrClassNotFound, got %v", err)
		}
	})

	t.Run("factory error is load error", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		boom := errors.New("boom")
		if err := r.Register("bad/factory", func() (Worker, error) { return nil, boom }); err != nil {
			t.Fatalf("Register() error: %v", err)
		}
		_, err := r.Lookup("bad/factory")
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("expected LoadError, got %v", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped factory error, got %v", err)
		}
	})

	t.Run("mismatched descriptor id is load error", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		if err := r.Register("a/one", testFactory("a/two")); err != nil {
			t.Fatalf("Register() error: %v", err)
		}
		_, err := r.Lookup("a/one")
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Errorf("expected LoadError, got %v", err)
		}
	})
}

// TestRegistryWorkers tests listing and building sets of workers.
func TestRegistryWorkers(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, id := range []string{"ssl/cert_grab", "dns/lookup", "net/service_id"} {
		if err := r.Register(id, testFactory(id)); err != nil {
			t.Fatalf("Register(%s) error: %v", id, err)
		}
	}

	ids := r.IDs()
	want := []string{"dns/lookup", "net/service_id", "ssl/cert_grab"}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	all, err := r.Workers()
	if err != nil {
		t.Fatalf("Workers() error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 workers, got %d", len(all))
	}

	subset, err := r.Workers("dns/lookup")
	if err != nil {
		t.Fatalf("Workers(dns/lookup) error: %v", err)
	}
	if len(subset) != 1 {
		t.Errorf("expected 1 worker, got %d", len(subset))
	}

	if _, err := r.Workers("dns/lookup", "missing/one"); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("expected ErrClassNotFound, got %v", err)
	}
}

// TestRegistryLoadFromSource tests the injectable source provider.
func TestRegistryLoadFromSource(t *testing.T) {
	t.Parallel()

	t.Run("uses injected provider", func(t *testing.T) {
		t.Parallel()
		var gotPath string
		r := NewRegistry(WithSourceProvider(SourceProviderFunc(func(path string) (Worker, error) {
			gotPath = path
			return testFactory("custom/one")()
		})))
		w, err := r.LoadFromSource("workers/one.yaml")
		if err != nil {
			t.Fatalf("LoadFromSource() error: %v", err)
		}
		if gotPath != "workers/one.yaml" {
			t.Errorf("provider got path %q", gotPath)
		}
		if w.Descriptor().ID != "custom/one" {
			t.Errorf("unexpected id %q", w.Descriptor().ID)
		}
	})

	t.Run("nil worker is class not found", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry(WithSourceProvider(SourceProviderFunc(func(string) (Worker, error) {
			return nil, nil
		})))
		if _, err := r.LoadFromSource("empty"); !errors.Is(err, ErrClassNotFound) {
			t.Errorf("expected ErrClassNotFound, got %v", err)
		}
	})

	t.Run("generic failure is wrapped as load error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		r := NewRegistry(WithSourceProvider(SourceProviderFunc(func(string) (Worker, error) {
			return nil, boom
		})))
		_, err := r.LoadFromSource("broken")
		var loadErr *LoadError
		if !errors.As(err, &loadErr) || !errors.Is(err, boom) {
			t.Errorf("expected LoadError wrapping boom, got %v", err)
		}
	})
}
