package transport

import (
	"errors"
	"testing"
	"time"
)

// TestNewEmbeddedTor tests the EmbeddedTor constructor.
func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	t.Run("default timeout", func(t *testing.T) {
		t.Parallel()
		e := NewEmbeddedTor()
		if e.startupTimeout != 3*time.Minute {
			t.Errorf("expected 3m, got %v", e.startupTimeout)
		}
	})

	t.Run("custom timeout", func(t *testing.T) {
		t.Parallel()
		e := NewEmbeddedTor(WithStartupTimeout(time.Minute))
		if e.startupTimeout != time.Minute {
			t.Errorf("expected 1m, got %v", e.startupTimeout)
		}
	})
}

// TestEmbeddedTorNotStarted tests an EmbeddedTor that was never started.
func TestEmbeddedTorNotStarted(t *testing.T) {
	t.Parallel()

	e := NewEmbeddedTor()
	if e.IsRunning() {
		t.Error("expected not running")
	}
	if e.SocksAddr() != "" {
		t.Errorf("expected empty SOCKS address, got %q", e.SocksAddr())
	}
	if _, err := e.NewClient(); !errors.Is(err, ErrTorNotRunning) {
		t.Errorf("expected ErrTorNotRunning, got %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Errorf("Stop() on a stopped daemon: %v", err)
	}
}
