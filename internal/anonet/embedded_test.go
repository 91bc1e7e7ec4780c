package anonet

import (
	"errors"
	"testing"
	"time"
)

// TestNewEmbeddedTor tests construction and option handling.
// Actually starting a Tor daemon requires network access and a tor binary,
// so lifecycle behavior before Start() is what unit tests cover.
func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	t.Run("default startup timeout", func(t *testing.T) {
		t.Parallel()

		e := NewEmbeddedTor()
		if e.startupTimeout != 3*time.Minute {
			t.Errorf("startupTimeout = %v, want 3m", e.startupTimeout)
		}
	})

	t.Run("WithStartupTimeout overrides default", func(t *testing.T) {
		t.Parallel()

		e := NewEmbeddedTor(WithStartupTimeout(30 * time.Second))
		if e.startupTimeout != 30*time.Second {
			t.Errorf("startupTimeout = %v, want 30s", e.startupTimeout)
		}
	})
}

// TestEmbeddedTorLifecycle tests pre-start behavior.
func TestEmbeddedTorLifecycle(t *testing.T) {
	t.Parallel()

	e := NewEmbeddedTor()

	if e.IsRunning() {
		t.Error("unstarted daemon should not report running")
	}
	if e.SocksAddr() != "" || e.ControlAddr() != "" {
		t.Error("unstarted daemon should have no addresses")
	}
	if err := e.Stop(); err != nil {
		t.Errorf("Stop() on unstarted daemon = %v, want nil", err)
	}
	if _, err := e.NewClient(time.Second); !errors.Is(err, ErrTorNotRunning) {
		t.Errorf("NewClient() error = %v, want ErrTorNotRunning", err)
	}
}
