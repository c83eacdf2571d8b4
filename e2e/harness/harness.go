// Package harness provides E2E testing utilities for cookiesweep.
package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/cookiesweep/internal/cookies"
	"github.com/artpar/cookiesweep/internal/cookies/sqlite"
)

// E2EHarness is the main test orchestrator. It owns a temporary config
// directory and cookie database shared by the CLI and TUI runners.
type E2EHarness struct {
	t         *testing.T
	tmpDir    string
	protected []string
	timeout   time.Duration
}

// Config configures the harness.
type Config struct {
	Protected []string
	Timeout   time.Duration // Default: 5 seconds
}

// New creates a new E2E harness.
func New(t *testing.T, cfg Config) *E2EHarness {
	t.Helper()

	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	tmpDir, err := os.MkdirTemp("", "cookiesweep-e2e-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	h := &E2EHarness{
		t:         t,
		tmpDir:    tmpDir,
		protected: cfg.Protected,
		timeout:   cfg.Timeout,
	}

	t.Cleanup(h.cleanup)
	return h
}

func (h *E2EHarness) cleanup() {
	os.RemoveAll(h.tmpDir)
}

// TmpDir returns the temporary directory path.
func (h *E2EHarness) TmpDir() string {
	return h.tmpDir
}

// StorePath returns the cookie database used by every runner.
func (h *E2EHarness) StorePath() string {
	return filepath.Join(h.tmpDir, "cookies.db")
}

// ConfigPath returns the config file path. The file does not exist unless a
// test writes it.
func (h *E2EHarness) ConfigPath() string {
	return filepath.Join(h.tmpDir, "config.yaml")
}

// Timeout returns the configured timeout.
func (h *E2EHarness) Timeout() time.Duration {
	return h.timeout
}

// T returns the testing.T instance.
func (h *E2EHarness) T() *testing.T {
	return h.t
}

// Seed writes cookies into the store.
func (h *E2EHarness) Seed(cs ...*cookies.Cookie) {
	h.t.Helper()
	store := h.openStore()
	defer store.Close()

	for _, c := range cs {
		if err := store.Set(context.Background(), c); err != nil {
			h.t.Fatalf("failed to seed cookie %s/%s: %v", c.Domain, c.Name, err)
		}
	}
}

// Stored returns every cookie currently in the store.
func (h *E2EHarness) Stored() []*cookies.Cookie {
	h.t.Helper()
	store := h.openStore()
	defer store.Close()

	all, err := store.GetAll(context.Background())
	if err != nil {
		h.t.Fatalf("failed to read store: %v", err)
	}
	return all
}

func (h *E2EHarness) openStore() *sqlite.Store {
	h.t.Helper()
	store, err := sqlite.New(h.StorePath())
	if err != nil {
		h.t.Fatalf("failed to open store: %v", err)
	}
	return store
}

// CLI returns a CLI runner for this harness.
func (h *E2EHarness) CLI() *CLIRunner {
	return &CLIRunner{harness: h}
}

// TUI returns a TUI runner for this harness.
func (h *E2EHarness) TUI() *TUIRunner {
	return &TUIRunner{harness: h}
}

// Cookie builds a session cookie; domains without a leading dot are host-only.
func Cookie(domain, name string) *cookies.Cookie {
	return &cookies.Cookie{
		Name:     name,
		Value:    "v",
		Domain:   domain,
		HostOnly: domain != "" && domain[0] != '.',
		Path:     "/",
		Session:  true,
		StoreID:  cookies.DefaultStoreID,
	}
}
