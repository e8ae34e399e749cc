package console

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/spectre-ops/spectre/internal/audit"
	"github.com/spectre-ops/spectre/internal/config"
	"github.com/spectre-ops/spectre/internal/intel"
)

func TestBootLoadsBaseline(t *testing.T) {
	cfg := config.DefaultGlobalConfig()
	c, err := Boot(&cfg, intel.Offline{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	defer c.Close()

	agents, err := c.Roster.List()
	if err != nil {
		t.Fatalf("list roster: %v", err)
	}
	if len(agents) != 5 {
		t.Errorf("expected 5 seeded agents, got %d", len(agents))
	}

	pois, err := c.Dossiers.List()
	if err != nil {
		t.Fatalf("list dossiers: %v", err)
	}
	if len(pois) != 2 {
		t.Errorf("expected 2 seeded dossiers, got %d", len(pois))
	}

	ok, _, err := audit.Verify(c.StateDB)
	if err != nil {
		t.Fatalf("verify ledger: %v", err)
	}
	if !ok {
		t.Error("expected a fresh ledger to verify")
	}
}

func TestBootDoesNotReseedPersistentState(t *testing.T) {
	cfg := config.DefaultGlobalConfig()
	cfg.StatePath = filepath.Join(t.TempDir(), "state.db")

	c1, err := Boot(&cfg, intel.Offline{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("first boot: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	c2, err := Boot(&cfg, intel.Offline{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("second boot: %v", err)
	}
	defer c2.Close()

	agents, err := c2.Roster.List()
	if err != nil {
		t.Fatalf("list roster: %v", err)
	}
	if len(agents) != 5 {
		t.Errorf("expected roster unchanged across boots, got %d agents", len(agents))
	}
}
