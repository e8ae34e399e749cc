// Package console wires the command console's subsystems together: the
// in-memory state database, the domain stores, the audit ledger, the
// authenticator and the generative-intel adapter.
package console

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/spectre-ops/spectre/internal/archive"
	"github.com/spectre-ops/spectre/internal/audit"
	"github.com/spectre-ops/spectre/internal/auth"
	"github.com/spectre-ops/spectre/internal/comms"
	"github.com/spectre-ops/spectre/internal/config"
	"github.com/spectre-ops/spectre/internal/db"
	"github.com/spectre-ops/spectre/internal/dossier"
	"github.com/spectre-ops/spectre/internal/identity"
	"github.com/spectre-ops/spectre/internal/intel"
	"github.com/spectre-ops/spectre/internal/mission"
	"github.com/spectre-ops/spectre/internal/report"
	"github.com/spectre-ops/spectre/internal/seed"
)

// Console is the central coordinator for all subsystems. One Console
// serves one operator process; its state database is discarded when the
// process exits unless a state path is configured.
type Console struct {
	StateDB  *sql.DB
	Roster   *identity.Store
	Dossiers *dossier.Store
	Missions *mission.Store
	Comms    *comms.Store
	Reports  *report.Store
	Archive  *archive.Store
	Ledger   *audit.Ledger
	Auth     *auth.Authenticator
	Intel    intel.Collaborator
	Logger   zerolog.Logger
}

// Boot opens the state database, builds every subsystem and loads the
// baseline roster and dossiers. The intel collaborator is injected so
// callers can run without an external link.
func Boot(cfg *config.GlobalConfig, collaborator intel.Collaborator, logger zerolog.Logger) (*Console, error) {
	conn, err := db.Open(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	ledger, err := audit.NewLedger(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing audit ledger: %w", err)
	}

	c := &Console{
		StateDB:  conn,
		Roster:   identity.NewStore(conn),
		Dossiers: dossier.NewStore(conn),
		Missions: mission.NewStore(conn),
		Comms:    comms.NewStore(conn),
		Reports:  report.NewStore(conn),
		Archive:  archive.NewStore(conn),
		Ledger:   ledger,
		Intel:    collaborator,
		Logger:   logger,
	}
	c.Auth = auth.NewAuthenticator(c.Roster)

	// A persistent state file already carries its roster; only a fresh
	// database gets the baseline.
	existing, err := c.Roster.List()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	if len(existing) == 0 {
		if _, err := seed.Apply(c.Roster, c.Dossiers); err != nil {
			conn.Close()
			return nil, fmt.Errorf("loading baseline state: %w", err)
		}
	}

	logger.Info().Msg("console subsystems online")
	return c, nil
}

// Close releases the state database. In-memory state is gone after this.
func (c *Console) Close() error {
	return c.StateDB.Close()
}
