// Package db provides SQLite state management for the SPECTRE console.
// The default deployment holds all state in a single in-memory database
// that lives exactly as long as the process; a file path can be configured
// for bench setups that want state to survive a restart.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Schema defines all tables for the console state database.
const Schema = `
PRAGMA foreign_keys=ON;

-- Roster
CREATE TABLE IF NOT EXISTS users (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    role            TEXT NOT NULL,
    badge_number    TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'Available',
    passcode_hash   TEXT NOT NULL,
    specialization  TEXT DEFAULT '',
    biometric_integrity INTEGER DEFAULT 0,
    last_check_in   TEXT
);

-- Badge numbers are unique case-insensitively
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_badge ON users(badge_number COLLATE NOCASE);

-- POI registry
CREATE TABLE IF NOT EXISTS pois (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    dob             TEXT DEFAULT '',
    ssn             TEXT DEFAULT '',
    aliases         TEXT DEFAULT '[]',  -- JSON array
    addresses       TEXT DEFAULT '[]',  -- JSON array
    tags            TEXT DEFAULT '[]',  -- JSON array
    risk_level      TEXT NOT NULL DEFAULT 'Low',
    photo_url       TEXT DEFAULT '',
    pattern_of_life TEXT DEFAULT '',
    notes           TEXT DEFAULT '',
    last_updated    TEXT NOT NULL,
    updated_by      TEXT NOT NULL
);

-- Mission board
CREATE TABLE IF NOT EXISTS missions (
    id              TEXT PRIMARY KEY,
    code_name       TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'Planning',
    risk_rating     INTEGER DEFAULT 0,
    target_id       TEXT DEFAULT '',
    assets          TEXT DEFAULT '[]',  -- JSON array
    roe             TEXT DEFAULT '',
    start_time      TEXT,
    extraction_time TEXT,
    exfil_corridor  TEXT DEFAULT '',
    uncertainty     REAL DEFAULT 0,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);

-- Mission event log (append-only per mission)
CREATE TABLE IF NOT EXISTS mission_events (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    mission_id      TEXT NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
    time            TEXT NOT NULL,
    description     TEXT NOT NULL,
    decision_by     TEXT DEFAULT '',
    critique        TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_mission_events_mission ON mission_events(mission_id);

-- Broadcast alerts
CREATE TABLE IF NOT EXISTS alerts (
    id              TEXT PRIMARY KEY,
    priority        TEXT NOT NULL DEFAULT 'Low',
    message         TEXT NOT NULL,
    sender          TEXT DEFAULT '',
    timestamp       TEXT NOT NULL
);

-- Secure channel messages
CREATE TABLE IF NOT EXISTS messages (
    id              TEXT PRIMARY KEY,
    sender_id       TEXT NOT NULL,
    sender_name     TEXT NOT NULL,
    text            TEXT NOT NULL,
    timestamp       TEXT NOT NULL
);

-- Field incident reports
CREATE TABLE IF NOT EXISTS incident_reports (
    id                   TEXT PRIMARY KEY,
    category             TEXT NOT NULL,
    description          TEXT NOT NULL,
    redacted_description TEXT DEFAULT '',
    location             TEXT DEFAULT '',
    agent_id             TEXT NOT NULL,
    status               TEXT NOT NULL DEFAULT 'Filed',
    timestamp            TEXT NOT NULL
);

-- Generated recon imagery
CREATE TABLE IF NOT EXISTS recon_images (
    id              TEXT PRIMARY KEY,
    subject_kind    TEXT NOT NULL,  -- poi | mission
    subject_id      TEXT NOT NULL,
    image_type      TEXT NOT NULL,
    data_uri        TEXT NOT NULL,
    content_hash    TEXT NOT NULL,  -- SHA-256
    coords          TEXT DEFAULT '',
    created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recon_images_subject ON recon_images(subject_kind, subject_id);

-- Append-only audit ledger (hash-chained)
CREATE TABLE IF NOT EXISTS audit_log (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    id              TEXT NOT NULL UNIQUE,
    timestamp       TEXT NOT NULL,
    actor_id        TEXT NOT NULL,
    actor_name      TEXT NOT NULL,
    action          TEXT NOT NULL,
    resource_type   TEXT NOT NULL,
    resource_id     TEXT DEFAULT '',
    is_sanitized    INTEGER DEFAULT 0,
    record_hash     TEXT NOT NULL
);
`

// Open opens the console state database. An empty path yields an
// in-memory database that lives for the process; any other value is
// treated as a filesystem path.
func Open(path string) (*sql.DB, error) {
	dsn := "file:spectre-state?mode=memory&cache=shared&_fk=1"
	if path != "" {
		dsn = fmt.Sprintf("file:%s?_fk=1", path)
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	// A single connection keeps the in-memory database alive and makes
	// every mutation serialized, matching the single-threaded shell model.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return conn, nil
}
