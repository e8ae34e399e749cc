package db

import (
	"path/filepath"
	"testing"
)

func TestOpenInMemory(t *testing.T) {
	conn, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	tables := []string{
		"users", "pois", "missions", "mission_events",
		"alerts", "messages", "incident_reports", "recon_images", "audit_log",
	}

	for _, table := range tables {
		var name string
		err := conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}
}

func TestBadgeUniquenessIsCaseInsensitive(t *testing.T) {
	conn, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	_, err = conn.Exec(
		`INSERT INTO users (id, name, role, badge_number, passcode_hash) VALUES ('u1', 'AGENT ONE', 'Director', 'FED-1000', 'h')`,
	)
	if err != nil {
		t.Fatalf("inserting first user: %v", err)
	}

	_, err = conn.Exec(
		`INSERT INTO users (id, name, role, badge_number, passcode_hash) VALUES ('u2', 'AGENT TWO', 'Analyst', 'fed-1000', 'h')`,
	)
	if err == nil {
		t.Error("expected case-insensitive badge collision to be rejected")
	}
}

func TestOpenFileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectre.db")

	conn, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	defer conn.Close()

	if _, err := conn.Exec("INSERT INTO alerts (id, priority, message, timestamp) VALUES ('a1', 'High', 'test', '2023-10-27T10:00:00Z')"); err != nil {
		t.Fatalf("inserting alert: %v", err)
	}
}
