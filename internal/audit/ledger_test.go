package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/spectre-ops/spectre/internal/db"
)

func setupLedger(t *testing.T) (*Ledger, *sql.DB) {
	t.Helper()
	conn, err := db.Open("")
	if err != nil {
		t.Fatalf("opening state db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	ledger, err := NewLedger(conn)
	if err != nil {
		t.Fatalf("creating ledger: %v", err)
	}
	return ledger, conn
}

func TestAppendAndVerify(t *testing.T) {
	ledger, conn := setupLedger(t)

	ledger.Append("u1", "AGENT FALCON", ActionSessionEstablished, "Auth", "u1")
	ledger.Append("u1", "AGENT FALCON", ActionRegistryUpdate, "POI", "p1")
	ledger.Append("u1", "AGENT FALCON", ActionDataPurge, "POI", "p2")

	valid, count, err := Verify(conn)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !valid {
		t.Error("expected valid chain")
	}
	if count != 3 {
		t.Errorf("expected 3 records, got %d", count)
	}
}

func TestEntriesNewestFirst(t *testing.T) {
	ledger, _ := setupLedger(t)

	ledger.Append("u1", "AGENT FALCON", ActionSessionEstablished, "Auth", "u1")
	ledger.Append("u1", "AGENT FALCON", ActionRegistryUpdate, "POI", "p1")

	entries, err := ledger.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != ActionRegistryUpdate {
		t.Errorf("newest entry should be first, got %q", entries[0].Action)
	}

	latest, err := ledger.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != entries[0].ID {
		t.Error("Latest should match the head of Entries")
	}
}

func TestAppendWithoutActorIsSkipped(t *testing.T) {
	ledger, _ := setupLedger(t)

	entry, err := ledger.Append("", "", ActionRegistryUpdate, "POI", "p1")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry != nil {
		t.Error("append without an authenticated actor should be a no-op")
	}

	entries, _ := ledger.Entries()
	if len(entries) != 0 {
		t.Errorf("expected empty ledger, got %d entries", len(entries))
	}
}

func TestChainTamperDetection(t *testing.T) {
	ledger, conn := setupLedger(t)

	ledger.Append("u1", "AGENT FALCON", ActionSessionEstablished, "Auth", "u1")
	ledger.Append("u1", "AGENT FALCON", ActionRegistryUpdate, "POI", "p1")
	ledger.Append("u1", "AGENT FALCON", ActionMissionCreated, "Mission", "m1")

	conn.Exec("UPDATE audit_log SET action = 'Nothing Happened' WHERE seq = 2")

	valid, _, err := Verify(conn)
	if err == nil {
		t.Error("expected error from tampered chain")
	}
	if valid {
		t.Error("expected invalid chain after tampering")
	}
}

func TestSanitizeReplacesActionAndReseals(t *testing.T) {
	ledger, conn := setupLedger(t)

	target, _ := ledger.Append("u1", "AGENT FALCON", ActionDataPurge, "POI", "p1")
	ledger.Append("u1", "AGENT FALCON", ActionRegistryUpdate, "POI", "p2")

	redact := func(ctx context.Context, action string) (string, error) {
		return "Routine Records Review", nil
	}

	entry, err := ledger.Sanitize(context.Background(), target.ID, redact)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if entry.Action != "Routine Records Review" {
		t.Errorf("expected rewritten action, got %q", entry.Action)
	}
	if !entry.IsSanitized {
		t.Error("expected sanitized flag set")
	}

	valid, count, err := Verify(conn)
	if err != nil {
		t.Fatalf("verify after sanitize: %v", err)
	}
	if !valid || count != 2 {
		t.Errorf("chain should remain valid after sanitize (valid=%v count=%d)", valid, count)
	}
}

func TestSanitizeFailureLeavesEntryUntouched(t *testing.T) {
	ledger, conn := setupLedger(t)

	target, _ := ledger.Append("u1", "AGENT FALCON", ActionDataPurge, "POI", "p1")

	redact := func(ctx context.Context, action string) (string, error) {
		return "", errors.New("link severed")
	}

	if _, err := ledger.Sanitize(context.Background(), target.ID, redact); err == nil {
		t.Fatal("expected sanitize to surface the redaction failure")
	}

	after, err := ledger.Get(target.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.Action != ActionDataPurge {
		t.Errorf("action must be unchanged on failure, got %q", after.Action)
	}
	if after.IsSanitized {
		t.Error("sanitized flag must not be set on failure")
	}

	if valid, _, err := Verify(conn); err != nil || !valid {
		t.Errorf("chain should still verify after failed sanitize: %v", err)
	}
}

func TestSanitizeUnknownEntry(t *testing.T) {
	ledger, _ := setupLedger(t)

	redact := func(ctx context.Context, action string) (string, error) { return "x", nil }
	if _, err := ledger.Sanitize(context.Background(), "missing", redact); err == nil {
		t.Error("expected error for unknown entry id")
	}
}

func TestNewLedgerRecoversChainTail(t *testing.T) {
	ledger, conn := setupLedger(t)
	ledger.Append("u1", "AGENT FALCON", ActionSessionEstablished, "Auth", "u1")

	// Simulates reopening the console against surviving state.
	ledger2, err := NewLedger(conn)
	if err != nil {
		t.Fatalf("reopening ledger: %v", err)
	}
	ledger2.Append("u1", "AGENT FALCON", ActionSessionTerminated, "Auth", "u1")

	valid, count, err := Verify(conn)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !valid || count != 2 {
		t.Errorf("expected continuous chain across ledgers (valid=%v count=%d)", valid, count)
	}
}
