// Package audit provides the append-only action ledger for the console.
// Records form a hash chain for tamper detection; the only permitted
// rewrite is the sanitize path, which re-seals the chain it touches.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spectre-ops/spectre/internal/core"
)

// Well-known action labels written by the service layer.
const (
	ActionSessionEstablished = "Session Established"
	ActionSessionTerminated  = "Session Terminated"
	ActionRegistryUpdate     = "Registry Update"
	ActionDataPurge          = "Destructive Data Purge"
	ActionDossierCreated     = "Dossier Created"
	ActionMissionCreated     = "Mission Created"
	ActionMissionUpdated     = "Mission Updated"
	ActionRosterProvisioned  = "Roster Provisioned"
	ActionRosterUpdated      = "Roster Updated"
	ActionRosterRevoked      = "Roster Revoked"
	ActionIntelFiled         = "Intel Filed"
	ActionLogSanitized       = "Log Sanitized"
)

// RedactFunc rewrites an action label for plausible deniability. It is
// supplied by the intel adapter; a failure leaves the ledger untouched.
type RedactFunc func(ctx context.Context, action string) (string, error)

// Ledger writes tamper-evident audit records to the state database.
type Ledger struct {
	db       *sql.DB
	mu       sync.Mutex
	lastHash string
}

// NewLedger creates a ledger over the given state database, recovering
// the chain tail if records already exist.
func NewLedger(db *sql.DB) (*Ledger, error) {
	l := &Ledger{db: db}

	var lastHash sql.NullString
	err := db.QueryRow(
		"SELECT record_hash FROM audit_log ORDER BY seq DESC LIMIT 1",
	).Scan(&lastHash)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("recovering audit chain: %w", err)
	}
	if lastHash.Valid {
		l.lastHash = lastHash.String
	}

	return l, nil
}

// Append writes one immutable record and returns it. When actorID is
// empty there is no authenticated actor and the append is silently
// skipped.
func (l *Ledger) Append(actorID, actorName, action, resourceType, resourceID string) (*core.AuditEntry, error) {
	if actorID == "" {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := core.AuditEntry{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		ActorID:      actorID,
		ActorName:    actorName,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	entry.RecordHash = chainHash(l.lastHash, entry)

	_, err := l.db.Exec(
		`INSERT INTO audit_log (id, timestamp, actor_id, actor_name, action, resource_type, resource_id, is_sanitized, record_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		entry.ID,
		entry.Timestamp.Format(time.RFC3339Nano),
		entry.ActorID,
		entry.ActorName,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.RecordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting audit record: %w", err)
	}

	l.lastHash = entry.RecordHash
	return &entry, nil
}

// Entries returns all records, newest first.
func (l *Ledger) Entries() ([]core.AuditEntry, error) {
	rows, err := l.db.Query(
		`SELECT id, timestamp, actor_id, actor_name, action, resource_type, resource_id, is_sanitized, record_hash
		 FROM audit_log ORDER BY seq DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Latest returns the newest record, or nil when the ledger is empty.
func (l *Ledger) Latest() (*core.AuditEntry, error) {
	rows, err := l.db.Query(
		`SELECT id, timestamp, actor_id, actor_name, action, resource_type, resource_id, is_sanitized, record_hash
		 FROM audit_log ORDER BY seq DESC LIMIT 1`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Get retrieves a single record by its identifier.
func (l *Ledger) Get(entryID string) (*core.AuditEntry, error) {
	rows, err := l.db.Query(
		`SELECT id, timestamp, actor_id, actor_name, action, resource_type, resource_id, is_sanitized, record_hash
		 FROM audit_log WHERE id = ? LIMIT 1`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit record: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("audit record not found: %s", entryID)
	}
	return &entries[0], nil
}

// Sanitize replaces a record's action label via the external redaction
// call and sets the sanitized flag. If the call fails the record keeps
// its original action and flag. The hash chain is re-sealed from the
// affected record forward so Verify still holds afterward.
func (l *Ledger) Sanitize(ctx context.Context, entryID string, redact RedactFunc) (*core.AuditEntry, error) {
	entry, err := l.Get(entryID)
	if err != nil {
		return nil, err
	}

	sanitized, err := redact(ctx, entry.Action)
	if err != nil {
		return nil, fmt.Errorf("redaction unavailable: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting sanitize transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"UPDATE audit_log SET action = ?, is_sanitized = 1 WHERE id = ?",
		sanitized, entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("rewriting audit record: %w", err)
	}

	lastHash, err := resealChain(tx, entryID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sanitize: %w", err)
	}

	l.lastHash = lastHash
	return l.Get(entryID)
}

// Verify checks the integrity of the full audit chain.
func Verify(db *sql.DB) (bool, int, error) {
	rows, err := db.Query(
		`SELECT id, timestamp, actor_id, actor_name, action, resource_type, resource_id, is_sanitized, record_hash
		 FROM audit_log ORDER BY seq ASC`,
	)
	if err != nil {
		return false, 0, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return false, 0, err
	}

	var previousHash string
	for i, e := range entries {
		if chainHash(previousHash, e) != e.RecordHash {
			return false, i, fmt.Errorf("audit chain broken at record %d", i+1)
		}
		previousHash = e.RecordHash
	}

	return true, len(entries), nil
}

// resealChain recomputes record hashes from the record with the given id
// through the chain tail, inside the supplied transaction. It returns
// the new tail hash.
func resealChain(tx *sql.Tx, fromEntryID string) (string, error) {
	var fromSeq int64
	if err := tx.QueryRow("SELECT seq FROM audit_log WHERE id = ?", fromEntryID).Scan(&fromSeq); err != nil {
		return "", fmt.Errorf("locating sanitized record: %w", err)
	}

	var previousHash string
	err := tx.QueryRow(
		"SELECT record_hash FROM audit_log WHERE seq < ? ORDER BY seq DESC LIMIT 1", fromSeq,
	).Scan(&previousHash)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("reading chain predecessor: %w", err)
	}

	rows, err := tx.Query(
		`SELECT seq, id, timestamp, actor_id, actor_name, action, resource_type, resource_id, is_sanitized
		 FROM audit_log WHERE seq >= ? ORDER BY seq ASC`,
		fromSeq,
	)
	if err != nil {
		return "", fmt.Errorf("reading chain suffix: %w", err)
	}
	defer rows.Close()

	type reseal struct {
		seq  int64
		hash string
	}
	var updates []reseal

	for rows.Next() {
		var seq int64
		var e core.AuditEntry
		var ts string
		var sanitizedFlag int
		if err := rows.Scan(&seq, &e.ID, &ts, &e.ActorID, &e.ActorName, &e.Action, &e.ResourceType, &e.ResourceID, &sanitizedFlag); err != nil {
			return "", fmt.Errorf("scanning chain suffix: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		previousHash = chainHash(previousHash, e)
		updates = append(updates, reseal{seq: seq, hash: previousHash})
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	for _, u := range updates {
		if _, err := tx.Exec("UPDATE audit_log SET record_hash = ? WHERE seq = ?", u.hash, u.seq); err != nil {
			return "", fmt.Errorf("resealing record: %w", err)
		}
	}

	return previousHash, nil
}

// chainHash links a record to its predecessor:
// SHA-256(previousHash + timestamp + actorID + action + resourceType + resourceID)
func chainHash(previousHash string, e core.AuditEntry) string {
	data := previousHash + e.Timestamp.Format(time.RFC3339Nano) + e.ActorID + e.Action + e.ResourceType + e.ResourceID
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

func scanEntries(rows *sql.Rows) ([]core.AuditEntry, error) {
	var entries []core.AuditEntry
	for rows.Next() {
		var e core.AuditEntry
		var ts string
		var sanitizedFlag int

		err := rows.Scan(&e.ID, &ts, &e.ActorID, &e.ActorName, &e.Action, &e.ResourceType, &e.ResourceID, &sanitizedFlag, &e.RecordHash)
		if err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}

		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.IsSanitized = sanitizedFlag != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
