// Package comms implements the broadcast alert feed and the secure
// message channel. Both are create-only value records and are never
// written to the audit ledger.
package comms

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spectre-ops/spectre/internal/core"
)

// Store manages alerts and messages in the state database.
type Store struct {
	db *sql.DB
}

// NewStore creates a comms store over the state database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SendAlert broadcasts an alert.
func (s *Store) SendAlert(priority core.AlertPriority, message, from string) (*core.Alert, error) {
	if message == "" {
		return nil, fmt.Errorf("alert message is required")
	}
	if priority == "" {
		priority = core.PriorityLow
	}

	alert := &core.Alert{
		ID:        uuid.NewString(),
		Priority:  priority,
		Message:   message,
		From:      from,
		Timestamp: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		"INSERT INTO alerts (id, priority, message, sender, timestamp) VALUES (?, ?, ?, ?, ?)",
		alert.ID, string(alert.Priority), alert.Message, alert.From,
		alert.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting alert: %w", err)
	}
	return alert, nil
}

// Alerts returns all alerts, newest first.
func (s *Store) Alerts() ([]core.Alert, error) {
	rows, err := s.db.Query("SELECT id, priority, message, sender, timestamp FROM alerts ORDER BY timestamp DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []core.Alert
	for rows.Next() {
		var a core.Alert
		var ts string
		if err := rows.Scan(&a.ID, (*string)(&a.Priority), &a.Message, &a.From, &ts); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		a.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// SendMessage posts a line to the secure channel.
func (s *Store) SendMessage(senderID, senderName, text string) (*core.Message, error) {
	if text == "" {
		return nil, fmt.Errorf("message text is required")
	}

	msg := &core.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		"INSERT INTO messages (id, sender_id, sender_name, text, timestamp) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.SenderID, msg.SenderName, msg.Text,
		msg.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	return msg, nil
}

// Messages returns the channel history, oldest first.
func (s *Store) Messages() ([]core.Message, error) {
	rows, err := s.db.Query("SELECT id, sender_id, sender_name, text, timestamp FROM messages ORDER BY timestamp ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []core.Message
	for rows.Next() {
		var m core.Message
		var ts string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.Text, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
