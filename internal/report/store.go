// Package report implements field incident reports filed from the
// mobile terminal. Descriptions can be redacted through the intel
// adapter for oversight-safe distribution.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spectre-ops/spectre/internal/core"
)

// RedactFunc rewrites free text into an oversight-safe form.
type RedactFunc func(ctx context.Context, text string) (string, error)

// Store manages incident reports in the state database.
type Store struct {
	db *sql.DB
}

// NewStore creates a report store over the state database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// File records a new incident report for the acting agent.
func (s *Store) File(category, description, location, agentID string) (*core.IncidentReport, error) {
	if !validCategory(category) {
		return nil, fmt.Errorf("unknown incident category: %s", category)
	}
	if description == "" {
		return nil, fmt.Errorf("description is required")
	}

	rep := &core.IncidentReport{
		ID:          uuid.NewString(),
		Category:    category,
		Description: description,
		Location:    location,
		AgentID:     agentID,
		Status:      "Filed",
		Timestamp:   time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO incident_reports (id, category, description, location, agent_id, status, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.Category, rep.Description, rep.Location, rep.AgentID, rep.Status,
		rep.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting report: %w", err)
	}
	return rep, nil
}

// Redact produces an oversight-safe description via the external call and
// stores it beside the original. A failed call leaves the report untouched.
func (s *Store) Redact(ctx context.Context, reportID string, redact RedactFunc) (*core.IncidentReport, error) {
	rep, err := s.Get(reportID)
	if err != nil {
		return nil, err
	}

	redacted, err := redact(ctx, rep.Description)
	if err != nil {
		return nil, fmt.Errorf("redaction unavailable: %w", err)
	}

	_, err = s.db.Exec(
		"UPDATE incident_reports SET redacted_description = ?, status = 'Redacted' WHERE id = ?",
		redacted, reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("storing redacted description: %w", err)
	}

	return s.Get(reportID)
}

// Get retrieves a report by id.
func (s *Store) Get(reportID string) (*core.IncidentReport, error) {
	rows, err := s.db.Query("SELECT "+reportColumns+" FROM incident_reports WHERE id = ? LIMIT 1", reportID)
	if err != nil {
		return nil, fmt.Errorf("querying report: %w", err)
	}
	defer rows.Close()

	reports, err := scanReports(rows)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("report not found: %s", reportID)
	}
	return &reports[0], nil
}

// List returns all reports, newest first.
func (s *Store) List() ([]core.IncidentReport, error) {
	rows, err := s.db.Query("SELECT " + reportColumns + " FROM incident_reports ORDER BY timestamp DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	return scanReports(rows)
}

const reportColumns = "id, category, description, redacted_description, location, agent_id, status, timestamp"

func scanReports(rows *sql.Rows) ([]core.IncidentReport, error) {
	var reports []core.IncidentReport
	for rows.Next() {
		var r core.IncidentReport
		var ts string
		if err := rows.Scan(&r.ID, &r.Category, &r.Description, &r.RedactedDescription,
			&r.Location, &r.AgentID, &r.Status, &ts); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func validCategory(category string) bool {
	for _, c := range core.IncidentCategories {
		if c == category {
			return true
		}
	}
	return false
}
