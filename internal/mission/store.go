// Package mission implements the mission board: operation records with
// an append-only event log. Status transitions are deliberately
// unconstrained; command may set any status at any time.
package mission

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spectre-ops/spectre/internal/core"
)

// Store manages mission records in the state database.
type Store struct {
	db *sql.DB
}

// NewStore creates a mission store over the state database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateInput holds the fields of a new mission.
type CreateInput struct {
	CodeName       string
	TargetID       string
	RiskRating     int
	Assets         []string
	ROE            string
	StartTime      *time.Time
	ExtractionTime *time.Time
	ExfilCorridor  string
}

// Create opens a mission in Planning with a single bootstrap event
// attributed to the acting editor.
func (s *Store) Create(input CreateInput, editor string) (*core.Mission, error) {
	if input.CodeName == "" {
		return nil, fmt.Errorf("code name is required")
	}

	now := time.Now().UTC()
	m := &core.Mission{
		ID:             uuid.NewString(),
		CodeName:       input.CodeName,
		Status:         core.MissionPlanning,
		RiskRating:     input.RiskRating,
		TargetID:       input.TargetID,
		Assets:         input.Assets,
		ROE:            input.ROE,
		StartTime:      input.StartTime,
		ExtractionTime: input.ExtractionTime,
		ExfilCorridor:  input.ExfilCorridor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting mission transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO missions (id, code_name, status, risk_rating, target_id, assets, roe, start_time, extraction_time, exfil_corridor, uncertainty, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CodeName, string(m.Status), m.RiskRating, m.TargetID,
		marshalJSON(m.Assets), m.ROE, formatTimePtr(m.StartTime), formatTimePtr(m.ExtractionTime),
		m.ExfilCorridor, m.Uncertainty,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting mission: %w", err)
	}

	bootstrap := core.MissionEvent{
		Time:        now,
		Description: "Mission authorized. Operational planning initiated.",
		DecisionBy:  editor,
	}
	if err := insertEvent(tx, m.ID, bootstrap); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing mission: %w", err)
	}

	m.Events = []core.MissionEvent{bootstrap}
	return m, nil
}

// UpdateInput holds mutable mission fields. Nil pointers leave a field as is.
type UpdateInput struct {
	CodeName       *string
	Status         *core.MissionStatus
	RiskRating     *int
	TargetID       *string
	Assets         *[]string
	ROE            *string
	StartTime      *time.Time
	ExtractionTime *time.Time
	ExfilCorridor  *string
	Uncertainty    *float64
}

// Update mutates a mission. The event log is untouched; use AppendEvent.
func (s *Store) Update(missionID string, input UpdateInput) (*core.Mission, error) {
	m, err := s.Get(missionID)
	if err != nil {
		return nil, err
	}

	if input.CodeName != nil {
		m.CodeName = *input.CodeName
	}
	if input.Status != nil {
		m.Status = *input.Status
	}
	if input.RiskRating != nil {
		m.RiskRating = *input.RiskRating
	}
	if input.TargetID != nil {
		m.TargetID = *input.TargetID
	}
	if input.Assets != nil {
		m.Assets = *input.Assets
	}
	if input.ROE != nil {
		m.ROE = *input.ROE
	}
	if input.StartTime != nil {
		m.StartTime = input.StartTime
	}
	if input.ExtractionTime != nil {
		m.ExtractionTime = input.ExtractionTime
	}
	if input.ExfilCorridor != nil {
		m.ExfilCorridor = *input.ExfilCorridor
	}
	if input.Uncertainty != nil {
		m.Uncertainty = *input.Uncertainty
	}

	m.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(
		`UPDATE missions SET code_name = ?, status = ?, risk_rating = ?, target_id = ?, assets = ?, roe = ?,
		        start_time = ?, extraction_time = ?, exfil_corridor = ?, uncertainty = ?, updated_at = ?
		 WHERE id = ?`,
		m.CodeName, string(m.Status), m.RiskRating, m.TargetID, marshalJSON(m.Assets), m.ROE,
		formatTimePtr(m.StartTime), formatTimePtr(m.ExtractionTime), m.ExfilCorridor, m.Uncertainty,
		m.UpdatedAt.Format(time.RFC3339Nano), missionID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating mission: %w", err)
	}

	return m, nil
}

// AppendEvent adds one entry to the mission's event log. Events are
// append-only: there is no edit or removal path.
func (s *Store) AppendEvent(missionID, description, decisionBy, critique string) (*core.Mission, error) {
	if _, err := s.Get(missionID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting event transaction: %w", err)
	}
	defer tx.Rollback()

	event := core.MissionEvent{
		Time:        time.Now().UTC(),
		Description: description,
		DecisionBy:  decisionBy,
		Critique:    critique,
	}
	if err := insertEvent(tx, missionID, event); err != nil {
		return nil, err
	}

	_, err = tx.Exec("UPDATE missions SET updated_at = ? WHERE id = ?",
		event.Time.Format(time.RFC3339Nano), missionID)
	if err != nil {
		return nil, fmt.Errorf("stamping mission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing event: %w", err)
	}

	return s.Get(missionID)
}

// Get retrieves a mission with its full event log, oldest event first.
func (s *Store) Get(missionID string) (*core.Mission, error) {
	rows, err := s.db.Query("SELECT "+missionColumns+" FROM missions WHERE id = ? LIMIT 1", missionID)
	if err != nil {
		return nil, fmt.Errorf("querying mission: %w", err)
	}
	defer rows.Close()

	missions, err := scanMissions(rows)
	if err != nil {
		return nil, err
	}
	if len(missions) == 0 {
		return nil, fmt.Errorf("mission not found: %s", missionID)
	}

	m := missions[0]
	if m.Events, err = s.events(missionID); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns all missions, newest first, without event logs.
func (s *Store) List() ([]core.Mission, error) {
	rows, err := s.db.Query("SELECT " + missionColumns + " FROM missions ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying mission board: %w", err)
	}
	defer rows.Close()

	return scanMissions(rows)
}

func (s *Store) events(missionID string) ([]core.MissionEvent, error) {
	rows, err := s.db.Query(
		"SELECT time, description, decision_by, critique FROM mission_events WHERE mission_id = ? ORDER BY id ASC",
		missionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying mission events: %w", err)
	}
	defer rows.Close()

	var events []core.MissionEvent
	for rows.Next() {
		var e core.MissionEvent
		var ts string
		if err := rows.Scan(&ts, &e.Description, &e.DecisionBy, &e.Critique); err != nil {
			return nil, fmt.Errorf("scanning mission event: %w", err)
		}
		e.Time, _ = time.Parse(time.RFC3339Nano, ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

func insertEvent(tx *sql.Tx, missionID string, e core.MissionEvent) error {
	_, err := tx.Exec(
		"INSERT INTO mission_events (mission_id, time, description, decision_by, critique) VALUES (?, ?, ?, ?, ?)",
		missionID, e.Time.Format(time.RFC3339Nano), e.Description, e.DecisionBy, e.Critique,
	)
	if err != nil {
		return fmt.Errorf("inserting mission event: %w", err)
	}
	return nil
}

const missionColumns = "id, code_name, status, risk_rating, target_id, assets, roe, start_time, extraction_time, exfil_corridor, uncertainty, created_at, updated_at"

func scanMissions(rows *sql.Rows) ([]core.Mission, error) {
	var missions []core.Mission
	for rows.Next() {
		var m core.Mission
		var assets, createdAt, updatedAt string
		var startTime, extractionTime sql.NullString

		err := rows.Scan(&m.ID, &m.CodeName, (*string)(&m.Status), &m.RiskRating, &m.TargetID,
			&assets, &m.ROE, &startTime, &extractionTime, &m.ExfilCorridor, &m.Uncertainty,
			&createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning mission: %w", err)
		}

		json.Unmarshal([]byte(assets), &m.Assets)
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		if startTime.Valid && startTime.String != "" {
			t, _ := time.Parse(time.RFC3339Nano, startTime.String)
			m.StartTime = &t
		}
		if extractionTime.Valid && extractionTime.String != "" {
			t, _ := time.Parse(time.RFC3339Nano, extractionTime.String)
			m.ExtractionTime = &t
		}

		missions = append(missions, m)
	}
	return missions, rows.Err()
}

func marshalJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
