// Package dossier implements the POI (Person of Interest) registry.
// Every mutation stamps last-updated metadata with the acting editor;
// deletion is clearance-gated at the service layer.
package dossier

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spectre-ops/spectre/internal/core"
)

// Store manages POI records in the state database.
type Store struct {
	db *sql.DB
}

// NewStore creates a dossier store over the state database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateInput holds the fields of a new dossier.
type CreateInput struct {
	Name          string
	DOB           string
	SSN           string
	Aliases       []string
	Addresses     []string
	Tags          []core.POITag
	RiskLevel     core.RiskLevel
	PhotoURL      string
	PatternOfLife string
	Notes         string
}

// Create opens a new dossier stamped with the acting editor.
func (s *Store) Create(input CreateInput, editor string) (*core.POI, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("subject name is required")
	}
	risk := input.RiskLevel
	if risk == "" {
		risk = core.RiskLow
	}
	if risk.Rank() < 0 {
		return nil, fmt.Errorf("unknown risk level: %s", risk)
	}

	poi := &core.POI{
		ID:            uuid.NewString(),
		Name:          input.Name,
		DOB:           input.DOB,
		SSN:           input.SSN,
		Aliases:       input.Aliases,
		Addresses:     input.Addresses,
		Tags:          input.Tags,
		RiskLevel:     risk,
		PhotoURL:      input.PhotoURL,
		PatternOfLife: input.PatternOfLife,
		Notes:         input.Notes,
		LastUpdated:   time.Now().UTC(),
		UpdatedBy:     editor,
	}

	_, err := s.db.Exec(
		`INSERT INTO pois (id, name, dob, ssn, aliases, addresses, tags, risk_level, photo_url, pattern_of_life, notes, last_updated, updated_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		poi.ID, poi.Name, poi.DOB, poi.SSN,
		marshalJSON(poi.Aliases), marshalJSON(poi.Addresses), marshalJSON(poi.Tags),
		string(poi.RiskLevel), poi.PhotoURL, poi.PatternOfLife, poi.Notes,
		poi.LastUpdated.Format(time.RFC3339Nano), poi.UpdatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting dossier: %w", err)
	}

	return poi, nil
}

// UpdateInput holds mutable dossier fields. Nil pointers leave a field as is.
type UpdateInput struct {
	Name          *string
	DOB           *string
	SSN           *string
	Aliases       *[]string
	Addresses     *[]string
	Tags          *[]core.POITag
	RiskLevel     *core.RiskLevel
	PhotoURL      *string
	PatternOfLife *string
	Notes         *string
}

// Update mutates a dossier and refreshes its last-updated metadata.
func (s *Store) Update(poiID string, input UpdateInput, editor string) (*core.POI, error) {
	poi, err := s.Get(poiID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		poi.Name = *input.Name
	}
	if input.DOB != nil {
		poi.DOB = *input.DOB
	}
	if input.SSN != nil {
		poi.SSN = *input.SSN
	}
	if input.Aliases != nil {
		poi.Aliases = *input.Aliases
	}
	if input.Addresses != nil {
		poi.Addresses = *input.Addresses
	}
	if input.Tags != nil {
		poi.Tags = *input.Tags
	}
	if input.RiskLevel != nil {
		if input.RiskLevel.Rank() < 0 {
			return nil, fmt.Errorf("unknown risk level: %s", *input.RiskLevel)
		}
		poi.RiskLevel = *input.RiskLevel
	}
	if input.PhotoURL != nil {
		poi.PhotoURL = *input.PhotoURL
	}
	if input.PatternOfLife != nil {
		poi.PatternOfLife = *input.PatternOfLife
	}
	if input.Notes != nil {
		poi.Notes = *input.Notes
	}

	poi.LastUpdated = time.Now().UTC()
	poi.UpdatedBy = editor

	_, err = s.db.Exec(
		`UPDATE pois SET name = ?, dob = ?, ssn = ?, aliases = ?, addresses = ?, tags = ?, risk_level = ?,
		        photo_url = ?, pattern_of_life = ?, notes = ?, last_updated = ?, updated_by = ?
		 WHERE id = ?`,
		poi.Name, poi.DOB, poi.SSN,
		marshalJSON(poi.Aliases), marshalJSON(poi.Addresses), marshalJSON(poi.Tags),
		string(poi.RiskLevel), poi.PhotoURL, poi.PatternOfLife, poi.Notes,
		poi.LastUpdated.Format(time.RFC3339Nano), poi.UpdatedBy, poiID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating dossier: %w", err)
	}

	return poi, nil
}

// Delete removes a dossier. The service layer checks clearance first.
func (s *Store) Delete(poiID string) error {
	res, err := s.db.Exec("DELETE FROM pois WHERE id = ?", poiID)
	if err != nil {
		return fmt.Errorf("deleting dossier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dossier not found: %s", poiID)
	}
	return nil
}

// Get retrieves a dossier by id.
func (s *Store) Get(poiID string) (*core.POI, error) {
	rows, err := s.db.Query("SELECT "+poiColumns+" FROM pois WHERE id = ? LIMIT 1", poiID)
	if err != nil {
		return nil, fmt.Errorf("querying dossier: %w", err)
	}
	defer rows.Close()

	pois, err := scanPOIs(rows)
	if err != nil {
		return nil, err
	}
	if len(pois) == 0 {
		return nil, fmt.Errorf("dossier not found: %s", poiID)
	}
	return &pois[0], nil
}

// List returns all dossiers, most recently updated first.
func (s *Store) List() ([]core.POI, error) {
	rows, err := s.db.Query("SELECT " + poiColumns + " FROM pois ORDER BY last_updated DESC")
	if err != nil {
		return nil, fmt.Errorf("querying registry: %w", err)
	}
	defer rows.Close()

	return scanPOIs(rows)
}

const poiColumns = "id, name, dob, ssn, aliases, addresses, tags, risk_level, photo_url, pattern_of_life, notes, last_updated, updated_by"

func scanPOIs(rows *sql.Rows) ([]core.POI, error) {
	var pois []core.POI
	for rows.Next() {
		var p core.POI
		var aliases, addresses, tags, lastUpdated string

		err := rows.Scan(&p.ID, &p.Name, &p.DOB, &p.SSN, &aliases, &addresses, &tags,
			(*string)(&p.RiskLevel), &p.PhotoURL, &p.PatternOfLife, &p.Notes,
			&lastUpdated, &p.UpdatedBy)
		if err != nil {
			return nil, fmt.Errorf("scanning dossier: %w", err)
		}

		json.Unmarshal([]byte(aliases), &p.Aliases)
		json.Unmarshal([]byte(addresses), &p.Addresses)
		json.Unmarshal([]byte(tags), &p.Tags)
		p.LastUpdated, _ = time.Parse(time.RFC3339Nano, lastUpdated)

		pois = append(pois, p)
	}
	return pois, rows.Err()
}

func marshalJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}
