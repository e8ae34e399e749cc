// Package identity implements the roster store, the authorization
// source of truth for the console. Badge numbers are unique
// case-insensitively, passcodes are stored as salted hashes, and every
// roster mutation flows back through the service layer for auditing.
package identity

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/credential"
)

const defaultSpecialization = "General Duties"

// Store manages roster records in the state database.
type Store struct {
	db *sql.DB
}

// NewStore creates a roster store over the state database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ProvisionInput holds parameters for adding an agent to the roster.
type ProvisionInput struct {
	Name               string
	Role               core.Role
	BadgeNumber        string
	Passcode           string
	Status             core.DutyStatus
	Specialization     string
	BiometricIntegrity int
}

// Provision adds an agent to the roster. The display name is normalized
// to upper case with an "AGENT" marker prefixed when absent; the badge is
// normalized to upper case; an unset specialization defaults to a generic
// label.
func (s *Store) Provision(input ProvisionInput) (*core.UserAccount, error) {
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("unknown role: %s", input.Role)
	}
	badge := strings.ToUpper(strings.TrimSpace(input.BadgeNumber))
	if badge == "" {
		return nil, fmt.Errorf("badge number is required")
	}

	name := strings.ToUpper(strings.TrimSpace(input.Name))
	if name == "" {
		return nil, fmt.Errorf("display name is required")
	}
	if !strings.HasPrefix(name, "AGENT") {
		name = "AGENT " + name
	}

	specialization := input.Specialization
	if specialization == "" {
		specialization = defaultSpecialization
	}

	status := input.Status
	if status == "" {
		status = core.DutyOffDuty
	}

	hash, err := credential.HashPasscode(input.Passcode)
	if err != nil {
		return nil, fmt.Errorf("hashing passcode: %w", err)
	}

	account := &core.UserAccount{
		ID:                 uuid.NewString(),
		Name:               name,
		Role:               input.Role,
		BadgeNumber:        badge,
		Status:             status,
		PasscodeHash:       hash,
		Specialization:     specialization,
		BiometricIntegrity: input.BiometricIntegrity,
	}

	_, err = s.db.Exec(
		`INSERT INTO users (id, name, role, badge_number, status, passcode_hash, specialization, biometric_integrity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Name, string(account.Role), account.BadgeNumber,
		string(account.Status), account.PasscodeHash, account.Specialization,
		account.BiometricIntegrity,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("badge number already issued: %s", badge)
		}
		return nil, fmt.Errorf("inserting roster record: %w", err)
	}

	return account, nil
}

// UpdateInput holds mutable roster fields. Nil pointers leave a field as is.
type UpdateInput struct {
	Name               *string
	Role               *core.Role
	Status             *core.DutyStatus
	Specialization     *string
	BiometricIntegrity *int
}

// Update mutates a roster record and returns the updated account.
func (s *Store) Update(userID string, input UpdateInput) (*core.UserAccount, error) {
	account, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.ToUpper(strings.TrimSpace(*input.Name))
		if !strings.HasPrefix(name, "AGENT") {
			name = "AGENT " + name
		}
		account.Name = name
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, fmt.Errorf("unknown role: %s", *input.Role)
		}
		account.Role = *input.Role
	}
	if input.Status != nil {
		account.Status = *input.Status
	}
	if input.Specialization != nil {
		account.Specialization = *input.Specialization
		if account.Specialization == "" {
			account.Specialization = defaultSpecialization
		}
	}
	if input.BiometricIntegrity != nil {
		account.BiometricIntegrity = *input.BiometricIntegrity
	}

	_, err = s.db.Exec(
		`UPDATE users SET name = ?, role = ?, status = ?, specialization = ?, biometric_integrity = ? WHERE id = ?`,
		account.Name, string(account.Role), string(account.Status),
		account.Specialization, account.BiometricIntegrity, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating roster record: %w", err)
	}

	return account, nil
}

// CheckIn stamps the account's last check-in time.
func (s *Store) CheckIn(userID string) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		"UPDATE users SET last_check_in = ? WHERE id = ?",
		now.Format(time.RFC3339), userID,
	)
	if err != nil {
		return fmt.Errorf("stamping check-in: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("roster record not found: %s", userID)
	}
	return nil
}

// Revoke removes an agent from the roster.
func (s *Store) Revoke(userID string) error {
	res, err := s.db.Exec("DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("revoking roster record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("roster record not found: %s", userID)
	}
	return nil
}

// Get retrieves a roster record by id.
func (s *Store) Get(userID string) (*core.UserAccount, error) {
	return s.queryOne("SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", userID)
}

// LookupByBadge retrieves a roster record by badge number,
// case-insensitively.
func (s *Store) LookupByBadge(badge string) (*core.UserAccount, error) {
	return s.queryOne(
		"SELECT "+userColumns+" FROM users WHERE badge_number = ? COLLATE NOCASE LIMIT 1",
		strings.TrimSpace(badge),
	)
}

// List returns the full roster ordered by name.
func (s *Store) List() ([]core.UserAccount, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("querying roster: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

const userColumns = "id, name, role, badge_number, status, passcode_hash, specialization, biometric_integrity, last_check_in"

func (s *Store) queryOne(query string, args ...any) (*core.UserAccount, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying roster: %w", err)
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("roster record not found")
	}
	return &users[0], nil
}

func scanUsers(rows *sql.Rows) ([]core.UserAccount, error) {
	var users []core.UserAccount
	for rows.Next() {
		var u core.UserAccount
		var lastCheckIn sql.NullString

		err := rows.Scan(&u.ID, &u.Name, (*string)(&u.Role), &u.BadgeNumber,
			(*string)(&u.Status), &u.PasscodeHash, &u.Specialization,
			&u.BiometricIntegrity, &lastCheckIn)
		if err != nil {
			return nil, fmt.Errorf("scanning roster record: %w", err)
		}

		if lastCheckIn.Valid {
			t, _ := time.Parse(time.RFC3339, lastCheckIn.String)
			u.LastCheckIn = &t
		}

		users = append(users, u)
	}
	return users, rows.Err()
}
