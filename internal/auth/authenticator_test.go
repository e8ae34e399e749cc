package auth

import (
	"errors"
	"testing"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/db"
	"github.com/spectre-ops/spectre/internal/identity"
)

func setupAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	conn, err := db.Open("")
	if err != nil {
		t.Fatalf("opening state db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	roster := identity.NewStore(conn)
	_, err = roster.Provision(identity.ProvisionInput{
		Name:        "FALCON",
		Role:        core.RoleDirector,
		BadgeNumber: "F0",
		Passcode:    "F008F008",
		Status:      core.DutyAvailable,
	})
	if err != nil {
		t.Fatalf("seeding roster: %v", err)
	}

	return NewAuthenticator(roster)
}

func TestAuthenticateMatchesBadgeCaseInsensitively(t *testing.T) {
	a := setupAuthenticator(t)

	tests := []struct {
		name     string
		badge    string
		passcode string
		wantErr  error
	}{
		{"exact", "F0", "F008F008", nil},
		{"lowercase badge", "f0", "F008F008", nil},
		{"wrong passcode", "F0", "f008f008", ErrInvalidCredentials},
		{"unknown badge", "FED-0000", "F008F008", ErrInvalidCredentials},
		{"empty pair", "", "", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.Abort()
			account, err := a.Authenticate(tt.badge, tt.passcode)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate(%q, ...) error = %v, want %v", tt.badge, err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if account == nil || account.Name != "AGENT FALCON" {
					t.Errorf("unexpected account: %+v", account)
				}
				if a.Phase() != AwaitingSecondFactor {
					t.Errorf("phase = %v, want awaiting_second_factor", a.Phase())
				}
			} else if a.Phase() != AwaitingCredentials {
				t.Errorf("failed login should reset wizard, phase = %v", a.Phase())
			}
		})
	}
}

func TestSecondFactorFormatGate(t *testing.T) {
	tests := []struct {
		code string
		ok   bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"12 456", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			a := setupAuthenticator(t)
			if _, err := a.Authenticate("F0", "F008F008"); err != nil {
				t.Fatalf("authenticate: %v", err)
			}

			session, err := a.VerifySecondFactor(tt.code)
			if tt.ok {
				if err != nil {
					t.Fatalf("VerifySecondFactor(%q): %v", tt.code, err)
				}
				if !session.Verified {
					t.Error("session should be fully verified")
				}
				if a.Phase() != Authenticated {
					t.Errorf("phase = %v, want authenticated", a.Phase())
				}
			} else {
				if !errors.Is(err, ErrInvalidSecondFactor) {
					t.Fatalf("VerifySecondFactor(%q) error = %v, want ErrInvalidSecondFactor", tt.code, err)
				}
				if a.Phase() != AwaitingCredentials {
					t.Errorf("failed second factor must reset the wizard, phase = %v", a.Phase())
				}
			}
		})
	}
}

func TestSecondFactorWithoutCredentialPhase(t *testing.T) {
	a := setupAuthenticator(t)
	if _, err := a.VerifySecondFactor("123456"); !errors.Is(err, ErrInvalidSecondFactor) {
		t.Errorf("second factor out of sequence should fail, got %v", err)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	a := setupAuthenticator(t)
	a.Authenticate("F0", "F008F008")
	a.VerifySecondFactor("123456")

	user, err := a.Logout()
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if user.Name != "AGENT FALCON" {
		t.Errorf("logout should return the terminated account, got %q", user.Name)
	}
	if a.Session() != nil {
		t.Error("session should be cleared after logout")
	}
	if _, err := a.Logout(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("second logout should fail, got %v", err)
	}
}

func TestLoginOverLiveSessionIsRejected(t *testing.T) {
	a := setupAuthenticator(t)
	a.Authenticate("F0", "F008F008")
	a.VerifySecondFactor("123456")

	if _, err := a.Authenticate("F0", "F008F008"); !errors.Is(err, ErrAlreadyAuthenticated) {
		t.Errorf("expected ErrAlreadyAuthenticated, got %v", err)
	}
}

func TestActorIsEmptyWhenUnauthenticated(t *testing.T) {
	a := setupAuthenticator(t)
	if id, name := a.Actor(); id != "" || name != "" {
		t.Errorf("expected empty actor, got %q/%q", id, name)
	}

	a.Authenticate("F0", "F008F008")
	if id, _ := a.Actor(); id != "" {
		t.Error("actor must stay empty until the second factor passes")
	}

	a.VerifySecondFactor("123456")
	if id, name := a.Actor(); id == "" || name != "AGENT FALCON" {
		t.Errorf("expected live actor, got %q/%q", id, name)
	}
}
