// Package auth implements the two-phase login sequence and holds the
// single authenticated session for the process.
//
// The wizard is a short-lived state machine: AwaitingCredentials ->
// AwaitingSecondFactor -> Authenticated. Any failure or abort resets it
// to the start, so no partial-privilege state ever survives. The wizard
// state is never persisted.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/credential"
	"github.com/spectre-ops/spectre/internal/identity"
)

var (
	// ErrInvalidCredentials is returned when no roster record matches the
	// badge case-insensitively with an exact passcode match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidSecondFactor is returned when the supplied code is not
	// exactly six digits.
	ErrInvalidSecondFactor = errors.New("invalid second factor")

	// ErrNotAuthenticated is returned by operations that need a live session.
	ErrNotAuthenticated = errors.New("no authenticated session")

	// ErrAlreadyAuthenticated is returned when login is attempted over a
	// live session.
	ErrAlreadyAuthenticated = errors.New("session already established; log out first")
)

// Phase names a state of the login wizard.
type Phase int

const (
	AwaitingCredentials Phase = iota
	AwaitingSecondFactor
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case AwaitingCredentials:
		return "awaiting_credentials"
	case AwaitingSecondFactor:
		return "awaiting_second_factor"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Authenticator validates credentials against the roster and yields the
// authenticated session.
type Authenticator struct {
	roster *identity.Store

	mu      sync.Mutex
	phase   Phase
	pending *core.UserAccount
	session *core.Session
}

// NewAuthenticator creates an authenticator over the given roster.
func NewAuthenticator(roster *identity.Store) *Authenticator {
	return &Authenticator{roster: roster}
}

// Phase returns the current wizard phase.
func (a *Authenticator) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Authenticate performs the credential phase: case-insensitive badge
// lookup, exact passcode verification. On success the wizard advances to
// the second-factor phase; on failure it resets.
func (a *Authenticator) Authenticate(badge, passcode string) (*core.UserAccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase == Authenticated {
		return nil, ErrAlreadyAuthenticated
	}
	a.reset()

	account, err := a.roster.LookupByBadge(badge)
	if err != nil {
		// A constant failure mode regardless of whether the badge exists.
		return nil, ErrInvalidCredentials
	}
	if !credential.VerifyPasscode(account.PasscodeHash, passcode) {
		return nil, ErrInvalidCredentials
	}

	a.pending = account
	a.phase = AwaitingSecondFactor
	return account, nil
}

// VerifySecondFactor performs the format gate on the confirmation code:
// exactly six ASCII digits. Success establishes the session; failure
// resets the wizard entirely.
func (a *Authenticator) VerifySecondFactor(code string) (*core.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != AwaitingSecondFactor || a.pending == nil {
		a.reset()
		return nil, ErrInvalidSecondFactor
	}

	if !isSixDigits(code) {
		a.reset()
		return nil, ErrInvalidSecondFactor
	}

	a.session = &core.Session{
		User:          *a.pending,
		Verified:      true,
		EstablishedAt: time.Now().UTC(),
	}
	a.pending = nil
	a.phase = Authenticated
	return a.session, nil
}

// Abort cancels an in-flight login without touching any live session.
func (a *Authenticator) Abort() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != Authenticated {
		a.reset()
	}
}

// Logout terminates the session and returns the account that held it.
func (a *Authenticator) Logout() (*core.UserAccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != Authenticated || a.session == nil {
		return nil, ErrNotAuthenticated
	}

	user := a.session.User
	a.session = nil
	a.reset()
	return &user, nil
}

// Session returns the live session, or nil when unauthenticated.
func (a *Authenticator) Session() *core.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != Authenticated {
		return nil
	}
	s := *a.session
	return &s
}

// Actor returns the acting identity (id, name) for audit stamping.
// Both are empty when there is no authenticated session.
func (a *Authenticator) Actor() (string, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != Authenticated || a.session == nil {
		return "", ""
	}
	return a.session.User.ID, a.session.User.Name
}

// reset returns the wizard to AwaitingCredentials. Caller holds the lock.
func (a *Authenticator) reset() {
	a.phase = AwaitingCredentials
	a.pending = nil
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
