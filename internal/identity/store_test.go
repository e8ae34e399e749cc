package identity

import (
	"testing"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/credential"
	"github.com/spectre-ops/spectre/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open("")
	if err != nil {
		t.Fatalf("opening state db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn)
}

func TestProvisionNormalizesIdentity(t *testing.T) {
	store := setupStore(t)

	account, err := store.Provision(ProvisionInput{
		Name:        "  vance ",
		Role:        core.RoleSSA,
		BadgeNumber: " fed-8842 ",
		Passcode:    "PASS1234",
	})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	if account.Name != "AGENT VANCE" {
		t.Errorf("expected normalized name AGENT VANCE, got %q", account.Name)
	}
	if account.BadgeNumber != "FED-8842" {
		t.Errorf("expected normalized badge FED-8842, got %q", account.BadgeNumber)
	}
	if account.Specialization != "General Duties" {
		t.Errorf("expected default specialization, got %q", account.Specialization)
	}
	if account.Status != core.DutyOffDuty {
		t.Errorf("expected default Off-duty status, got %q", account.Status)
	}
	if !credential.VerifyPasscode(account.PasscodeHash, "PASS1234") {
		t.Error("stored hash should verify the provisioned passcode")
	}
}

func TestProvisionKeepsExistingAgentPrefix(t *testing.T) {
	store := setupStore(t)

	account, err := store.Provision(ProvisionInput{
		Name:        "Agent Ross",
		Role:        core.RoleSpecialAgent,
		BadgeNumber: "FED-7712",
		Passcode:    "PASS1234",
	})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if account.Name != "AGENT ROSS" {
		t.Errorf("expected AGENT ROSS, got %q", account.Name)
	}
}

func TestProvisionRejectsDuplicateBadge(t *testing.T) {
	store := setupStore(t)

	_, err := store.Provision(ProvisionInput{Name: "one", Role: core.RoleAnalyst, BadgeNumber: "FED-1000", Passcode: "x"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	_, err = store.Provision(ProvisionInput{Name: "two", Role: core.RoleAnalyst, BadgeNumber: "fed-1000", Passcode: "x"})
	if err == nil {
		t.Error("expected duplicate badge (case-insensitive) to be rejected")
	}
}

func TestLookupByBadgeCaseInsensitive(t *testing.T) {
	store := setupStore(t)

	created, _ := store.Provision(ProvisionInput{Name: "king", Role: core.RoleSAC, BadgeNumber: "FED-1102", Passcode: "PASS1234"})

	for _, badge := range []string{"FED-1102", "fed-1102", " Fed-1102 "} {
		got, err := store.LookupByBadge(badge)
		if err != nil {
			t.Fatalf("LookupByBadge(%q): %v", badge, err)
		}
		if got.ID != created.ID {
			t.Errorf("LookupByBadge(%q) returned wrong account", badge)
		}
	}

	if _, err := store.LookupByBadge("FED-9999"); err == nil {
		t.Error("expected lookup miss for unknown badge")
	}
}

func TestUpdateMutatesSelectedFields(t *testing.T) {
	store := setupStore(t)

	account, _ := store.Provision(ProvisionInput{Name: "fisher", Role: core.RoleAnalyst, BadgeNumber: "FED-4421", Passcode: "PASS1234"})

	role := core.RoleSSA
	status := core.DutyBusy
	updated, err := store.Update(account.ID, UpdateInput{Role: &role, Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != core.RoleSSA || updated.Status != core.DutyBusy {
		t.Errorf("unexpected update result: %+v", updated)
	}
	if updated.Name != "AGENT FISHER" {
		t.Errorf("name should be untouched, got %q", updated.Name)
	}
}

func TestRevokeRemovesRecord(t *testing.T) {
	store := setupStore(t)

	account, _ := store.Provision(ProvisionInput{Name: "ross", Role: core.RoleSpecialAgent, BadgeNumber: "FED-7712", Passcode: "PASS1234"})

	if err := store.Revoke(account.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.Get(account.ID); err == nil {
		t.Error("expected revoked record to be gone")
	}
	if err := store.Revoke(account.ID); err == nil {
		t.Error("expected second revoke to fail")
	}
}
