package policy

import (
	"testing"

	"github.com/spectre-ops/spectre/internal/core"
)

func TestDeletePOIClearance(t *testing.T) {
	allowed := map[core.Role]bool{
		core.RoleDirector: true,
		core.RoleSAC:      true,
		core.RoleSSA:      true,
	}

	for _, role := range core.Roles {
		got := IsPermitted(role, core.ActionDeletePOI)
		if got != allowed[role] {
			t.Errorf("IsPermitted(%q, delete_poi) = %v, want %v", role, got, allowed[role])
		}
	}
}

func TestManageRosterClearance(t *testing.T) {
	allowed := map[core.Role]bool{
		core.RoleDirector:          true,
		core.RoleDeputyDirector:    true,
		core.RoleAssistantDirector: true,
		core.RoleSAC:               true,
		core.RoleSSA:               true,
	}

	for _, role := range core.Roles {
		got := IsPermitted(role, core.ActionManageRoster)
		if got != allowed[role] {
			t.Errorf("IsPermitted(%q, manage_roster) = %v, want %v", role, got, allowed[role])
		}
	}
}

func TestUnrestrictedActionsArePermitted(t *testing.T) {
	if !IsPermitted(core.RoleSupport, core.Action("send_message")) {
		t.Error("actions outside the privileged set should be permitted for any role")
	}
}

func TestUnknownRoleIsDeniedPrivilegedActions(t *testing.T) {
	if IsPermitted(core.Role("Janitor"), core.ActionDeletePOI) {
		t.Error("unknown roles must be denied privileged actions")
	}
}

func TestCheckReturnsTypedDenial(t *testing.T) {
	err := Check(core.RoleAnalyst, core.ActionDeletePOI, "POI:p1")
	if err == nil {
		t.Fatal("expected denial for analyst delete")
	}
	if !IsPermissionDenied(err) {
		t.Errorf("expected PermissionDenied, got %T", err)
	}

	if err := Check(core.RoleDirector, core.ActionDeletePOI, "POI:p1"); err != nil {
		t.Errorf("director delete should pass, got %v", err)
	}
}
