// Package policy implements role-gated access control for privileged
// actions. Operations outside an agent's clearance are blocked before
// any state is touched, and denials are never written to the ledger.
package policy

import (
	"fmt"

	"github.com/spectre-ops/spectre/internal/core"
)

// permittedRoles maps each privileged action to its clearance set.
// Actions absent from the map are unrestricted.
var permittedRoles = map[core.Action][]core.Role{
	core.ActionDeletePOI: {
		core.RoleDirector,
		core.RoleSAC,
		core.RoleSSA,
	},
	core.ActionManageRoster: {
		core.RoleDirector,
		core.RoleDeputyDirector,
		core.RoleAssistantDirector,
		core.RoleSAC,
		core.RoleSSA,
	},
}

// IsPermitted reports whether the role may perform the action. It is a
// pure total function over the rank set: unknown actions are permitted,
// unknown roles are denied every privileged action.
func IsPermitted(role core.Role, action core.Action) bool {
	roles, restricted := permittedRoles[action]
	if !restricted {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Check returns a PermissionDenied error when the role may not perform
// the action on the given resource.
func Check(role core.Role, action core.Action, resource string) error {
	if IsPermitted(role, action) {
		return nil
	}
	return &PermissionDenied{
		Role:     role,
		Action:   action,
		Resource: resource,
	}
}

// PermissionDenied represents a rejected privileged action. The denial is
// surfaced to the operator and causes no mutation and no audit entry.
type PermissionDenied struct {
	Role     core.Role
	Action   core.Action
	Resource string
}

func (pd *PermissionDenied) Error() string {
	return fmt.Sprintf("insufficient clearance [%s]: role %q may not perform %s", pd.Resource, pd.Role, pd.Action)
}

// IsPermissionDenied checks if an error is a clearance rejection.
func IsPermissionDenied(err error) bool {
	_, ok := err.(*PermissionDenied)
	return ok
}
