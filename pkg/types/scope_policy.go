package types

import (
	"context"

	"github.com/google/uuid"
)

// PolicyAction enumerates the authorization actions enforced by the scope
// guard. Each maps to one flag on the administration page.
type PolicyAction string

const (
	PolicyActionPermissionsRead  PolicyAction = "permissions:read"
	PolicyActionPermissionsWrite PolicyAction = "permissions:write"
	PolicyActionRolesRead        PolicyAction = "roles:read"
	PolicyActionRolesWrite       PolicyAction = "roles:write"
	PolicyActionRolesDelete      PolicyAction = "roles:delete"
	PolicyActionUsersRead        PolicyAction = "users:read"
	PolicyActionUsersWrite       PolicyAction = "users:write"
	PolicyActionLockoutRead      PolicyAction = "lockout:read"
	PolicyActionLockoutWrite     PolicyAction = "lockout:write"
	PolicyActionAuditRead        PolicyAction = "audit:read"
	PolicyActionAuditExport      PolicyAction = "audit:export"
)

// PageAction returns the page flag that governs the policy action.
func (a PolicyAction) PageAction() Action {
	switch a {
	case PolicyActionPermissionsRead, PolicyActionRolesRead, PolicyActionUsersRead,
		PolicyActionLockoutRead, PolicyActionAuditRead:
		return ActionView
	case PolicyActionRolesDelete:
		return ActionDelete
	case PolicyActionAuditExport:
		return ActionExport
	default:
		return ActionEdit
	}
}

// PolicyCheck captures the authorization context for a single command/query.
type PolicyCheck struct {
	Actor    ActorRef
	TenantID uuid.UUID
	Action   PolicyAction
	TargetID uuid.UUID
}

// AuthorizationPolicy governs whether an actor can run the action inside the
// tenant.
type AuthorizationPolicy interface {
	Authorize(ctx context.Context, check PolicyCheck) error
}

// AuthorizationPolicyFunc adapts bare functions to AuthorizationPolicy.
type AuthorizationPolicyFunc func(ctx context.Context, check PolicyCheck) error

// Authorize implements AuthorizationPolicy.
func (f AuthorizationPolicyFunc) Authorize(ctx context.Context, check PolicyCheck) error {
	return f(ctx, check)
}

// AllowAllAuthorizationPolicy allows every action.
type AllowAllAuthorizationPolicy struct{}

// Authorize implements AuthorizationPolicy.
func (AllowAllAuthorizationPolicy) Authorize(context.Context, PolicyCheck) error {
	return nil
}
