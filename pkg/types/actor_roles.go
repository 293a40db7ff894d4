package types

import "strings"

const (
	// ActorRoleSystemAdmin represents site-wide administrators that may act
	// across tenants.
	ActorRoleSystemAdmin = "system_admin"
	// ActorRoleTenantAdmin represents administrators scoped to one tenant.
	ActorRoleTenantAdmin = "tenant_admin"
	// ActorRoleUser represents regular tenant users.
	ActorRoleUser = "user"
	// ActorRoleSystem marks transitions performed by the engine itself.
	ActorRoleSystem = "system"
)

// RoleName normalizes the actor role for comparisons.
func (a ActorRef) RoleName() string {
	return normalizeRole(a.Type)
}

// IsRole reports whether the actor matches the provided role.
func (a ActorRef) IsRole(role string) bool {
	role = normalizeRole(role)
	if role == "" {
		return a.RoleName() == ""
	}
	return a.RoleName() == role
}

// IsTenantAdmin reports whether the actor is scoped as a tenant administrator.
func (a ActorRef) IsTenantAdmin() bool {
	return a.IsRole(ActorRoleTenantAdmin)
}

// IsSystemAdmin reports whether the actor is a global administrator.
func (a ActorRef) IsSystemAdmin() bool {
	return a.IsRole(ActorRoleSystemAdmin)
}

// IsSystem reports whether the actor is the engine itself.
func (a ActorRef) IsSystem() bool {
	return a.IsRole(ActorRoleSystem)
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
