package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-permissions/pkg/types"
)

var fixtureTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// World is a seeded tenant with one activated system, two pages, one role
// and one active user holding that role.
type World struct {
	TenantID uuid.UUID
	SystemID uuid.UUID
	PageA    uuid.UUID
	PageB    uuid.UUID
	RoleID   uuid.UUID
	UserID   uuid.UUID
}

// Seed inserts a World.
func Seed(t *testing.T, db bun.IDB) World {
	t.Helper()
	w := World{
		TenantID: uuid.New(),
		SystemID: uuid.New(),
		PageA:    uuid.New(),
		PageB:    uuid.New(),
		RoleID:   uuid.New(),
		UserID:   uuid.New(),
	}
	InsertTenant(t, db, w.TenantID, types.TenantStatusActive)
	InsertSystem(t, db, w.SystemID, "Budget "+w.SystemID.String()[:8], true)
	SetTenantSystem(t, db, w.TenantID, w.SystemID, true)
	InsertPage(t, db, w.PageA, w.SystemID, "/budget/items", 1)
	InsertPage(t, db, w.PageB, w.SystemID, "/budget/reports", 2)
	InsertRole(t, db, w.RoleID, w.TenantID, "Clerk", false, true)
	InsertUser(t, db, w.UserID, w.TenantID, w.RoleID, types.UserStatusActive)
	return w
}

// InsertTenant adds a tenant row.
func InsertTenant(t *testing.T, db bun.IDB, id uuid.UUID, status types.TenantStatus) {
	t.Helper()
	exec(t, db, `INSERT INTO tenants (id, name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, "tenant-"+id.String()[:8], string(status), fixtureTime, fixtureTime)
}

// InsertSystem adds a system row.
func InsertSystem(t *testing.T, db bun.IDB, id uuid.UUID, name string, active bool) {
	t.Helper()
	exec(t, db, `INSERT INTO systems (id, name, is_active, created_at) VALUES (?, ?, ?, ?)`,
		id, name, active, fixtureTime)
}

// SetTenantSystem activates or deactivates a system for a tenant.
func SetTenantSystem(t *testing.T, db bun.IDB, tenantID, systemID uuid.UUID, active bool) {
	t.Helper()
	exec(t, db, `INSERT INTO tenant_systems (tenant_id, system_id, is_active, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant_id, system_id) DO UPDATE SET is_active = EXCLUDED.is_active`,
		tenantID, systemID, active, fixtureTime)
}

// InsertPage adds a page row.
func InsertPage(t *testing.T, db bun.IDB, id, systemID uuid.UUID, route string, order int) {
	t.Helper()
	exec(t, db, `INSERT INTO pages (id, system_id, name, route, sort_order) VALUES (?, ?, ?, ?, ?)`,
		id, systemID, route, route, order)
}

// InsertRole adds a role row.
func InsertRole(t *testing.T, db bun.IDB, id, tenantID uuid.UUID, name string, system, active bool) {
	t.Helper()
	exec(t, db, `INSERT INTO roles (id, tenant_id, name, description, is_system_role, is_active, created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, '', ?, ?, ?, ?, ?, ?)`,
		id, tenantID, name, system, active, fixtureTime, fixtureTime, uuid.Nil, uuid.Nil)
}

// InsertUser adds a user row.
func InsertUser(t *testing.T, db bun.IDB, id, tenantID, roleID uuid.UUID, status types.UserStatus) {
	t.Helper()
	var lockedAt *time.Time
	if status == types.UserStatusLocked {
		ts := fixtureTime
		lockedAt = &ts
	}
	exec(t, db, `INSERT INTO users (id, tenant_id, role_id, username, email, status, failed_login_attempts, locked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, 0, ?, ?, ?)`,
		id, tenantID, roleID, "user-"+id.String()[:8], string(status), lockedAt, fixtureTime, fixtureTime)
}

// InsertRolePermission stores a role default row verbatim.
func InsertRolePermission(t *testing.T, db bun.IDB, tenantID, roleID, pageID uuid.UUID, flags types.PermissionFlags) {
	t.Helper()
	exec(t, db, `INSERT INTO role_permissions (id, tenant_id, role_id, page_id, can_view, can_create, can_edit, can_delete, can_export, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New(), tenantID, roleID, pageID,
		flags.CanView, flags.CanCreate, flags.CanEdit, flags.CanDelete, flags.CanExport,
		fixtureTime, fixtureTime)
}

// InsertOverride stores a user override row verbatim.
func InsertOverride(t *testing.T, db bun.IDB, tenantID, userID, pageID uuid.UUID, flags types.PermissionFlags) {
	t.Helper()
	exec(t, db, `INSERT INTO user_permission_overrides (id, tenant_id, user_id, page_id, can_view, can_create, can_edit, can_delete, can_export, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New(), tenantID, userID, pageID,
		flags.CanView, flags.CanCreate, flags.CanEdit, flags.CanDelete, flags.CanExport,
		fixtureTime, fixtureTime)
}

// SetUserStatus changes a user's status directly.
func SetUserStatus(t *testing.T, db bun.IDB, userID uuid.UUID, status types.UserStatus) {
	t.Helper()
	exec(t, db, `UPDATE users SET status = ? WHERE id = ?`, string(status), userID)
}

// Count returns the row count of a table.
func Count(t *testing.T, db bun.IDB, table string) int {
	t.Helper()
	count, err := db.NewSelect().Table(table).Count(context.Background())
	require.NoError(t, err)
	return count
}

func exec(t *testing.T, db bun.IDB, query string, args ...any) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}
