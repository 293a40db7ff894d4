package permission

import (
	"time"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RolePermissionRecord represents rows in role_permissions.
type RolePermissionRecord struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	ID        uuid.UUID `bun:",pk,type:uuid"`
	TenantID  uuid.UUID `bun:"tenant_id,type:uuid,notnull"`
	RoleID    uuid.UUID `bun:"role_id,type:uuid,notnull"`
	PageID    uuid.UUID `bun:"page_id,type:uuid,notnull"`
	CanView   bool      `bun:"can_view,notnull"`
	CanCreate bool      `bun:"can_create,notnull"`
	CanEdit   bool      `bun:"can_edit,notnull"`
	CanDelete bool      `bun:"can_delete,notnull"`
	CanExport bool      `bun:"can_export,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// OverrideRecord represents rows in user_permission_overrides.
type OverrideRecord struct {
	bun.BaseModel `bun:"table:user_permission_overrides,alias:upo"`

	ID                uuid.UUID      `bun:",pk,type:uuid"`
	TenantID          uuid.UUID      `bun:"tenant_id,type:uuid,notnull"`
	UserID            uuid.UUID      `bun:"user_id,type:uuid,notnull"`
	PageID            uuid.UUID      `bun:"page_id,type:uuid,notnull"`
	CanView           bool           `bun:"can_view,notnull"`
	CanCreate         bool           `bun:"can_create,notnull"`
	CanEdit           bool           `bun:"can_edit,notnull"`
	CanDelete         bool           `bun:"can_delete,notnull"`
	CanExport         bool           `bun:"can_export,notnull"`
	CustomPermissions map[string]any `bun:"custom_permissions,type:jsonb"`
	CreatedAt         time.Time      `bun:"created_at,notnull"`
	UpdatedAt         time.Time      `bun:"updated_at,notnull"`
}

func (r *RolePermissionRecord) flags() types.PermissionFlags {
	return types.PermissionFlags{
		CanView:   r.CanView,
		CanCreate: r.CanCreate,
		CanEdit:   r.CanEdit,
		CanDelete: r.CanDelete,
		CanExport: r.CanExport,
	}
}

func (r *RolePermissionRecord) setFlags(flags types.PermissionFlags) {
	r.CanView = flags.CanView
	r.CanCreate = flags.CanCreate
	r.CanEdit = flags.CanEdit
	r.CanDelete = flags.CanDelete
	r.CanExport = flags.CanExport
}

func (r *OverrideRecord) flags() types.PermissionFlags {
	return types.PermissionFlags{
		CanView:   r.CanView,
		CanCreate: r.CanCreate,
		CanEdit:   r.CanEdit,
		CanDelete: r.CanDelete,
		CanExport: r.CanExport,
	}
}

func (r *OverrideRecord) setFlags(flags types.PermissionFlags) {
	r.CanView = flags.CanView
	r.CanCreate = flags.CanCreate
	r.CanEdit = flags.CanEdit
	r.CanDelete = flags.CanDelete
	r.CanExport = flags.CanExport
}

func toRolePermission(record *RolePermissionRecord) types.RolePermission {
	return types.RolePermission{
		ID:              record.ID,
		TenantID:        record.TenantID,
		RoleID:          record.RoleID,
		PageID:          record.PageID,
		PermissionFlags: record.flags(),
		UpdatedAt:       record.UpdatedAt,
	}
}

func toOverride(record *OverrideRecord) types.UserPermissionOverride {
	return types.UserPermissionOverride{
		ID:                record.ID,
		TenantID:          record.TenantID,
		UserID:            record.UserID,
		PageID:            record.PageID,
		PermissionFlags:   record.flags(),
		CustomPermissions: cloneMap(record.CustomPermissions),
		UpdatedAt:         record.UpdatedAt,
	}
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
