package registry

import (
	"time"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleRecord represents rows in roles. UserCount is computed on read.
type RoleRecord struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID           uuid.UUID `bun:",pk,type:uuid"`
	TenantID     uuid.UUID `bun:"tenant_id,type:uuid,notnull"`
	Name         string    `bun:"name,notnull"`
	Description  string    `bun:"description,notnull"`
	IsSystemRole bool      `bun:"is_system_role,notnull"`
	IsActive     bool      `bun:"is_active,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
	CreatedBy    uuid.UUID `bun:"created_by,type:uuid,notnull"`
	UpdatedBy    uuid.UUID `bun:"updated_by,type:uuid,notnull"`
	UserCount    int       `bun:"user_count,scanonly"`
}

// RecordToRole converts the bun model into the domain role.
func RecordToRole(record *RoleRecord) *types.Role {
	if record == nil {
		return nil
	}
	return &types.Role{
		ID:           record.ID,
		TenantID:     record.TenantID,
		Name:         record.Name,
		Description:  record.Description,
		IsSystemRole: record.IsSystemRole,
		IsActive:     record.IsActive,
		UserCount:    record.UserCount,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
		CreatedBy:    record.CreatedBy,
		UpdatedBy:    record.UpdatedBy,
	}
}
