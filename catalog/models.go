package catalog

import (
	"time"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TenantRecord represents rows in tenants.
type TenantRecord struct {
	bun.BaseModel `bun:"table:tenants"`

	ID        uuid.UUID `bun:",pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	Status    string    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SystemRecord represents rows in systems.
type SystemRecord struct {
	bun.BaseModel `bun:"table:systems"`

	ID        uuid.UUID `bun:",pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	IsActive  bool      `bun:"is_active,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// TenantSystemRecord represents rows in tenant_systems.
type TenantSystemRecord struct {
	bun.BaseModel `bun:"table:tenant_systems"`

	TenantID  uuid.UUID `bun:"tenant_id,pk,type:uuid"`
	SystemID  uuid.UUID `bun:"system_id,pk,type:uuid"`
	IsActive  bool      `bun:"is_active,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PageRecord represents rows in pages.
type PageRecord struct {
	bun.BaseModel `bun:"table:pages"`

	ID        uuid.UUID `bun:",pk,type:uuid"`
	SystemID  uuid.UUID `bun:"system_id,type:uuid,notnull"`
	Name      string    `bun:"name,notnull"`
	Route     string    `bun:"route,notnull"`
	SortOrder int       `bun:"sort_order,notnull"`
}

func toTenant(record *TenantRecord) *types.Tenant {
	if record == nil {
		return nil
	}
	return &types.Tenant{
		ID:        record.ID,
		Name:      record.Name,
		Status:    types.TenantStatus(record.Status),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func toSystem(record *SystemRecord) *types.System {
	if record == nil {
		return nil
	}
	return &types.System{
		ID:        record.ID,
		Name:      record.Name,
		IsActive:  record.IsActive,
		CreatedAt: record.CreatedAt,
	}
}

// ToPage converts a page row into the domain type.
func ToPage(record *PageRecord) types.Page {
	if record == nil {
		return types.Page{}
	}
	return types.Page{
		ID:        record.ID,
		SystemID:  record.SystemID,
		Name:      record.Name,
		Route:     record.Route,
		SortOrder: record.SortOrder,
	}
}
