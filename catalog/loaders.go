package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoadTenant reads a tenant on any bun.IDB.
func LoadTenant(ctx context.Context, db bun.IDB, id uuid.UUID) (*types.Tenant, error) {
	record := &TenantRecord{}
	if err := db.NewSelect().Model(record).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, loadErr(err, "tenant", id)
	}
	return toTenant(record), nil
}

// LoadSystem reads a system on any bun.IDB.
func LoadSystem(ctx context.Context, db bun.IDB, id uuid.UUID) (*types.System, error) {
	record := &SystemRecord{}
	if err := db.NewSelect().Model(record).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, loadErr(err, "system", id)
	}
	return toSystem(record), nil
}

// LoadPage reads a page on any bun.IDB.
func LoadPage(ctx context.Context, db bun.IDB, id uuid.UUID) (*types.Page, error) {
	record := &PageRecord{}
	if err := db.NewSelect().Model(record).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, loadErr(err, "page", id)
	}
	page := ToPage(record)
	return &page, nil
}

func loadErr(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return types.NotFound(resource, id)
	}
	return types.Persistence(err, "load "+resource)
}
