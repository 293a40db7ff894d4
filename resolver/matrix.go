package resolver

import (
	"context"

	"github.com/goliatone/go-permissions/accounts"
	"github.com/goliatone/go-permissions/catalog"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/registry"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AssembleRoleMatrix returns every role of the tenant against every page of
// the system. Pages are empty when the system is not active for the tenant.
func (r *Resolver) AssembleRoleMatrix(ctx context.Context, tenantID, systemID uuid.UUID) (types.RoleMatrix, error) {
	matrix := types.RoleMatrix{
		TenantID:    tenantID,
		SystemID:    systemID,
		Roles:       []types.Role{},
		Pages:       []types.Page{},
		Permissions: map[string]types.RolePermission{},
	}
	pages, err := r.visiblePages(ctx, tenantID, systemID)
	if err != nil {
		return matrix, err
	}
	roles, err := registry.ListTenantRoles(ctx, r.db, tenantID)
	if err != nil {
		return matrix, err
	}
	matrix.Roles = roles
	matrix.Pages = pages

	cells, err := r.store.ListRolePermissions(ctx, roleIDs(roles), pageIDs(pages))
	if err != nil {
		return matrix, err
	}
	for _, cell := range cells {
		matrix.Permissions[types.MatrixKey(cell.RoleID, cell.PageID)] = cell
	}
	return matrix, nil
}

// AssembleUserMatrix returns the user's overrides beside their role defaults
// for every page of the system.
func (r *Resolver) AssembleUserMatrix(ctx context.Context, tenantID, systemID, userID uuid.UUID) (types.UserMatrix, error) {
	matrix := types.UserMatrix{
		TenantID:     tenantID,
		SystemID:     systemID,
		Pages:        []types.Page{},
		Permissions:  map[uuid.UUID]types.UserPermissionOverride{},
		RoleDefaults: map[uuid.UUID]types.RolePermission{},
	}
	pages, err := r.visiblePages(ctx, tenantID, systemID)
	if err != nil {
		return matrix, err
	}
	record, err := accounts.LoadUser(ctx, r.db, tenantID, userID)
	if err != nil {
		return matrix, err
	}
	matrix.User = *accounts.RecordToUser(record)
	matrix.Pages = pages

	ids := pageIDs(pages)
	overrides, err := r.store.ListOverrides(ctx, userID, ids)
	if err != nil {
		return matrix, err
	}
	for _, override := range overrides {
		matrix.Permissions[override.PageID] = override
	}
	defaults, err := r.store.ListRolePermissions(ctx, []uuid.UUID{record.RoleID}, ids)
	if err != nil {
		return matrix, err
	}
	for _, cell := range defaults {
		matrix.RoleDefaults[cell.PageID] = cell
	}
	return matrix, nil
}

func (r *Resolver) visiblePages(ctx context.Context, tenantID, systemID uuid.UUID) ([]types.Page, error) {
	if tenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	if _, err := catalog.LoadTenant(ctx, r.db, tenantID); err != nil {
		return nil, err
	}
	if _, err := catalog.LoadSystem(ctx, r.db, systemID); err != nil {
		return nil, err
	}
	return activePages(ctx, r.db, tenantID, systemID)
}

func activePages(ctx context.Context, db bun.IDB, tenantID, systemID uuid.UUID) ([]types.Page, error) {
	active, err := catalog.SystemActiveForTenant(ctx, db, tenantID, systemID)
	if err != nil {
		return nil, err
	}
	if !active {
		return []types.Page{}, nil
	}
	return catalog.ListPages(ctx, db, systemID)
}

func roleIDs(roles []types.Role) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}
	return ids
}

func pageIDs(pages []types.Page) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(pages))
	for _, page := range pages {
		ids = append(ids, page.ID)
	}
	return ids
}
