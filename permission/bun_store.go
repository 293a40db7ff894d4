package permission

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StoreConfig wires the Bun-backed permission store.
type StoreConfig struct {
	DB          bun.IDB
	Clock       types.Clock
	IDGenerator types.IDGenerator
}

// Store reads and writes role defaults and user overrides. Absent rows are
// returned as nil without error since absence means all-false.
type Store struct {
	db    bun.IDB
	clock types.Clock
	idGen types.IDGenerator
}

var _ types.PermissionStore = (*Store)(nil)

// NewStore constructs the default store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.DB == nil {
		return nil, types.ErrMissingDB
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGenerator
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	return &Store{db: cfg.DB, clock: clock, idGen: idGen}, nil
}

// WithTx returns a copy of the store bound to tx.
func (s *Store) WithTx(tx bun.IDB) *Store {
	clone := *s
	clone.db = tx
	return &clone
}

// GetRolePermission returns the stored role default for a page.
func (s *Store) GetRolePermission(ctx context.Context, roleID, pageID uuid.UUID) (*types.RolePermission, error) {
	record := &RolePermissionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("rp.role_id = ?", roleID).
		Where("rp.page_id = ?", pageID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, types.Persistence(err, "get role permission")
	}
	out := toRolePermission(record)
	return &out, nil
}

// GetOverride returns the stored override for a user and page.
func (s *Store) GetOverride(ctx context.Context, userID, pageID uuid.UUID) (*types.UserPermissionOverride, error) {
	record := &OverrideRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("upo.user_id = ?", userID).
		Where("upo.page_id = ?", pageID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, types.Persistence(err, "get permission override")
	}
	out := toOverride(record)
	return &out, nil
}

// ListRolePermissions returns the stored cells for the given roles and pages.
func (s *Store) ListRolePermissions(ctx context.Context, roleIDs, pageIDs []uuid.UUID) ([]types.RolePermission, error) {
	if len(roleIDs) == 0 || len(pageIDs) == 0 {
		return []types.RolePermission{}, nil
	}
	var records []*RolePermissionRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("rp.role_id IN (?)", bun.In(roleIDs)).
		Where("rp.page_id IN (?)", bun.In(pageIDs)).
		Scan(ctx)
	if err != nil {
		return nil, types.Persistence(err, "list role permissions")
	}
	out := make([]types.RolePermission, 0, len(records))
	for _, record := range records {
		out = append(out, toRolePermission(record))
	}
	return out, nil
}

// ListOverrides returns the stored overrides of a user for the given pages.
func (s *Store) ListOverrides(ctx context.Context, userID uuid.UUID, pageIDs []uuid.UUID) ([]types.UserPermissionOverride, error) {
	if len(pageIDs) == 0 {
		return []types.UserPermissionOverride{}, nil
	}
	var records []*OverrideRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("upo.user_id = ?", userID).
		Where("upo.page_id IN (?)", bun.In(pageIDs)).
		Scan(ctx)
	if err != nil {
		return nil, types.Persistence(err, "list permission overrides")
	}
	out := make([]types.UserPermissionOverride, 0, len(records))
	for _, record := range records {
		out = append(out, toOverride(record))
	}
	return out, nil
}

// UpsertRolePermission writes the role default for a page. flags must
// already satisfy the view invariant.
func (s *Store) UpsertRolePermission(ctx context.Context, tenantID, roleID, pageID uuid.UUID, flags types.PermissionFlags) error {
	if !flags.Consistent() {
		return types.Validation("can_view is required for any other action", map[string]any{"page_id": pageID.String()})
	}
	now := s.clock.Now()
	record := &RolePermissionRecord{
		ID:        s.idGen.UUID(),
		TenantID:  tenantID,
		RoleID:    roleID,
		PageID:    pageID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	record.setFlags(flags)
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (role_id, page_id) DO UPDATE").
		Set("can_view = EXCLUDED.can_view").
		Set("can_create = EXCLUDED.can_create").
		Set("can_edit = EXCLUDED.can_edit").
		Set("can_delete = EXCLUDED.can_delete").
		Set("can_export = EXCLUDED.can_export").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return types.Persistence(err, "upsert role permission")
	}
	return nil
}

// DeleteRolePermission removes the role default for a page. It reports
// whether a row existed.
func (s *Store) DeleteRolePermission(ctx context.Context, roleID, pageID uuid.UUID) (bool, error) {
	res, err := s.db.NewDelete().
		Model((*RolePermissionRecord)(nil)).
		Where("role_id = ?", roleID).
		Where("page_id = ?", pageID).
		Exec(ctx)
	if err != nil {
		return false, types.Persistence(err, "delete role permission")
	}
	return affected(res), nil
}

// UpsertOverride writes a whole-row override for a user and page.
func (s *Store) UpsertOverride(ctx context.Context, tenantID, userID, pageID uuid.UUID, flags types.PermissionFlags, custom map[string]any) error {
	if !flags.Consistent() {
		return types.Validation("can_view is required for any other action", map[string]any{"page_id": pageID.String()})
	}
	now := s.clock.Now()
	record := &OverrideRecord{
		ID:                s.idGen.UUID(),
		TenantID:          tenantID,
		UserID:            userID,
		PageID:            pageID,
		CustomPermissions: cloneMap(custom),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	record.setFlags(flags)
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id, page_id) DO UPDATE").
		Set("can_view = EXCLUDED.can_view").
		Set("can_create = EXCLUDED.can_create").
		Set("can_edit = EXCLUDED.can_edit").
		Set("can_delete = EXCLUDED.can_delete").
		Set("can_export = EXCLUDED.can_export").
		Set("custom_permissions = EXCLUDED.custom_permissions").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return types.Persistence(err, "upsert permission override")
	}
	return nil
}

// DeleteOverride removes a user override so the role default applies again.
func (s *Store) DeleteOverride(ctx context.Context, userID, pageID uuid.UUID) (bool, error) {
	res, err := s.db.NewDelete().
		Model((*OverrideRecord)(nil)).
		Where("user_id = ?", userID).
		Where("page_id = ?", pageID).
		Exec(ctx)
	if err != nil {
		return false, types.Persistence(err, "delete permission override")
	}
	return affected(res), nil
}

func affected(res sql.Result) bool {
	if res == nil {
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}
