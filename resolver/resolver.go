package resolver

import (
	"context"
	"errors"

	"github.com/goliatone/go-permissions/accounts"
	"github.com/goliatone/go-permissions/audit"
	"github.com/goliatone/go-permissions/catalog"
	"github.com/goliatone/go-permissions/permission"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/registry"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Config wires the resolver.
type Config struct {
	DB     *bun.DB
	Store  *permission.Store
	Audit  audit.TxRecorder
	Clock  types.Clock
	Hooks  types.Hooks
	Logger types.Logger
}

// Resolver answers permission checks and applies matrix edits. It holds no
// cache: every call reads current state.
type Resolver struct {
	db     *bun.DB
	store  *permission.Store
	audit  audit.TxRecorder
	clock  types.Clock
	hooks  types.Hooks
	logger types.Logger
}

var (
	_ types.PermissionResolver = (*Resolver)(nil)
	_ types.MatrixAssembler    = (*Resolver)(nil)
)

// New constructs a resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.DB == nil {
		return nil, types.ErrMissingDB
	}
	if cfg.Audit == nil {
		return nil, types.ErrMissingAuditRepository
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	store := cfg.Store
	if store == nil {
		var err error
		store, err = permission.NewStore(permission.StoreConfig{DB: cfg.DB, Clock: clock})
		if err != nil {
			return nil, err
		}
	}
	return &Resolver{
		db:     cfg.DB,
		store:  store,
		audit:  cfg.Audit,
		clock:  clock,
		hooks:  cfg.Hooks,
		logger: logger,
	}, nil
}

// ResolveEffective returns the flags governing the user on the page.
func (r *Resolver) ResolveEffective(ctx context.Context, tenantID, userID, pageID uuid.UUID) (types.PermissionFlags, error) {
	return resolve(ctx, r.db, r.store, tenantID, userID, pageID)
}

// Check reports whether the user may perform action on the page.
func (r *Resolver) Check(ctx context.Context, tenantID, userID, pageID uuid.UUID, action types.Action) (bool, error) {
	if _, ok := types.ParseAction(string(action)); !ok {
		return false, types.Validation("unknown action", map[string]any{"action": string(action)})
	}
	flags, err := r.ResolveEffective(ctx, tenantID, userID, pageID)
	if err != nil {
		return false, err
	}
	return flags.Allows(action), nil
}

// Authorize returns a uniform permission denied error when Check is false.
func (r *Resolver) Authorize(ctx context.Context, tenantID, userID, pageID uuid.UUID, action types.Action) error {
	allowed, err := r.Check(ctx, tenantID, userID, pageID, action)
	if err != nil {
		return err
	}
	if !allowed {
		r.logger.Debug("permission denied", "tenant_id", tenantID, "user_id", userID, "page_id", pageID, "action", action)
		return types.PermissionDenied()
	}
	return nil
}

func resolve(ctx context.Context, db bun.IDB, store *permission.Store, tenantID, userID, pageID uuid.UUID) (types.PermissionFlags, error) {
	none := types.PermissionFlags{}
	switch {
	case tenantID == uuid.Nil:
		return none, types.ErrTenantIDRequired
	case userID == uuid.Nil:
		return none, types.ErrUserIDRequired
	case pageID == uuid.Nil:
		return none, types.Validation("page_id required", nil)
	}

	tenant, err := catalog.LoadTenant(ctx, db, tenantID)
	if err != nil {
		return none, err
	}
	user, err := accounts.LoadUser(ctx, db, tenantID, userID)
	if err != nil {
		return none, err
	}
	page, err := catalog.LoadPage(ctx, db, pageID)
	if err != nil {
		return none, err
	}

	if !tenant.IsActive() || types.UserStatus(user.Status) != types.UserStatusActive {
		return none, nil
	}
	active, err := catalog.SystemActiveForTenant(ctx, db, tenantID, page.SystemID)
	if err != nil {
		return none, err
	}
	if !active {
		return none, nil
	}

	override, err := store.GetOverride(ctx, userID, pageID)
	if err != nil {
		return none, err
	}
	if override != nil {
		return override.PermissionFlags, nil
	}
	return roleDefault(ctx, db, store, tenantID, user.RoleID, pageID)
}

// roleDefault returns the role row for a page, or all-false when the role is
// inactive or has no row.
func roleDefault(ctx context.Context, db bun.IDB, store *permission.Store, tenantID, roleID, pageID uuid.UUID) (types.PermissionFlags, error) {
	role, err := registry.LoadRole(ctx, db, tenantID, roleID)
	if err != nil {
		if types.IsNotFound(err) {
			return types.PermissionFlags{}, nil
		}
		return types.PermissionFlags{}, err
	}
	if !role.IsActive {
		return types.PermissionFlags{}, nil
	}
	row, err := store.GetRolePermission(ctx, roleID, pageID)
	if err != nil || row == nil {
		return types.PermissionFlags{}, err
	}
	return row.PermissionFlags, nil
}

func (r *Resolver) emitPermissionEvent(ctx context.Context, event types.PermissionEvent) {
	if r.hooks.AfterPermissionChange == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("permission hook panic", errors.New("panic in AfterPermissionChange"), "panic", rec)
		}
	}()
	r.hooks.AfterPermissionChange(ctx, event)
}
