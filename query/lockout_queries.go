package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// LockedUsersQuery lists locked accounts, longest locked last.
type LockedUsersQuery struct {
	manager types.LockoutManager
	guard   scope.Guard
}

// NewLockedUsersQuery builds the locked users query.
func NewLockedUsersQuery(manager types.LockoutManager, guard scope.Guard) *LockedUsersQuery {
	return &LockedUsersQuery{
		manager: manager,
		guard:   safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.LockedUserFilter, types.LockedUserPage] = (*LockedUsersQuery)(nil)

// Query forwards to the lockout manager.
func (q *LockedUsersQuery) Query(ctx context.Context, filter types.LockedUserFilter) (types.LockedUserPage, error) {
	if q.manager == nil {
		return types.LockedUserPage{}, types.ErrMissingLockoutManager
	}
	if err := filter.Validate(); err != nil {
		return types.LockedUserPage{}, err
	}
	tenantID, err := q.guard.Enforce(ctx, filter.Actor, filter.TenantID, types.PolicyActionLockoutRead, uuid.Nil)
	if err != nil {
		return types.LockedUserPage{}, err
	}
	filter.TenantID = tenantID
	return q.manager.ListLocked(ctx, filter)
}

// UnlockHistoryQuery lists unlock history rows.
type UnlockHistoryQuery struct {
	manager types.LockoutManager
	guard   scope.Guard
}

// NewUnlockHistoryQuery builds the history query.
func NewUnlockHistoryQuery(manager types.LockoutManager, guard scope.Guard) *UnlockHistoryQuery {
	return &UnlockHistoryQuery{
		manager: manager,
		guard:   safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.UnlockHistoryFilter, types.UnlockHistoryPage] = (*UnlockHistoryQuery)(nil)

// Query forwards to the lockout manager.
func (q *UnlockHistoryQuery) Query(ctx context.Context, filter types.UnlockHistoryFilter) (types.UnlockHistoryPage, error) {
	if q.manager == nil {
		return types.UnlockHistoryPage{}, types.ErrMissingLockoutManager
	}
	if err := filter.Validate(); err != nil {
		return types.UnlockHistoryPage{}, err
	}
	tenantID, err := q.guard.Enforce(ctx, filter.Actor, filter.TenantID, types.PolicyActionLockoutRead, filter.UserID)
	if err != nil {
		return types.UnlockHistoryPage{}, err
	}
	filter.TenantID = tenantID
	return q.manager.ListUnlockHistory(ctx, filter)
}

// LockStatusInput asks whether a user is locked. The authentication layer
// runs it before verifying credentials.
type LockStatusInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// Type implements gocommand.Message.
func (LockStatusInput) Type() string {
	return "query.lockout.status"
}

// Validate implements gocommand.Message.
func (input LockStatusInput) Validate() error {
	if input.TenantID == uuid.Nil {
		return types.ErrTenantIDRequired
	}
	if input.UserID == uuid.Nil {
		return types.ErrUserIDRequired
	}
	return nil
}

// LockStatusQuery reports whether a user is locked.
type LockStatusQuery struct {
	manager types.LockoutManager
}

// NewLockStatusQuery builds the lock status query.
func NewLockStatusQuery(manager types.LockoutManager) *LockStatusQuery {
	return &LockStatusQuery{manager: manager}
}

var _ gocommand.Querier[LockStatusInput, bool] = (*LockStatusQuery)(nil)

// Query forwards to the lockout manager.
func (q *LockStatusQuery) Query(ctx context.Context, input LockStatusInput) (bool, error) {
	if q.manager == nil {
		return false, types.ErrMissingLockoutManager
	}
	if err := input.Validate(); err != nil {
		return false, err
	}
	return q.manager.IsLocked(ctx, input.TenantID, input.UserID)
}
