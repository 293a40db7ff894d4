package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// UserListQuery lists tenant users with role and status filters.
type UserListQuery struct {
	users types.UserRepository
	guard scope.Guard
}

// NewUserListQuery builds the list query.
func NewUserListQuery(users types.UserRepository, guard scope.Guard) *UserListQuery {
	return &UserListQuery{
		users: users,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.UserFilter, types.UserPage] = (*UserListQuery)(nil)

// Query forwards to the user repository.
func (q *UserListQuery) Query(ctx context.Context, filter types.UserFilter) (types.UserPage, error) {
	if q.users == nil {
		return types.UserPage{}, types.ErrMissingAccounts
	}
	if err := filter.Validate(); err != nil {
		return types.UserPage{}, err
	}
	tenantID, err := q.guard.Enforce(ctx, filter.Actor, filter.TenantID, types.PolicyActionUsersRead, uuid.Nil)
	if err != nil {
		return types.UserPage{}, err
	}
	filter.TenantID = tenantID
	return q.users.ListUsers(ctx, filter)
}

// UserDetailInput fetches one user.
type UserDetailInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (UserDetailInput) Type() string {
	return "query.user.detail"
}

// Validate implements gocommand.Message.
func (input UserDetailInput) Validate() error {
	if input.UserID == uuid.Nil {
		return types.ErrUserIDRequired
	}
	return requireActor(input.Actor)
}

// UserDetailQuery loads one user. Users may always read themselves.
type UserDetailQuery struct {
	users types.UserRepository
	guard scope.Guard
}

// NewUserDetailQuery constructs the detail query.
func NewUserDetailQuery(users types.UserRepository, guard scope.Guard) *UserDetailQuery {
	return &UserDetailQuery{
		users: users,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[UserDetailInput, *types.User] = (*UserDetailQuery)(nil)

// Query fetches the user.
func (q *UserDetailQuery) Query(ctx context.Context, input UserDetailInput) (*types.User, error) {
	if q.users == nil {
		return nil, types.ErrMissingAccounts
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	tenantID, err := q.guard.Enforce(ctx, input.Actor, input.TenantID, selfOr(input.Actor, input.UserID, types.PolicyActionUsersRead), input.UserID)
	if err != nil {
		return nil, err
	}
	return q.users.GetUser(ctx, tenantID, input.UserID)
}

// selfOr skips the policy check when the actor reads its own data.
func selfOr(actor types.ActorRef, userID uuid.UUID, action types.PolicyAction) types.PolicyAction {
	if actor.ID == userID {
		return ""
	}
	return action
}
