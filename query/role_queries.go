package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// RoleListQuery lists tenant roles for admin surfaces.
type RoleListQuery struct {
	registry types.RoleRegistry
	guard    scope.Guard
}

// NewRoleListQuery builds the list query.
func NewRoleListQuery(registry types.RoleRegistry, guard scope.Guard) *RoleListQuery {
	return &RoleListQuery{
		registry: registry,
		guard:    safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.RoleFilter, types.RolePage] = (*RoleListQuery)(nil)

// Query forwards to the registry.
func (q *RoleListQuery) Query(ctx context.Context, filter types.RoleFilter) (types.RolePage, error) {
	if q.registry == nil {
		return types.RolePage{}, types.ErrMissingRoleRegistry
	}
	if err := filter.Validate(); err != nil {
		return types.RolePage{}, err
	}
	tenantID, err := q.guard.Enforce(ctx, filter.Actor, filter.TenantID, types.PolicyActionRolesRead, uuid.Nil)
	if err != nil {
		return types.RolePage{}, err
	}
	filter.TenantID = tenantID
	return q.registry.ListRoles(ctx, filter)
}

// RoleDetailInput fetches a single role by ID.
type RoleDetailInput struct {
	TenantID uuid.UUID
	RoleID   uuid.UUID
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (RoleDetailInput) Type() string {
	return "query.role.detail"
}

// Validate implements gocommand.Message.
func (input RoleDetailInput) Validate() error {
	if input.RoleID == uuid.Nil {
		return errRoleIDRequired
	}
	return requireActor(input.Actor)
}

// RoleDetailQuery loads one role with its user count.
type RoleDetailQuery struct {
	registry types.RoleRegistry
	guard    scope.Guard
}

// NewRoleDetailQuery constructs the detail query.
func NewRoleDetailQuery(registry types.RoleRegistry, guard scope.Guard) *RoleDetailQuery {
	return &RoleDetailQuery{
		registry: registry,
		guard:    safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[RoleDetailInput, *types.Role] = (*RoleDetailQuery)(nil)

// Query fetches role detail.
func (q *RoleDetailQuery) Query(ctx context.Context, input RoleDetailInput) (*types.Role, error) {
	if q.registry == nil {
		return nil, types.ErrMissingRoleRegistry
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	tenantID, err := q.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionRolesRead, input.RoleID)
	if err != nil {
		return nil, err
	}
	return q.registry.GetRole(ctx, input.RoleID, tenantID)
}
