package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// EffectivePermissionsInput identifies the (tenant, user, page) tuple.
type EffectivePermissionsInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	PageID   uuid.UUID
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (EffectivePermissionsInput) Type() string {
	return "query.permission.effective"
}

// Validate implements gocommand.Message.
func (input EffectivePermissionsInput) Validate() error {
	switch {
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	case input.PageID == uuid.Nil:
		return errPageIDRequired
	default:
		return requireActor(input.Actor)
	}
}

// EffectivePermissionsQuery resolves the five flags for a tuple. Users may
// resolve their own permissions; anyone else needs permissions:read.
type EffectivePermissionsQuery struct {
	resolver types.PermissionResolver
	guard    scope.Guard
}

// NewEffectivePermissionsQuery builds the resolution query.
func NewEffectivePermissionsQuery(resolver types.PermissionResolver, guard scope.Guard) *EffectivePermissionsQuery {
	return &EffectivePermissionsQuery{
		resolver: resolver,
		guard:    safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[EffectivePermissionsInput, types.PermissionFlags] = (*EffectivePermissionsQuery)(nil)

// Query resolves the effective flags.
func (q *EffectivePermissionsQuery) Query(ctx context.Context, input EffectivePermissionsInput) (types.PermissionFlags, error) {
	if q.resolver == nil {
		return types.PermissionFlags{}, types.ErrMissingResolver
	}
	if err := input.Validate(); err != nil {
		return types.PermissionFlags{}, err
	}
	tenantID, err := q.guard.Enforce(ctx, input.Actor, input.TenantID, selfOr(input.Actor, input.UserID, types.PolicyActionPermissionsRead), input.UserID)
	if err != nil {
		return types.PermissionFlags{}, err
	}
	return q.resolver.ResolveEffective(ctx, tenantID, input.UserID, input.PageID)
}

// CheckPermissionInput asks whether one action is allowed.
type CheckPermissionInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	PageID   uuid.UUID
	Action   string
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (CheckPermissionInput) Type() string {
	return "query.permission.check"
}

// Validate implements gocommand.Message.
func (input CheckPermissionInput) Validate() error {
	if _, ok := types.ParseAction(input.Action); !ok {
		return types.Validation("unknown action", map[string]any{"action": input.Action})
	}
	return EffectivePermissionsInput{
		TenantID: input.TenantID,
		UserID:   input.UserID,
		PageID:   input.PageID,
		Actor:    input.Actor,
	}.Validate()
}

// CheckResult is the answer to a permission check.
type CheckResult struct {
	Allowed bool `json:"allowed"`
}

// CheckPermissionQuery answers single-action checks.
type CheckPermissionQuery struct {
	resolver types.PermissionResolver
	guard    scope.Guard
}

// NewCheckPermissionQuery builds the check query.
func NewCheckPermissionQuery(resolver types.PermissionResolver, guard scope.Guard) *CheckPermissionQuery {
	return &CheckPermissionQuery{
		resolver: resolver,
		guard:    safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[CheckPermissionInput, CheckResult] = (*CheckPermissionQuery)(nil)

// Query runs the check.
func (q *CheckPermissionQuery) Query(ctx context.Context, input CheckPermissionInput) (CheckResult, error) {
	if q.resolver == nil {
		return CheckResult{}, types.ErrMissingResolver
	}
	if err := input.Validate(); err != nil {
		return CheckResult{}, err
	}
	tenantID, err := q.guard.Enforce(ctx, input.Actor, input.TenantID, selfOr(input.Actor, input.UserID, types.PolicyActionPermissionsRead), input.UserID)
	if err != nil {
		return CheckResult{}, err
	}
	action, _ := types.ParseAction(input.Action)
	allowed, err := q.resolver.Check(ctx, tenantID, input.UserID, input.PageID, action)
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{Allowed: allowed}, nil
}

// RoleMatrixInput selects the tenant and system of the role matrix.
type RoleMatrixInput struct {
	TenantID uuid.UUID
	SystemID uuid.UUID
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (RoleMatrixInput) Type() string {
	return "query.permission.role_matrix"
}

// Validate implements gocommand.Message.
func (input RoleMatrixInput) Validate() error {
	if input.SystemID == uuid.Nil {
		return errSystemIDRequired
	}
	return requireActor(input.Actor)
}

// RoleMatrixQuery assembles the roles x pages grid.
type RoleMatrixQuery struct {
	matrix types.MatrixAssembler
	guard  scope.Guard
}

// NewRoleMatrixQuery builds the role matrix query.
func NewRoleMatrixQuery(matrix types.MatrixAssembler, guard scope.Guard) *RoleMatrixQuery {
	return &RoleMatrixQuery{
		matrix: matrix,
		guard:  safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[RoleMatrixInput, types.RoleMatrix] = (*RoleMatrixQuery)(nil)

// Query assembles the matrix.
func (q *RoleMatrixQuery) Query(ctx context.Context, input RoleMatrixInput) (types.RoleMatrix, error) {
	if q.matrix == nil {
		return types.RoleMatrix{}, types.ErrMissingResolver
	}
	if err := input.Validate(); err != nil {
		return types.RoleMatrix{}, err
	}
	tenantID, err := q.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionPermissionsRead, input.SystemID)
	if err != nil {
		return types.RoleMatrix{}, err
	}
	return q.matrix.AssembleRoleMatrix(ctx, tenantID, input.SystemID)
}

// UserMatrixInput selects the user matrix.
type UserMatrixInput struct {
	TenantID uuid.UUID
	SystemID uuid.UUID
	UserID   uuid.UUID
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (UserMatrixInput) Type() string {
	return "query.permission.user_matrix"
}

// Validate implements gocommand.Message.
func (input UserMatrixInput) Validate() error {
	switch {
	case input.SystemID == uuid.Nil:
		return errSystemIDRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	default:
		return requireActor(input.Actor)
	}
}

// UserMatrixQuery assembles override and role default layers for a user.
type UserMatrixQuery struct {
	matrix types.MatrixAssembler
	guard  scope.Guard
}

// NewUserMatrixQuery builds the user matrix query.
func NewUserMatrixQuery(matrix types.MatrixAssembler, guard scope.Guard) *UserMatrixQuery {
	return &UserMatrixQuery{
		matrix: matrix,
		guard:  safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[UserMatrixInput, types.UserMatrix] = (*UserMatrixQuery)(nil)

// Query assembles the matrix.
func (q *UserMatrixQuery) Query(ctx context.Context, input UserMatrixInput) (types.UserMatrix, error) {
	if q.matrix == nil {
		return types.UserMatrix{}, types.ErrMissingResolver
	}
	if err := input.Validate(); err != nil {
		return types.UserMatrix{}, err
	}
	tenantID, err := q.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionPermissionsRead, input.UserID)
	if err != nil {
		return types.UserMatrix{}, err
	}
	return q.matrix.AssembleUserMatrix(ctx, tenantID, input.SystemID, input.UserID)
}
