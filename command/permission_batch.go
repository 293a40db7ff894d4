package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// SetRolePermissionsInput carries the edits saved from the role matrix.
type SetRolePermissionsInput struct {
	TenantID  uuid.UUID
	RoleID    uuid.UUID
	Edits     []types.PermissionEdit
	Actor     types.ActorRef
	IPAddress string
	UserAgent string
	Result    *types.PermissionChangeResult
}

// Type implements gocommand.Message.
func (SetRolePermissionsInput) Type() string {
	return "command.permission.role.set"
}

// Validate implements gocommand.Message.
func (input SetRolePermissionsInput) Validate() error {
	switch {
	case input.RoleID == uuid.Nil:
		return ErrRoleIDRequired
	case len(input.Edits) == 0:
		return ErrEditsRequired
	default:
		return requireActor(input.Actor)
	}
}

// SetRolePermissionsCommand applies one role matrix batch atomically.
type SetRolePermissionsCommand struct {
	matrix types.MatrixAssembler
	guard  scope.Guard
	logger types.Logger
}

// NewSetRolePermissionsCommand wires the role batch handler.
func NewSetRolePermissionsCommand(matrix types.MatrixAssembler, guard scope.Guard, logger types.Logger) *SetRolePermissionsCommand {
	return &SetRolePermissionsCommand{
		matrix: matrix,
		guard:  safeScopeGuard(guard),
		logger: safeLogger(logger),
	}
}

var _ gocommand.Commander[SetRolePermissionsInput] = (*SetRolePermissionsCommand)(nil)

// Execute authorizes the actor and forwards the batch.
func (c *SetRolePermissionsCommand) Execute(ctx context.Context, input SetRolePermissionsInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionPermissionsWrite, input.RoleID)
	if err != nil {
		return err
	}
	result, err := c.matrix.SetRolePermissions(ctx, types.RolePermissionBatch{
		TenantID:  tenantID,
		RoleID:    input.RoleID,
		Edits:     input.Edits,
		Actor:     input.Actor,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return err
	}
	c.logger.Info("role permissions saved",
		"tenant_id", tenantID,
		"role_id", input.RoleID,
		"upserted", result.Upserted,
		"removed", result.Removed,
	)
	if input.Result != nil {
		*input.Result = result
	}
	return nil
}

// SetUserPermissionsInput carries the edits saved from the user matrix.
type SetUserPermissionsInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Edits     []types.PermissionEdit
	Actor     types.ActorRef
	IPAddress string
	UserAgent string
	Result    *types.PermissionChangeResult
}

// Type implements gocommand.Message.
func (SetUserPermissionsInput) Type() string {
	return "command.permission.user.set"
}

// Validate implements gocommand.Message.
func (input SetUserPermissionsInput) Validate() error {
	switch {
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case len(input.Edits) == 0:
		return ErrEditsRequired
	default:
		return requireActor(input.Actor)
	}
}

// SetUserPermissionsCommand applies one user override batch atomically.
type SetUserPermissionsCommand struct {
	matrix types.MatrixAssembler
	guard  scope.Guard
	logger types.Logger
}

// NewSetUserPermissionsCommand wires the user batch handler.
func NewSetUserPermissionsCommand(matrix types.MatrixAssembler, guard scope.Guard, logger types.Logger) *SetUserPermissionsCommand {
	return &SetUserPermissionsCommand{
		matrix: matrix,
		guard:  safeScopeGuard(guard),
		logger: safeLogger(logger),
	}
}

var _ gocommand.Commander[SetUserPermissionsInput] = (*SetUserPermissionsCommand)(nil)

// Execute authorizes the actor and forwards the batch.
func (c *SetUserPermissionsCommand) Execute(ctx context.Context, input SetUserPermissionsInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionPermissionsWrite, input.UserID)
	if err != nil {
		return err
	}
	result, err := c.matrix.SetUserPermissions(ctx, types.UserPermissionBatch{
		TenantID:  tenantID,
		UserID:    input.UserID,
		Edits:     input.Edits,
		Actor:     input.Actor,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return err
	}
	c.logger.Info("user permissions saved",
		"tenant_id", tenantID,
		"user_id", input.UserID,
		"upserted", result.Upserted,
		"removed", result.Removed,
	)
	if input.Result != nil {
		*input.Result = result
	}
	return nil
}
