package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// ChangeUserRoleInput moves a user to another role of the same tenant.
type ChangeUserRoleInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	RoleID   uuid.UUID
	Actor    types.ActorRef
	Result   *types.User
}

// Type implements gocommand.Message.
func (ChangeUserRoleInput) Type() string {
	return "command.user.role.change"
}

// Validate implements gocommand.Message.
func (input ChangeUserRoleInput) Validate() error {
	switch {
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.RoleID == uuid.Nil:
		return ErrRoleIDRequired
	default:
		return requireActor(input.Actor)
	}
}

// ChangeUserRoleCommand reassigns users between roles.
type ChangeUserRoleCommand struct {
	users types.UserRepository
	guard scope.Guard
}

// NewChangeUserRoleCommand wires the role change handler.
func NewChangeUserRoleCommand(users types.UserRepository, guard scope.Guard) *ChangeUserRoleCommand {
	return &ChangeUserRoleCommand{
		users: users,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Commander[ChangeUserRoleInput] = (*ChangeUserRoleCommand)(nil)

// Execute validates and applies the role change.
func (c *ChangeUserRoleCommand) Execute(ctx context.Context, input ChangeUserRoleInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionUsersWrite, input.UserID)
	if err != nil {
		return err
	}
	user, err := c.users.ChangeRole(ctx, tenantID, input.UserID, input.RoleID, input.Actor)
	if err != nil {
		return err
	}
	if input.Result != nil && user != nil {
		*input.Result = *user
	}
	return nil
}

// SetUserStatusInput activates or deactivates a user. Lock and unlock go
// through the lockout commands.
type SetUserStatusInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Status   types.UserStatus
	Actor    types.ActorRef
	Result   *types.User
}

// Type implements gocommand.Message.
func (SetUserStatusInput) Type() string {
	return "command.user.status.set"
}

// Validate implements gocommand.Message.
func (input SetUserStatusInput) Validate() error {
	switch {
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.Status == "":
		return ErrStatusRequired
	default:
		return requireActor(input.Actor)
	}
}

// SetUserStatusCommand applies admin status changes via the status policy.
type SetUserStatusCommand struct {
	users  types.UserRepository
	guard  scope.Guard
	logger types.Logger
}

// NewSetUserStatusCommand wires the status handler.
func NewSetUserStatusCommand(users types.UserRepository, guard scope.Guard, logger types.Logger) *SetUserStatusCommand {
	return &SetUserStatusCommand{
		users:  users,
		guard:  safeScopeGuard(guard),
		logger: safeLogger(logger),
	}
}

var _ gocommand.Commander[SetUserStatusInput] = (*SetUserStatusCommand)(nil)

// Execute validates and applies the status change.
func (c *SetUserStatusCommand) Execute(ctx context.Context, input SetUserStatusInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionUsersWrite, input.UserID)
	if err != nil {
		return err
	}
	user, err := c.users.SetStatus(ctx, tenantID, input.UserID, types.ParseUserStatus(string(input.Status)), input.Actor)
	if err != nil {
		return err
	}
	c.logger.Info("user status changed", "tenant_id", tenantID, "user_id", input.UserID, "status", user.Status)
	if input.Result != nil && user != nil {
		*input.Result = *user
	}
	return nil
}
