package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// DeleteRoleInput identifies the role to remove.
type DeleteRoleInput struct {
	TenantID uuid.UUID
	RoleID   uuid.UUID
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (DeleteRoleInput) Type() string {
	return "command.role.delete"
}

// Validate implements gocommand.Message.
func (input DeleteRoleInput) Validate() error {
	if input.RoleID == uuid.Nil {
		return ErrRoleIDRequired
	}
	return requireActor(input.Actor)
}

// DeleteRoleCommand removes custom roles. System roles and roles with users
// are rejected by the registry.
type DeleteRoleCommand struct {
	registry types.RoleRegistry
	guard    scope.Guard
}

// NewDeleteRoleCommand wires the delete handler.
func NewDeleteRoleCommand(registry types.RoleRegistry, guard scope.Guard) *DeleteRoleCommand {
	return &DeleteRoleCommand{
		registry: registry,
		guard:    safeScopeGuard(guard),
	}
}

var _ gocommand.Commander[DeleteRoleInput] = (*DeleteRoleCommand)(nil)

// Execute validates and deletes the role.
func (c *DeleteRoleCommand) Execute(ctx context.Context, input DeleteRoleInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionRolesDelete, input.RoleID)
	if err != nil {
		return err
	}
	return c.registry.DeleteRole(ctx, input.RoleID, tenantID, input.Actor)
}
