package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// UpdateRoleInput carries the role fields an administrator may change.
// Empty names keep the stored name.
type UpdateRoleInput struct {
	TenantID    uuid.UUID
	RoleID      uuid.UUID
	Name        string
	Description string
	IsActive    *bool
	Actor       types.ActorRef
	Result      *types.Role
}

// Type implements gocommand.Message.
func (UpdateRoleInput) Type() string {
	return "command.role.update"
}

// Validate implements gocommand.Message.
func (input UpdateRoleInput) Validate() error {
	if input.RoleID == uuid.Nil {
		return ErrRoleIDRequired
	}
	return requireActor(input.Actor)
}

// UpdateRoleCommand mutates custom roles.
type UpdateRoleCommand struct {
	registry types.RoleRegistry
	guard    scope.Guard
}

// NewUpdateRoleCommand wires the update handler.
func NewUpdateRoleCommand(registry types.RoleRegistry, guard scope.Guard) *UpdateRoleCommand {
	return &UpdateRoleCommand{
		registry: registry,
		guard:    safeScopeGuard(guard),
	}
}

var _ gocommand.Commander[UpdateRoleInput] = (*UpdateRoleCommand)(nil)

// Execute validates and forwards the payload to the registry.
func (c *UpdateRoleCommand) Execute(ctx context.Context, input UpdateRoleInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionRolesWrite, input.RoleID)
	if err != nil {
		return err
	}
	role, err := c.registry.UpdateRole(ctx, input.RoleID, types.RoleMutation{
		TenantID:    tenantID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		IsActive:    input.IsActive,
		ActorID:     input.Actor.ID,
	})
	if err != nil {
		return err
	}
	if input.Result != nil && role != nil {
		*input.Result = *role
	}
	return nil
}
