package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// CreateRoleInput carries data for creating tenant roles.
type CreateRoleInput struct {
	TenantID     uuid.UUID
	Name         string
	Description  string
	IsSystemRole bool
	IsActive     *bool
	Actor        types.ActorRef
	Result       *types.Role
}

// Type implements gocommand.Message.
func (CreateRoleInput) Type() string {
	return "command.role.create"
}

// Validate implements gocommand.Message.
func (input CreateRoleInput) Validate() error {
	return validateRoleMutation(input.Actor, input.Name)
}

// CreateRoleCommand invokes the injected role registry.
type CreateRoleCommand struct {
	registry types.RoleRegistry
	guard    scope.Guard
}

// NewCreateRoleCommand wires a role creation handler.
func NewCreateRoleCommand(registry types.RoleRegistry, guard scope.Guard) *CreateRoleCommand {
	return &CreateRoleCommand{
		registry: registry,
		guard:    safeScopeGuard(guard),
	}
}

var _ gocommand.Commander[CreateRoleInput] = (*CreateRoleCommand)(nil)

// Execute validates and forwards the creation payload to the registry.
func (c *CreateRoleCommand) Execute(ctx context.Context, input CreateRoleInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if input.IsSystemRole && !input.Actor.IsSystemAdmin() && !input.Actor.IsSystem() {
		return types.PermissionDenied()
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionRolesWrite, uuid.Nil)
	if err != nil {
		return err
	}
	role, err := c.registry.CreateRole(ctx, types.RoleMutation{
		TenantID:     tenantID,
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		IsSystemRole: input.IsSystemRole,
		IsActive:     input.IsActive,
		ActorID:      input.Actor.ID,
	})
	if err != nil {
		return err
	}
	if input.Result != nil && role != nil {
		*input.Result = *role
	}
	return nil
}
