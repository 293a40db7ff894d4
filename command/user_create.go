package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// CreateUserInput creates a user bound to a tenant role.
type CreateUserInput struct {
	TenantID uuid.UUID
	RoleID   uuid.UUID
	Username string
	Email    string
	Status   types.UserStatus
	Actor    types.ActorRef
	Result   *types.User
}

// Type implements gocommand.Message.
func (CreateUserInput) Type() string {
	return "command.user.create"
}

// Validate implements gocommand.Message.
func (input CreateUserInput) Validate() error {
	switch {
	case strings.TrimSpace(input.Username) == "":
		return ErrUsernameRequired
	case input.RoleID == uuid.Nil:
		return ErrRoleIDRequired
	default:
		return requireActor(input.Actor)
	}
}

// CreateUserCommand inserts users through the account repository.
type CreateUserCommand struct {
	users types.UserRepository
	guard scope.Guard
}

// NewCreateUserCommand wires the create handler.
func NewCreateUserCommand(users types.UserRepository, guard scope.Guard) *CreateUserCommand {
	return &CreateUserCommand{
		users: users,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Commander[CreateUserInput] = (*CreateUserCommand)(nil)

// Execute validates and creates the user.
func (c *CreateUserCommand) Execute(ctx context.Context, input CreateUserInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionUsersWrite, uuid.Nil)
	if err != nil {
		return err
	}
	user, err := c.users.CreateUser(ctx, types.UserInput{
		TenantID: tenantID,
		RoleID:   input.RoleID,
		Username: strings.TrimSpace(input.Username),
		Email:    strings.TrimSpace(input.Email),
		Status:   input.Status,
		Actor:    input.Actor,
	})
	if err != nil {
		return err
	}
	if input.Result != nil && user != nil {
		*input.Result = *user
	}
	return nil
}
