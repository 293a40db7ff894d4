package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// LockUserInput locks an active user on behalf of an administrator.
type LockUserInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Reason    string
	Actor     types.ActorRef
	IPAddress string
	UserAgent string
	Result    *types.User
}

// Type implements gocommand.Message.
func (LockUserInput) Type() string {
	return "command.lockout.lock"
}

// Validate implements gocommand.Message.
func (input LockUserInput) Validate() error {
	if input.UserID == uuid.Nil {
		return ErrUserIDRequired
	}
	return requireActor(input.Actor)
}

// LockUserCommand locks users through the lockout manager.
type LockUserCommand struct {
	manager types.LockoutManager
	guard   scope.Guard
}

// NewLockUserCommand wires the lock handler.
func NewLockUserCommand(manager types.LockoutManager, guard scope.Guard) *LockUserCommand {
	return &LockUserCommand{
		manager: manager,
		guard:   safeScopeGuard(guard),
	}
}

var _ gocommand.Commander[LockUserInput] = (*LockUserCommand)(nil)

// Execute validates and locks the user.
func (c *LockUserCommand) Execute(ctx context.Context, input LockUserInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionLockoutWrite, input.UserID)
	if err != nil {
		return err
	}
	user, err := c.manager.LockUser(ctx, types.LockInput{
		TenantID:  tenantID,
		UserID:    input.UserID,
		Actor:     input.Actor,
		Reason:    strings.TrimSpace(input.Reason),
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return err
	}
	if input.Result != nil && user != nil {
		*input.Result = *user
	}
	return nil
}

// UnlockUserInput unlocks a locked user. Reason is mandatory and lands in
// the unlock history.
type UnlockUserInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Reason    string
	Actor     types.ActorRef
	IPAddress string
	UserAgent string
	Result    *types.UnlockRecord
}

// Type implements gocommand.Message.
func (UnlockUserInput) Type() string {
	return "command.lockout.unlock"
}

// Validate implements gocommand.Message.
func (input UnlockUserInput) Validate() error {
	switch {
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case strings.TrimSpace(input.Reason) == "":
		return ErrUnlockReasonRequired
	default:
		return requireActor(input.Actor)
	}
}

// UnlockUserCommand unlocks users through the lockout manager.
type UnlockUserCommand struct {
	manager types.LockoutManager
	guard   scope.Guard
}

// NewUnlockUserCommand wires the unlock handler.
func NewUnlockUserCommand(manager types.LockoutManager, guard scope.Guard) *UnlockUserCommand {
	return &UnlockUserCommand{
		manager: manager,
		guard:   safeScopeGuard(guard),
	}
}

var _ gocommand.Commander[UnlockUserInput] = (*UnlockUserCommand)(nil)

// Execute validates and unlocks the user.
func (c *UnlockUserCommand) Execute(ctx context.Context, input UnlockUserInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	tenantID, err := c.guard.Enforce(ctx, input.Actor, input.TenantID, types.PolicyActionLockoutWrite, input.UserID)
	if err != nil {
		return err
	}
	record, err := c.manager.UnlockUser(ctx, types.UnlockInput{
		TenantID:  tenantID,
		UserID:    input.UserID,
		Actor:     input.Actor,
		Reason:    strings.TrimSpace(input.Reason),
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return err
	}
	if input.Result != nil && record != nil {
		*input.Result = *record
	}
	return nil
}

// RecordFailedLoginInput wraps types.FailedLoginInput with a result slot.
// The authentication layer calls it, so no actor is involved.
type RecordFailedLoginInput struct {
	types.FailedLoginInput
	Result *types.LoginAttemptResult
}

// RecordFailedLoginCommand counts failed logins and locks at the threshold.
type RecordFailedLoginCommand struct {
	manager types.LockoutManager
}

// NewRecordFailedLoginCommand wires the failed login handler.
func NewRecordFailedLoginCommand(manager types.LockoutManager) *RecordFailedLoginCommand {
	return &RecordFailedLoginCommand{manager: manager}
}

var _ gocommand.Commander[RecordFailedLoginInput] = (*RecordFailedLoginCommand)(nil)

// Execute validates and records the failure.
func (c *RecordFailedLoginCommand) Execute(ctx context.Context, input RecordFailedLoginInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	result, err := c.manager.RecordFailedLogin(ctx, input.FailedLoginInput)
	if err != nil {
		return err
	}
	if input.Result != nil {
		*input.Result = result
	}
	return nil
}

// RecordSuccessfulLoginInput resets the failure counter of an active user.
type RecordSuccessfulLoginInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// Type implements gocommand.Message.
func (RecordSuccessfulLoginInput) Type() string {
	return "command.lockout.successful_login"
}

// Validate implements gocommand.Message.
func (input RecordSuccessfulLoginInput) Validate() error {
	if input.TenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	if input.UserID == uuid.Nil {
		return ErrUserIDRequired
	}
	return nil
}

// RecordSuccessfulLoginCommand zeroes the failure counter.
type RecordSuccessfulLoginCommand struct {
	manager types.LockoutManager
}

// NewRecordSuccessfulLoginCommand wires the successful login handler.
func NewRecordSuccessfulLoginCommand(manager types.LockoutManager) *RecordSuccessfulLoginCommand {
	return &RecordSuccessfulLoginCommand{manager: manager}
}

var _ gocommand.Commander[RecordSuccessfulLoginInput] = (*RecordSuccessfulLoginCommand)(nil)

// Execute validates and resets the counter.
func (c *RecordSuccessfulLoginCommand) Execute(ctx context.Context, input RecordSuccessfulLoginInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	return c.manager.RecordSuccessfulLogin(ctx, input.TenantID, input.UserID)
}
