package command

import (
	"github.com/goliatone/go-permissions/pkg/types"
)

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = types.ErrActorRequired
	// ErrTenantIDRequired indicates the command omitted the tenant.
	ErrTenantIDRequired = types.ErrTenantIDRequired
	// ErrUserIDRequired occurs when user commands omit the user.
	ErrUserIDRequired = types.ErrUserIDRequired
	// ErrRoleIDRequired signals the role ID was missing.
	ErrRoleIDRequired = types.Validation("role id required", nil)
	// ErrRoleNameRequired occurs when a role command omits the role name.
	ErrRoleNameRequired = types.Validation("role name required", nil)
	// ErrEditsRequired occurs when a permission batch carries no edits.
	ErrEditsRequired = types.Validation("permission edits required", nil)
	// ErrUnlockReasonRequired occurs when an unlock omits the reason.
	ErrUnlockReasonRequired = types.Validation("unlock reason required", nil)
	// ErrStatusRequired occurs when a status change omits the target.
	ErrStatusRequired = types.Validation("target status required", nil)
	// ErrUsernameRequired occurs when a user payload lacks a username.
	ErrUsernameRequired = types.Validation("username required", nil)
	// ErrNameRequired occurs when catalog payloads lack a name.
	ErrNameRequired = types.Validation("name required", nil)
	// ErrSystemIDRequired occurs when a command omits the system.
	ErrSystemIDRequired = types.Validation("system id required", nil)
	// ErrRouteRequired occurs when a page payload lacks its route.
	ErrRouteRequired = types.Validation("page route required", nil)
)
