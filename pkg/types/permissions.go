package types

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action names one of the five CRUD-style flags stored on a permission row.
// Adding an action requires a schema and resolver change.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
)

// Actions lists every supported action in storage order.
var Actions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionExport}

// ParseAction normalizes an action name. The boolean is false for unknown
// actions.
func ParseAction(value string) (Action, bool) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	switch action {
	case ActionView, ActionCreate, ActionEdit, ActionDelete, ActionExport:
		return action, true
	}
	return "", false
}

// PermissionFlags holds the five booleans governing a page.
type PermissionFlags struct {
	CanView   bool `json:"can_view"`
	CanCreate bool `json:"can_create"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanExport bool `json:"can_export"`
}

// Allows reports whether the flag backing action is set.
func (f PermissionFlags) Allows(action Action) bool {
	switch action {
	case ActionView:
		return f.CanView
	case ActionCreate:
		return f.CanCreate
	case ActionEdit:
		return f.CanEdit
	case ActionDelete:
		return f.CanDelete
	case ActionExport:
		return f.CanExport
	}
	return false
}

// Any reports whether at least one flag is set.
func (f PermissionFlags) Any() bool {
	return f.CanView || f.CanCreate || f.CanEdit || f.CanDelete || f.CanExport
}

// Normalize enforces the view invariant: any non-view action implies view.
func (f PermissionFlags) Normalize() PermissionFlags {
	if f.CanCreate || f.CanEdit || f.CanDelete || f.CanExport {
		f.CanView = true
	}
	return f
}

// Consistent reports whether the row honours the view invariant.
func (f PermissionFlags) Consistent() bool {
	return f.CanView || !(f.CanCreate || f.CanEdit || f.CanDelete || f.CanExport)
}

// PermissionEdit is a tri-state patch for one page cell. Nil flags keep the
// base value; Reset removes the stored row.
type PermissionEdit struct {
	PageID    uuid.UUID `json:"page_id"`
	CanView   *bool     `json:"can_view,omitempty"`
	CanCreate *bool     `json:"can_create,omitempty"`
	CanEdit   *bool     `json:"can_edit,omitempty"`
	CanDelete *bool     `json:"can_delete,omitempty"`
	CanExport *bool     `json:"can_export,omitempty"`
	Reset     bool      `json:"reset,omitempty"`
}

// FullEdit builds an edit that sets every flag explicitly.
func FullEdit(pageID uuid.UUID, flags PermissionFlags) PermissionEdit {
	return PermissionEdit{
		PageID:    pageID,
		CanView:   boolPtr(flags.CanView),
		CanCreate: boolPtr(flags.CanCreate),
		CanEdit:   boolPtr(flags.CanEdit),
		CanDelete: boolPtr(flags.CanDelete),
		CanExport: boolPtr(flags.CanExport),
	}
}

// Validate rejects an edit that revokes view while granting another flag in
// the same cell, since no row satisfies both.
func (e PermissionEdit) Validate() error {
	if e.Reset || e.CanView == nil || *e.CanView {
		return nil
	}
	granted := []struct {
		name string
		flag *bool
	}{
		{"can_create", e.CanCreate},
		{"can_edit", e.CanEdit},
		{"can_delete", e.CanDelete},
		{"can_export", e.CanExport},
	}
	for _, g := range granted {
		if g.flag != nil && *g.flag {
			return Validation("can_view false contradicts granted flag", map[string]any{
				"page_id": e.PageID.String(),
				"flag":    g.name,
			})
		}
	}
	return nil
}

// Apply patches base with the edit and returns a row satisfying the view
// invariant. Revoking view clears every other flag; granting any other flag
// forces view on.
func (e PermissionEdit) Apply(base PermissionFlags) PermissionFlags {
	out := base
	if e.CanCreate != nil {
		out.CanCreate = *e.CanCreate
	}
	if e.CanEdit != nil {
		out.CanEdit = *e.CanEdit
	}
	if e.CanDelete != nil {
		out.CanDelete = *e.CanDelete
	}
	if e.CanExport != nil {
		out.CanExport = *e.CanExport
	}
	if e.CanView != nil {
		out.CanView = *e.CanView
		if !out.CanView {
			return PermissionFlags{}
		}
	}
	return out.Normalize()
}

func boolPtr(v bool) *bool {
	return &v
}

// RolePermission is the default permission row for a role on a page.
type RolePermission struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	RoleID   uuid.UUID `json:"role_id"`
	PageID   uuid.UUID `json:"page_id"`
	PermissionFlags
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPermissionOverride supersedes the role default for one user and page.
// The stored flags are a whole-row replacement.
type UserPermissionOverride struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	UserID   uuid.UUID `json:"user_id"`
	PageID   uuid.UUID `json:"page_id"`
	PermissionFlags
	CustomPermissions map[string]any `json:"custom_permissions,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// RolePermissionBatch carries the edits saved from the role matrix screen.
type RolePermissionBatch struct {
	TenantID  uuid.UUID
	RoleID    uuid.UUID
	Edits     []PermissionEdit
	Actor     ActorRef
	IPAddress string
	UserAgent string
}

// UserPermissionBatch carries the edits saved from the user matrix screen.
type UserPermissionBatch struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Edits     []PermissionEdit
	Actor     ActorRef
	IPAddress string
	UserAgent string
}

// PermissionChangeResult summarizes a committed batch.
type PermissionChangeResult struct {
	Upserted int         `json:"upserted"`
	Removed  int         `json:"removed"`
	PageIDs  []uuid.UUID `json:"page_ids"`
}

// MatrixKey builds the "roleId-pageId" key used by RoleMatrix.Permissions.
func MatrixKey(roleID, pageID uuid.UUID) string {
	return roleID.String() + "-" + pageID.String()
}

// RoleMatrix is the full roles x pages grid for one tenant and system.
// Missing cells are absent from Permissions and mean all-false.
type RoleMatrix struct {
	TenantID    uuid.UUID                 `json:"tenant_id"`
	SystemID    uuid.UUID                 `json:"system_id"`
	Roles       []Role                    `json:"roles"`
	Pages       []Page                    `json:"pages"`
	Permissions map[string]RolePermission `json:"permissions"`
}

// UserMatrix returns the override layer and the role default layer side by
// side for one user.
type UserMatrix struct {
	TenantID     uuid.UUID                            `json:"tenant_id"`
	SystemID     uuid.UUID                            `json:"system_id"`
	User         User                                 `json:"user"`
	Pages        []Page                               `json:"pages"`
	Permissions  map[uuid.UUID]UserPermissionOverride `json:"permissions"`
	RoleDefaults map[uuid.UUID]RolePermission         `json:"role_defaults"`
}

// PermissionStore persists role defaults and user overrides. Apply methods
// run inside the caller's transaction.
type PermissionStore interface {
	GetRolePermission(ctx context.Context, roleID, pageID uuid.UUID) (*RolePermission, error)
	GetOverride(ctx context.Context, userID, pageID uuid.UUID) (*UserPermissionOverride, error)
	ListRolePermissions(ctx context.Context, roleIDs, pageIDs []uuid.UUID) ([]RolePermission, error)
	ListOverrides(ctx context.Context, userID uuid.UUID, pageIDs []uuid.UUID) ([]UserPermissionOverride, error)
}

// PermissionResolver decides effective permissions.
type PermissionResolver interface {
	ResolveEffective(ctx context.Context, tenantID, userID, pageID uuid.UUID) (PermissionFlags, error)
	Check(ctx context.Context, tenantID, userID, pageID uuid.UUID, action Action) (bool, error)
	Authorize(ctx context.Context, tenantID, userID, pageID uuid.UUID, action Action) error
}

// MatrixAssembler builds the admin matrices and applies batched edits.
type MatrixAssembler interface {
	AssembleRoleMatrix(ctx context.Context, tenantID, systemID uuid.UUID) (RoleMatrix, error)
	AssembleUserMatrix(ctx context.Context, tenantID, systemID, userID uuid.UUID) (UserMatrix, error)
	SetRolePermissions(ctx context.Context, batch RolePermissionBatch) (PermissionChangeResult, error)
	SetUserPermissions(ctx context.Context, batch UserPermissionBatch) (PermissionChangeResult, error)
}
