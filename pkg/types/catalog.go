package types

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TenantStatus enumerates the tenant lifecycle states.
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

// Valid reports whether the status is a known tenant status.
func (s TenantStatus) Valid() bool {
	return s == TenantStatusActive || s == TenantStatusInactive
}

// Tenant is a municipality/authority, the top-level isolation boundary.
type Tenant struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsActive reports whether the tenant participates in the active path.
func (t Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// System is a pluggable module containing pages, activatable per tenant.
type System struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TenantSystem records whether a system is activated for a tenant.
type TenantSystem struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	SystemID  uuid.UUID `json:"system_id"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is the unit of permission granularity inside a system.
type Page struct {
	ID        uuid.UUID `json:"id"`
	SystemID  uuid.UUID `json:"system_id"`
	Name      string    `json:"name"`
	Route     string    `json:"route"`
	SortOrder int       `json:"sort_order"`
}

// TenantInput creates a tenant.
type TenantInput struct {
	ID     uuid.UUID
	Name   string
	Status TenantStatus
	Actor  ActorRef
}

// SystemInput creates a system.
type SystemInput struct {
	ID       uuid.UUID
	Name     string
	IsActive bool
	Actor    ActorRef
}

// PageInput creates a page under a system.
type PageInput struct {
	ID        uuid.UUID
	SystemID  uuid.UUID
	Name      string
	Route     string
	SortOrder int
	Actor     ActorRef
}

// Catalog exposes tenants, systems, tenant activation and pages.
type Catalog interface {
	CreateTenant(ctx context.Context, input TenantInput) (*Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error)
	SetTenantStatus(ctx context.Context, id uuid.UUID, status TenantStatus) (*Tenant, error)
	CreateSystem(ctx context.Context, input SystemInput) (*System, error)
	GetSystem(ctx context.Context, id uuid.UUID) (*System, error)
	SetSystemActive(ctx context.Context, id uuid.UUID, active bool) (*System, error)
	SetTenantSystem(ctx context.Context, tenantID, systemID uuid.UUID, active bool) (*TenantSystem, error)
	SystemActiveForTenant(ctx context.Context, tenantID, systemID uuid.UUID) (bool, error)
	CreatePage(ctx context.Context, input PageInput) (*Page, error)
	GetPage(ctx context.Context, id uuid.UUID) (*Page, error)
	ListPages(ctx context.Context, systemID uuid.UUID) ([]Page, error)
}

// Role is a named bundle of default per-page permissions within a tenant.
type Role struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsSystemRole bool      `json:"is_system_role"`
	IsActive     bool      `json:"is_active"`
	UserCount    int       `json:"user_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CreatedBy    uuid.UUID `json:"created_by"`
	UpdatedBy    uuid.UUID `json:"updated_by"`
}

// RoleMutation captures create/update payloads for roles.
type RoleMutation struct {
	TenantID     uuid.UUID
	Name         string
	Description  string
	IsSystemRole bool
	IsActive     *bool
	ActorID      uuid.UUID
}

// RoleFilter narrows role listings.
type RoleFilter struct {
	Actor         ActorRef
	TenantID      uuid.UUID
	Keyword       string
	IncludeSystem bool
	RoleIDs       []uuid.UUID
	Pagination    Pagination
}

// Type implements gocommand.Message for query inputs.
func (RoleFilter) Type() string {
	return "query.role.list"
}

// Validate implements gocommand.Message.
func (f RoleFilter) Validate() error {
	if f.TenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	return nil
}

// RolePage wraps paginated role results.
type RolePage struct {
	Roles      []Role `json:"roles"`
	Total      int    `json:"total"`
	NextOffset int    `json:"next_offset"`
	HasMore    bool   `json:"has_more"`
}

// RoleRegistry describes role CRUD operations.
type RoleRegistry interface {
	CreateRole(ctx context.Context, input RoleMutation) (*Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, input RoleMutation) (*Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, actor ActorRef) error
	GetRole(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*Role, error)
	ListRoles(ctx context.Context, filter RoleFilter) (RolePage, error)
}

// UserStatus enumerates the user account states.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusLocked   UserStatus = "locked"
)

// Valid reports whether the status is a known user status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusLocked:
		return true
	}
	return false
}

// ParseUserStatus normalizes user supplied status strings.
func ParseUserStatus(value string) UserStatus {
	return UserStatus(strings.ToLower(strings.TrimSpace(value)))
}

// User is the permission-relevant projection of an account.
type User struct {
	ID                  uuid.UUID  `json:"id"`
	TenantID            uuid.UUID  `json:"tenant_id"`
	RoleID              uuid.UUID  `json:"role_id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	Status              UserStatus `json:"status"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LockedAt            *time.Time `json:"locked_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// UserInput creates a user.
type UserInput struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	RoleID   uuid.UUID
	Username string
	Email    string
	Status   UserStatus
	Actor    ActorRef
}

// UserFilter narrows user listings.
type UserFilter struct {
	Actor      ActorRef
	TenantID   uuid.UUID
	RoleID     uuid.UUID
	Statuses   []UserStatus
	Keyword    string
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (UserFilter) Type() string {
	return "query.user.list"
}

// Validate implements gocommand.Message.
func (f UserFilter) Validate() error {
	if f.TenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	return nil
}

// UserPage wraps paginated user results.
type UserPage struct {
	Users      []User `json:"users"`
	Total      int    `json:"total"`
	NextOffset int    `json:"next_offset"`
	HasMore    bool   `json:"has_more"`
}

// UserRepository exposes user records scoped by tenant.
type UserRepository interface {
	CreateUser(ctx context.Context, input UserInput) (*User, error)
	GetUser(ctx context.Context, tenantID, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, filter UserFilter) (UserPage, error)
	ChangeRole(ctx context.Context, tenantID, userID, roleID uuid.UUID, actor ActorRef) (*User, error)
	SetStatus(ctx context.Context, tenantID, userID uuid.UUID, status UserStatus, actor ActorRef) (*User, error)
}
