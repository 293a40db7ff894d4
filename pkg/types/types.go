package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies the authenticated caller driving a command or query.
// Type carries the actor role name (see ActorRoleSystemAdmin et al).
type ActorRef struct {
	ID       uuid.UUID
	Type     string
	TenantID uuid.UUID
	RoleID   uuid.UUID
}

// IsZero reports whether the actor reference is empty.
func (a ActorRef) IsZero() bool {
	return a.ID == uuid.Nil && a.Type == ""
}

// SystemActor is used for transitions triggered without a human actor, e.g.
// automatic lockouts after repeated authentication failures.
var SystemActor = ActorRef{Type: ActorRoleSystem}

// Pagination supports query pagination across admin panels.
type Pagination struct {
	Limit  int
	Offset int
}

// PageRequest converts a 1-based page number and page size into Pagination.
func PageRequest(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 0 {
		limit = 0
	}
	return Pagination{Limit: limit, Offset: (page - 1) * limit}
}

// NormalizePagination clamps the pagination window to the provided defaults.
func NormalizePagination(p Pagination, def, max int) Pagination {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PermissionEvent is emitted after a role or user permission batch commits.
type PermissionEvent struct {
	TenantID   uuid.UUID
	RoleID     uuid.UUID
	UserID     uuid.UUID
	PageIDs    []uuid.UUID
	Action     string
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// LockoutEvent is emitted after a user is locked or unlocked.
type LockoutEvent struct {
	TenantID   uuid.UUID
	UserID     uuid.UUID
	ActorID    uuid.UUID
	FromStatus UserStatus
	ToStatus   UserStatus
	Reason     string
	Attempts   int
	OccurredAt time.Time
}

// RoleEvent is emitted when a role changes.
type RoleEvent struct {
	TenantID   uuid.UUID
	RoleID     uuid.UUID
	Action     string
	ActorID    uuid.UUID
	OccurredAt time.Time
	Role       Role
}

// Hooks groups optional callbacks invoked after key workflows commit.
type Hooks struct {
	AfterPermissionChange func(context.Context, PermissionEvent)
	AfterLockoutChange    func(context.Context, LockoutEvent)
	AfterRoleChange       func(context.Context, RoleEvent)
	AfterAudit            func(context.Context, AuditEntry)
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID returns a randomly generated UUID.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = Validation("actor reference required", nil)
	// ErrTenantIDRequired indicates a tenant identifier was omitted.
	ErrTenantIDRequired = Validation("tenant id required", nil)
	// ErrUserIDRequired indicates a user identifier was omitted.
	ErrUserIDRequired = Validation("user id required", nil)
	// ErrServiceNotReady indicates the service has not been properly configured.
	ErrServiceNotReady = errors.New("go-permissions: service not ready")
	// ErrMissingDB occurs when a bun-backed component is built without a DB.
	ErrMissingDB = errors.New("go-permissions: missing db")
	// ErrMissingResolver occurs when no permission resolver was supplied.
	ErrMissingResolver = errors.New("go-permissions: missing permission resolver")
	// ErrMissingLockoutManager occurs when no lockout manager was supplied.
	ErrMissingLockoutManager = errors.New("go-permissions: missing lockout manager")
	// ErrMissingAuditRepository occurs when no audit repository was supplied.
	ErrMissingAuditRepository = errors.New("go-permissions: missing audit repository")
	// ErrMissingRoleRegistry occurs when no role registry was supplied.
	ErrMissingRoleRegistry = errors.New("go-permissions: missing role registry")
	// ErrMissingCatalog occurs when no catalog was supplied.
	ErrMissingCatalog = errors.New("go-permissions: missing catalog")
	// ErrMissingAccounts occurs when no user repository was supplied.
	ErrMissingAccounts = errors.New("go-permissions: missing user repository")
	// ErrMissingAdminPage occurs when a page policy has no page to consult.
	ErrMissingAdminPage = errors.New("go-permissions: missing admin page")
)
