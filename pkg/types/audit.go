package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by the core.
const (
	AuditActionRolePermissionsUpdated = "permission.role.updated"
	AuditActionUserPermissionsUpdated = "permission.user.updated"
	AuditActionUserLocked             = "user.locked"
	AuditActionUserUnlocked           = "user.unlocked"
	AuditActionUserCreated            = "user.created"
	AuditActionUserRoleChanged        = "user.role_changed"
	AuditActionUserStatusChanged      = "user.status_changed"
	AuditActionRoleCreated            = "role.created"
	AuditActionRoleUpdated            = "role.updated"
	AuditActionRoleDeleted            = "role.deleted"
	AuditActionTenantCreated          = "tenant.created"
	AuditActionTenantStatusChanged    = "tenant.status_changed"
	AuditActionSystemActivated        = "system.activation_changed"
)

// Audit resource types.
const (
	AuditResourceRole   = "role"
	AuditResourceUser   = "user"
	AuditResourceTenant = "tenant"
	AuditResourceSystem = "system"
)

// AuditEntry is an append-only record of a permission-relevant action.
type AuditEntry struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	ActorID      uuid.UUID      `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Details      string         `json:"details"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IPAddress    string         `json:"ip_address"`
	UserAgent    string         `json:"user_agent"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditFilter narrows audit queries and exports. Set fields are ANDed and
// absent fields match everything.
type AuditFilter struct {
	Actor        ActorRef
	TenantID     uuid.UUID
	ActorID      uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	DateFrom     *time.Time
	DateTo       *time.Time
	Pagination   Pagination
}

// Type implements gocommand.Message for query inputs.
func (AuditFilter) Type() string {
	return "query.audit.list"
}

// Validate implements gocommand.Message.
func (f AuditFilter) Validate() error {
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return Validation("date_to must not be before date_from", map[string]any{
			"date_from": f.DateFrom,
			"date_to":   f.DateTo,
		})
	}
	return nil
}

// AuditPage wraps paginated audit results.
type AuditPage struct {
	Entries    []AuditEntry `json:"entries"`
	Total      int          `json:"total"`
	NextOffset int          `json:"next_offset"`
	HasMore    bool         `json:"has_more"`
}

// AuditSink records audit entries.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) (*AuditEntry, error)
}

// AuditRepository exposes the read side of the audit log.
type AuditRepository interface {
	Query(ctx context.Context, filter AuditFilter) (AuditPage, error)
	Export(ctx context.Context, filter AuditFilter, fn func(AuditEntry) error) error
}
