package audit

import (
	"time"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EntryRecord maps rows in audit_logs.
type EntryRecord struct {
	bun.BaseModel `bun:"table:audit_logs"`

	ID           uuid.UUID      `bun:",pk,type:uuid"`
	TenantID     uuid.UUID      `bun:"tenant_id,type:uuid,notnull"`
	ActorID      uuid.UUID      `bun:"actor_id,type:uuid,notnull"`
	Action       string         `bun:"action,notnull"`
	ResourceType string         `bun:"resource_type,notnull"`
	ResourceID   string         `bun:"resource_id,notnull"`
	Details      string         `bun:"details,notnull"`
	Metadata     map[string]any `bun:"metadata,type:jsonb"`
	IPAddress    string         `bun:"ip_address,notnull"`
	UserAgent    string         `bun:"user_agent,notnull"`
	CreatedAt    time.Time      `bun:"created_at,notnull"`
}

func toRecord(entry types.AuditEntry) *EntryRecord {
	return &EntryRecord{
		ID:           entry.ID,
		TenantID:     entry.TenantID,
		ActorID:      entry.ActorID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		Metadata:     entry.Metadata,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		CreatedAt:    entry.CreatedAt,
	}
}

func toEntry(record *EntryRecord) types.AuditEntry {
	if record == nil {
		return types.AuditEntry{}
	}
	return types.AuditEntry{
		ID:           record.ID,
		TenantID:     record.TenantID,
		ActorID:      record.ActorID,
		Action:       record.Action,
		ResourceType: record.ResourceType,
		ResourceID:   record.ResourceID,
		Details:      record.Details,
		Metadata:     cloneMetadata(record.Metadata),
		IPAddress:    record.IPAddress,
		UserAgent:    record.UserAgent,
		CreatedAt:    record.CreatedAt,
	}
}

func cloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
