package lockout

import (
	"time"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UnlockHistoryRecord represents rows in unlock_history.
type UnlockHistoryRecord struct {
	bun.BaseModel `bun:"table:unlock_history,alias:uh"`

	ID                     uuid.UUID `bun:",pk,type:uuid"`
	TenantID               uuid.UUID `bun:"tenant_id,type:uuid,notnull"`
	UnlockedUserID         uuid.UUID `bun:"unlocked_user_id,type:uuid,notnull"`
	UnlockedByUserID       uuid.UUID `bun:"unlocked_by_user_id,type:uuid,notnull"`
	Reason                 string    `bun:"reason,notnull"`
	PreviousFailedAttempts int       `bun:"previous_failed_attempts,notnull"`
	IPAddress              string    `bun:"ip_address,notnull"`
	UserAgent              string    `bun:"user_agent,notnull"`
	CreatedAt              time.Time `bun:"created_at,notnull"`
}

func toUnlockRecord(record *UnlockHistoryRecord) types.UnlockRecord {
	return types.UnlockRecord{
		ID:                     record.ID,
		TenantID:               record.TenantID,
		UnlockedUserID:         record.UnlockedUserID,
		UnlockedByUserID:       record.UnlockedByUserID,
		Reason:                 record.Reason,
		PreviousFailedAttempts: record.PreviousFailedAttempts,
		IPAddress:              record.IPAddress,
		UserAgent:              record.UserAgent,
		CreatedAt:              record.CreatedAt,
	}
}
