package accounts

import (
	"time"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRecord represents rows in users.
type UserRecord struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                  uuid.UUID  `bun:",pk,type:uuid"`
	TenantID            uuid.UUID  `bun:"tenant_id,type:uuid,notnull"`
	RoleID              uuid.UUID  `bun:"role_id,type:uuid,notnull"`
	Username            string     `bun:"username,notnull"`
	Email               string     `bun:"email,notnull"`
	Status              string     `bun:"status,notnull"`
	FailedLoginAttempts int        `bun:"failed_login_attempts,notnull"`
	LockedAt            *time.Time `bun:"locked_at,nullzero"`
	CreatedAt           time.Time  `bun:"created_at,notnull"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull"`
}

// RecordToUser converts the bun model into the domain user.
func RecordToUser(record *UserRecord) *types.User {
	if record == nil {
		return nil
	}
	user := &types.User{
		ID:                  record.ID,
		TenantID:            record.TenantID,
		RoleID:              record.RoleID,
		Username:            record.Username,
		Email:               record.Email,
		Status:              types.UserStatus(record.Status),
		FailedLoginAttempts: record.FailedLoginAttempts,
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
	}
	if record.LockedAt != nil && !record.LockedAt.IsZero() {
		lockedAt := record.LockedAt.UTC()
		user.LockedAt = &lockedAt
	}
	return user
}
