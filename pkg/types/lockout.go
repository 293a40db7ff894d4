package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FailedLoginInput reports an authentication failure from the external
// authentication layer. Threshold is that layer's policy; zero disables the
// automatic lock.
type FailedLoginInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Threshold int
	IPAddress string
	UserAgent string
}

// Type implements gocommand.Message.
func (FailedLoginInput) Type() string {
	return "command.lockout.failed_login"
}

// Validate implements gocommand.Message.
func (input FailedLoginInput) Validate() error {
	if input.TenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	if input.UserID == uuid.Nil {
		return ErrUserIDRequired
	}
	if input.Threshold < 0 {
		return Validation("threshold must not be negative", nil)
	}
	return nil
}

// LoginAttemptResult reports the counter after a failed login.
type LoginAttemptResult struct {
	Attempts int  `json:"attempts"`
	Locked   bool `json:"locked"`
}

// LockInput locks an active user.
type LockInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Actor     ActorRef
	Reason    string
	IPAddress string
	UserAgent string
}

// UnlockInput unlocks a locked user.
type UnlockInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Actor     ActorRef
	Reason    string
	IPAddress string
	UserAgent string
}

// UnlockRecord is an append-only unlock history row.
type UnlockRecord struct {
	ID                     uuid.UUID `json:"id"`
	TenantID               uuid.UUID `json:"tenant_id"`
	UnlockedUserID         uuid.UUID `json:"unlocked_user_id"`
	UnlockedByUserID       uuid.UUID `json:"unlocked_by_user_id"`
	Reason                 string    `json:"reason"`
	PreviousFailedAttempts int       `json:"previous_failed_attempts"`
	IPAddress              string    `json:"ip_address"`
	UserAgent              string    `json:"user_agent"`
	CreatedAt              time.Time `json:"created_at"`
}

// LockedUser is a locked account ready for admin triage.
type LockedUser struct {
	User        User    `json:"user"`
	HoursLocked float64 `json:"hours_locked"`
}

// LockedUserFilter narrows locked user listings.
type LockedUserFilter struct {
	Actor      ActorRef
	TenantID   uuid.UUID
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (LockedUserFilter) Type() string {
	return "query.lockout.locked_users"
}

// Validate implements gocommand.Message.
func (f LockedUserFilter) Validate() error {
	if f.TenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	return nil
}

// LockedUserPage wraps paginated locked users.
type LockedUserPage struct {
	Users      []LockedUser `json:"users"`
	Total      int          `json:"total"`
	NextOffset int          `json:"next_offset"`
	HasMore    bool         `json:"has_more"`
}

// UnlockHistoryFilter narrows unlock history listings.
type UnlockHistoryFilter struct {
	Actor      ActorRef
	TenantID   uuid.UUID
	UserID     uuid.UUID
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (UnlockHistoryFilter) Type() string {
	return "query.lockout.unlock_history"
}

// Validate implements gocommand.Message.
func (f UnlockHistoryFilter) Validate() error {
	if f.TenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	return nil
}

// UnlockHistoryPage wraps paginated unlock history.
type UnlockHistoryPage struct {
	Records    []UnlockRecord `json:"records"`
	Total      int            `json:"total"`
	NextOffset int            `json:"next_offset"`
	HasMore    bool           `json:"has_more"`
}

// LockoutManager tracks failed logins and manual lock/unlock actions.
type LockoutManager interface {
	RecordFailedLogin(ctx context.Context, input FailedLoginInput) (LoginAttemptResult, error)
	RecordSuccessfulLogin(ctx context.Context, tenantID, userID uuid.UUID) error
	LockUser(ctx context.Context, input LockInput) (*User, error)
	UnlockUser(ctx context.Context, input UnlockInput) (*UnlockRecord, error)
	IsLocked(ctx context.Context, tenantID, userID uuid.UUID) (bool, error)
	ListLocked(ctx context.Context, filter LockedUserFilter) (LockedUserPage, error)
	ListUnlockHistory(ctx context.Context, filter UnlockHistoryFilter) (UnlockHistoryPage, error)
}
