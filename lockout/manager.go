package lockout

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-permissions/accounts"
	"github.com/goliatone/go-permissions/audit"
	"github.com/goliatone/go-permissions/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Config wires the lockout manager.
type Config struct {
	DB          *bun.DB
	History     repository.Repository[*UnlockHistoryRecord]
	Audit       audit.TxRecorder
	Policy      types.StatusPolicy
	Clock       types.Clock
	Hooks       types.Hooks
	Logger      types.Logger
	IDGenerator types.IDGenerator
}

// Manager implements types.LockoutManager on bun.
type Manager struct {
	db      *bun.DB
	history repository.Repository[*UnlockHistoryRecord]
	audit   audit.TxRecorder
	policy  types.StatusPolicy
	clock   types.Clock
	hooks   types.Hooks
	logger  types.Logger
	idGen   types.IDGenerator
}

var _ types.LockoutManager = (*Manager)(nil)

// New constructs a lockout manager.
func New(cfg Config) (*Manager, error) {
	if cfg.DB == nil {
		return nil, types.ErrMissingDB
	}
	if cfg.Audit == nil {
		return nil, types.ErrMissingAuditRepository
	}
	policy := cfg.Policy
	if policy == nil {
		policy = types.DefaultStatusPolicy()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	idGen := cfg.IDGenerator
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	history := cfg.History
	if history == nil {
		history = repository.NewRepository(cfg.DB, repository.ModelHandlers[*UnlockHistoryRecord]{
			NewRecord: func() *UnlockHistoryRecord { return &UnlockHistoryRecord{} },
			GetID: func(record *UnlockHistoryRecord) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *UnlockHistoryRecord, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	return &Manager{
		db:      cfg.DB,
		history: history,
		audit:   cfg.Audit,
		policy:  policy,
		clock:   clock,
		hooks:   cfg.Hooks,
		logger:  logger,
		idGen:   idGen,
	}, nil
}

// RecordFailedLogin increments the failed login counter. An active user whose
// counter reaches a positive threshold is locked in the same transaction.
func (m *Manager) RecordFailedLogin(ctx context.Context, input types.FailedLoginInput) (types.LoginAttemptResult, error) {
	result := types.LoginAttemptResult{}
	if err := input.Validate(); err != nil {
		return result, err
	}
	var event *types.LockoutEvent
	err := m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result = types.LoginAttemptResult{}
		event = nil
		user, err := accounts.LoadUserForUpdate(ctx, tx, input.TenantID, input.UserID)
		if err != nil {
			return err
		}
		now := m.clock.Now()
		_, err = tx.NewUpdate().
			Model((*accounts.UserRecord)(nil)).
			Set("failed_login_attempts = failed_login_attempts + 1").
			Set("updated_at = ?", now).
			Where("id = ?", input.UserID).
			Where("tenant_id = ?", input.TenantID).
			Exec(ctx)
		if err != nil {
			return types.Persistence(err, "increment failed logins")
		}
		var attempts int
		err = tx.NewSelect().
			Model((*accounts.UserRecord)(nil)).
			Column("failed_login_attempts").
			Where("id = ?", input.UserID).
			Scan(ctx, &attempts)
		if err != nil {
			return types.Persistence(err, "read failed logins")
		}
		result.Attempts = attempts

		if input.Threshold <= 0 || attempts < input.Threshold || types.UserStatus(user.Status) != types.UserStatusActive {
			return nil
		}
		locked, err := lockActive(ctx, tx, input.TenantID, input.UserID, now)
		if err != nil || !locked {
			return err
		}
		if _, err := m.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     input.TenantID,
			ActorID:      types.SystemActor.ID,
			Action:       types.AuditActionUserLocked,
			ResourceType: types.AuditResourceUser,
			ResourceID:   input.UserID.String(),
			Details:      "locked after " + strconv.Itoa(attempts) + " failed login attempts",
			Metadata: map[string]any{
				"attempts":  attempts,
				"threshold": input.Threshold,
				"automatic": true,
			},
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		result.Locked = true
		event = &types.LockoutEvent{
			TenantID:   input.TenantID,
			UserID:     input.UserID,
			ActorID:    types.SystemActor.ID,
			FromStatus: types.UserStatusActive,
			ToStatus:   types.UserStatusLocked,
			Reason:     "failed login threshold reached",
			Attempts:   attempts,
			OccurredAt: now,
		}
		return nil
	})
	if err != nil {
		return types.LoginAttemptResult{}, err
	}
	if event != nil {
		m.logger.Info("user locked after failed logins", "tenant_id", input.TenantID, "user_id", input.UserID, "attempts", result.Attempts)
		m.emit(ctx, *event)
	}
	return result, nil
}

// RecordSuccessfulLogin zeroes the failed login counter of an active user.
func (m *Manager) RecordSuccessfulLogin(ctx context.Context, tenantID, userID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return types.ErrTenantIDRequired
	}
	if userID == uuid.Nil {
		return types.ErrUserIDRequired
	}
	return m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := accounts.LoadUserForUpdate(ctx, tx, tenantID, userID)
		if err != nil {
			return err
		}
		status := types.UserStatus(user.Status)
		if status != types.UserStatusActive {
			return types.IllegalTransition(status, types.UserStatusActive)
		}
		if user.FailedLoginAttempts == 0 {
			return nil
		}
		_, err = tx.NewUpdate().
			Model((*accounts.UserRecord)(nil)).
			Set("failed_login_attempts = 0").
			Set("updated_at = ?", m.clock.Now()).
			Where("id = ?", userID).
			Where("status = ?", string(types.UserStatusActive)).
			Exec(ctx)
		if err != nil {
			return types.Persistence(err, "reset failed logins")
		}
		return nil
	})
}

// LockUser locks an active user on an administrator's request.
func (m *Manager) LockUser(ctx context.Context, input types.LockInput) (*types.User, error) {
	if input.TenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	if input.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	var (
		updated *accounts.UserRecord
		now     = m.clock.Now()
	)
	err := m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := accounts.LoadUserForUpdate(ctx, tx, input.TenantID, input.UserID)
		if err != nil {
			return err
		}
		from := types.UserStatus(user.Status)
		if err := m.policy.Validate(from, types.UserStatusLocked); err != nil {
			return err
		}
		locked, err := lockActive(ctx, tx, input.TenantID, input.UserID, now)
		if err != nil {
			return err
		}
		if !locked {
			return types.IllegalTransition(from, types.UserStatusLocked)
		}
		if _, err := m.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     input.TenantID,
			ActorID:      input.Actor.ID,
			Action:       types.AuditActionUserLocked,
			ResourceType: types.AuditResourceUser,
			ResourceID:   input.UserID.String(),
			Details:      lockDetails(input.Reason),
			Metadata: map[string]any{
				"reason":    strings.TrimSpace(input.Reason),
				"attempts":  user.FailedLoginAttempts,
				"automatic": false,
			},
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		updated, err = accounts.LoadUser(ctx, tx, input.TenantID, input.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.emit(ctx, types.LockoutEvent{
		TenantID:   input.TenantID,
		UserID:     input.UserID,
		ActorID:    input.Actor.ID,
		FromStatus: types.UserStatusActive,
		ToStatus:   types.UserStatusLocked,
		Reason:     strings.TrimSpace(input.Reason),
		Attempts:   updated.FailedLoginAttempts,
		OccurredAt: now,
	})
	return accounts.RecordToUser(updated), nil
}

// UnlockUser moves a locked user back to active, zeroes the counter and
// appends the unlock history row and audit entry. Repeating the call on the
// now-active user returns an illegal transition and writes nothing.
func (m *Manager) UnlockUser(ctx context.Context, input types.UnlockInput) (*types.UnlockRecord, error) {
	if input.TenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	if input.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, types.Validation("unlock reason required", nil)
	}
	var history *UnlockHistoryRecord
	err := m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		history = nil
		user, err := accounts.LoadUserForUpdate(ctx, tx, input.TenantID, input.UserID)
		if err != nil {
			return err
		}
		from := types.UserStatus(user.Status)
		if from != types.UserStatusLocked {
			return types.IllegalTransition(from, types.UserStatusActive)
		}
		if err := m.policy.Validate(from, types.UserStatusActive); err != nil {
			return err
		}
		now := m.clock.Now()
		res, err := tx.NewUpdate().
			Model((*accounts.UserRecord)(nil)).
			Set("status = ?", string(types.UserStatusActive)).
			Set("failed_login_attempts = 0").
			Set("locked_at = NULL").
			Set("updated_at = ?", now).
			Where("id = ?", input.UserID).
			Where("tenant_id = ?", input.TenantID).
			Where("status = ?", string(types.UserStatusLocked)).
			Exec(ctx)
		if err != nil {
			return types.Persistence(err, "unlock user")
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			return types.IllegalTransition(from, types.UserStatusActive)
		}

		record := &UnlockHistoryRecord{
			ID:                     m.idGen.UUID(),
			TenantID:               input.TenantID,
			UnlockedUserID:         input.UserID,
			UnlockedByUserID:       input.Actor.ID,
			Reason:                 reason,
			PreviousFailedAttempts: user.FailedLoginAttempts,
			IPAddress:              strings.TrimSpace(input.IPAddress),
			UserAgent:              strings.TrimSpace(input.UserAgent),
			CreatedAt:              now.UTC(),
		}
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return types.Persistence(err, "record unlock history")
		}
		if _, err := m.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     input.TenantID,
			ActorID:      input.Actor.ID,
			Action:       types.AuditActionUserUnlocked,
			ResourceType: types.AuditResourceUser,
			ResourceID:   input.UserID.String(),
			Details:      reason,
			Metadata: map[string]any{
				"unlock_id":                record.ID.String(),
				"previous_failed_attempts": user.FailedLoginAttempts,
			},
			IPAddress: record.IPAddress,
			UserAgent: record.UserAgent,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		history = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := toUnlockRecord(history)
	m.emit(ctx, types.LockoutEvent{
		TenantID:   input.TenantID,
		UserID:     input.UserID,
		ActorID:    input.Actor.ID,
		FromStatus: types.UserStatusLocked,
		ToStatus:   types.UserStatusActive,
		Reason:     reason,
		Attempts:   out.PreviousFailedAttempts,
		OccurredAt: out.CreatedAt,
	})
	return &out, nil
}

// IsLocked reports whether the user is currently locked.
func (m *Manager) IsLocked(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	if tenantID == uuid.Nil {
		return false, types.ErrTenantIDRequired
	}
	user, err := accounts.LoadUser(ctx, m.db, tenantID, userID)
	if err != nil {
		return false, err
	}
	return types.UserStatus(user.Status) == types.UserStatusLocked, nil
}

// ListLocked returns the tenant's locked users, most recently locked first.
// Inactive tenants report no locked users.
func (m *Manager) ListLocked(ctx context.Context, filter types.LockedUserFilter) (types.LockedUserPage, error) {
	if err := filter.Validate(); err != nil {
		return types.LockedUserPage{}, err
	}
	pagination := types.NormalizePagination(filter.Pagination, 25, 200)
	var records []*accounts.UserRecord
	total, err := m.db.NewSelect().
		Model(&records).
		Join("JOIN tenants AS t ON t.id = u.tenant_id").
		Where("u.tenant_id = ?", filter.TenantID).
		Where("t.status = ?", string(types.TenantStatusActive)).
		Where("u.status = ?", string(types.UserStatusLocked)).
		OrderExpr("u.locked_at DESC, u.id ASC").
		Limit(pagination.Limit).
		Offset(pagination.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return types.LockedUserPage{}, types.Persistence(err, "list locked users")
	}
	now := m.clock.Now()
	users := make([]types.LockedUser, 0, len(records))
	for _, record := range records {
		user := accounts.RecordToUser(record)
		hours := 0.0
		if user.LockedAt != nil {
			hours = now.Sub(*user.LockedAt).Hours()
			if hours < 0 {
				hours = 0
			}
		}
		users = append(users, types.LockedUser{User: *user, HoursLocked: hours})
	}
	return types.LockedUserPage{
		Users:      users,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// ListUnlockHistory returns unlock history rows, newest first.
func (m *Manager) ListUnlockHistory(ctx context.Context, filter types.UnlockHistoryFilter) (types.UnlockHistoryPage, error) {
	if err := filter.Validate(); err != nil {
		return types.UnlockHistoryPage{}, err
	}
	pagination := types.NormalizePagination(filter.Pagination, 50, 500)
	records, total, err := m.history.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("uh.tenant_id = ?", filter.TenantID).
			OrderExpr("uh.created_at DESC, uh.id DESC").
			Limit(pagination.Limit).
			Offset(pagination.Offset)
		if filter.UserID != uuid.Nil {
			q = q.Where("uh.unlocked_user_id = ?", filter.UserID)
		}
		return q
	})
	if err != nil {
		return types.UnlockHistoryPage{}, types.Persistence(err, "list unlock history")
	}
	out := make([]types.UnlockRecord, 0, len(records))
	for _, record := range records {
		out = append(out, toUnlockRecord(record))
	}
	return types.UnlockHistoryPage{
		Records:    out,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// lockActive flips an active user to locked. It reports false when the row
// was no longer active.
func lockActive(ctx context.Context, tx bun.IDB, tenantID, userID uuid.UUID, now time.Time) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*accounts.UserRecord)(nil)).
		Set("status = ?", string(types.UserStatusLocked)).
		Set("locked_at = ?", now.UTC()).
		Set("updated_at = ?", now).
		Where("id = ?", userID).
		Where("tenant_id = ?", tenantID).
		Where("status = ?", string(types.UserStatusActive)).
		Exec(ctx)
	if err != nil {
		return false, types.Persistence(err, "lock user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, types.Persistence(err, "lock user")
	}
	return n == 1, nil
}

func lockDetails(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "locked by administrator"
	}
	return "locked by administrator: " + reason
}

func (m *Manager) emit(ctx context.Context, event types.LockoutEvent) {
	if m.hooks.AfterLockoutChange == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("lockout hook panic", errors.New("panic in AfterLockoutChange"), "panic", rec)
		}
	}()
	m.hooks.AfterLockoutChange(ctx, event)
}
