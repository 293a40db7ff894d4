package accounts

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/goliatone/go-permissions/audit"
	"github.com/goliatone/go-permissions/internal/dbutil"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/registry"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Config wires the Bun-backed user repository.
type Config struct {
	DB          *bun.DB
	Users       repository.Repository[*UserRecord]
	Audit       audit.TxRecorder
	Policy      types.StatusPolicy
	Clock       types.Clock
	Hooks       types.Hooks
	Logger      types.Logger
	IDGenerator types.IDGenerator
}

// Repository persists user records scoped by tenant.
type Repository struct {
	db     *bun.DB
	users  repository.Repository[*UserRecord]
	audit  audit.TxRecorder
	policy types.StatusPolicy
	clock  types.Clock
	hooks  types.Hooks
	logger types.Logger
	idGen  types.IDGenerator
}

var _ types.UserRepository = (*Repository)(nil)

// New constructs the default user repository.
func New(cfg Config) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("accounts: db required")
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
	users := cfg.Users
	if users == nil {
		users = repository.NewRepository(cfg.DB, repository.ModelHandlers[*UserRecord]{
			NewRecord: func() *UserRecord { return &UserRecord{} },
			GetID: func(record *UserRecord) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *UserRecord, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	return &Repository{
		db:     cfg.DB,
		users:  users,
		audit:  cfg.Audit,
		policy: policy,
		clock:  clock,
		hooks:  cfg.Hooks,
		logger: logger,
		idGen:  idGen,
	}, nil
}

// CreateUser inserts a user bound to a role of the same tenant.
func (r *Repository) CreateUser(ctx context.Context, input types.UserInput) (*types.User, error) {
	if input.TenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, types.Validation("username required", nil)
	}
	if input.RoleID == uuid.Nil {
		return nil, types.Validation("role_id required", nil)
	}
	status := input.Status
	if status == "" {
		status = types.UserStatusActive
	}
	if status == types.UserStatusLocked || !status.Valid() {
		return nil, types.Validation("users are created active or inactive", map[string]any{"status": string(status)})
	}
	id := input.ID
	if id == uuid.Nil {
		id = r.idGen.UUID()
	}
	now := r.clock.Now()
	record := &UserRecord{
		ID:        id,
		TenantID:  input.TenantID,
		RoleID:    input.RoleID,
		Username:  username,
		Email:     strings.TrimSpace(input.Email),
		Status:    string(status),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := registry.LoadRole(ctx, tx, input.TenantID, input.RoleID); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			if dbutil.IsUniqueViolation(err) {
				return types.Validation("username already exists", map[string]any{"username": username})
			}
			return types.Persistence(err, "create user")
		}
		_, err := r.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     input.TenantID,
			ActorID:      input.Actor.ID,
			Action:       types.AuditActionUserCreated,
			ResourceType: types.AuditResourceUser,
			ResourceID:   id.String(),
			Details:      "user " + username + " created",
			Metadata: map[string]any{
				"username": username,
				"role_id":  input.RoleID.String(),
				"status":   string(status),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return RecordToUser(record), nil
}

// GetUser returns a user within the tenant.
func (r *Repository) GetUser(ctx context.Context, tenantID, id uuid.UUID) (*types.User, error) {
	if tenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	record, err := r.users.GetByID(ctx, id.String(), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("u.tenant_id = ?", tenantID)
	})
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, types.NotFound("user", id)
		}
		return nil, types.Persistence(err, "get user")
	}
	return RecordToUser(record), nil
}

// ListUsers returns paginated users for a tenant ordered by username.
func (r *Repository) ListUsers(ctx context.Context, filter types.UserFilter) (types.UserPage, error) {
	if err := filter.Validate(); err != nil {
		return types.UserPage{}, err
	}
	pagination := types.NormalizePagination(filter.Pagination, 50, 200)
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("u.tenant_id = ?", filter.TenantID).
				OrderExpr("LOWER(u.username) ASC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
			if filter.RoleID != uuid.Nil {
				q = q.Where("u.role_id = ?", filter.RoleID)
			}
			if len(filter.Statuses) > 0 {
				statuses := make([]string, 0, len(filter.Statuses))
				for _, status := range filter.Statuses {
					statuses = append(statuses, string(status))
				}
				q = q.Where("u.status IN (?)", bun.In(statuses))
			}
			if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
				like := "%" + strings.ToLower(keyword) + "%"
				q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
					return q.Where("LOWER(u.username) LIKE ?", like).
						WhereOr("LOWER(u.email) LIKE ?", like)
				})
			}
			return q
		},
	}
	records, total, err := r.users.List(ctx, criteria...)
	if err != nil {
		return types.UserPage{}, types.Persistence(err, "list users")
	}
	users := make([]types.User, 0, len(records))
	for _, record := range records {
		users = append(users, *RecordToUser(record))
	}
	return types.UserPage{
		Users:      users,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// ChangeRole moves a user to another role of the same tenant.
func (r *Repository) ChangeRole(ctx context.Context, tenantID, userID, roleID uuid.UUID, actor types.ActorRef) (*types.User, error) {
	if tenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	if roleID == uuid.Nil {
		return nil, types.Validation("role_id required", nil)
	}
	var (
		updated  *UserRecord
		previous uuid.UUID
	)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := LoadUserForUpdate(ctx, tx, tenantID, userID)
		if err != nil {
			return err
		}
		if _, err := registry.LoadRole(ctx, tx, tenantID, roleID); err != nil {
			return err
		}
		previous = record.RoleID
		if previous == roleID {
			updated = record
			return nil
		}
		record.RoleID = roleID
		record.UpdatedAt = r.clock.Now()
		if _, err := tx.NewUpdate().
			Model(record).
			Column("role_id", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return types.Persistence(err, "change user role")
		}
		if _, err := r.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     tenantID,
			ActorID:      actor.ID,
			Action:       types.AuditActionUserRoleChanged,
			ResourceType: types.AuditResourceUser,
			ResourceID:   userID.String(),
			Details:      "role changed",
			Metadata: map[string]any{
				"from_role_id": previous.String(),
				"to_role_id":   roleID.String(),
			},
		}); err != nil {
			return err
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous != roleID {
		r.emitPermissionEvent(ctx, types.PermissionEvent{
			TenantID:   tenantID,
			RoleID:     roleID,
			UserID:     userID,
			Action:     types.AuditActionUserRoleChanged,
			ActorID:    actor.ID,
			OccurredAt: updated.UpdatedAt,
		})
	}
	return RecordToUser(updated), nil
}

// SetStatus activates or deactivates a user through the status policy.
// Locking and unlocking belong to the lockout manager, which also keeps the
// unlock history.
func (r *Repository) SetStatus(ctx context.Context, tenantID, userID uuid.UUID, status types.UserStatus, actor types.ActorRef) (*types.User, error) {
	if tenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	if !status.Valid() {
		return nil, types.Validation("unknown user status", map[string]any{"status": string(status)})
	}
	var (
		updated *UserRecord
		from    types.UserStatus
	)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := LoadUserForUpdate(ctx, tx, tenantID, userID)
		if err != nil {
			return err
		}
		from = types.UserStatus(record.Status)
		if status == types.UserStatusLocked || (from == types.UserStatusLocked && status == types.UserStatusActive) {
			return types.IllegalTransition(from, status)
		}
		if err := r.policy.Validate(from, status); err != nil {
			r.logger.Debug("status policy rejected transition", "user_id", userID, "from", from, "to", status)
			return err
		}
		record.Status = string(status)
		record.LockedAt = nil
		if status == types.UserStatusActive {
			record.FailedLoginAttempts = 0
		}
		record.UpdatedAt = r.clock.Now()
		if _, err := tx.NewUpdate().
			Model(record).
			Column("status", "locked_at", "failed_login_attempts", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return types.Persistence(err, "update user status")
		}
		if _, err := r.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     tenantID,
			ActorID:      actor.ID,
			Action:       types.AuditActionUserStatusChanged,
			ResourceType: types.AuditResourceUser,
			ResourceID:   userID.String(),
			Details:      "status changed from " + string(from) + " to " + string(status),
			Metadata: map[string]any{
				"from_status": string(from),
				"to_status":   string(status),
			},
		}); err != nil {
			return err
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return RecordToUser(updated), nil
}

// LoadUser reads a tenant user through db, which may be a transaction.
func LoadUser(ctx context.Context, db bun.IDB, tenantID, id uuid.UUID) (*UserRecord, error) {
	return loadUser(ctx, db.NewSelect(), tenantID, id)
}

// LoadUserForUpdate reads a tenant user and locks the row where the dialect
// supports it. db is expected to be a transaction.
func LoadUserForUpdate(ctx context.Context, db bun.IDB, tenantID, id uuid.UUID) (*UserRecord, error) {
	return loadUser(ctx, dbutil.ForUpdate(db.NewSelect()), tenantID, id)
}

func loadUser(ctx context.Context, q *bun.SelectQuery, tenantID, id uuid.UUID) (*UserRecord, error) {
	record := &UserRecord{}
	err := q.Model(record).
		Where("u.id = ?", id).
		Where("u.tenant_id = ?", tenantID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NotFound("user", id)
		}
		return nil, types.Persistence(err, "load user")
	}
	return record, nil
}

func (r *Repository) emitPermissionEvent(ctx context.Context, event types.PermissionEvent) {
	if r.hooks.AfterPermissionChange == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("permission hook panic", errors.New("panic in AfterPermissionChange"), "panic", rec)
		}
	}()
	r.hooks.AfterPermissionChange(ctx, event)
}
