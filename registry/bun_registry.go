package registry

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/goliatone/go-permissions/audit"
	"github.com/goliatone/go-permissions/internal/dbutil"
	"github.com/goliatone/go-permissions/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleRegistryConfig configures the Bun-backed role registry.
type RoleRegistryConfig struct {
	DB          *bun.DB
	Roles       repository.Repository[*RoleRecord]
	Audit       audit.TxRecorder
	Clock       types.Clock
	Hooks       types.Hooks
	Logger      types.Logger
	IDGenerator types.IDGenerator
}

// RoleRegistry persists tenant roles. Reads go through go-repository-bun;
// writes run in a transaction together with their audit entry.
type RoleRegistry struct {
	db     *bun.DB
	roles  repository.Repository[*RoleRecord]
	audit  audit.TxRecorder
	clock  types.Clock
	hooks  types.Hooks
	logger types.Logger
	idGen  types.IDGenerator
}

var _ types.RoleRegistry = (*RoleRegistry)(nil)

// NewRoleRegistry constructs the default registry.
func NewRoleRegistry(cfg RoleRegistryConfig) (*RoleRegistry, error) {
	if cfg.DB == nil {
		return nil, errors.New("bun role registry: db required")
	}
	if cfg.Audit == nil {
		return nil, types.ErrMissingAuditRepository
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
	roles := cfg.Roles
	if roles == nil {
		roles = repository.NewRepository(cfg.DB, repository.ModelHandlers[*RoleRecord]{
			NewRecord: func() *RoleRecord { return &RoleRecord{} },
			GetID: func(role *RoleRecord) uuid.UUID {
				if role == nil {
					return uuid.Nil
				}
				return role.ID
			},
			SetID: func(role *RoleRecord, id uuid.UUID) {
				if role != nil {
					role.ID = id
				}
			},
		})
	}
	return &RoleRegistry{
		db:     cfg.DB,
		roles:  roles,
		audit:  cfg.Audit,
		clock:  clock,
		hooks:  cfg.Hooks,
		logger: logger,
		idGen:  idGen,
	}, nil
}

// CreateRole inserts a role scoped to the tenant.
func (r *RoleRegistry) CreateRole(ctx context.Context, input types.RoleMutation) (*types.Role, error) {
	if input.TenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	name := normalizeRoleName(input.Name)
	if name == "" {
		return nil, types.Validation("role name required", nil)
	}
	now := r.clock.Now()
	record := &RoleRecord{
		ID:           r.idGen.UUID(),
		TenantID:     input.TenantID,
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		IsSystemRole: input.IsSystemRole,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    input.ActorID,
		UpdatedBy:    input.ActorID,
	}
	if input.IsActive != nil {
		record.IsActive = *input.IsActive
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := requireTenant(ctx, tx, input.TenantID); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			if dbutil.IsUniqueViolation(err) {
				return types.Validation("role name already exists", map[string]any{"name": name})
			}
			return types.Persistence(err, "create role")
		}
		_, err := r.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     record.TenantID,
			ActorID:      input.ActorID,
			Action:       types.AuditActionRoleCreated,
			ResourceType: types.AuditResourceRole,
			ResourceID:   record.ID.String(),
			Details:      "role " + record.Name + " created",
			Metadata:     map[string]any{"name": record.Name, "is_system_role": record.IsSystemRole},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	role := RecordToRole(record)
	r.emitRoleEvent(ctx, types.RoleEvent{
		TenantID:   role.TenantID,
		RoleID:     role.ID,
		Action:     types.AuditActionRoleCreated,
		ActorID:    input.ActorID,
		OccurredAt: now,
		Role:       *role,
	})
	return role, nil
}

// UpdateRole updates the name, description and active flag of a tenant role.
// System roles are read-only.
func (r *RoleRegistry) UpdateRole(ctx context.Context, id uuid.UUID, input types.RoleMutation) (*types.Role, error) {
	if input.TenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	if input.IsSystemRole {
		return nil, types.Validation("roles cannot be promoted to system roles", nil)
	}
	var updated *RoleRecord
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := lockRole(ctx, tx, input.TenantID, id)
		if err != nil {
			return err
		}
		if record.IsSystemRole {
			return types.Validation("system roles cannot be modified", map[string]any{"role_id": id.String()})
		}
		changes := map[string]any{}
		if name := normalizeRoleName(input.Name); name != "" && name != record.Name {
			changes["name"] = name
			record.Name = name
		}
		if description := strings.TrimSpace(input.Description); description != record.Description {
			changes["description"] = description
			record.Description = description
		}
		if input.IsActive != nil && *input.IsActive != record.IsActive {
			changes["is_active"] = *input.IsActive
			record.IsActive = *input.IsActive
		}
		record.UpdatedAt = r.clock.Now()
		record.UpdatedBy = input.ActorID

		_, err = tx.NewUpdate().
			Model(record).
			Column("name", "description", "is_active", "updated_at", "updated_by").
			WherePK().
			Exec(ctx)
		if err != nil {
			if dbutil.IsUniqueViolation(err) {
				return types.Validation("role name already exists", map[string]any{"name": record.Name})
			}
			return types.Persistence(err, "update role")
		}
		if _, err := r.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     record.TenantID,
			ActorID:      input.ActorID,
			Action:       types.AuditActionRoleUpdated,
			ResourceType: types.AuditResourceRole,
			ResourceID:   record.ID.String(),
			Details:      "role " + record.Name + " updated",
			Metadata:     changes,
		}); err != nil {
			return err
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	role := RecordToRole(updated)
	r.emitRoleEvent(ctx, types.RoleEvent{
		TenantID:   role.TenantID,
		RoleID:     role.ID,
		Action:     types.AuditActionRoleUpdated,
		ActorID:    input.ActorID,
		OccurredAt: updated.UpdatedAt,
		Role:       *role,
	})
	return role, nil
}

// DeleteRole removes a role and its permission rows. System roles and roles
// that still have users are rejected.
func (r *RoleRegistry) DeleteRole(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, actor types.ActorRef) error {
	if tenantID == uuid.Nil {
		return types.ErrTenantIDRequired
	}
	var deleted *RoleRecord
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := lockRole(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if record.IsSystemRole {
			return types.Validation("system roles cannot be deleted", map[string]any{"role_id": id.String()})
		}
		users, err := tx.NewSelect().
			Table("users").
			Where("role_id = ?", id).
			Count(ctx)
		if err != nil {
			return types.Persistence(err, "count role users")
		}
		if users > 0 {
			return types.Validation("role has assigned users", map[string]any{
				"role_id":    id.String(),
				"user_count": users,
			})
		}
		if _, err := tx.NewDelete().
			Table("role_permissions").
			Where("role_id = ?", id).
			Exec(ctx); err != nil {
			return types.Persistence(err, "delete role permissions")
		}
		if _, err := tx.NewDelete().
			Model((*RoleRecord)(nil)).
			Where("id = ?", id).
			Where("tenant_id = ?", tenantID).
			Exec(ctx); err != nil {
			return types.Persistence(err, "delete role")
		}
		if _, err := r.audit.RecordTx(ctx, tx, types.AuditEntry{
			TenantID:     tenantID,
			ActorID:      actor.ID,
			Action:       types.AuditActionRoleDeleted,
			ResourceType: types.AuditResourceRole,
			ResourceID:   id.String(),
			Details:      "role " + record.Name + " deleted",
			Metadata:     map[string]any{"name": record.Name},
		}); err != nil {
			return err
		}
		deleted = record
		return nil
	})
	if err != nil {
		return err
	}

	r.emitRoleEvent(ctx, types.RoleEvent{
		TenantID:   tenantID,
		RoleID:     id,
		Action:     types.AuditActionRoleDeleted,
		ActorID:    actor.ID,
		OccurredAt: r.clock.Now(),
		Role:       *RecordToRole(deleted),
	})
	return nil
}

// GetRole returns a single role within the tenant, including its user count.
func (r *RoleRegistry) GetRole(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*types.Role, error) {
	if tenantID == uuid.Nil {
		return nil, types.ErrTenantIDRequired
	}
	record, err := r.roles.GetByID(ctx, id.String(), withUserCount, tenantCriteria(tenantID))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, types.NotFound("role", id)
		}
		return nil, types.Persistence(err, "get role")
	}
	return RecordToRole(record), nil
}

// ListRoles returns paginated roles for a tenant ordered by name.
func (r *RoleRegistry) ListRoles(ctx context.Context, filter types.RoleFilter) (types.RolePage, error) {
	if err := filter.Validate(); err != nil {
		return types.RolePage{}, err
	}
	pagination := types.NormalizePagination(filter.Pagination, 50, 200)
	criteria := []repository.SelectCriteria{
		withUserCount,
		tenantCriteria(filter.TenantID),
		func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.OrderExpr("LOWER(r.name) ASC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
			if len(filter.RoleIDs) > 0 {
				q = q.Where("r.id IN (?)", bun.In(filter.RoleIDs))
			}
			if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
				like := "%" + strings.ToLower(keyword) + "%"
				q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
					return q.Where("LOWER(r.name) LIKE ?", like).
						WhereOr("LOWER(r.description) LIKE ?", like)
				})
			}
			if !filter.IncludeSystem {
				q = q.Where("r.is_system_role = ?", false)
			}
			return q
		},
	}

	records, total, err := r.roles.List(ctx, criteria...)
	if err != nil {
		return types.RolePage{}, types.Persistence(err, "list roles")
	}
	roles := make([]types.Role, 0, len(records))
	for _, record := range records {
		roles = append(roles, *RecordToRole(record))
	}
	return types.RolePage{
		Roles:      roles,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// LoadRole reads a tenant role through db, which may be a transaction.
func LoadRole(ctx context.Context, db bun.IDB, tenantID, id uuid.UUID) (*RoleRecord, error) {
	record := &RoleRecord{}
	err := db.NewSelect().
		Model(record).
		Where("r.id = ?", id).
		Where("r.tenant_id = ?", tenantID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NotFound("role", id)
		}
		return nil, types.Persistence(err, "load role")
	}
	return record, nil
}

// ListTenantRoles returns every role of a tenant ordered by name.
func ListTenantRoles(ctx context.Context, db bun.IDB, tenantID uuid.UUID) ([]types.Role, error) {
	var records []*RoleRecord
	err := withUserCount(db.NewSelect().Model(&records)).
		Where("r.tenant_id = ?", tenantID).
		OrderExpr("LOWER(r.name) ASC").
		Scan(ctx)
	if err != nil {
		return nil, types.Persistence(err, "list tenant roles")
	}
	roles := make([]types.Role, 0, len(records))
	for _, record := range records {
		roles = append(roles, *RecordToRole(record))
	}
	return roles, nil
}

func lockRole(ctx context.Context, tx bun.IDB, tenantID, id uuid.UUID) (*RoleRecord, error) {
	record := &RoleRecord{}
	q := tx.NewSelect().
		Model(record).
		Where("r.id = ?", id).
		Where("r.tenant_id = ?", tenantID)
	if err := dbutil.ForUpdate(q).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NotFound("role", id)
		}
		return nil, types.Persistence(err, "load role")
	}
	return record, nil
}

func requireTenant(ctx context.Context, db bun.IDB, tenantID uuid.UUID) error {
	exists, err := db.NewSelect().
		Table("tenants").
		Where("id = ?", tenantID).
		Exists(ctx)
	if err != nil {
		return types.Persistence(err, "load tenant")
	}
	if !exists {
		return types.NotFound("tenant", tenantID)
	}
	return nil
}

func withUserCount(q *bun.SelectQuery) *bun.SelectQuery {
	return q.ColumnExpr("r.*").
		ColumnExpr("(SELECT COUNT(*) FROM users AS u WHERE u.role_id = r.id) AS user_count")
}

func tenantCriteria(tenantID uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("r.tenant_id = ?", tenantID)
	}
}

func (r *RoleRegistry) emitRoleEvent(ctx context.Context, event types.RoleEvent) {
	if r.hooks.AfterRoleChange == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("role hook panic", errors.New("panic in AfterRoleChange"), "panic", rec)
		}
	}()
	r.hooks.AfterRoleChange(ctx, event)
}

func normalizeRoleName(name string) string {
	return strings.TrimSpace(name)
}
