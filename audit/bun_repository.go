package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-masker"
	"github.com/goliatone/go-permissions/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TxRecorder appends audit entries inside a caller-owned transaction. Stores
// that change state take one so the state change and its audit row commit or
// roll back together.
type TxRecorder interface {
	RecordTx(ctx context.Context, db bun.IDB, entry types.AuditEntry) (*types.AuditEntry, error)
}

// RepositoryConfig wires the Bun-backed audit repository.
type RepositoryConfig struct {
	DB          *bun.DB
	Repository  repository.Repository[*EntryRecord]
	Masker      *masker.Masker
	Clock       types.Clock
	IDGenerator types.IDGenerator
	Hooks       types.Hooks
	Logger      types.Logger
}

// Repository persists audit entries and serves the read side. It keeps the
// go-repository-bun store private so no update or delete is reachable.
type Repository struct {
	store  repository.Repository[*EntryRecord]
	db     *bun.DB
	masker *masker.Masker
	clock  types.Clock
	idGen  types.IDGenerator
	hooks  types.Hooks
	logger types.Logger
}

var (
	_ types.AuditSink       = (*Repository)(nil)
	_ types.AuditRepository = (*Repository)(nil)
	_ TxRecorder            = (*Repository)(nil)
)

// NewRepository constructs the default audit repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("audit: db required")
	}
	store := cfg.Repository
	if store == nil {
		store = repository.NewRepository(cfg.DB, repository.ModelHandlers[*EntryRecord]{
			NewRecord: func() *EntryRecord { return &EntryRecord{} },
			GetID: func(record *EntryRecord) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *EntryRecord, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGenerator
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	mask := cfg.Masker
	if mask == nil {
		mask = DefaultMasker()
	}
	return &Repository{
		store:  store,
		db:     cfg.DB,
		masker: mask,
		clock:  clock,
		idGen:  idGen,
		hooks:  cfg.Hooks,
		logger: logger,
	}, nil
}

// Record appends an entry outside any transaction.
func (r *Repository) Record(ctx context.Context, entry types.AuditEntry) (*types.AuditEntry, error) {
	stored, err := r.RecordTx(ctx, r.db, entry)
	if err != nil {
		return nil, err
	}
	r.emit(ctx, *stored)
	return stored, nil
}

// RecordTx appends an entry using db, normally a bun.Tx. A failure must
// abort the caller's transaction.
func (r *Repository) RecordTx(ctx context.Context, db bun.IDB, entry types.AuditEntry) (*types.AuditEntry, error) {
	if db == nil {
		return nil, types.ErrMissingDB
	}
	prepared, err := r.prepare(entry)
	if err != nil {
		return nil, err
	}
	record := toRecord(prepared)
	if _, err := db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, types.Persistence(err, "record audit entry")
	}
	out := toEntry(record)
	return &out, nil
}

func (r *Repository) prepare(entry types.AuditEntry) (types.AuditEntry, error) {
	entry.Action = strings.TrimSpace(entry.Action)
	if entry.Action == "" {
		return entry, types.Validation("audit action required", nil)
	}
	if entry.TenantID == uuid.Nil {
		return entry, types.ErrTenantIDRequired
	}
	if entry.ID == uuid.Nil {
		entry.ID = r.idGen.UUID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.clock.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.ResourceType = strings.TrimSpace(entry.ResourceType)
	entry.ResourceID = strings.TrimSpace(entry.ResourceID)
	entry.Metadata = SanitizeMetadata(r.masker, entry.Metadata)
	return entry, nil
}

// Query returns a page of entries, newest first.
func (r *Repository) Query(ctx context.Context, filter types.AuditFilter) (types.AuditPage, error) {
	if err := filter.Validate(); err != nil {
		return types.AuditPage{}, err
	}
	pagination := types.NormalizePagination(filter.Pagination, 50, 500)
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.OrderExpr("created_at DESC, id DESC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
			return applyFilter(q, filter)
		},
	}
	rows, total, err := r.store.List(ctx, criteria...)
	if err != nil {
		return types.AuditPage{}, types.Persistence(err, "query audit log")
	}
	entries := make([]types.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toEntry(row))
	}
	return types.AuditPage{
		Entries:    entries,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// Export streams every entry matching filter, oldest first, without
// materializing the result set. Pagination on filter is ignored.
func (r *Repository) Export(ctx context.Context, filter types.AuditFilter, fn func(types.AuditEntry) error) error {
	if fn == nil {
		return nil
	}
	if err := filter.Validate(); err != nil {
		return err
	}
	q := r.db.NewSelect().
		Model((*EntryRecord)(nil)).
		OrderExpr("created_at ASC, id ASC")
	rows, err := applyFilter(q, filter).Rows(ctx)
	if err != nil {
		return types.Persistence(err, "export audit log")
	}
	defer rows.Close()

	for rows.Next() {
		var record EntryRecord
		if err := r.db.ScanRow(ctx, rows, &record); err != nil {
			return types.Persistence(err, "scan audit entry")
		}
		if err := fn(toEntry(&record)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return types.Persistence(err, "export audit log")
	}
	return nil
}

func (r *Repository) emit(ctx context.Context, entry types.AuditEntry) {
	if r.hooks.AfterAudit == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("audit hook panic", errors.New("panic in AfterAudit"), "panic", rec)
		}
	}()
	r.hooks.AfterAudit(ctx, entry)
}

func applyFilter(q *bun.SelectQuery, filter types.AuditFilter) *bun.SelectQuery {
	if filter.TenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.ActorID != uuid.Nil {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		q = q.Where("action = ?", action)
	}
	if resourceType := strings.TrimSpace(filter.ResourceType); resourceType != "" {
		q = q.Where("resource_type = ?", resourceType)
	}
	if resourceID := strings.TrimSpace(filter.ResourceID); resourceID != "" {
		q = q.Where("resource_id = ?", resourceID)
	}
	if filter.DateFrom != nil && !filter.DateFrom.IsZero() {
		q = q.Where("created_at >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil && !filter.DateTo.IsZero() {
		q = q.Where("created_at <= ?", filter.DateTo.UTC())
	}
	return q
}
