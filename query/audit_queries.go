package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// AuditLogQuery pages through the audit log of one tenant.
type AuditLogQuery struct {
	repo  types.AuditRepository
	guard scope.Guard
}

// NewAuditLogQuery builds the audit query.
func NewAuditLogQuery(repo types.AuditRepository, guard scope.Guard) *AuditLogQuery {
	return &AuditLogQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.AuditFilter, types.AuditPage] = (*AuditLogQuery)(nil)

// Query enforces tenant scoping and forwards to the repository.
func (q *AuditLogQuery) Query(ctx context.Context, filter types.AuditFilter) (types.AuditPage, error) {
	if q.repo == nil {
		return types.AuditPage{}, types.ErrMissingAuditRepository
	}
	if err := filter.Validate(); err != nil {
		return types.AuditPage{}, err
	}
	tenantID, err := q.guard.Enforce(ctx, filter.Actor, filter.TenantID, types.PolicyActionAuditRead, uuid.Nil)
	if err != nil {
		return types.AuditPage{}, err
	}
	filter.TenantID = tenantID
	return q.repo.Query(ctx, filter)
}

// AuditExportInput streams every matching entry through Fn.
type AuditExportInput struct {
	Filter types.AuditFilter
	Fn     func(types.AuditEntry) error
}

// Type implements gocommand.Message.
func (AuditExportInput) Type() string {
	return "query.audit.export"
}

// Validate implements gocommand.Message.
func (input AuditExportInput) Validate() error {
	if input.Fn == nil {
		return types.Validation("export callback required", nil)
	}
	return input.Filter.Validate()
}

// AuditExportQuery authorizes and runs an unpaginated export. The result is
// the number of exported rows.
type AuditExportQuery struct {
	repo  types.AuditRepository
	guard scope.Guard
}

// NewAuditExportQuery builds the export query.
func NewAuditExportQuery(repo types.AuditRepository, guard scope.Guard) *AuditExportQuery {
	return &AuditExportQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[AuditExportInput, int] = (*AuditExportQuery)(nil)

// Authorize validates the filter and resolves its tenant without touching the
// log, so transports can reject an export before they commit to a response.
func (q *AuditExportQuery) Authorize(ctx context.Context, filter types.AuditFilter) (types.AuditFilter, error) {
	if q.repo == nil {
		return filter, types.ErrMissingAuditRepository
	}
	if err := filter.Validate(); err != nil {
		return filter, err
	}
	tenantID, err := q.guard.Enforce(ctx, filter.Actor, filter.TenantID, types.PolicyActionAuditExport, uuid.Nil)
	if err != nil {
		return filter, err
	}
	filter.TenantID = tenantID
	return filter, nil
}

// Query runs the export.
func (q *AuditExportQuery) Query(ctx context.Context, input AuditExportInput) (int, error) {
	if input.Fn == nil {
		return 0, types.Validation("export callback required", nil)
	}
	filter, err := q.Authorize(ctx, input.Filter)
	if err != nil {
		return 0, err
	}
	count := 0
	err = q.repo.Export(ctx, filter, func(entry types.AuditEntry) error {
		count++
		return input.Fn(entry)
	})
	return count, err
}
