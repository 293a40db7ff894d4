package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-permissions/internal/dbutil"
	"github.com/goliatone/go-permissions/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Config wires the Bun-backed catalog.
type Config struct {
	DB          *bun.DB
	Tenants     repository.Repository[*TenantRecord]
	Systems     repository.Repository[*SystemRecord]
	Pages       repository.Repository[*PageRecord]
	Clock       types.Clock
	Logger      types.Logger
	IDGenerator types.IDGenerator
}

// Catalog persists tenants, systems, activation and pages.
type Catalog struct {
	db      *bun.DB
	tenants repository.Repository[*TenantRecord]
	systems repository.Repository[*SystemRecord]
	pages   repository.Repository[*PageRecord]
	clock   types.Clock
	logger  types.Logger
	idGen   types.IDGenerator
}

var _ types.Catalog = (*Catalog)(nil)

// New constructs the default catalog. DB is required because tenant system
// activation is written with bun directly.
func New(cfg Config, opts ...RepositoryOption) (*Catalog, error) {
	if cfg.DB == nil {
		return nil, errors.New("catalog: db required")
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

	tenants := cfg.Tenants
	if tenants == nil {
		tenants = repository.NewRepository(cfg.DB, repository.ModelHandlers[*TenantRecord]{
			NewRecord: func() *TenantRecord { return &TenantRecord{} },
			GetID: func(record *TenantRecord) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *TenantRecord, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	systems := cfg.Systems
	if systems == nil {
		systems = repository.NewRepository(cfg.DB, repository.ModelHandlers[*SystemRecord]{
			NewRecord: func() *SystemRecord { return &SystemRecord{} },
			GetID: func(record *SystemRecord) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *SystemRecord, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	pages := cfg.Pages
	if pages == nil {
		pages = repository.NewRepository(cfg.DB, repository.ModelHandlers[*PageRecord]{
			NewRecord: func() *PageRecord { return &PageRecord{} },
			GetID: func(record *PageRecord) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *PageRecord, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}

	options := applyRepositoryOptions(opts)
	if options.CacheEnabled {
		var err error
		if systems, err = withCache(systems, options.CacheConfig); err != nil {
			return nil, err
		}
		if pages, err = withCache(pages, options.CacheConfig); err != nil {
			return nil, err
		}
	}

	return &Catalog{
		db:      cfg.DB,
		tenants: tenants,
		systems: systems,
		pages:   pages,
		clock:   clock,
		logger:  logger,
		idGen:   idGen,
	}, nil
}

// CreateTenant inserts a tenant. Status defaults to active.
func (c *Catalog) CreateTenant(ctx context.Context, input types.TenantInput) (*types.Tenant, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, types.Validation("tenant name required", nil)
	}
	status := input.Status
	if status == "" {
		status = types.TenantStatusActive
	}
	if !status.Valid() {
		return nil, types.Validation("unknown tenant status", map[string]any{"status": string(status)})
	}
	id := input.ID
	if id == uuid.Nil {
		id = c.idGen.UUID()
	}
	now := c.clock.Now()
	created, err := c.tenants.Create(ctx, &TenantRecord{
		ID:        id,
		Name:      name,
		Status:    string(status),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, types.Persistence(err, "create tenant")
	}
	return toTenant(created), nil
}

// GetTenant returns a tenant by id.
func (c *Catalog) GetTenant(ctx context.Context, id uuid.UUID) (*types.Tenant, error) {
	record, err := c.tenants.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFoundOr(err, "tenant", id, "get tenant")
	}
	return toTenant(record), nil
}

// SetTenantStatus activates or deactivates a tenant.
func (c *Catalog) SetTenantStatus(ctx context.Context, id uuid.UUID, status types.TenantStatus) (*types.Tenant, error) {
	if !status.Valid() {
		return nil, types.Validation("unknown tenant status", map[string]any{"status": string(status)})
	}
	record, err := c.tenants.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFoundOr(err, "tenant", id, "get tenant")
	}
	record.Status = string(status)
	record.UpdatedAt = c.clock.Now()
	updated, err := c.tenants.Update(ctx, record)
	if err != nil {
		return nil, types.Persistence(err, "update tenant")
	}
	return toTenant(updated), nil
}

// CreateSystem inserts a global system.
func (c *Catalog) CreateSystem(ctx context.Context, input types.SystemInput) (*types.System, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, types.Validation("system name required", nil)
	}
	id := input.ID
	if id == uuid.Nil {
		id = c.idGen.UUID()
	}
	created, err := c.systems.Create(ctx, &SystemRecord{
		ID:        id,
		Name:      name,
		IsActive:  input.IsActive,
		CreatedAt: c.clock.Now(),
	})
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, types.Validation("system name already exists", map[string]any{"name": name})
		}
		return nil, types.Persistence(err, "create system")
	}
	return toSystem(created), nil
}

// GetSystem returns a system by id.
func (c *Catalog) GetSystem(ctx context.Context, id uuid.UUID) (*types.System, error) {
	record, err := c.systems.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFoundOr(err, "system", id, "get system")
	}
	return toSystem(record), nil
}

// SetSystemActive toggles the global active flag of a system.
func (c *Catalog) SetSystemActive(ctx context.Context, id uuid.UUID, active bool) (*types.System, error) {
	record, err := c.systems.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFoundOr(err, "system", id, "get system")
	}
	// Cached lookups may share the record; update a copy.
	next := *record
	next.IsActive = active
	updated, err := c.systems.Update(ctx, &next)
	if err != nil {
		return nil, types.Persistence(err, "update system")
	}
	return toSystem(updated), nil
}

// SetTenantSystem activates or deactivates a system for one tenant.
func (c *Catalog) SetTenantSystem(ctx context.Context, tenantID, systemID uuid.UUID, active bool) (*types.TenantSystem, error) {
	if _, err := c.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	if _, err := c.GetSystem(ctx, systemID); err != nil {
		return nil, err
	}
	record := &TenantSystemRecord{
		TenantID:  tenantID,
		SystemID:  systemID,
		IsActive:  active,
		UpdatedAt: c.clock.Now(),
	}
	_, err := c.db.NewInsert().
		Model(record).
		On("CONFLICT (tenant_id, system_id) DO UPDATE").
		Set("is_active = EXCLUDED.is_active").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, types.Persistence(err, "set tenant system")
	}
	c.logger.Debug("tenant system activation changed", "tenant_id", tenantID, "system_id", systemID, "active", active)
	return &types.TenantSystem{
		TenantID:  record.TenantID,
		SystemID:  record.SystemID,
		IsActive:  record.IsActive,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

// SystemActiveForTenant reports whether the system is active globally and
// activated for the tenant. A missing join row means not activated.
func (c *Catalog) SystemActiveForTenant(ctx context.Context, tenantID, systemID uuid.UUID) (bool, error) {
	return SystemActiveForTenant(ctx, c.db, tenantID, systemID)
}

// SystemActiveForTenant runs the activation check on any bun.IDB so callers
// inside a transaction can reuse it.
func SystemActiveForTenant(ctx context.Context, db bun.IDB, tenantID, systemID uuid.UUID) (bool, error) {
	exists, err := db.NewSelect().
		TableExpr("tenant_systems AS ts").
		Join("JOIN systems AS s ON s.id = ts.system_id").
		Where("ts.tenant_id = ?", tenantID).
		Where("ts.system_id = ?", systemID).
		Where("ts.is_active = ?", true).
		Where("s.is_active = ?", true).
		Exists(ctx)
	if err != nil {
		return false, types.Persistence(err, "check system activation")
	}
	return exists, nil
}

// CreatePage inserts a page under an existing system.
func (c *Catalog) CreatePage(ctx context.Context, input types.PageInput) (*types.Page, error) {
	route := strings.TrimSpace(input.Route)
	if route == "" {
		return nil, types.Validation("page route required", nil)
	}
	if _, err := c.GetSystem(ctx, input.SystemID); err != nil {
		return nil, err
	}
	id := input.ID
	if id == uuid.Nil {
		id = c.idGen.UUID()
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = route
	}
	created, err := c.pages.Create(ctx, &PageRecord{
		ID:        id,
		SystemID:  input.SystemID,
		Name:      name,
		Route:     route,
		SortOrder: input.SortOrder,
	})
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, types.Validation("page route already exists in system", map[string]any{"route": route})
		}
		return nil, types.Persistence(err, "create page")
	}
	page := ToPage(created)
	return &page, nil
}

// GetPage returns a page by id.
func (c *Catalog) GetPage(ctx context.Context, id uuid.UUID) (*types.Page, error) {
	record, err := c.pages.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFoundOr(err, "page", id, "get page")
	}
	page := ToPage(record)
	return &page, nil
}

// ListPages returns the pages of a system ordered by sort order.
func (c *Catalog) ListPages(ctx context.Context, systemID uuid.UUID) ([]types.Page, error) {
	return ListPages(ctx, c.db, systemID)
}

// ListPages loads every page of a system on any bun.IDB.
func ListPages(ctx context.Context, db bun.IDB, systemID uuid.UUID) ([]types.Page, error) {
	var records []*PageRecord
	err := db.NewSelect().
		Model(&records).
		Where("system_id = ?", systemID).
		OrderExpr("sort_order ASC, route ASC").
		Scan(ctx)
	if err != nil {
		return nil, types.Persistence(err, "list pages")
	}
	pages := make([]types.Page, 0, len(records))
	for _, record := range records {
		pages = append(pages, ToPage(record))
	}
	return pages, nil
}

func notFoundOr(err error, resource string, id uuid.UUID, op string) error {
	if repository.IsRecordNotFound(err) {
		return types.NotFound(resource, id)
	}
	return types.Persistence(err, op)
}
