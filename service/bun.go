package service

import (
	masker "github.com/goliatone/go-masker"
	"github.com/goliatone/go-permissions/accounts"
	"github.com/goliatone/go-permissions/audit"
	"github.com/goliatone/go-permissions/catalog"
	"github.com/goliatone/go-permissions/lockout"
	"github.com/goliatone/go-permissions/permission"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/registry"
	"github.com/goliatone/go-permissions/resolver"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunConfig configures the bun-backed service bundle.
type BunConfig struct {
	DB                  *bun.DB
	Masker              *masker.Masker
	StatusPolicy        types.StatusPolicy
	Hooks               types.Hooks
	Clock               types.Clock
	IDGenerator         types.IDGenerator
	Logger              types.Logger
	AuthorizationPolicy types.AuthorizationPolicy
	AdminPageID         uuid.UUID
	AdminPages          map[types.PolicyAction]uuid.UUID
	// CatalogCache caches system and page lookups by id.
	CatalogCache       bool
	CatalogCacheConfig *cache.Config
}

// NewBun builds every store on top of one bun.DB and returns the wired
// service.
func NewBun(cfg BunConfig) (*Service, error) {
	if cfg.DB == nil {
		return nil, types.ErrMissingDB
	}
	auditRepo, err := audit.NewRepository(audit.RepositoryConfig{
		DB:          cfg.DB,
		Masker:      cfg.Masker,
		Clock:       cfg.Clock,
		IDGenerator: cfg.IDGenerator,
		Hooks:       cfg.Hooks,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	catalogOpts := []catalog.RepositoryOption{catalog.WithCache(cfg.CatalogCache)}
	if cfg.CatalogCacheConfig != nil {
		catalogOpts = append(catalogOpts, catalog.WithCacheConfig(*cfg.CatalogCacheConfig))
	}
	cat, err := catalog.New(catalog.Config{
		DB:          cfg.DB,
		Clock:       cfg.Clock,
		Logger:      cfg.Logger,
		IDGenerator: cfg.IDGenerator,
	}, catalogOpts...)
	if err != nil {
		return nil, err
	}
	roles, err := registry.NewRoleRegistry(registry.RoleRegistryConfig{
		DB:          cfg.DB,
		Audit:       auditRepo,
		Clock:       cfg.Clock,
		Hooks:       cfg.Hooks,
		Logger:      cfg.Logger,
		IDGenerator: cfg.IDGenerator,
	})
	if err != nil {
		return nil, err
	}
	users, err := accounts.New(accounts.Config{
		DB:          cfg.DB,
		Audit:       auditRepo,
		Policy:      cfg.StatusPolicy,
		Clock:       cfg.Clock,
		Hooks:       cfg.Hooks,
		Logger:      cfg.Logger,
		IDGenerator: cfg.IDGenerator,
	})
	if err != nil {
		return nil, err
	}
	store, err := permission.NewStore(permission.StoreConfig{
		DB:          cfg.DB,
		Clock:       cfg.Clock,
		IDGenerator: cfg.IDGenerator,
	})
	if err != nil {
		return nil, err
	}
	res, err := resolver.New(resolver.Config{
		DB:     cfg.DB,
		Store:  store,
		Audit:  auditRepo,
		Clock:  cfg.Clock,
		Hooks:  cfg.Hooks,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	manager, err := lockout.New(lockout.Config{
		DB:          cfg.DB,
		Audit:       auditRepo,
		Policy:      cfg.StatusPolicy,
		Clock:       cfg.Clock,
		Hooks:       cfg.Hooks,
		Logger:      cfg.Logger,
		IDGenerator: cfg.IDGenerator,
	})
	if err != nil {
		return nil, err
	}
	svc := New(Config{
		Catalog:             cat,
		Roles:               roles,
		Users:               users,
		Resolver:            res,
		Matrix:              res,
		Lockout:             manager,
		AuditSink:           auditRepo,
		AuditLog:            auditRepo,
		DB:                  cfg.DB,
		Hooks:               cfg.Hooks,
		Clock:               cfg.Clock,
		IDGenerator:         cfg.IDGenerator,
		Logger:              cfg.Logger,
		AuthorizationPolicy: cfg.AuthorizationPolicy,
		AdminPageID:         cfg.AdminPageID,
		AdminPages:          cfg.AdminPages,
	})
	if err := svc.policyErr; err != nil {
		return nil, err
	}
	return svc, nil
}
