package service

import (
	"context"

	"github.com/goliatone/go-permissions/command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/query"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

// Service is the entry point for go-permissions. It wires the catalog,
// role registry, accounts, resolver, lockout manager and audit log into
// command/query facades guarded by a single scope guard.
type Service struct {
	cfg        Config
	commands   Commands
	queries    Queries
	scopeGuard scope.Guard
	policyErr  error
}

// Commands exposes the service command handlers.
type Commands struct {
	SetRolePermissions    *command.SetRolePermissionsCommand
	SetUserPermissions    *command.SetUserPermissionsCommand
	CreateRole            *command.CreateRoleCommand
	UpdateRole            *command.UpdateRoleCommand
	DeleteRole            *command.DeleteRoleCommand
	CreateUser            *command.CreateUserCommand
	ChangeUserRole        *command.ChangeUserRoleCommand
	SetUserStatus         *command.SetUserStatusCommand
	LockUser              *command.LockUserCommand
	UnlockUser            *command.UnlockUserCommand
	RecordFailedLogin     *command.RecordFailedLoginCommand
	RecordSuccessfulLogin *command.RecordSuccessfulLoginCommand
	CreateTenant          *command.CreateTenantCommand
	SetTenantStatus       *command.SetTenantStatusCommand
	CreateSystem          *command.CreateSystemCommand
	SetSystemActive       *command.SetSystemActiveCommand
	SetTenantSystem       *command.SetTenantSystemCommand
	CreatePage            *command.CreatePageCommand
}

// Queries exposes read-model helpers.
type Queries struct {
	EffectivePermissions *query.EffectivePermissionsQuery
	CheckPermission      *query.CheckPermissionQuery
	RoleMatrix           *query.RoleMatrixQuery
	UserMatrix           *query.UserMatrixQuery
	RoleList             *query.RoleListQuery
	RoleDetail           *query.RoleDetailQuery
	UserList             *query.UserListQuery
	UserDetail           *query.UserDetailQuery
	LockedUsers          *query.LockedUsersQuery
	UnlockHistory        *query.UnlockHistoryQuery
	LockStatus           *query.LockStatusQuery
	AuditLog             *query.AuditLogQuery
	AuditExport          *query.AuditExportQuery
	PageList             *query.PageListQuery
}

// Pinger is implemented by *bun.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Config captures all required dependencies so callers can provide their own
// instances. NewBun builds the bun-backed defaults.
type Config struct {
	Catalog     types.Catalog
	Roles       types.RoleRegistry
	Users       types.UserRepository
	Resolver    types.PermissionResolver
	Matrix      types.MatrixAssembler
	Lockout     types.LockoutManager
	AuditSink   types.AuditSink
	AuditLog    types.AuditRepository
	DB          Pinger
	Hooks       types.Hooks
	Clock       types.Clock
	IDGenerator types.IDGenerator
	Logger      types.Logger
	// AuthorizationPolicy overrides the resolver-backed admin policy.
	AuthorizationPolicy types.AuthorizationPolicy
	// AdminPageID is the page whose flags govern administration actions.
	// AdminPages refines it per action. With neither set, and no
	// AuthorizationPolicy, only system administrators pass administration
	// checks.
	AdminPageID uuid.UUID
	AdminPages  map[types.PolicyAction]uuid.UUID
}

// New constructs a Service from the supplied configuration. A policy that
// cannot be built leaves the service denying administration actions and
// reports the error from HealthCheck.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)
	policy, err := adminPolicy(norm)
	if err != nil {
		norm.Logger.Error("go-permissions: admin page policy initialization failed", err)
		policy = scope.DenyPolicy()
	}

	s := &Service{
		cfg:        norm,
		scopeGuard: scope.Ensure(scope.NewGuard(policy)),
		policyErr:  err,
	}
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func adminPolicy(cfg Config) (types.AuthorizationPolicy, error) {
	if cfg.AuthorizationPolicy != nil {
		return cfg.AuthorizationPolicy, nil
	}
	if cfg.AdminPageID == uuid.Nil && len(cfg.AdminPages) == 0 {
		cfg.Logger.Info("go-permissions: no admin page configured, administration restricted to system administrators")
		return scope.DenyPolicy(), nil
	}
	policy, err := scope.NewPagePolicy(scope.PagePolicyConfig{
		Resolver:    cfg.Resolver,
		DefaultPage: cfg.AdminPageID,
		Pages:       cfg.AdminPages,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	if cfg.Matrix == nil {
		if cast, ok := cfg.Resolver.(types.MatrixAssembler); ok {
			cfg.Matrix = cast
		}
	}
	if cfg.AuditLog == nil {
		if cast, ok := cfg.AuditSink.(types.AuditRepository); ok {
			cfg.AuditLog = cast
		}
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Resolver exposes the injected resolver for in-process permission checks.
func (s *Service) Resolver() types.PermissionResolver {
	if s == nil {
		return nil
	}
	return s.cfg.Resolver
}

// AuditLog exposes the read side of the audit log for exports.
func (s *Service) AuditLog() types.AuditRepository {
	if s == nil {
		return nil
	}
	return s.cfg.AuditLog
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil && s.missingDependency() == nil
}

// HealthCheck reports missing configuration and pings the store when a
// pinger was supplied.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s == nil {
		return types.ErrServiceNotReady
	}
	if err := s.missingDependency(); err != nil {
		return err
	}
	if s.cfg.DB != nil {
		if err := s.cfg.DB.PingContext(ctx); err != nil {
			return types.Persistence(err, "ping store")
		}
	}
	return nil
}

func (s *Service) missingDependency() error {
	switch {
	case s.policyErr != nil:
		return s.policyErr
	case s.cfg.Catalog == nil:
		return types.ErrMissingCatalog
	case s.cfg.Roles == nil:
		return types.ErrMissingRoleRegistry
	case s.cfg.Users == nil:
		return types.ErrMissingAccounts
	case s.cfg.Resolver == nil, s.cfg.Matrix == nil:
		return types.ErrMissingResolver
	case s.cfg.Lockout == nil:
		return types.ErrMissingLockoutManager
	case s.cfg.AuditSink == nil, s.cfg.AuditLog == nil:
		return types.ErrMissingAuditRepository
	}
	return nil
}

// ScopeGuard exposes the guard instance used internally so transports can
// reuse the same policy combination for HTTP adapters.
func (s *Service) ScopeGuard() scope.Guard {
	if s == nil {
		return scope.NopGuard()
	}
	return scope.Ensure(s.scopeGuard)
}

func (s *Service) buildCommands() Commands {
	catalogCfg := command.CatalogCommandConfig{
		Catalog: s.cfg.Catalog,
		Audit:   s.cfg.AuditSink,
		Logger:  s.cfg.Logger,
	}
	return Commands{
		SetRolePermissions:    command.NewSetRolePermissionsCommand(s.cfg.Matrix, s.scopeGuard, s.cfg.Logger),
		SetUserPermissions:    command.NewSetUserPermissionsCommand(s.cfg.Matrix, s.scopeGuard, s.cfg.Logger),
		CreateRole:            command.NewCreateRoleCommand(s.cfg.Roles, s.scopeGuard),
		UpdateRole:            command.NewUpdateRoleCommand(s.cfg.Roles, s.scopeGuard),
		DeleteRole:            command.NewDeleteRoleCommand(s.cfg.Roles, s.scopeGuard),
		CreateUser:            command.NewCreateUserCommand(s.cfg.Users, s.scopeGuard),
		ChangeUserRole:        command.NewChangeUserRoleCommand(s.cfg.Users, s.scopeGuard),
		SetUserStatus:         command.NewSetUserStatusCommand(s.cfg.Users, s.scopeGuard, s.cfg.Logger),
		LockUser:              command.NewLockUserCommand(s.cfg.Lockout, s.scopeGuard),
		UnlockUser:            command.NewUnlockUserCommand(s.cfg.Lockout, s.scopeGuard),
		RecordFailedLogin:     command.NewRecordFailedLoginCommand(s.cfg.Lockout),
		RecordSuccessfulLogin: command.NewRecordSuccessfulLoginCommand(s.cfg.Lockout),
		CreateTenant:          command.NewCreateTenantCommand(catalogCfg),
		SetTenantStatus:       command.NewSetTenantStatusCommand(catalogCfg),
		CreateSystem:          command.NewCreateSystemCommand(catalogCfg),
		SetSystemActive:       command.NewSetSystemActiveCommand(catalogCfg),
		SetTenantSystem:       command.NewSetTenantSystemCommand(catalogCfg),
		CreatePage:            command.NewCreatePageCommand(catalogCfg),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		EffectivePermissions: query.NewEffectivePermissionsQuery(s.cfg.Resolver, s.scopeGuard),
		CheckPermission:      query.NewCheckPermissionQuery(s.cfg.Resolver, s.scopeGuard),
		RoleMatrix:           query.NewRoleMatrixQuery(s.cfg.Matrix, s.scopeGuard),
		UserMatrix:           query.NewUserMatrixQuery(s.cfg.Matrix, s.scopeGuard),
		RoleList:             query.NewRoleListQuery(s.cfg.Roles, s.scopeGuard),
		RoleDetail:           query.NewRoleDetailQuery(s.cfg.Roles, s.scopeGuard),
		UserList:             query.NewUserListQuery(s.cfg.Users, s.scopeGuard),
		UserDetail:           query.NewUserDetailQuery(s.cfg.Users, s.scopeGuard),
		LockedUsers:          query.NewLockedUsersQuery(s.cfg.Lockout, s.scopeGuard),
		UnlockHistory:        query.NewUnlockHistoryQuery(s.cfg.Lockout, s.scopeGuard),
		LockStatus:           query.NewLockStatusQuery(s.cfg.Lockout),
		AuditLog:             query.NewAuditLogQuery(s.cfg.AuditLog, s.scopeGuard),
		AuditExport:          query.NewAuditExportQuery(s.cfg.AuditLog, s.scopeGuard),
		PageList:             query.NewPageListQuery(s.cfg.Catalog),
	}
}
