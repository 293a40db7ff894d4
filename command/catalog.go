package command

import (
	"context"
	"strconv"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
)

// CatalogCommandConfig wires the catalog administration handlers. Catalog
// writes span tenants, so they are limited to system administrators.
type CatalogCommandConfig struct {
	Catalog types.Catalog
	Audit   types.AuditSink
	Logger  types.Logger
}

type catalogCommand struct {
	catalog types.Catalog
	audit   types.AuditSink
	logger  types.Logger
}

func newCatalogCommand(cfg CatalogCommandConfig) catalogCommand {
	return catalogCommand{
		catalog: cfg.Catalog,
		audit:   cfg.Audit,
		logger:  safeLogger(cfg.Logger),
	}
}

// CreateTenantInput registers a tenant.
type CreateTenantInput struct {
	ID     uuid.UUID
	Name   string
	Status types.TenantStatus
	Actor  types.ActorRef
	Result *types.Tenant
}

// Type implements gocommand.Message.
func (CreateTenantInput) Type() string {
	return "command.catalog.tenant.create"
}

// Validate implements gocommand.Message.
func (input CreateTenantInput) Validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrNameRequired
	}
	return requireActor(input.Actor)
}

// CreateTenantCommand registers tenants.
type CreateTenantCommand struct {
	catalogCommand
}

// NewCreateTenantCommand wires the tenant creation handler.
func NewCreateTenantCommand(cfg CatalogCommandConfig) *CreateTenantCommand {
	return &CreateTenantCommand{newCatalogCommand(cfg)}
}

var _ gocommand.Commander[CreateTenantInput] = (*CreateTenantCommand)(nil)

// Execute creates the tenant and audits it inside the new tenant.
func (c *CreateTenantCommand) Execute(ctx context.Context, input CreateTenantInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if err := requireGlobalAdmin(input.Actor); err != nil {
		return err
	}
	tenant, err := c.catalog.CreateTenant(ctx, types.TenantInput{
		ID:     input.ID,
		Name:   strings.TrimSpace(input.Name),
		Status: input.Status,
		Actor:  input.Actor,
	})
	if err != nil {
		return err
	}
	recordAudit(ctx, c.audit, c.logger, types.AuditEntry{
		TenantID:     tenant.ID,
		ActorID:      input.Actor.ID,
		Action:       types.AuditActionTenantCreated,
		ResourceType: types.AuditResourceTenant,
		ResourceID:   tenant.ID.String(),
		Details:      "tenant " + tenant.Name + " created",
		Metadata:     map[string]any{"name": tenant.Name, "status": string(tenant.Status)},
	})
	if input.Result != nil {
		*input.Result = *tenant
	}
	return nil
}

// SetTenantStatusInput activates or deactivates a tenant.
type SetTenantStatusInput struct {
	TenantID uuid.UUID
	Status   types.TenantStatus
	Actor    types.ActorRef
	Result   *types.Tenant
}

// Type implements gocommand.Message.
func (SetTenantStatusInput) Type() string {
	return "command.catalog.tenant.status"
}

// Validate implements gocommand.Message.
func (input SetTenantStatusInput) Validate() error {
	switch {
	case input.TenantID == uuid.Nil:
		return ErrTenantIDRequired
	case !input.Status.Valid():
		return types.Validation("unknown tenant status", map[string]any{"status": string(input.Status)})
	default:
		return requireActor(input.Actor)
	}
}

// SetTenantStatusCommand toggles the tenant lifecycle.
type SetTenantStatusCommand struct {
	catalogCommand
}

// NewSetTenantStatusCommand wires the tenant status handler.
func NewSetTenantStatusCommand(cfg CatalogCommandConfig) *SetTenantStatusCommand {
	return &SetTenantStatusCommand{newCatalogCommand(cfg)}
}

var _ gocommand.Commander[SetTenantStatusInput] = (*SetTenantStatusCommand)(nil)

// Execute updates the tenant status.
func (c *SetTenantStatusCommand) Execute(ctx context.Context, input SetTenantStatusInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if err := requireGlobalAdmin(input.Actor); err != nil {
		return err
	}
	tenant, err := c.catalog.SetTenantStatus(ctx, input.TenantID, input.Status)
	if err != nil {
		return err
	}
	recordAudit(ctx, c.audit, c.logger, types.AuditEntry{
		TenantID:     tenant.ID,
		ActorID:      input.Actor.ID,
		Action:       types.AuditActionTenantStatusChanged,
		ResourceType: types.AuditResourceTenant,
		ResourceID:   tenant.ID.String(),
		Details:      "tenant status set to " + string(tenant.Status),
		Metadata:     map[string]any{"status": string(tenant.Status)},
	})
	if input.Result != nil {
		*input.Result = *tenant
	}
	return nil
}

// CreateSystemInput registers a system module.
type CreateSystemInput struct {
	ID       uuid.UUID
	Name     string
	IsActive bool
	Actor    types.ActorRef
	Result   *types.System
}

// Type implements gocommand.Message.
func (CreateSystemInput) Type() string {
	return "command.catalog.system.create"
}

// Validate implements gocommand.Message.
func (input CreateSystemInput) Validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrNameRequired
	}
	return requireActor(input.Actor)
}

// CreateSystemCommand registers systems.
type CreateSystemCommand struct {
	catalogCommand
}

// NewCreateSystemCommand wires the system creation handler.
func NewCreateSystemCommand(cfg CatalogCommandConfig) *CreateSystemCommand {
	return &CreateSystemCommand{newCatalogCommand(cfg)}
}

var _ gocommand.Commander[CreateSystemInput] = (*CreateSystemCommand)(nil)

// Execute creates the system. Systems are global, so no tenant audit row is
// written.
func (c *CreateSystemCommand) Execute(ctx context.Context, input CreateSystemInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if err := requireGlobalAdmin(input.Actor); err != nil {
		return err
	}
	system, err := c.catalog.CreateSystem(ctx, types.SystemInput{
		ID:       input.ID,
		Name:     strings.TrimSpace(input.Name),
		IsActive: input.IsActive,
		Actor:    input.Actor,
	})
	if err != nil {
		return err
	}
	c.logger.Info("system created", "system_id", system.ID, "name", system.Name, "actor_id", input.Actor.ID)
	if input.Result != nil {
		*input.Result = *system
	}
	return nil
}

// SetSystemActiveInput toggles a system globally.
type SetSystemActiveInput struct {
	SystemID uuid.UUID
	Active   bool
	Actor    types.ActorRef
	Result   *types.System
}

// Type implements gocommand.Message.
func (SetSystemActiveInput) Type() string {
	return "command.catalog.system.active"
}

// Validate implements gocommand.Message.
func (input SetSystemActiveInput) Validate() error {
	if input.SystemID == uuid.Nil {
		return ErrSystemIDRequired
	}
	return requireActor(input.Actor)
}

// SetSystemActiveCommand toggles systems globally.
type SetSystemActiveCommand struct {
	catalogCommand
}

// NewSetSystemActiveCommand wires the global system toggle.
func NewSetSystemActiveCommand(cfg CatalogCommandConfig) *SetSystemActiveCommand {
	return &SetSystemActiveCommand{newCatalogCommand(cfg)}
}

var _ gocommand.Commander[SetSystemActiveInput] = (*SetSystemActiveCommand)(nil)

// Execute toggles the system.
func (c *SetSystemActiveCommand) Execute(ctx context.Context, input SetSystemActiveInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if err := requireGlobalAdmin(input.Actor); err != nil {
		return err
	}
	system, err := c.catalog.SetSystemActive(ctx, input.SystemID, input.Active)
	if err != nil {
		return err
	}
	c.logger.Info("system activation changed", "system_id", system.ID, "active", system.IsActive, "actor_id", input.Actor.ID)
	if input.Result != nil {
		*input.Result = *system
	}
	return nil
}

// SetTenantSystemInput activates or deactivates a system for one tenant.
type SetTenantSystemInput struct {
	TenantID uuid.UUID
	SystemID uuid.UUID
	Active   bool
	Actor    types.ActorRef
	Result   *types.TenantSystem
}

// Type implements gocommand.Message.
func (SetTenantSystemInput) Type() string {
	return "command.catalog.tenant_system.set"
}

// Validate implements gocommand.Message.
func (input SetTenantSystemInput) Validate() error {
	switch {
	case input.TenantID == uuid.Nil:
		return ErrTenantIDRequired
	case input.SystemID == uuid.Nil:
		return ErrSystemIDRequired
	default:
		return requireActor(input.Actor)
	}
}

// SetTenantSystemCommand manages tenant activation of systems.
type SetTenantSystemCommand struct {
	catalogCommand
}

// NewSetTenantSystemCommand wires the activation handler.
func NewSetTenantSystemCommand(cfg CatalogCommandConfig) *SetTenantSystemCommand {
	return &SetTenantSystemCommand{newCatalogCommand(cfg)}
}

var _ gocommand.Commander[SetTenantSystemInput] = (*SetTenantSystemCommand)(nil)

// Execute stores the activation and audits it inside the tenant.
func (c *SetTenantSystemCommand) Execute(ctx context.Context, input SetTenantSystemInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if err := requireGlobalAdmin(input.Actor); err != nil {
		return err
	}
	link, err := c.catalog.SetTenantSystem(ctx, input.TenantID, input.SystemID, input.Active)
	if err != nil {
		return err
	}
	recordAudit(ctx, c.audit, c.logger, types.AuditEntry{
		TenantID:     link.TenantID,
		ActorID:      input.Actor.ID,
		Action:       types.AuditActionSystemActivated,
		ResourceType: types.AuditResourceSystem,
		ResourceID:   link.SystemID.String(),
		Details:      "system active set to " + strconv.FormatBool(link.IsActive),
		Metadata:     map[string]any{"is_active": link.IsActive},
	})
	if input.Result != nil {
		*input.Result = *link
	}
	return nil
}

// CreatePageInput registers a page under a system.
type CreatePageInput struct {
	ID        uuid.UUID
	SystemID  uuid.UUID
	Name      string
	Route     string
	SortOrder int
	Actor     types.ActorRef
	Result    *types.Page
}

// Type implements gocommand.Message.
func (CreatePageInput) Type() string {
	return "command.catalog.page.create"
}

// Validate implements gocommand.Message.
func (input CreatePageInput) Validate() error {
	switch {
	case input.SystemID == uuid.Nil:
		return ErrSystemIDRequired
	case strings.TrimSpace(input.Name) == "":
		return ErrNameRequired
	case strings.TrimSpace(input.Route) == "":
		return ErrRouteRequired
	default:
		return requireActor(input.Actor)
	}
}

// CreatePageCommand registers pages.
type CreatePageCommand struct {
	catalogCommand
}

// NewCreatePageCommand wires the page creation handler.
func NewCreatePageCommand(cfg CatalogCommandConfig) *CreatePageCommand {
	return &CreatePageCommand{newCatalogCommand(cfg)}
}

var _ gocommand.Commander[CreatePageInput] = (*CreatePageCommand)(nil)

// Execute creates the page.
func (c *CreatePageCommand) Execute(ctx context.Context, input CreatePageInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if err := requireGlobalAdmin(input.Actor); err != nil {
		return err
	}
	page, err := c.catalog.CreatePage(ctx, types.PageInput{
		ID:        input.ID,
		SystemID:  input.SystemID,
		Name:      strings.TrimSpace(input.Name),
		Route:     strings.TrimSpace(input.Route),
		SortOrder: input.SortOrder,
		Actor:     input.Actor,
	})
	if err != nil {
		return err
	}
	c.logger.Info("page created", "page_id", page.ID, "system_id", page.SystemID, "route", page.Route, "actor_id", idString(input.Actor.ID))
	if input.Result != nil {
		*input.Result = *page
	}
	return nil
}
