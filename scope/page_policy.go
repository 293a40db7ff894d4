package scope

import (
	"context"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
)

// PagePolicyConfig maps administration actions onto the pages that govern
// them. Actions without an entry fall back to DefaultPage; when both are
// empty the action is denied.
type PagePolicyConfig struct {
	Resolver    types.PermissionResolver
	DefaultPage uuid.UUID
	Pages       map[types.PolicyAction]uuid.UUID
	Logger      types.Logger
}

// PagePolicy authorizes administration actions with the same resolver that
// guards the application pages, so admin access is granted through the
// role matrix like any other page.
type PagePolicy struct {
	resolver    types.PermissionResolver
	defaultPage uuid.UUID
	pages       map[types.PolicyAction]uuid.UUID
	logger      types.Logger
}

var _ types.AuthorizationPolicy = (*PagePolicy)(nil)

// NewPagePolicy builds a resolver-backed policy.
func NewPagePolicy(cfg PagePolicyConfig) (*PagePolicy, error) {
	if cfg.Resolver == nil {
		return nil, types.ErrMissingResolver
	}
	if cfg.DefaultPage == uuid.Nil && len(cfg.Pages) == 0 {
		return nil, types.ErrMissingAdminPage
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	pages := make(map[types.PolicyAction]uuid.UUID, len(cfg.Pages))
	for action, page := range cfg.Pages {
		pages[action] = page
	}
	return &PagePolicy{
		resolver:    cfg.Resolver,
		defaultPage: cfg.DefaultPage,
		pages:       pages,
		logger:      logger,
	}, nil
}

// Authorize implements types.AuthorizationPolicy.
func (p *PagePolicy) Authorize(ctx context.Context, check types.PolicyCheck) error {
	if check.Actor.IsSystemAdmin() || check.Actor.IsSystem() {
		return nil
	}
	page := p.pageFor(check.Action)
	if page == uuid.Nil {
		p.logger.Debug("admin policy has no page for action", "tenant_id", check.TenantID, "actor_id", check.Actor.ID, "action", check.Action)
		return types.PermissionDenied()
	}
	err := p.resolver.Authorize(ctx, check.TenantID, check.Actor.ID, page, check.Action.PageAction())
	if err == nil {
		return nil
	}
	if types.IsNotFound(err) {
		p.logger.Debug("admin policy target missing", "tenant_id", check.TenantID, "actor_id", check.Actor.ID, "action", check.Action)
		return types.PermissionDenied()
	}
	return err
}

func (p *PagePolicy) pageFor(action types.PolicyAction) uuid.UUID {
	if page, ok := p.pages[action]; ok && page != uuid.Nil {
		return page
	}
	return p.defaultPage
}

// DenyPolicy allows administration actions to system administrators and the
// engine only. Services without an admin page fall back to it.
func DenyPolicy() types.AuthorizationPolicy {
	return types.AuthorizationPolicyFunc(func(_ context.Context, check types.PolicyCheck) error {
		if check.Actor.IsSystemAdmin() || check.Actor.IsSystem() {
			return nil
		}
		return types.PermissionDenied()
	})
}
