package scope

import (
	"context"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
)

// Guard enforces tenant isolation and authorization policies for commands and
// queries. It is intentionally small so callers can swap custom guards in
// tests if needed.
type Guard interface {
	Enforce(ctx context.Context, actor types.ActorRef, tenantID uuid.UUID, action types.PolicyAction, target uuid.UUID) (uuid.UUID, error)
}

type guard struct {
	policy types.AuthorizationPolicy
}

// NewGuard builds a Guard around the supplied policy. A nil policy only
// enforces tenant isolation.
func NewGuard(policy types.AuthorizationPolicy) Guard {
	return guard{policy: policy}
}

// Ensure returns a non-nil guard so command/query constructors can accept nil
// guards when tests instantiate them directly.
func Ensure(g Guard) Guard {
	if g == nil {
		return NopGuard()
	}
	return g
}

// NopGuard returns a guard that resolves the tenant and never blocks.
func NopGuard() Guard {
	return nopGuard{}
}

// Enforce resolves the tenant the actor may operate on and authorizes the
// action inside it. An empty tenant resolves to the actor's own tenant; only
// system administrators and the engine itself may cross tenants.
func (g guard) Enforce(ctx context.Context, actor types.ActorRef, tenantID uuid.UUID, action types.PolicyAction, target uuid.UUID) (uuid.UUID, error) {
	if actor.IsZero() {
		return uuid.Nil, types.ErrActorRequired
	}
	resolved := resolveTenant(actor, tenantID)
	if resolved == uuid.Nil {
		return uuid.Nil, types.ErrTenantIDRequired
	}
	if resolved != actor.TenantID && !crossTenant(actor) {
		return uuid.Nil, types.PermissionDenied()
	}
	if g.policy != nil && action != "" {
		check := types.PolicyCheck{
			Actor:    actor,
			TenantID: resolved,
			Action:   action,
			TargetID: target,
		}
		if err := g.policy.Authorize(ctx, check); err != nil {
			return uuid.Nil, err
		}
	}
	return resolved, nil
}

type nopGuard struct{}

func (nopGuard) Enforce(_ context.Context, actor types.ActorRef, tenantID uuid.UUID, _ types.PolicyAction, _ uuid.UUID) (uuid.UUID, error) {
	resolved := resolveTenant(actor, tenantID)
	if resolved == uuid.Nil {
		return uuid.Nil, types.ErrTenantIDRequired
	}
	return resolved, nil
}

func resolveTenant(actor types.ActorRef, requested uuid.UUID) uuid.UUID {
	if requested != uuid.Nil {
		return requested
	}
	return actor.TenantID
}

func crossTenant(actor types.ActorRef) bool {
	return actor.IsSystemAdmin() || actor.IsSystem()
}
