package authctx

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-permissions/pkg/types"
)

const (
	textCodeActorMissing = "ACTOR_CONTEXT_MISSING"
	textCodeActorInvalid = "ACTOR_CONTEXT_INVALID"
)

type contextKey struct{}

// ActorContext is the identity payload stored by the transport after token
// verification. Identifiers stay in their wire form until ActorRef parses them.
type ActorContext struct {
	ActorID  string
	Role     string
	TenantID string
	RoleID   string
}

// WithActorContext stores the actor payload on ctx.
func WithActorContext(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFromContext returns the stored actor payload, if any.
func ActorFromContext(ctx context.Context) (*ActorContext, bool) {
	if ctx == nil {
		return nil, false
	}
	actor, ok := ctx.Value(contextKey{}).(*ActorContext)
	return actor, ok && actor != nil
}

// ResolveActorContext returns the actor payload or an unauthorized error.
func ResolveActorContext(ctx context.Context) (*ActorContext, error) {
	if ctx == nil {
		return nil, errors.New("go-permissions: missing request context", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithTextCode(textCodeActorMissing)
	}
	if actor, ok := ActorFromContext(ctx); ok {
		return actor, nil
	}
	return nil, errors.New("go-permissions: actor context not found on request", errors.CategoryAuth).
		WithCode(errors.CodeUnauthorized).
		WithTextCode(textCodeActorMissing)
}

// ResolveActor returns both the ActorRef consumed by commands and queries and
// the raw payload.
func ResolveActor(ctx context.Context) (types.ActorRef, *ActorContext, error) {
	actorCtx, err := ResolveActorContext(ctx)
	if err != nil {
		return types.ActorRef{}, nil, err
	}
	ref, err := ActorRefFromActorContext(actorCtx)
	if err != nil {
		return types.ActorRef{}, nil, err
	}
	return ref, actorCtx, nil
}

// ActorRefFromActorContext parses the payload into an ActorRef. A missing role
// defaults to a regular tenant user.
func ActorRefFromActorContext(actor *ActorContext) (types.ActorRef, error) {
	if actor == nil {
		return types.ActorRef{}, invalid("go-permissions: actor context is nil", nil)
	}
	if actor.ActorID == "" {
		return types.ActorRef{}, invalid("go-permissions: actor context missing actor_id", nil)
	}
	actorID, err := uuid.Parse(actor.ActorID)
	if err != nil {
		return types.ActorRef{}, invalid("go-permissions: invalid actor_id on auth context", err)
	}

	ref := types.ActorRef{ID: actorID, Type: actor.Role}
	if ref.Type == "" {
		ref.Type = types.ActorRoleUser
	}
	if actor.TenantID != "" {
		if ref.TenantID, err = uuid.Parse(actor.TenantID); err != nil {
			return types.ActorRef{}, invalid("go-permissions: invalid tenant_id on auth context", err)
		}
	}
	if actor.RoleID != "" {
		if ref.RoleID, err = uuid.Parse(actor.RoleID); err != nil {
			return types.ActorRef{}, invalid("go-permissions: invalid role_id on auth context", err)
		}
	}
	return ref, nil
}

func invalid(msg string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, errors.CategoryAuth, msg).
			WithCode(errors.CodeUnauthorized).
			WithTextCode(textCodeActorInvalid)
	}
	return errors.New(msg, errors.CategoryAuth).
		WithCode(errors.CodeUnauthorized).
		WithTextCode(textCodeActorInvalid)
}
