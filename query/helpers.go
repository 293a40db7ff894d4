package query

import (
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
)

var (
	errRoleIDRequired   = types.Validation("role id required", nil)
	errSystemIDRequired = types.Validation("system id required", nil)
	errPageIDRequired   = types.Validation("page id required", nil)
)

func safeScopeGuard(g scope.Guard) scope.Guard {
	return scope.Ensure(g)
}

func requireActor(actor types.ActorRef) error {
	if actor.IsZero() {
		return types.ErrActorRequired
	}
	return nil
}
