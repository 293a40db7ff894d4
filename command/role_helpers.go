package command

import (
	"strings"

	"github.com/goliatone/go-permissions/pkg/types"
)

func validateRoleMutation(actor types.ActorRef, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrRoleNameRequired
	}
	return requireActor(actor)
}
