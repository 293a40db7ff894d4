package authctx

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-permissions/pkg/types"
)

func TestResolveActorReturnsStoredActor(t *testing.T) {
	id := uuid.New()
	tenant := uuid.New()
	ctx := WithActorContext(context.Background(), &ActorContext{
		ActorID:  id.String(),
		Role:     types.ActorRoleTenantAdmin,
		TenantID: tenant.String(),
	})

	ref, raw, err := ResolveActor(ctx)
	if err != nil {
		t.Fatalf("ResolveActor returned error: %v", err)
	}
	if ref.ID != id || ref.TenantID != tenant {
		t.Fatalf("unexpected actor ref %+v", ref)
	}
	if !ref.IsTenantAdmin() {
		t.Fatalf("expected tenant admin, got %s", ref.Type)
	}
	if raw.ActorID != id.String() {
		t.Fatalf("expected raw actor %s, got %s", id, raw.ActorID)
	}
}

func TestResolveActorContextMissingReturnsRichError(t *testing.T) {
	_, err := ResolveActorContext(context.Background())
	if err == nil {
		t.Fatal("expected error when context lacks actor metadata")
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		t.Fatalf("expected go-errors.Error, got %T", err)
	}
	if richErr.TextCode != textCodeActorMissing {
		t.Fatalf("expected text code %s, got %s", textCodeActorMissing, richErr.TextCode)
	}
}

func TestActorRefFromActorContextDefaultsRole(t *testing.T) {
	id := uuid.New()
	ref, err := ActorRefFromActorContext(&ActorContext{ActorID: id.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Type != types.ActorRoleUser {
		t.Fatalf("expected type %s, got %s", types.ActorRoleUser, ref.Type)
	}
}

func TestActorRefFromActorContextInvalidIDs(t *testing.T) {
	cases := []*ActorContext{
		nil,
		{},
		{ActorID: "not-a-uuid"},
		{ActorID: uuid.NewString(), TenantID: "nope"},
		{ActorID: uuid.NewString(), RoleID: "nope"},
	}
	for _, tc := range cases {
		_, err := ActorRefFromActorContext(tc)
		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			t.Fatalf("expected go-errors.Error for %+v, got %T", tc, err)
		}
		if richErr.TextCode != textCodeActorInvalid {
			t.Fatalf("expected text code %s, got %s", textCodeActorInvalid, richErr.TextCode)
		}
	}
}
