package scope

import (
	"context"
	"testing"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	flags types.PermissionFlags
	err   error
	calls []uuid.UUID
}

func (s *stubResolver) ResolveEffective(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) (types.PermissionFlags, error) {
	return s.flags, s.err
}

func (s *stubResolver) Check(ctx context.Context, tenantID, userID, pageID uuid.UUID, action types.Action) (bool, error) {
	s.calls = append(s.calls, pageID)
	if s.err != nil {
		return false, s.err
	}
	return s.flags.Allows(action), nil
}

func (s *stubResolver) Authorize(ctx context.Context, tenantID, userID, pageID uuid.UUID, action types.Action) error {
	allowed, err := s.Check(ctx, tenantID, userID, pageID, action)
	if err != nil {
		return err
	}
	if !allowed {
		return types.PermissionDenied()
	}
	return nil
}

func TestGuardEnforcesTenantIsolation(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	actor := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleTenantAdmin, TenantID: tenant}
	guard := NewGuard(nil)

	resolved, err := guard.Enforce(ctx, actor, uuid.Nil, types.PolicyActionRolesRead, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, tenant, resolved)

	_, err = guard.Enforce(ctx, actor, uuid.New(), types.PolicyActionRolesRead, uuid.Nil)
	require.True(t, types.IsPermissionDenied(err))

	admin := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin}
	other := uuid.New()
	resolved, err = guard.Enforce(ctx, admin, other, types.PolicyActionRolesRead, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, other, resolved)

	_, err = guard.Enforce(ctx, admin, uuid.Nil, types.PolicyActionRolesRead, uuid.Nil)
	require.ErrorIs(t, err, types.ErrTenantIDRequired)

	_, err = guard.Enforce(ctx, types.ActorRef{}, tenant, types.PolicyActionRolesRead, uuid.Nil)
	require.ErrorIs(t, err, types.ErrActorRequired)
}

func TestGuardConsultsPolicy(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	actor := types.ActorRef{ID: uuid.New(), TenantID: tenant}
	var seen types.PolicyCheck
	guard := NewGuard(types.AuthorizationPolicyFunc(func(_ context.Context, check types.PolicyCheck) error {
		seen = check
		return types.PermissionDenied()
	}))

	target := uuid.New()
	_, err := guard.Enforce(ctx, actor, tenant, types.PolicyActionLockoutWrite, target)
	require.True(t, types.IsPermissionDenied(err))
	require.Equal(t, tenant, seen.TenantID)
	require.Equal(t, target, seen.TargetID)
}

func TestNopGuard(t *testing.T) {
	tenant := uuid.New()
	resolved, err := Ensure(nil).Enforce(context.Background(), types.ActorRef{}, tenant, types.PolicyActionAuditRead, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, tenant, resolved)
}

func TestPagePolicy(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	adminPage := uuid.New()
	auditPage := uuid.New()
	resolver := &stubResolver{flags: types.PermissionFlags{CanView: true, CanEdit: true}}
	policy, err := NewPagePolicy(PagePolicyConfig{
		Resolver:    resolver,
		DefaultPage: adminPage,
		Pages:       map[types.PolicyAction]uuid.UUID{types.PolicyActionAuditExport: auditPage},
	})
	require.NoError(t, err)
	actor := types.ActorRef{ID: uuid.New(), TenantID: tenant}

	require.NoError(t, policy.Authorize(ctx, types.PolicyCheck{Actor: actor, TenantID: tenant, Action: types.PolicyActionPermissionsWrite}))
	err = policy.Authorize(ctx, types.PolicyCheck{Actor: actor, TenantID: tenant, Action: types.PolicyActionRolesDelete})
	require.True(t, types.IsPermissionDenied(err))
	err = policy.Authorize(ctx, types.PolicyCheck{Actor: actor, TenantID: tenant, Action: types.PolicyActionAuditExport})
	require.True(t, types.IsPermissionDenied(err))
	require.Equal(t, []uuid.UUID{adminPage, adminPage, auditPage}, resolver.calls)

	admin := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin}
	require.NoError(t, policy.Authorize(ctx, types.PolicyCheck{Actor: admin, TenantID: tenant, Action: types.PolicyActionRolesDelete}))

	resolver.err = types.NotFound("user", actor.ID)
	err = policy.Authorize(ctx, types.PolicyCheck{Actor: actor, TenantID: tenant, Action: types.PolicyActionRolesRead})
	require.True(t, types.IsPermissionDenied(err))

	_, err = NewPagePolicy(PagePolicyConfig{})
	require.ErrorIs(t, err, types.ErrMissingResolver)
}

func TestPagePolicyDeniesUnmappedActions(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	auditPage := uuid.New()
	resolver := &stubResolver{flags: types.PermissionFlags{CanView: true, CanCreate: true, CanEdit: true, CanDelete: true, CanExport: true}}

	_, err := NewPagePolicy(PagePolicyConfig{Resolver: resolver})
	require.ErrorIs(t, err, types.ErrMissingAdminPage)

	policy, err := NewPagePolicy(PagePolicyConfig{
		Resolver: resolver,
		Pages:    map[types.PolicyAction]uuid.UUID{types.PolicyActionAuditExport: auditPage},
	})
	require.NoError(t, err)
	actor := types.ActorRef{ID: uuid.New(), TenantID: tenant}

	require.NoError(t, policy.Authorize(ctx, types.PolicyCheck{Actor: actor, TenantID: tenant, Action: types.PolicyActionAuditExport}))
	err = policy.Authorize(ctx, types.PolicyCheck{Actor: actor, TenantID: tenant, Action: types.PolicyActionPermissionsWrite})
	require.True(t, types.IsPermissionDenied(err))
	require.Equal(t, []uuid.UUID{auditPage}, resolver.calls)
}

func TestDenyPolicy(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	guard := NewGuard(DenyPolicy())

	user := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleTenantAdmin, TenantID: tenant}
	_, err := guard.Enforce(ctx, user, tenant, types.PolicyActionPermissionsWrite, user.ID)
	require.True(t, types.IsPermissionDenied(err))

	admin := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin}
	resolved, err := guard.Enforce(ctx, admin, tenant, types.PolicyActionPermissionsWrite, user.ID)
	require.NoError(t, err)
	require.Equal(t, tenant, resolved)

	system := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystem}
	_, err = guard.Enforce(ctx, system, tenant, types.PolicyActionLockoutWrite, user.ID)
	require.NoError(t, err)
}
