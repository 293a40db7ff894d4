package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCreateRoleCommand_PopulatesResult(t *testing.T) {
	reg := &fakeRoleRegistry{}
	cmd := NewCreateRoleCommand(reg, scope.NewGuard(nil))
	tenant := uuid.New()
	result := &types.Role{}

	err := cmd.Execute(context.Background(), CreateRoleInput{
		Name:   "  Clerk ",
		Actor:  types.ActorRef{ID: uuid.New(), Type: types.ActorRoleTenantAdmin, TenantID: tenant},
		Result: result,
	})

	require.NoError(t, err)
	require.Equal(t, "Clerk", reg.lastMutation.Name)
	require.Equal(t, tenant, reg.lastMutation.TenantID)
	require.NotEqual(t, uuid.Nil, result.ID)
}

func TestCreateRoleCommand_SystemRoleRequiresSystemAdmin(t *testing.T) {
	reg := &fakeRoleRegistry{}
	cmd := NewCreateRoleCommand(reg, scope.NopGuard())
	tenant := uuid.New()

	err := cmd.Execute(context.Background(), CreateRoleInput{
		TenantID:     tenant,
		Name:         "Administrator",
		IsSystemRole: true,
		Actor:        types.ActorRef{ID: uuid.New(), Type: types.ActorRoleTenantAdmin, TenantID: tenant},
	})
	require.True(t, types.IsPermissionDenied(err))
	require.Empty(t, reg.lastMutation.Name)
}

func TestRoleCommands_GuardBlocksOtherTenants(t *testing.T) {
	reg := &fakeRoleRegistry{}
	actor := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleTenantAdmin, TenantID: uuid.New()}
	err := NewDeleteRoleCommand(reg, scope.NewGuard(nil)).Execute(context.Background(), DeleteRoleInput{
		TenantID: uuid.New(),
		RoleID:   uuid.New(),
		Actor:    actor,
	})
	require.True(t, types.IsPermissionDenied(err))
	require.Equal(t, uuid.Nil, reg.lastDelete)

	err = NewUpdateRoleCommand(reg, scope.NopGuard()).Execute(context.Background(), UpdateRoleInput{
		TenantID: actor.TenantID,
		Actor:    actor,
	})
	require.ErrorIs(t, err, ErrRoleIDRequired)
}

func TestSetRolePermissionsCommand(t *testing.T) {
	matrix := &fakeMatrix{result: types.PermissionChangeResult{Upserted: 1}}
	cmd := NewSetRolePermissionsCommand(matrix, scope.NopGuard(), nil)
	tenant := uuid.New()
	actor := types.ActorRef{ID: uuid.New(), TenantID: tenant}

	err := cmd.Execute(context.Background(), SetRolePermissionsInput{
		TenantID: tenant,
		RoleID:   uuid.New(),
		Actor:    actor,
	})
	require.ErrorIs(t, err, ErrEditsRequired)

	result := &types.PermissionChangeResult{}
	page := uuid.New()
	err = cmd.Execute(context.Background(), SetRolePermissionsInput{
		TenantID:  tenant,
		RoleID:    uuid.New(),
		Edits:     []types.PermissionEdit{types.FullEdit(page, types.PermissionFlags{CanView: true})},
		Actor:     actor,
		IPAddress: "10.0.0.1",
		Result:    result,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Upserted)
	require.Equal(t, tenant, matrix.roleBatch.TenantID)
	require.Equal(t, "10.0.0.1", matrix.roleBatch.IPAddress)
	require.Len(t, matrix.roleBatch.Edits, 1)
}

func TestSetUserPermissionsCommand_PropagatesDenial(t *testing.T) {
	matrix := &fakeMatrix{}
	deny := scope.NewGuard(types.AuthorizationPolicyFunc(func(context.Context, types.PolicyCheck) error {
		return types.PermissionDenied()
	}))
	tenant := uuid.New()

	err := NewSetUserPermissionsCommand(matrix, deny, nil).Execute(context.Background(), SetUserPermissionsInput{
		TenantID: tenant,
		UserID:   uuid.New(),
		Edits:    []types.PermissionEdit{{PageID: uuid.New(), Reset: true}},
		Actor:    types.ActorRef{ID: uuid.New(), TenantID: tenant},
	})
	require.True(t, types.IsPermissionDenied(err))
	require.Equal(t, uuid.Nil, matrix.userBatch.UserID)
}

func TestUnlockUserCommand_RequiresReason(t *testing.T) {
	manager := &fakeLockout{}
	cmd := NewUnlockUserCommand(manager, scope.NopGuard())
	tenant := uuid.New()

	err := cmd.Execute(context.Background(), UnlockUserInput{
		TenantID: tenant,
		UserID:   uuid.New(),
		Reason:   "   ",
		Actor:    types.ActorRef{ID: uuid.New(), TenantID: tenant},
	})
	require.ErrorIs(t, err, ErrUnlockReasonRequired)

	record := &types.UnlockRecord{}
	err = cmd.Execute(context.Background(), UnlockUserInput{
		TenantID: tenant,
		UserID:   uuid.New(),
		Reason:   "verified identity by phone",
		Actor:    types.ActorRef{ID: uuid.New(), TenantID: tenant},
		Result:   record,
	})
	require.NoError(t, err)
	require.Equal(t, "verified identity by phone", record.Reason)
}

func TestRecordFailedLoginCommand(t *testing.T) {
	manager := &fakeLockout{attempts: types.LoginAttemptResult{Attempts: 3, Locked: true}}
	cmd := NewRecordFailedLoginCommand(manager)

	err := cmd.Execute(context.Background(), RecordFailedLoginInput{})
	require.ErrorIs(t, err, ErrTenantIDRequired)

	result := &types.LoginAttemptResult{}
	err = cmd.Execute(context.Background(), RecordFailedLoginInput{
		FailedLoginInput: types.FailedLoginInput{TenantID: uuid.New(), UserID: uuid.New(), Threshold: 3},
		Result:           result,
	})
	require.NoError(t, err)
	require.True(t, result.Locked)

	err = NewRecordSuccessfulLoginCommand(manager).Execute(context.Background(), RecordSuccessfulLoginInput{TenantID: uuid.New()})
	require.ErrorIs(t, err, ErrUserIDRequired)
}

func TestCatalogCommands_RequireSystemAdmin(t *testing.T) {
	catalog := &fakeCatalog{}
	sink := &fakeSink{}
	cfg := CatalogCommandConfig{Catalog: catalog, Audit: sink}

	err := NewCreateTenantCommand(cfg).Execute(context.Background(), CreateTenantInput{
		Name:  "Springfield",
		Actor: types.ActorRef{ID: uuid.New(), Type: types.ActorRoleTenantAdmin, TenantID: uuid.New()},
	})
	require.True(t, types.IsPermissionDenied(err))

	tenant := &types.Tenant{}
	err = NewCreateTenantCommand(cfg).Execute(context.Background(), CreateTenantInput{
		Name:   "Springfield",
		Actor:  types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin},
		Result: tenant,
	})
	require.NoError(t, err)
	require.Equal(t, "Springfield", tenant.Name)
	require.Len(t, sink.entries, 1)
	require.Equal(t, types.AuditActionTenantCreated, sink.entries[0].Action)
	require.Equal(t, tenant.ID, sink.entries[0].TenantID)

	err = NewSetTenantSystemCommand(cfg).Execute(context.Background(), SetTenantSystemInput{
		TenantID: tenant.ID,
		SystemID: uuid.New(),
		Active:   true,
		Actor:    types.SystemActor,
	})
	require.NoError(t, err)
	require.Len(t, sink.entries, 2)
	require.Equal(t, types.AuditActionSystemActivated, sink.entries[1].Action)
}

type fakeRoleRegistry struct {
	lastMutation types.RoleMutation
	lastDelete   uuid.UUID
}

func (f *fakeRoleRegistry) CreateRole(_ context.Context, input types.RoleMutation) (*types.Role, error) {
	f.lastMutation = input
	return &types.Role{ID: uuid.New(), TenantID: input.TenantID, Name: input.Name}, nil
}

func (f *fakeRoleRegistry) UpdateRole(_ context.Context, id uuid.UUID, input types.RoleMutation) (*types.Role, error) {
	f.lastMutation = input
	return &types.Role{ID: id, TenantID: input.TenantID, Name: input.Name}, nil
}

func (f *fakeRoleRegistry) DeleteRole(_ context.Context, id uuid.UUID, _ uuid.UUID, _ types.ActorRef) error {
	f.lastDelete = id
	return nil
}

func (f *fakeRoleRegistry) GetRole(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*types.Role, error) {
	return &types.Role{ID: id, TenantID: tenantID}, nil
}

func (f *fakeRoleRegistry) ListRoles(context.Context, types.RoleFilter) (types.RolePage, error) {
	return types.RolePage{}, nil
}

type fakeMatrix struct {
	roleBatch types.RolePermissionBatch
	userBatch types.UserPermissionBatch
	result    types.PermissionChangeResult
}

func (f *fakeMatrix) AssembleRoleMatrix(_ context.Context, tenantID, systemID uuid.UUID) (types.RoleMatrix, error) {
	return types.RoleMatrix{TenantID: tenantID, SystemID: systemID}, nil
}

func (f *fakeMatrix) AssembleUserMatrix(_ context.Context, tenantID, systemID, _ uuid.UUID) (types.UserMatrix, error) {
	return types.UserMatrix{TenantID: tenantID, SystemID: systemID}, nil
}

func (f *fakeMatrix) SetRolePermissions(_ context.Context, batch types.RolePermissionBatch) (types.PermissionChangeResult, error) {
	f.roleBatch = batch
	return f.result, nil
}

func (f *fakeMatrix) SetUserPermissions(_ context.Context, batch types.UserPermissionBatch) (types.PermissionChangeResult, error) {
	f.userBatch = batch
	return f.result, nil
}

type fakeLockout struct {
	attempts types.LoginAttemptResult
}

func (f *fakeLockout) RecordFailedLogin(context.Context, types.FailedLoginInput) (types.LoginAttemptResult, error) {
	return f.attempts, nil
}

func (f *fakeLockout) RecordSuccessfulLogin(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (f *fakeLockout) LockUser(_ context.Context, input types.LockInput) (*types.User, error) {
	return &types.User{ID: input.UserID, TenantID: input.TenantID, Status: types.UserStatusLocked}, nil
}

func (f *fakeLockout) UnlockUser(_ context.Context, input types.UnlockInput) (*types.UnlockRecord, error) {
	return &types.UnlockRecord{
		ID:               uuid.New(),
		TenantID:         input.TenantID,
		UnlockedUserID:   input.UserID,
		UnlockedByUserID: input.Actor.ID,
		Reason:           input.Reason,
	}, nil
}

func (f *fakeLockout) IsLocked(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeLockout) ListLocked(context.Context, types.LockedUserFilter) (types.LockedUserPage, error) {
	return types.LockedUserPage{}, nil
}

func (f *fakeLockout) ListUnlockHistory(context.Context, types.UnlockHistoryFilter) (types.UnlockHistoryPage, error) {
	return types.UnlockHistoryPage{}, nil
}

type fakeCatalog struct{}

func (fakeCatalog) CreateTenant(_ context.Context, input types.TenantInput) (*types.Tenant, error) {
	return &types.Tenant{ID: uuid.New(), Name: input.Name, Status: types.TenantStatusActive}, nil
}

func (fakeCatalog) GetTenant(_ context.Context, id uuid.UUID) (*types.Tenant, error) {
	return &types.Tenant{ID: id}, nil
}

func (fakeCatalog) SetTenantStatus(_ context.Context, id uuid.UUID, status types.TenantStatus) (*types.Tenant, error) {
	return &types.Tenant{ID: id, Status: status}, nil
}

func (fakeCatalog) CreateSystem(_ context.Context, input types.SystemInput) (*types.System, error) {
	return &types.System{ID: uuid.New(), Name: input.Name, IsActive: input.IsActive}, nil
}

func (fakeCatalog) GetSystem(_ context.Context, id uuid.UUID) (*types.System, error) {
	return &types.System{ID: id}, nil
}

func (fakeCatalog) SetSystemActive(_ context.Context, id uuid.UUID, active bool) (*types.System, error) {
	return &types.System{ID: id, IsActive: active}, nil
}

func (fakeCatalog) SetTenantSystem(_ context.Context, tenantID, systemID uuid.UUID, active bool) (*types.TenantSystem, error) {
	return &types.TenantSystem{TenantID: tenantID, SystemID: systemID, IsActive: active}, nil
}

func (fakeCatalog) SystemActiveForTenant(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

func (fakeCatalog) CreatePage(_ context.Context, input types.PageInput) (*types.Page, error) {
	return &types.Page{ID: uuid.New(), SystemID: input.SystemID, Name: input.Name, Route: input.Route}, nil
}

func (fakeCatalog) GetPage(_ context.Context, id uuid.UUID) (*types.Page, error) {
	return &types.Page{ID: id}, nil
}

func (fakeCatalog) ListPages(context.Context, uuid.UUID) ([]types.Page, error) {
	return nil, nil
}

type fakeSink struct {
	entries []types.AuditEntry
}

func (f *fakeSink) Record(_ context.Context, entry types.AuditEntry) (*types.AuditEntry, error) {
	f.entries = append(f.entries, entry)
	return &entry, nil
}
