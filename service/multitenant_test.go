package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-permissions/command"
	"github.com/goliatone/go-permissions/internal/dbtest"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/query"
	"github.com/goliatone/go-permissions/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func boolRef(v bool) *bool { return &v }

func newService(t *testing.T) (*service.Service, dbtest.World) {
	t.Helper()
	db := dbtest.New(t)
	world := dbtest.Seed(t, db)
	clock := &dbtest.Clock{T: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc, err := service.NewBun(service.BunConfig{
		DB:          db,
		Clock:       clock,
		AdminPageID: world.PageB,
	})
	require.NoError(t, err)
	return svc, world
}

func TestService_ReadyAndHealthy(t *testing.T) {
	svc, _ := newService(t)
	require.True(t, svc.Ready())
	require.NoError(t, svc.HealthCheck(context.Background()))

	empty := service.New(service.Config{})
	require.False(t, empty.Ready())
	require.ErrorIs(t, empty.HealthCheck(context.Background()), types.ErrMissingCatalog)
}

func TestService_WithoutAdminPageOnlySystemAdminsAdminister(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	world := dbtest.Seed(t, db)
	svc, err := service.NewBun(service.BunConfig{DB: db})
	require.NoError(t, err)

	clerk := types.ActorRef{ID: world.UserID, Type: types.ActorRoleUser, TenantID: world.TenantID, RoleID: world.RoleID}
	grant := command.SetUserPermissionsInput{
		TenantID: world.TenantID,
		UserID:   world.UserID,
		Edits: []types.PermissionEdit{
			types.FullEdit(world.PageA, types.PermissionFlags{CanView: true, CanCreate: true, CanEdit: true, CanDelete: true, CanExport: true}),
		},
		Actor: clerk,
	}
	err = svc.Commands().SetUserPermissions.Execute(ctx, grant)
	require.True(t, types.IsPermissionDenied(err))

	flags, err := svc.Queries().EffectivePermissions.Query(ctx, query.EffectivePermissionsInput{
		TenantID: world.TenantID,
		UserID:   world.UserID,
		PageID:   world.PageA,
		Actor:    clerk,
	})
	require.NoError(t, err)
	require.False(t, flags.CanDelete)

	grant.Actor = types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin}
	require.NoError(t, svc.Commands().SetUserPermissions.Execute(ctx, grant))
}

func TestService_PolicyErrorFailsHealthCheck(t *testing.T) {
	svc := service.New(service.Config{AdminPageID: uuid.New()})
	require.False(t, svc.Ready())
	require.ErrorIs(t, svc.HealthCheck(context.Background()), types.ErrMissingResolver)
}

func TestService_AdminPageGovernsMatrixEdits(t *testing.T) {
	ctx := context.Background()
	svc, world := newService(t)
	clerk := types.ActorRef{ID: world.UserID, Type: types.ActorRoleUser, TenantID: world.TenantID, RoleID: world.RoleID}
	sysadmin := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin}

	edit := command.SetRolePermissionsInput{
		TenantID: world.TenantID,
		RoleID:   world.RoleID,
		Edits: []types.PermissionEdit{
			{PageID: world.PageA, CanEdit: boolRef(true)},
		},
		Actor: clerk,
	}
	err := svc.Commands().SetRolePermissions.Execute(ctx, edit)
	require.True(t, types.IsPermissionDenied(err))

	edit.Actor = sysadmin
	edit.Edits = append(edit.Edits, types.PermissionEdit{PageID: world.PageB, CanEdit: boolRef(true)})
	result := &types.PermissionChangeResult{}
	edit.Result = result
	require.NoError(t, svc.Commands().SetRolePermissions.Execute(ctx, edit))
	require.Equal(t, 2, result.Upserted)

	check, err := svc.Queries().CheckPermission.Query(ctx, query.CheckPermissionInput{
		TenantID: world.TenantID,
		UserID:   world.UserID,
		PageID:   world.PageA,
		Action:   "view",
		Actor:    clerk,
	})
	require.NoError(t, err)
	require.True(t, check.Allowed)

	// The clerk now holds edit on the admin page and may save batches.
	edit.Actor = clerk
	edit.Edits = []types.PermissionEdit{{PageID: world.PageA, CanExport: boolRef(true)}}
	require.NoError(t, svc.Commands().SetRolePermissions.Execute(ctx, edit))

	// Deleting roles needs the delete flag on the admin page.
	err = svc.Commands().DeleteRole.Execute(ctx, command.DeleteRoleInput{
		TenantID: world.TenantID,
		RoleID:   world.RoleID,
		Actor:    clerk,
	})
	require.True(t, types.IsPermissionDenied(err))

	page, err := svc.Queries().AuditLog.Query(ctx, types.AuditFilter{
		TenantID: world.TenantID,
		Action:   types.AuditActionRolePermissionsUpdated,
		Actor:    sysadmin,
	})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
}

func TestService_MultiTenantIsolation(t *testing.T) {
	ctx := context.Background()
	svc, world := newService(t)
	sysadmin := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin}

	other := &types.Tenant{}
	require.NoError(t, svc.Commands().CreateTenant.Execute(ctx, command.CreateTenantInput{
		Name:   "Shelbyville",
		Actor:  sysadmin,
		Result: other,
	}))
	outsider := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleTenantAdmin, TenantID: other.ID}

	_, err := svc.Queries().RoleMatrix.Query(ctx, query.RoleMatrixInput{
		TenantID: world.TenantID,
		SystemID: world.SystemID,
		Actor:    outsider,
	})
	require.True(t, types.IsPermissionDenied(err))

	_, err = svc.Queries().EffectivePermissions.Query(ctx, query.EffectivePermissionsInput{
		TenantID: other.ID,
		UserID:   world.UserID,
		PageID:   world.PageA,
		Actor:    sysadmin,
	})
	require.True(t, types.IsNotFound(err))

	matrix, err := svc.Queries().RoleMatrix.Query(ctx, query.RoleMatrixInput{
		TenantID: world.TenantID,
		SystemID: world.SystemID,
		Actor:    sysadmin,
	})
	require.NoError(t, err)
	require.Len(t, matrix.Pages, 2)
	require.Len(t, matrix.Roles, 1)
}

func TestService_LockoutFlow(t *testing.T) {
	ctx := context.Background()
	svc, world := newService(t)
	sysadmin := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin}

	attempt := &types.LoginAttemptResult{}
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Commands().RecordFailedLogin.Execute(ctx, command.RecordFailedLoginInput{
			FailedLoginInput: types.FailedLoginInput{TenantID: world.TenantID, UserID: world.UserID, Threshold: 3},
			Result:           attempt,
		}))
	}
	require.True(t, attempt.Locked)

	locked, err := svc.Queries().LockStatus.Query(ctx, query.LockStatusInput{TenantID: world.TenantID, UserID: world.UserID})
	require.NoError(t, err)
	require.True(t, locked)

	flags, err := svc.Queries().EffectivePermissions.Query(ctx, query.EffectivePermissionsInput{
		TenantID: world.TenantID,
		UserID:   world.UserID,
		PageID:   world.PageA,
		Actor:    sysadmin,
	})
	require.NoError(t, err)
	require.False(t, flags.Any())

	record := &types.UnlockRecord{}
	require.NoError(t, svc.Commands().UnlockUser.Execute(ctx, command.UnlockUserInput{
		TenantID: world.TenantID,
		UserID:   world.UserID,
		Reason:   "identity confirmed",
		Actor:    sysadmin,
		Result:   record,
	}))
	require.Equal(t, 3, record.PreviousFailedAttempts)

	err = svc.Commands().UnlockUser.Execute(ctx, command.UnlockUserInput{
		TenantID: world.TenantID,
		UserID:   world.UserID,
		Reason:   "again",
		Actor:    sysadmin,
	})
	require.True(t, types.IsIllegalTransition(err))

	history, err := svc.Queries().UnlockHistory.Query(ctx, types.UnlockHistoryFilter{TenantID: world.TenantID, Actor: sysadmin})
	require.NoError(t, err)
	require.Len(t, history.Records, 1)
}
