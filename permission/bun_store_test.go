package permission

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-permissions/internal/dbtest"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStoreRolePermissionUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	world := dbtest.Seed(t, db)
	clock := &dbtest.Clock{T: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}
	store, err := NewStore(StoreConfig{DB: db, Clock: clock})
	require.NoError(t, err)

	flags := types.PermissionFlags{CanView: true, CanEdit: true}
	require.NoError(t, store.UpsertRolePermission(ctx, world.TenantID, world.RoleID, world.PageA, flags))
	first, err := store.GetRolePermission(ctx, world.RoleID, world.PageA)
	require.NoError(t, err)
	require.Equal(t, flags, first.PermissionFlags)

	clock.Advance(time.Hour)
	require.NoError(t, store.UpsertRolePermission(ctx, world.TenantID, world.RoleID, world.PageA, flags))
	second, err := store.GetRolePermission(ctx, world.RoleID, world.PageA)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, flags, second.PermissionFlags)
	require.Equal(t, 1, dbtest.Count(t, db, "role_permissions"))

	missing, err := store.GetRolePermission(ctx, world.RoleID, world.PageB)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestStoreRejectsInconsistentRows(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	world := dbtest.Seed(t, db)
	store, err := NewStore(StoreConfig{DB: db})
	require.NoError(t, err)

	err = store.UpsertRolePermission(ctx, world.TenantID, world.RoleID, world.PageA, types.PermissionFlags{CanDelete: true})
	require.True(t, types.IsValidation(err))
	err = store.UpsertOverride(ctx, world.TenantID, world.UserID, world.PageA, types.PermissionFlags{CanExport: true}, nil)
	require.True(t, types.IsValidation(err))
	require.Equal(t, 0, dbtest.Count(t, db, "role_permissions"))
	require.Equal(t, 0, dbtest.Count(t, db, "user_permission_overrides"))
}

func TestStoreOverridesAreWholeRowReplacements(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	world := dbtest.Seed(t, db)
	store, err := NewStore(StoreConfig{DB: db})
	require.NoError(t, err)

	require.NoError(t, store.UpsertOverride(ctx, world.TenantID, world.UserID, world.PageA,
		types.PermissionFlags{CanView: true, CanCreate: true, CanExport: true},
		map[string]any{"approve_limit": "5000"}))
	require.NoError(t, store.UpsertOverride(ctx, world.TenantID, world.UserID, world.PageA,
		types.PermissionFlags{CanView: true}, nil))

	override, err := store.GetOverride(ctx, world.UserID, world.PageA)
	require.NoError(t, err)
	require.Equal(t, types.PermissionFlags{CanView: true}, override.PermissionFlags)
	require.Empty(t, override.CustomPermissions)

	removed, err := store.DeleteOverride(ctx, world.UserID, world.PageA)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = store.DeleteOverride(ctx, world.UserID, world.PageA)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestStoreListsAndTxBinding(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	world := dbtest.Seed(t, db)
	other := uuid.New()
	dbtest.InsertRole(t, db, other, world.TenantID, "Reviewer", false, true)
	dbtest.InsertRolePermission(t, db, world.TenantID, world.RoleID, world.PageA, types.PermissionFlags{CanView: true})
	dbtest.InsertRolePermission(t, db, world.TenantID, other, world.PageB, types.PermissionFlags{CanView: true, CanExport: true})
	dbtest.InsertOverride(t, db, world.TenantID, world.UserID, world.PageB, types.PermissionFlags{})

	store, err := NewStore(StoreConfig{DB: db})
	require.NoError(t, err)

	cells, err := store.ListRolePermissions(ctx, []uuid.UUID{world.RoleID, other}, []uuid.UUID{world.PageA, world.PageB})
	require.NoError(t, err)
	require.Len(t, cells, 2)

	cells, err = store.ListRolePermissions(ctx, nil, []uuid.UUID{world.PageA})
	require.NoError(t, err)
	require.Empty(t, cells)

	overrides, err := store.ListOverrides(ctx, world.UserID, []uuid.UUID{world.PageA, world.PageB})
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.False(t, overrides[0].Any())

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	removed, err := store.WithTx(tx).DeleteRolePermission(ctx, other, world.PageB)
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, tx.Rollback())
	require.Equal(t, 2, dbtest.Count(t, db, "role_permissions"))
}
