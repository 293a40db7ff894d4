package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-permissions/internal/dbtest"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCatalog_TenantSystemPageLifecycle(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	catalog, err := New(Config{
		DB:    db,
		Clock: &dbtest.Clock{T: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	tenant, err := catalog.CreateTenant(ctx, types.TenantInput{Name: "  Haifa  "})
	require.NoError(t, err)
	require.Equal(t, "Haifa", tenant.Name)
	require.True(t, tenant.IsActive())

	system, err := catalog.CreateSystem(ctx, types.SystemInput{Name: "Budget", IsActive: true})
	require.NoError(t, err)

	second, err := catalog.CreatePage(ctx, types.PageInput{SystemID: system.ID, Route: "/reports", SortOrder: 2})
	require.NoError(t, err)
	first, err := catalog.CreatePage(ctx, types.PageInput{SystemID: system.ID, Route: "/items", Name: "Items", SortOrder: 1})
	require.NoError(t, err)
	require.Equal(t, "/reports", second.Name, "name defaults to route")

	pages, err := catalog.ListPages(ctx, system.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	require.Equal(t, first.ID, pages[0].ID)
	require.Equal(t, second.ID, pages[1].ID)

	active, err := catalog.SystemActiveForTenant(ctx, tenant.ID, system.ID)
	require.NoError(t, err)
	require.False(t, active, "missing join row means not activated")

	_, err = catalog.SetTenantSystem(ctx, tenant.ID, system.ID, true)
	require.NoError(t, err)
	active, err = catalog.SystemActiveForTenant(ctx, tenant.ID, system.ID)
	require.NoError(t, err)
	require.True(t, active)

	_, err = catalog.SetSystemActive(ctx, system.ID, false)
	require.NoError(t, err)
	active, err = catalog.SystemActiveForTenant(ctx, tenant.ID, system.ID)
	require.NoError(t, err)
	require.False(t, active, "globally inactive systems are never active for tenants")

	_, err = catalog.SetSystemActive(ctx, system.ID, true)
	require.NoError(t, err)
	_, err = catalog.SetTenantSystem(ctx, tenant.ID, system.ID, false)
	require.NoError(t, err)
	active, err = catalog.SystemActiveForTenant(ctx, tenant.ID, system.ID)
	require.NoError(t, err)
	require.False(t, active)

	updated, err := catalog.SetTenantStatus(ctx, tenant.ID, types.TenantStatusInactive)
	require.NoError(t, err)
	require.False(t, updated.IsActive())
}

func TestCatalog_NotFoundAndValidation(t *testing.T) {
	ctx := context.Background()
	catalog, err := New(Config{DB: dbtest.New(t)})
	require.NoError(t, err)

	_, err = catalog.GetTenant(ctx, uuid.New())
	require.True(t, types.IsNotFound(err))

	_, err = catalog.GetPage(ctx, uuid.New())
	require.True(t, types.IsNotFound(err))

	_, err = catalog.CreatePage(ctx, types.PageInput{SystemID: uuid.New(), Route: "/x"})
	require.True(t, types.IsNotFound(err))

	_, err = catalog.CreateTenant(ctx, types.TenantInput{Name: " "})
	require.True(t, types.IsValidation(err))

	_, err = catalog.SetTenantSystem(ctx, uuid.New(), uuid.New(), true)
	require.True(t, types.IsNotFound(err))
}

func TestNew_RequiresDB(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
