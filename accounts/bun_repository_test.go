package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-permissions/audit"
	"github.com/goliatone/go-permissions/internal/dbtest"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestRepository(t *testing.T, hooks types.Hooks) (*Repository, *bun.DB, dbtest.World) {
	t.Helper()
	db := dbtest.New(t)
	world := dbtest.Seed(t, db)
	auditRepo, err := audit.NewRepository(audit.RepositoryConfig{DB: db})
	require.NoError(t, err)
	repo, err := New(Config{
		DB:    db,
		Audit: auditRepo,
		Hooks: hooks,
		Clock: &dbtest.Clock{T: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	return repo, db, world
}

func TestCreateAndGetUser(t *testing.T) {
	ctx := context.Background()
	repo, db, world := newTestRepository(t, types.Hooks{})

	user, err := repo.CreateUser(ctx, types.UserInput{
		TenantID: world.TenantID,
		RoleID:   world.RoleID,
		Username: " alice ",
		Email:    "alice@example.com",
		Actor:    types.ActorRef{ID: uuid.New()},
	})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, types.UserStatusActive, user.Status)
	require.Nil(t, user.LockedAt)

	got, err := repo.GetUser(ctx, world.TenantID, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, world.RoleID, got.RoleID)

	_, err = repo.GetUser(ctx, uuid.New(), user.ID)
	require.True(t, types.IsNotFound(err))
	require.Equal(t, 1, dbtest.Count(t, db, "audit_logs"))
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	repo, _, world := newTestRepository(t, types.Hooks{})

	_, err := repo.CreateUser(ctx, types.UserInput{TenantID: world.TenantID, RoleID: world.RoleID})
	require.True(t, types.IsValidation(err))

	_, err = repo.CreateUser(ctx, types.UserInput{TenantID: world.TenantID, RoleID: world.RoleID, Username: "bob", Status: types.UserStatusLocked})
	require.True(t, types.IsValidation(err))

	_, err = repo.CreateUser(ctx, types.UserInput{TenantID: world.TenantID, RoleID: uuid.New(), Username: "bob"})
	require.True(t, types.IsNotFound(err))

	otherTenant := uuid.New()
	otherRole := uuid.New()
	dbtest.InsertTenant(t, repo.db, otherTenant, types.TenantStatusActive)
	dbtest.InsertRole(t, repo.db, otherRole, otherTenant, "Clerk", false, true)
	_, err = repo.CreateUser(ctx, types.UserInput{TenantID: world.TenantID, RoleID: otherRole, Username: "bob"})
	require.True(t, types.IsNotFound(err), "roles from another tenant are invisible")

	_, err = repo.CreateUser(ctx, types.UserInput{TenantID: world.TenantID, RoleID: world.RoleID, Username: "carol"})
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, types.UserInput{TenantID: world.TenantID, RoleID: world.RoleID, Username: "carol"})
	require.True(t, types.IsValidation(err))
}

func TestListUsersFilters(t *testing.T) {
	ctx := context.Background()
	repo, db, world := newTestRepository(t, types.Hooks{})
	lockedID := uuid.New()
	dbtest.InsertUser(t, db, lockedID, world.TenantID, world.RoleID, types.UserStatusLocked)
	_, err := repo.CreateUser(ctx, types.UserInput{TenantID: world.TenantID, RoleID: world.RoleID, Username: "zed", Email: "zed@city.gov"})
	require.NoError(t, err)

	page, err := repo.ListUsers(ctx, types.UserFilter{TenantID: world.TenantID})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)

	page, err = repo.ListUsers(ctx, types.UserFilter{TenantID: world.TenantID, Statuses: []types.UserStatus{types.UserStatusLocked}})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	require.Equal(t, lockedID, page.Users[0].ID)
	require.NotNil(t, page.Users[0].LockedAt)

	page, err = repo.ListUsers(ctx, types.UserFilter{TenantID: world.TenantID, Keyword: "CITY.gov"})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	require.Equal(t, "zed", page.Users[0].Username)

	_, err = repo.ListUsers(ctx, types.UserFilter{})
	require.ErrorIs(t, err, types.ErrTenantIDRequired)
}

func TestChangeRole(t *testing.T) {
	ctx := context.Background()
	var events []types.PermissionEvent
	repo, db, world := newTestRepository(t, types.Hooks{
		AfterPermissionChange: func(_ context.Context, evt types.PermissionEvent) {
			events = append(events, evt)
		},
	})
	reviewer := uuid.New()
	dbtest.InsertRole(t, db, reviewer, world.TenantID, "Reviewer", false, true)

	user, err := repo.ChangeRole(ctx, world.TenantID, world.UserID, reviewer, types.ActorRef{ID: uuid.New()})
	require.NoError(t, err)
	require.Equal(t, reviewer, user.RoleID)
	require.Len(t, events, 1)
	require.Equal(t, world.UserID, events[0].UserID)

	_, err = repo.ChangeRole(ctx, world.TenantID, world.UserID, reviewer, types.ActorRef{ID: uuid.New()})
	require.NoError(t, err)
	require.Len(t, events, 1, "no-op change emits nothing")
	require.Equal(t, 1, dbtest.Count(t, db, "audit_logs"))

	_, err = repo.ChangeRole(ctx, world.TenantID, world.UserID, uuid.New(), types.ActorRef{ID: uuid.New()})
	require.True(t, types.IsNotFound(err))
}

func TestSetStatusFollowsPolicy(t *testing.T) {
	ctx := context.Background()
	repo, db, world := newTestRepository(t, types.Hooks{})
	actor := types.ActorRef{ID: uuid.New()}

	user, err := repo.SetStatus(ctx, world.TenantID, world.UserID, types.UserStatusInactive, actor)
	require.NoError(t, err)
	require.Equal(t, types.UserStatusInactive, user.Status)

	_, err = repo.SetStatus(ctx, world.TenantID, world.UserID, types.UserStatusInactive, actor)
	require.True(t, types.IsIllegalTransition(err))

	user, err = repo.SetStatus(ctx, world.TenantID, world.UserID, types.UserStatusActive, actor)
	require.NoError(t, err)
	require.Equal(t, types.UserStatusActive, user.Status)

	_, err = repo.SetStatus(ctx, world.TenantID, world.UserID, types.UserStatusLocked, actor)
	require.True(t, types.IsIllegalTransition(err), "locking goes through the lockout manager")

	lockedID := uuid.New()
	dbtest.InsertUser(t, db, lockedID, world.TenantID, world.RoleID, types.UserStatusLocked)
	_, err = repo.SetStatus(ctx, world.TenantID, lockedID, types.UserStatusActive, actor)
	require.True(t, types.IsIllegalTransition(err), "unlocking goes through the lockout manager")

	user, err = repo.SetStatus(ctx, world.TenantID, lockedID, types.UserStatusInactive, actor)
	require.NoError(t, err)
	require.Nil(t, user.LockedAt)

	_, err = repo.SetStatus(ctx, world.TenantID, world.UserID, types.UserStatus("gone"), actor)
	require.True(t, types.IsValidation(err))
	require.Equal(t, 3, dbtest.Count(t, db, "audit_logs"))
}
