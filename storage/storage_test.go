package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-permissions/migrations"
	"github.com/goliatone/go-permissions/pkg/types"
)

func TestDriverFor(t *testing.T) {
	require.Equal(t, DriverPostgres, DriverFor("", "postgres://localhost/permissions"))
	require.Equal(t, DriverPostgres, DriverFor("pgx", "host=localhost"))
	require.Equal(t, DriverSQLite, DriverFor("", "file:permissions.db"))
	require.Equal(t, DriverSQLite, DriverFor("sqlite3", "file:permissions.db"))
	require.Equal(t, "mysql", DriverFor("MySQL", ""))
}

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	require.Equal(t, "file:a.db?_fk=1", sqliteDSN("file:a.db"))
	require.Equal(t, "file:a.db?mode=memory&_fk=1", sqliteDSN("file:a.db?mode=memory"))
	require.Equal(t, "file:a.db?_fk=0", sqliteDSN("file:a.db?_fk=0"))
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: "file:storage_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.Equal(t, dialect.SQLite, db.Dialect().Name())

	require.NoError(t, migrations.Apply(ctx, db))
	require.NoError(t, migrations.ValidateSchema(ctx, db))
}

func TestConfigImplementsPersistenceConfig(t *testing.T) {
	cfg := Config{DSN: "postgres://localhost/permissions", Debug: true}
	require.Equal(t, DriverPostgres, cfg.GetDriver())
	require.Equal(t, "postgres://localhost/permissions", cfg.GetServer())
	require.True(t, cfg.GetDebug())
	require.Equal(t, 5*time.Second, cfg.GetPingTimeout())

	cfg.PingTimeout = time.Second
	require.Equal(t, time.Second, cfg.GetPingTimeout())
}

func TestOpenRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, Config{})
	require.True(t, types.IsValidation(err))

	_, err = Open(ctx, Config{Driver: "mysql", DSN: "root@/db"})
	require.ErrorIs(t, err, ErrUnknownDriver)

	_, err = Open(ctx, Config{DSN: "postgres://user@localhost:notaport/db"})
	require.True(t, types.IsValidation(err))
}
