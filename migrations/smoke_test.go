package migrations_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-permissions/migrations"
)

func TestMigrationsApplyToSQLite(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	require.NoError(t, migrations.Apply(ctx, db))
	require.NoError(t, migrations.ValidateSchema(ctx, db))

	_, err := db.ExecContext(ctx, `INSERT INTO systems (id, name, is_active, created_at) VALUES (?, 'billing', 1, CURRENT_TIMESTAMP)`, uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, migrations.Apply(ctx, db), "second run applies nothing")
	var count int
	require.NoError(t, db.NewSelect().Table("systems").ColumnExpr("COUNT(*)").Scan(ctx, &count))
	require.Equal(t, 1, count)
}

func TestAuditLogIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, migrations.Apply(ctx, db))

	_, err := db.ExecContext(ctx, `INSERT INTO audit_logs (id, tenant_id, actor_id, action, created_at)
		VALUES (?, ?, ?, 'user.unlocked', CURRENT_TIMESTAMP)`, uuid.NewString(), uuid.NewString(), uuid.NewString())
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "UPDATE audit_logs SET action = 'tampered'")
	require.Error(t, err)
	_, err = db.ExecContext(ctx, "DELETE FROM audit_logs")
	require.Error(t, err)
}

func TestValidateSchemaReportsMissingTables(t *testing.T) {
	db := openSQLite(t)
	err := migrations.ValidateSchema(context.Background(), db)
	require.Error(t, err)
	var schemaErr *migrations.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.Contains(t, schemaErr.MissingTables, "audit_logs")
}

func openSQLite(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
