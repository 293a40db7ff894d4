// Package dbtest opens isolated in-memory SQLite databases with the embedded
// migrations applied. Test-only helper.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-permissions/migrations"
)

// New returns a migrated bun DB backed by a private shared-cache memory
// database. A single connection is kept open so the database lives for the
// duration of the test.
func New(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	require.NoError(t, migrations.Apply(context.Background(), db))
	return db
}

// Clock is a settable clock for deterministic timestamps.
type Clock struct {
	T time.Time
}

// Now implements types.Clock.
func (c *Clock) Now() time.Time {
	return c.T
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
