package permissions

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-permissions/migrations"
	"github.com/uptrace/bun"
)

// MigrationsFS contains SQL migrations for both PostgreSQL and SQLite.
//
// Root files (data/sql/migrations/*.sql) contain PostgreSQL migrations and
// the SQLite rendition lives in data/sql/migrations/sqlite/*.sql.
//
// Usage:
//
//	import permissions "github.com/goliatone/go-permissions"
//
//	err := permissions.ApplyMigrations(ctx, db)
//
// Hosts running their own go-persistence-bun client register GetMigrationsFS
// with WithDialectSourceLabel(".") instead.
var MigrationsFS = migrations.FS

// GetMigrationsFS exposes the migrations rooted at data/sql/migrations so
// host applications can feed them to their own runner.
func GetMigrationsFS() fs.FS {
	return migrations.CoreFS()
}

// ApplyMigrations runs every pending migration for the dialect of db.
func ApplyMigrations(ctx context.Context, db *bun.DB, opts ...migrations.ApplyOption) error {
	return migrations.Apply(ctx, db, opts...)
}
