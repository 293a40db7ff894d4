package migrations

import (
	"embed"
	"io/fs"
)

// FS contains the SQL migrations for PostgreSQL and SQLite.
//
// Root files (data/sql/migrations/*.sql) target PostgreSQL and the sqlite/
// folder carries the SQLite rendition of the same schema. Apply selects the
// folder matching the bun dialect.
//
//go:embed data/sql/migrations
var FS embed.FS

// CoreFS returns the migrations rooted at data/sql/migrations.
func CoreFS() fs.FS {
	sub, err := fs.Sub(FS, "data/sql/migrations")
	if err != nil {
		return nil
	}
	return sub
}
