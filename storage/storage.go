// Package storage opens the bun database used by every store through a
// go-persistence-bun client. SQLite runs through mattn/go-sqlite3 and
// PostgreSQL through the pgx stdlib driver.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-permissions/pkg/types"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned for drivers other than sqlite and postgres.
var ErrUnknownDriver = errors.New("go-permissions: unknown storage driver")

// Config describes the database connection.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
	Debug           bool
}

var _ persistence.Config = Config{}

func (c Config) GetDebug() bool            { return c.Debug }
func (c Config) GetDriver() string         { return DriverFor(c.Driver, c.DSN) }
func (c Config) GetServer() string         { return c.DSN }
func (c Config) GetOtelIdentifier() string { return "go-permissions" }

// GetPingTimeout defaults to five seconds.
func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

// DriverFor infers the driver from the DSN when none was configured.
func DriverFor(driver, dsn string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "sqlite3":
		return DriverSQLite
	case "postgresql", "pgx":
		return DriverPostgres
	case "":
	default:
		return driver
	}
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open connects, applies pool settings and pings the database.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, types.Validation("storage dsn required", nil)
	}
	var (
		sqldb   *sql.DB
		dialect schema.Dialect
	)
	switch DriverFor(cfg.Driver, cfg.DSN) {
	case DriverSQLite:
		opened, err := sql.Open("sqlite3", sqliteDSN(cfg.DSN))
		if err != nil {
			return nil, types.Persistence(err, "open sqlite")
		}
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 1
		}
		sqldb, dialect = opened, sqlitedialect.New()
	case DriverPostgres:
		connCfg, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, types.Validation("invalid postgres dsn", map[string]any{"error": err.Error()})
		}
		sqldb, dialect = stdlib.OpenDB(*connCfg), pgdialect.New()
	default:
		return nil, ErrUnknownDriver
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, types.Persistence(err, "persistence client")
	}
	db := client.DB()
	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetPingTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, types.Persistence(err, "ping database")
	}
	return db, nil
}

// sqliteDSN enables foreign keys, which cascade role and user deletes.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_fk=") || strings.Contains(dsn, "_foreign_keys=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_fk=1"
	}
	return dsn + "?_fk=1"
}
