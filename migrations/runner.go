package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/goliatone/go-permissions/pkg/types"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ValidationTargets lists the dialects every registered filesystem must cover.
var ValidationTargets = []string{"postgres", "sqlite"}

// ApplyOption customizes Apply.
type ApplyOption func(*applyConfig)

type applyConfig struct {
	logger      types.Logger
	debug       bool
	pingTimeout time.Duration
	filesystems []fs.FS
}

// WithLogger logs the migration report and dialect validation warnings.
func WithLogger(logger types.Logger) ApplyOption {
	return func(cfg *applyConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithDebug enables the persistence client query debug output.
func WithDebug(enabled bool) ApplyOption {
	return func(cfg *applyConfig) {
		cfg.debug = enabled
	}
}

// WithFilesystems replaces the registered filesystems.
func WithFilesystems(fsys ...fs.FS) ApplyOption {
	return func(cfg *applyConfig) {
		cfg.filesystems = fsys
	}
}

// clientConfig implements persistence.Config for an already opened database.
type clientConfig struct {
	driver      string
	debug       bool
	pingTimeout time.Duration
}

func (c clientConfig) GetDebug() bool                { return c.debug }
func (c clientConfig) GetDriver() string             { return c.driver }
func (c clientConfig) GetServer() string             { return "" }
func (c clientConfig) GetPingTimeout() time.Duration { return c.pingTimeout }
func (c clientConfig) GetOtelIdentifier() string     { return "go-permissions" }

// Apply registers every migration filesystem with a go-persistence-bun client
// bound to db and runs the pending migrations for its dialect. Root files
// target PostgreSQL and the sqlite/ folder overrides them for SQLite.
func Apply(ctx context.Context, db *bun.DB, opts ...ApplyOption) error {
	if db == nil {
		return types.ErrMissingDB
	}
	cfg := applyConfig{
		logger:      types.NopLogger{},
		pingTimeout: 5 * time.Second,
		filesystems: Filesystems(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	client, err := persistence.New(clientConfig{
		driver:      driverName(db),
		debug:       cfg.debug,
		pingTimeout: cfg.pingTimeout,
	}, db.DB, db.Dialect())
	if err != nil {
		return fmt.Errorf("migrations: persistence client: %w", err)
	}

	for _, fsys := range cfg.filesystems {
		if fsys == nil {
			continue
		}
		client.RegisterDialectMigrations(
			fsys,
			persistence.WithDialectSourceLabel("."),
			persistence.WithValidationTargets(ValidationTargets...),
		)
	}

	if err := client.ValidateDialects(ctx); err != nil {
		cfg.logger.Error("migration dialect validation failed", err)
	}

	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: migrate: %w", err)
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		cfg.logger.Info("migrations applied", "report", report.String())
	}
	return nil
}

func driverName(db *bun.DB) string {
	if db.Dialect().Name() == dialect.PG {
		return "postgres"
	}
	return "sqlite"
}
