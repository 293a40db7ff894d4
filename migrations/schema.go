package migrations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// SchemaCheck describes a table and the columns the engine reads or writes.
type SchemaCheck struct {
	Table   string
	Columns []string
}

// DefaultSchemaChecks lists the tables required by the stores.
var DefaultSchemaChecks = []SchemaCheck{
	{Table: "tenants", Columns: []string{"id", "name", "status"}},
	{Table: "systems", Columns: []string{"id", "name", "is_active"}},
	{Table: "tenant_systems", Columns: []string{"tenant_id", "system_id", "is_active"}},
	{Table: "pages", Columns: []string{"id", "system_id", "route", "sort_order"}},
	{Table: "roles", Columns: []string{"id", "tenant_id", "name", "is_system_role", "is_active"}},
	{Table: "users", Columns: []string{"id", "tenant_id", "role_id", "status", "failed_login_attempts", "locked_at"}},
	{Table: "role_permissions", Columns: []string{"tenant_id", "role_id", "page_id", "can_view", "can_create", "can_edit", "can_delete", "can_export"}},
	{Table: "user_permission_overrides", Columns: []string{"tenant_id", "user_id", "page_id", "can_view", "can_create", "can_edit", "can_delete", "can_export", "custom_permissions"}},
	{Table: "unlock_history", Columns: []string{"unlocked_user_id", "unlocked_by_user_id", "reason", "previous_failed_attempts", "ip_address"}},
	{Table: "audit_logs", Columns: []string{"actor_id", "tenant_id", "action", "resource_type", "resource_id", "details", "ip_address", "user_agent", "created_at"}},
}

// SchemaValidationError summarizes missing tables and columns.
type SchemaValidationError struct {
	MissingTables  []string
	MissingColumns map[string][]string
}

func (e *SchemaValidationError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if len(e.MissingTables) > 0 {
		parts = append(parts, fmt.Sprintf("missing tables: %s", strings.Join(e.MissingTables, ", ")))
	}
	if len(e.MissingColumns) > 0 {
		tables := make([]string, 0, len(e.MissingColumns))
		for table := range e.MissingColumns {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		cols := make([]string, 0, len(tables))
		for _, table := range tables {
			missing := e.MissingColumns[table]
			sort.Strings(missing)
			cols = append(cols, fmt.Sprintf("%s(%s)", table, strings.Join(missing, ", ")))
		}
		parts = append(parts, fmt.Sprintf("missing columns: %s", strings.Join(cols, "; ")))
	}
	if len(parts) == 0 {
		return "schema validation failed"
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// ValidateSchema ensures an externally managed database exposes the tables
// and columns the stores rely on. Used when migrations are not applied by
// this module.
func ValidateSchema(ctx context.Context, db *bun.DB, checks ...SchemaCheck) error {
	if db == nil {
		return fmt.Errorf("migrations: db required")
	}
	if len(checks) == 0 {
		checks = DefaultSchemaChecks
	}
	missingTables := make([]string, 0)
	missingColumns := make(map[string][]string)
	for _, check := range checks {
		if strings.TrimSpace(check.Table) == "" {
			continue
		}
		cols, err := fetchColumns(ctx, db, check.Table)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			missingTables = append(missingTables, check.Table)
			continue
		}
		for _, col := range check.Columns {
			name := strings.ToLower(strings.TrimSpace(col))
			if name != "" && !cols[name] {
				missingColumns[check.Table] = append(missingColumns[check.Table], name)
			}
		}
	}
	if len(missingTables) == 0 && len(missingColumns) == 0 {
		return nil
	}
	sort.Strings(missingTables)
	return &SchemaValidationError{
		MissingTables:  missingTables,
		MissingColumns: missingColumns,
	}
}

func fetchColumns(ctx context.Context, db *bun.DB, table string) (map[string]bool, error) {
	var names []string
	switch db.Dialect().Name() {
	case dialect.PG:
		err := db.NewRaw(`SELECT column_name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ?`, table).Scan(ctx, &names)
		if err != nil {
			return nil, err
		}
	case dialect.SQLite:
		err := db.NewRaw("SELECT name FROM pragma_table_info(?)", table).Scan(ctx, &names)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", db.Dialect().Name())
	}
	cols := make(map[string]bool, len(names))
	for _, name := range names {
		cols[strings.ToLower(name)] = true
	}
	return cols, nil
}
