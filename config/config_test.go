package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-permissions/pkg/types"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadAppliesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "permissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
http:
  addr: ":9090"
  shutdown_timeout: 45s
database:
  driver: postgres
  dsn: postgres://app@db/permissions
redis:
  addr: redis:6379
auth:
  jwt_secret: from-file
log:
  level: debug
  format: console
admin:
  page_id: 6f1c1c7e-6a55-4e5e-9d8e-1a1f6a0b9c11
`), 0o600))

	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"PERMISSIONS_JWT_SECRET": "from-env",
		"PERMISSIONS_REDIS_DB":   "2",
	}))
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.Equal(t, 45*time.Second, cfg.HTTP.ShutdownTimeout)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "from-env", cfg.Auth.JWTSecret)
	require.Equal(t, 2, cfg.Redis.DB)
	require.Equal(t, "permissions", cfg.Redis.ChannelPrefix)

	page, err := cfg.AdminPageID()
	require.NoError(t, err)
	require.Equal(t, "6f1c1c7e-6a55-4e5e-9d8e-1a1f6a0b9c11", page.String())
}

const adminPage = "6f1c1c7e-6a55-4e5e-9d8e-1a1f6a0b9c11"

func TestLoadValidates(t *testing.T) {
	_, err := LoadWithEnv("", envMap(nil))
	require.True(t, types.IsValidation(err))

	_, err = LoadWithEnv("", envMap(map[string]string{
		"PERMISSIONS_JWT_SECRET": "secret",
	}))
	require.True(t, types.IsValidation(err), "admin page is required")

	_, err = LoadWithEnv("", envMap(map[string]string{
		"PERMISSIONS_JWT_SECRET":    "secret",
		"PERMISSIONS_ADMIN_PAGE_ID": adminPage,
		"PERMISSIONS_LOG_LEVEL":     "verbose",
	}))
	require.True(t, types.IsValidation(err))

	_, err = LoadWithEnv("", envMap(map[string]string{
		"PERMISSIONS_JWT_SECRET":    "secret",
		"PERMISSIONS_ADMIN_PAGE_ID": "not-a-uuid",
	}))
	require.True(t, types.IsValidation(err))

	_, err = LoadWithEnv("", envMap(map[string]string{
		"PERMISSIONS_JWT_SECRET":    "secret",
		"PERMISSIONS_ADMIN_PAGE_ID": adminPage,
		"PERMISSIONS_REDIS_DB":      "x",
	}))
	require.True(t, types.IsValidation(err))

	cfg, err := LoadWithEnv("", envMap(map[string]string{
		"PERMISSIONS_JWT_SECRET":            "secret",
		"PERMISSIONS_ADMIN_PAGE_ID":         adminPage,
		"PERMISSIONS_DATABASE_AUTO_MIGRATE": "false",
		"PERMISSIONS_DATABASE_DEBUG":        "true",
	}))
	require.NoError(t, err)
	require.False(t, cfg.Database.AutoMigrate)
	require.True(t, cfg.Database.Debug)
	require.Equal(t, 5*time.Second, cfg.Database.PingTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	require.True(t, types.IsValidation(err))
}
