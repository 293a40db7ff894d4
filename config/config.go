// Package config loads the permissionsd configuration.
//
// Values start from Default, are overlaid by an optional YAML file and then
// by PERMISSIONS_* environment variables. Validate runs last.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-permissions/pkg/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PERMISSIONS_"

// Config is the daemon configuration.
type Config struct {
	Environment string         `yaml:"environment"`
	HTTP        HTTPConfig     `yaml:"http"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Auth        AuthConfig     `yaml:"auth"`
	Log         LogConfig      `yaml:"log"`
	Admin       AdminConfig    `yaml:"admin"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the bun database.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
	Debug           bool          `yaml:"debug"`
}

// RedisConfig configures the change notifier. An empty Addr disables it.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AdminConfig names the page whose flags govern administration actions. It
// is required: without it every administration action would be denied.
type AdminConfig struct {
	PageID string `yaml:"page_id"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Environment: "development",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:         "file:permissions.db?cache=shared",
			PingTimeout: 5 * time.Second,
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			ChannelPrefix: "permissions",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the optional YAML file and the process environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, types.Validation("read config file", map[string]any{"path": path, "error": err.Error()})
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, types.Validation("parse config file", map[string]any{"path": path, "error": err.Error()})
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("ENVIRONMENT", &cfg.Environment)
	str("HTTP_ADDR", &cfg.HTTP.Addr)
	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_DSN", &cfg.Database.DSN)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("REDIS_CHANNEL_PREFIX", &cfg.Redis.ChannelPrefix)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("JWT_ISSUER", &cfg.Auth.Issuer)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("ADMIN_PAGE_ID", &cfg.Admin.PageID)

	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return types.Validation("invalid "+EnvPrefix+"REDIS_DB", map[string]any{"value": v})
		}
		cfg.Redis.DB = db
	}
	if v, ok := lookup(EnvPrefix + "DATABASE_AUTO_MIGRATE"); ok && v != "" {
		auto, err := strconv.ParseBool(v)
		if err != nil {
			return types.Validation("invalid "+EnvPrefix+"DATABASE_AUTO_MIGRATE", map[string]any{"value": v})
		}
		cfg.Database.AutoMigrate = auto
	}
	if v, ok := lookup(EnvPrefix + "DATABASE_DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return types.Validation("invalid "+EnvPrefix+"DATABASE_DEBUG", map[string]any{"value": v})
		}
		cfg.Database.Debug = debug
	}
	if v, ok := lookup(EnvPrefix + "SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return types.Validation("invalid "+EnvPrefix+"SHUTDOWN_TIMEOUT", map[string]any{"value": v})
		}
		cfg.HTTP.ShutdownTimeout = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.HTTP.Addr) == "":
		return types.Validation("http.addr required", nil)
	case c.HTTP.ShutdownTimeout <= 0:
		return types.Validation("http.shutdown_timeout must be positive", nil)
	case strings.TrimSpace(c.Database.DSN) == "":
		return types.Validation("database.dsn required", nil)
	case strings.TrimSpace(c.Auth.JWTSecret) == "":
		return types.Validation("auth.jwt_secret required", nil)
	case strings.TrimSpace(c.Admin.PageID) == "":
		return types.Validation("admin.page_id required", nil)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return types.Validation("log.level must be debug, info, warn or error", map[string]any{"level": c.Log.Level})
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return types.Validation("log.format must be json or console", map[string]any{"format": c.Log.Format})
	}
	if _, err := c.AdminPageID(); err != nil {
		return err
	}
	return nil
}

// AdminPageID parses the configured admin page. Empty yields uuid.Nil.
func (c Config) AdminPageID() (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Admin.PageID)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, types.Validation("admin.page_id must be a uuid", map[string]any{"page_id": raw})
	}
	return id, nil
}
