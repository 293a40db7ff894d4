// Command permissionsd serves the permission engine over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/goliatone/go-permissions/adapter/redisnotify"
	"github.com/goliatone/go-permissions/adapter/zaplog"
	"github.com/goliatone/go-permissions/config"
	"github.com/goliatone/go-permissions/migrations"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/service"
	"github.com/goliatone/go-permissions/storage"
	"github.com/goliatone/go-permissions/transport/httpapi"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	addr := pflag.String("addr", "", "listen address (overrides config)")
	migrateOnly := pflag.Bool("migrate-only", false, "apply migrations and exit")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "permissionsd: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	logger, err := zaplog.New(cfg.Log.Level, cfg.Log.Format, "permissionsd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "permissionsd: build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger, *migrateOnly); err != nil {
		logger.Error("permissionsd exited", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zaplog.Logger, migrateOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, storage.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		PingTimeout:     cfg.Database.PingTimeout,
		Debug:           cfg.Database.Debug,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate || migrateOnly {
		if err := migrations.Apply(ctx, db, migrations.WithLogger(logger), migrations.WithDebug(cfg.Database.Debug)); err != nil {
			return err
		}
	} else if err := migrations.ValidateSchema(ctx, db); err != nil {
		return err
	}
	if migrateOnly {
		return nil
	}

	hooks := types.Hooks{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("redis unavailable, change notifications disabled", err, "addr", cfg.Redis.Addr)
		} else {
			hooks = redisnotify.New(redisnotify.Config{
				Client: client,
				Prefix: cfg.Redis.ChannelPrefix,
				Logger: logger,
			}).Hooks()
		}
	}

	adminPage, err := cfg.AdminPageID()
	if err != nil {
		return err
	}
	svc, err := service.NewBun(service.BunConfig{
		DB:          db,
		Hooks:       hooks,
		Logger:      logger,
		AdminPageID: adminPage,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(httpapi.Config{
			Service:       svc,
			Authenticator: httpapi.NewAuthenticator([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer),
			Logger:        logger,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
