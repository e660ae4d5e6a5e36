package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/relayhq/chathub/core/auth"
	"github.com/relayhq/chathub/core/config"
	"github.com/relayhq/chathub/core/health"
	"github.com/relayhq/chathub/core/hub"
	"github.com/relayhq/chathub/core/logger"
	"github.com/relayhq/chathub/core/server"
	"github.com/relayhq/chathub/integration/database/pg"
	"github.com/relayhq/chathub/integration/database/redis"
	"github.com/relayhq/chathub/storage/postgres"
	"github.com/relayhq/chathub/storage/rediscache"
	"github.com/relayhq/chathub/transport/ws"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"production"`

	// CacheEnabled toggles the Redis history cache; the service runs
	// fine without it.
	CacheEnabled bool `env:"CACHE_ENABLED" envDefault:"true"`

	Hub    hub.Config
	Auth   auth.Config
	PG     pg.Config
	Redis  redis.Config
	Cache  rediscache.Config
	WS     ws.Config
	Server server.Config
}

func main() {
	cfg := config.MustLoad[appConfig]()

	logOpt := logger.WithProduction("chathub")
	if cfg.Env != "production" {
		logOpt = logger.WithDevelopment("chathub")
	}
	log := logger.New(logOpt)
	logger.SetAsDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("service exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		// A fresh checkout without a migrations directory still works for
		// local development against an already migrated database.
		if !errors.Is(err, pg.ErrMigrationsDirNotFound) {
			return err
		}
		log.Warn("skipping migrations", logger.Error(err))
	}

	var store hub.Store = postgres.New(pool)
	healthChecks := []func(context.Context) error{pg.Healthcheck(pool)}

	if cfg.CacheEnabled {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		store = rediscache.New(store, client, cfg.Cache, rediscache.WithLogger(log))
		healthChecks = append(healthChecks, redis.Healthcheck(client))
	}

	authSvc, err := auth.New(cfg.Auth)
	if err != nil {
		return err
	}

	chatHub := hub.New(store, cfg.Hub, hub.WithLogger(log))

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.New(chatHub, authSvc, cfg.WS, ws.WithLogger(log)))
	mux.Handle("/healthz", health.Readiness(log, healthChecks...))
	mux.Handle("/health/live", health.Liveness())

	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(gctx, mux))
	g.Go(chatHub.Run(gctx))

	log.Info("chathub started",
		logger.Component("main"),
		slog.String("addr", cfg.Server.Addr),
		slog.String("env", cfg.Env),
	)

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if shutdownErr := chatHub.Shutdown(shutdownCtx); shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		log.Error("hub shutdown error", logger.Error(shutdownErr))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
