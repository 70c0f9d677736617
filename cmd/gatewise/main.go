package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatewise/gatewise/internal/app"
	"github.com/gatewise/gatewise/internal/authz"
	authzhttp "github.com/gatewise/gatewise/internal/authz/http"
	"github.com/gatewise/gatewise/internal/guard"
	"github.com/gatewise/gatewise/internal/observability"
	"github.com/gatewise/gatewise/internal/platform/cache"
	"github.com/gatewise/gatewise/internal/platform/db"
	memoryprovider "github.com/gatewise/gatewise/internal/providers/memory"
	pgprovider "github.com/gatewise/gatewise/internal/providers/postgres"
	redisprovider "github.com/gatewise/gatewise/internal/providers/redis"
	"github.com/gatewise/gatewise/internal/tokens"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	roles, err := app.LoadRoles(cfg.RolesPath)
	if err != nil {
		logger.Error("load roles", slog.Any("error", err))
		os.Exit(1)
	}
	registry := authz.NewRegistry()
	registry.Replace(roles)
	logger.Info("roles loaded", slog.Int("count", len(roles)), slog.String("path", cfg.RolesPath))

	var (
		provider      authz.TokenProvider
		tokensHandler *tokens.Handler
	)
	service := authz.NewService(registry, nil)
	metrics := observability.NewMetrics()
	g := guard.Guard{Service: service, Logger: logger, Metrics: metrics}

	switch cfg.Provider {
	case "postgres":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		provider = pgprovider.New(pool)
		tokensHandler = tokens.NewHandler(logger, tokens.NewService(tokens.NewRepository(pool)), g)
	case "redis":
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		provider = redisprovider.New(client)
	case "memory":
		provider = memoryprovider.New()
		logger.Warn("memory provider active, tokens are process-local")
	}
	service.SetProvider(provider)

	authzHandler := authzhttp.NewHandler(logger, service, registry, g, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		AuthzHandler:  authzHandler,
		TokensHandler: tokensHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("provider", cfg.Provider))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
