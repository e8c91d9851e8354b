package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/BnB-Initivatives/stox-prod-test/internal/app"
	"github.com/BnB-Initivatives/stox-prod-test/internal/catalog"
	"github.com/BnB-Initivatives/stox-prod-test/internal/inventory"
	"github.com/BnB-Initivatives/stox-prod-test/internal/observability"
	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/cache"
	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/db"
	"github.com/BnB-Initivatives/stox-prod-test/internal/rbac"
	"github.com/BnB-Initivatives/stox-prod-test/jobs"
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

	logger := app.NewLogger(cfg, nil)
	slog.SetDefault(logger)

	dbpool, err := db.Open(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MinConns: cfg.PGMinConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services := app.BuildServices(app.ServiceParams{
		Config:   cfg,
		Pool:     dbpool,
		Redis:    redisClient,
		Notifier: jobClient,
		Metrics:  metrics,
		Logger:   logger,
	})

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalog.NewHandler(logger, services.Catalog),
		InventoryHandler: inventory.NewHandler(logger, services.Inventory),
		RBACHandler:      rbac.NewHandler(logger, services.RBAC),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
		Checks: map[string]app.Pinger{
			"postgres": dbpool,
			"redis": app.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("split_phases", cfg.InventorySplitPhases))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
