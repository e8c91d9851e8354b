package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/BnB-Initivatives/stox-prod-test/internal/app"
	"github.com/BnB-Initivatives/stox-prod-test/internal/observability"
	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/cache"
	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/db"
	"github.com/BnB-Initivatives/stox-prod-test/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, nil).With(slog.String("component", "worker"))
	slog.SetDefault(logger)

	pool, err := db.Open(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MinConns: cfg.PGMinConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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
		Pool:     pool,
		Redis:    redisClient,
		Notifier: jobClient,
		Metrics:  metrics,
		Logger:   logger,
	})

	lowStockJob := jobs.NewLowStockJob(services.Inventory, logger, metrics.Jobs())
	resumeJob := jobs.NewResumeAdjustmentsJob(services.Inventory, logger, metrics.Jobs())
	cleanupJob := jobs.NewIdempotencyCleanupJob(services.Idempotency, cfg.IdempotencyRetention, logger, metrics.Jobs())

	scanTask, err := jobs.NewLowStockScanTask(time.Time{})
	if err != nil {
		logger.Error("build low stock scan task", slog.Any("error", err))
		os.Exit(1)
	}
	cron := []jobs.CronRegistration{
		{Spec: cfg.LowStockScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
	}
	if cfg.IdempotencyRetention > 0 {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.IdempotencyCleanupCron, Task: jobs.NewIdempotencyCleanupTask()})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockAlert, Handler: lowStockJob.HandleAlert},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.HandleScan},
			{Type: jobs.TaskResumeAdjustments, Handler: resumeJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		return serveMetrics(groupCtx, cfg.WorkerMetricsAddr, metrics, logger)
	})
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
