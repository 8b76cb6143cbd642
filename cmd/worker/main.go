package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-manage/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-manage/internal/jobs"
	"github.com/odyssey-erp/odyssey-manage/internal/observability"
	"github.com/odyssey-erp/odyssey-manage/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-manage/internal/platform/db"
	"github.com/odyssey-erp/odyssey-manage/jobs"
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

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	svc, err := app.Bootstrap(app.Dependencies{
		Pool:    pool,
		Cache:   cache.New(redisClient, cache.DefaultNamespace, cfg.EntityCacheTTL),
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		logger.Error("bootstrap management", slog.Any("error", err))
		os.Exit(1)
	}

	warmupJob := &jobs.CacheWarmupJob{
		Menus:       svc.MenuOp,
		Roles:       svc.RoleOp,
		RoleList:    svc.Roles,
		Invalidator: svc.Factory,
		Logger:      logger,
		Metrics:     jobmetrics.NewMetrics(metrics.Registerer()),
	}

	warmupTask, err := jobs.NewCacheWarmupTask("schedule")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCacheWarmup, Handler: warmupJob.HandleWarmup},
			{Type: jobs.TaskCacheBust, Handler: warmupJob.HandleBust},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.MenuWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
