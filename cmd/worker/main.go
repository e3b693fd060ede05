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

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/backoffice/backoffice/internal/app"
	"github.com/backoffice/backoffice/internal/cashflow"
	"github.com/backoffice/backoffice/internal/events"
	jobmetrics "github.com/backoffice/backoffice/internal/jobs"
	"github.com/backoffice/backoffice/internal/platform/cache"
	"github.com/backoffice/backoffice/internal/platform/db"
	"github.com/backoffice/backoffice/internal/sales"
	"github.com/backoffice/backoffice/internal/shared"
	"github.com/backoffice/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}
	if err := app.LoadDotEnv(); err != nil {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	// Jobs only read ledgers and fill caches, so nothing is published.
	cashflowService := cashflow.NewService(cashflow.NewRepository(pool), events.NopPublisher{}, logger)
	agingCache := cache.NewVersioned(redisClient, "sales", cfg.AgingCacheTTL)
	salesService := sales.NewService(sales.NewRepository(pool), agingCache, events.NopPublisher{}, logger)

	driftJob := jobs.NewDriftScanJob(cashflowService, logger, metrics)
	warmupJob := jobs.NewAgingWarmupJob(salesService, logger, metrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger, metrics)

	driftTask, err := jobs.NewDriftScanTask(0)
	if err != nil {
		logger.Error("build drift task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewAgingWarmupTask("")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.DefaultIdempotencyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerDriftScan, Handler: driftJob.Handle},
			{Type: jobs.TaskSalesAgingWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: driftTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * 0", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metricsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

// metricsRouter exposes the default registry, where job metrics live.
func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}
