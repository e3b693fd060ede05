package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/backoffice/backoffice/internal/jobs"
	"github.com/backoffice/backoffice/internal/shared"
)

// AgingWarmer primes aging reports for every tenant with sales.
type AgingWarmer interface {
	WarmAging(ctx context.Context, asOf time.Time) (int, error)
}

// AgingWarmupJob pre-populates the aging cache before office hours.
type AgingWarmupJob struct {
	Warmer  AgingWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAgingWarmupJob wires dependencies for the warmup handler.
func NewAgingWarmupJob(warmer AgingWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *AgingWarmupJob {
	return &AgingWarmupJob{
		Warmer:  warmer,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes aging warmup tasks.
func (j *AgingWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Warmer == nil {
		return errors.New("aging warmup: handler not configured")
	}
	var payload AgingWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := shared.Today(j.now())
	if payload.AsOf != "" {
		parsed, err := shared.ParseDate(payload.AsOf)
		if err != nil {
			return asynq.SkipRetry
		}
		asOf = parsed
	}

	metrics := j.metrics()
	tracker := metrics.Track(TaskSalesAgingWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("as_of", asOf.Format(shared.DateLayout)))
	start := time.Now()
	warmed, err := j.Warmer.WarmAging(ctx, asOf)
	metrics.AddWarmed(warmed)
	if err != nil {
		logger.Error("warm aging", slog.Int("warmed", warmed), slog.Any("error", err))
		return err
	}
	logger.Info("completed aging warmup", slog.Int("tenants", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *AgingWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSalesAgingWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSalesAgingWarmup))
}

func (j *AgingWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AgingWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
