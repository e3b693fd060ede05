package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/backoffice/backoffice/internal/jobs"
)

// IdempotencyCleaner deletes idempotency keys older than a retention window.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes stale idempotency keys.
type IdempotencyCleanupJob struct {
	Cleaner IdempotencyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob wires dependencies for the cleanup handler.
func NewIdempotencyCleanupJob(cleaner IdempotencyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Cleaner: cleaner, Logger: logger, Metrics: metrics}
}

// Handle processes cleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Cleaner == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OlderThan <= 0 {
		payload.OlderThan = DefaultIdempotencyRetention
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskIdempotencyCleanup))

	removed, err := j.Cleaner.Cleanup(ctx, payload.OlderThan)
	if err != nil {
		logger.Error("cleanup idempotency keys", slog.Any("error", err))
		return err
	}
	logger.Info("pruned idempotency keys", slog.Int64("removed", removed), slog.Duration("older_than", payload.OlderThan))
	return nil
}
