package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/BnB-Initivatives/stox-prod-test/internal/jobs"
)

// KeyCleaner deletes idempotency keys claimed before the retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob purges expired idempotency keys, including claims
// abandoned by a crashed request.
type IdempotencyCleanupJob struct {
	Cleaner   KeyCleaner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob wires dependencies for the cleanup handler.
func NewIdempotencyCleanupJob(cleaner KeyCleaner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Cleaner: cleaner, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle runs one purge.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Cleaner == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	if j.Retention <= 0 {
		return asynq.SkipRetry
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskIdempotencyCleanup)
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskIdempotencyCleanup))

	purged, err := j.Cleaner.Cleanup(ctx, j.Retention)
	if err != nil {
		logger.Error("cleanup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	metrics.AddIdempotencyKeysPurged(purged)
	logger.Info("purged idempotency keys",
		slog.Int64("deleted", purged),
		slog.Duration("retention", j.Retention))
	return tracker.End(nil)
}
