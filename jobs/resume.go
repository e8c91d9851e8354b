package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/BnB-Initivatives/stox-prod-test/internal/inventory"
	jobmetrics "github.com/BnB-Initivatives/stox-prod-test/internal/jobs"
	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

// Resumer applies the missing stock adjustments of a transaction.
type Resumer interface {
	ResumeAdjustments(ctx context.Context, kind inventory.Kind, id int64) (int, error)
}

// ResumeAdjustmentsJob retries stock updates left behind by a failed second phase.
type ResumeAdjustmentsJob struct {
	Resumer Resumer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewResumeAdjustmentsJob wires dependencies for the resume handler.
func NewResumeAdjustmentsJob(resumer Resumer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ResumeAdjustmentsJob {
	return &ResumeAdjustmentsJob{Resumer: resumer, Logger: logger, Metrics: metrics}
}

// Handle resumes one transaction. Missing transactions and bad payloads are
// not retried; stock conflicts and storage errors are.
func (j *ResumeAdjustmentsJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Resumer == nil {
		return errors.New("resume adjustments: handler not configured")
	}
	var payload ResumeAdjustmentsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskResumeAdjustments)
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("job", TaskResumeAdjustments),
		slog.String("kind", string(payload.Kind)),
		slog.Int64("id", payload.ID),
	)

	applied, err := j.Resumer.ResumeAdjustments(ctx, payload.Kind, payload.ID)
	if err != nil {
		logger.Error("resume failed", slog.Any("error", err))
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrValidation) {
			return tracker.End(fmt.Errorf("%w: %v", asynq.SkipRetry, err))
		}
		return tracker.End(err)
	}
	logger.Info("resumed stock adjustments", slog.Int("lines", applied))
	return tracker.End(nil)
}
