package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/BnB-Initivatives/stox-prod-test/internal/inventory"
	jobmetrics "github.com/BnB-Initivatives/stox-prod-test/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LowStockSource lists items below their threshold.
type LowStockSource interface {
	LowStockItems(ctx context.Context) ([]inventory.StockLevel, error)
}

// LowStockJob handles low stock alerts and the periodic scan.
type LowStockJob struct {
	Source  LowStockSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLowStockJob wires dependencies for the low stock handlers.
func NewLowStockJob(source LowStockSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	return &LowStockJob{
		Source:  source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// HandleAlert logs every item of a low stock alert.
func (j *LowStockJob) HandleAlert(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("low stock alert: handler not configured")
	}
	var payload LowStockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskLowStockAlert)
	logger := j.logger(TaskLowStockAlert)
	for _, item := range payload.Items {
		logger.Warn("item below low stock threshold",
			slog.Int64("item_id", item.ItemID),
			slog.String("item_code", item.ItemCode),
			slog.String("name", item.Name),
			slog.Int("quantity", item.Quantity),
			slog.Int("threshold", item.LowStockThreshold),
			slog.Time("raised_at", payload.RaisedAt),
		)
	}
	j.metrics().AddLowStockAlerts(len(payload.Items))
	return tracker.End(nil)
}

// HandleScan counts the items currently below threshold.
func (j *LowStockJob) HandleScan(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	start := j.now()
	tracker := j.metrics().Track(TaskLowStockScan)
	logger := j.logger(TaskLowStockScan)

	levels, err := j.Source.LowStockItems(ctx)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().SetLowStockItems(len(levels))
	logger.Info("completed low stock scan",
		slog.Int("items", len(levels)),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return tracker.End(nil)
}

func (j *LowStockJob) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *LowStockJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LowStockJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
