package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/BnB-Initivatives/stox-prod-test/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockAlert reports items that dropped below their threshold.
	TaskLowStockAlert = "inventory:low_stock_alert"
	// TaskLowStockScan periodically refreshes the low stock gauge.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskResumeAdjustments finishes stock updates of an inconsistent transaction.
	TaskResumeAdjustments = "inventory:resume_adjustments"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// LowStockAlertPayload lists the items that crossed their threshold.
type LowStockAlertPayload struct {
	Items    []inventory.StockLevel `json:"items"`
	RaisedAt time.Time              `json:"raised_at"`
}

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// ResumeAdjustmentsPayload names the transaction to resume.
type ResumeAdjustmentsPayload struct {
	Kind inventory.Kind `json:"kind"`
	ID   int64          `json:"id"`
}

// NewLowStockAlertTask constructs an Asynq task for a low stock alert.
func NewLowStockAlertTask(payload LowStockAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewLowStockScanTask constructs the scheduled scan task.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// NewResumeAdjustmentsTask constructs a resume task. The task id is derived
// from the transaction so at most one resume per transaction is queued.
func NewResumeAdjustmentsTask(kind inventory.Kind, id int64) (*asynq.Task, error) {
	body, err := json.Marshal(ResumeAdjustmentsPayload{Kind: kind, ID: id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskResumeAdjustments, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(10),
		asynq.TaskID(resumeTaskID(kind, id)),
	), nil
}

func resumeTaskID(kind inventory.Kind, id int64) string {
	return fmt.Sprintf("resume:%s:%d", kind, id)
}

// NewIdempotencyCleanupTask constructs the scheduled idempotency key purge.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}
