// Package cli implements the stoxctl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/BnB-Initivatives/stox-prod-test/internal/inventory"
	"github.com/BnB-Initivatives/stox-prod-test/jobs"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// Enqueuer is the part of *asynq.Client the commands use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Inspector is the part of *asynq.Inspector the commands use.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for the inventory queue.
type JobsCLI struct {
	client    Enqueuer
	inspector Inspector
	Stdout    io.Writer
	Stderr    io.Writer
	JSON      bool
}

// NewJobsCLI initialises the CLI helpers against the given Redis options.
func NewJobsCLI(opts asynq.RedisClientOpt) *JobsCLI {
	return NewJobsCLIWith(asynq.NewClient(opts), asynq.NewInspector(opts))
}

// NewJobsCLIWith builds the CLI from explicit collaborators.
func NewJobsCLIWith(client Enqueuer, inspector Inspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

func (c *JobsCLI) print(v any, text string) {
	if c.JSON {
		enc := json.NewEncoder(c.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	_, _ = fmt.Fprintln(c.Stdout, text)
}

func (c *JobsCLI) failf(format string, args ...any) int {
	_, _ = fmt.Fprintf(c.Stderr, format+"\n", args...)
	return 1
}

// ResumeCommand queues ResumeAdjustments for one transaction. A resume that
// is already queued counts as success.
func (c *JobsCLI) ResumeCommand(ctx context.Context, kind string, id int64) int {
	if c.client == nil {
		return c.failf("resume: client not configured")
	}
	k := inventory.Kind(kind)
	if k != inventory.KindCheckout && k != inventory.KindReceipt {
		return c.failf("resume: -kind must be %q or %q", inventory.KindCheckout, inventory.KindReceipt)
	}
	if id <= 0 {
		return c.failf("resume: -id is required and must be positive")
	}
	task, err := jobs.NewResumeAdjustmentsTask(k, id)
	if err != nil {
		return c.failf("resume: %v", err)
	}
	info, err := c.client.EnqueueContext(ctx, task)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		c.print(map[string]any{"kind": k, "id": id, "queued": false}, fmt.Sprintf("resume for %s %d already queued", k, id))
		return 0
	case err != nil:
		return c.failf("resume: enqueue: %v", err)
	}
	c.print(map[string]any{"kind": k, "id": id, "queued": true, "task_id": info.ID},
		fmt.Sprintf("queued resume for %s %d (task %s)", k, id, info.ID))
	return 0
}

// ScanCommand queues an immediate low stock scan.
func (c *JobsCLI) ScanCommand(ctx context.Context) int {
	if c.client == nil {
		return c.failf("scan: client not configured")
	}
	task, err := jobs.NewLowStockScanTask(timeNow())
	if err != nil {
		return c.failf("scan: %v", err)
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	if err != nil {
		return c.failf("scan: enqueue: %v", err)
	}
	c.print(map[string]any{"task_id": info.ID}, "queued low stock scan (task "+info.ID+")")
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// QueueCommand prints the default queue's counters.
func (c *JobsCLI) QueueCommand(ctx context.Context) int {
	if c.inspector == nil {
		return c.failf("queue: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return c.failf("queue: %v", err)
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = int(info.Pending)
		stats.Active = int(info.Active)
		stats.Scheduled = int(info.Scheduled)
		stats.Retry = int(info.Retry)
		stats.Archived = int(info.Archived)
	}
	c.print(stats, fmt.Sprintf("%s: pending=%d active=%d scheduled=%d retry=%d archived=%d",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived))
	return 0
}

// ScheduledCommand lists up to size scheduled tasks.
func (c *JobsCLI) ScheduledCommand(ctx context.Context, size int) int {
	if c.inspector == nil {
		return c.failf("scheduled: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	tasks, err := c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
	if err != nil {
		return c.failf("scheduled: %v", err)
	}
	type row struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		At   string `json:"next_process_at"`
	}
	rows := make([]row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, row{ID: t.ID, Type: t.Type, At: t.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z")})
	}
	if c.JSON {
		c.print(rows, "")
		return 0
	}
	if len(rows) == 0 {
		c.print(nil, "no scheduled tasks")
		return 0
	}
	for _, r := range rows {
		c.print(nil, fmt.Sprintf("%s\t%s\t%s", r.At, r.Type, r.ID))
	}
	return 0
}
