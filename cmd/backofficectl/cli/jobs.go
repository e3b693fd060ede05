package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/backoffice/backoffice/internal/shared"
	"github.com/backoffice/backoffice/jobs"
)

// Job names accepted by Trigger.
const (
	JobDriftScan   = "drift-scan"
	JobAgingWarmup = "aging-warmup"
)

// Enqueuer submits tasks; *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Inspector reads queue state; *asynq.Inspector satisfies it.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return NewJobsCLIWith(asynq.NewClient(opts), asynq.NewInspector(opts))
}

// NewJobsCLIWith uses caller supplied queue clients.
func NewJobsCLIWith(client Enqueuer, inspector Inspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
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

// TriggerOptions narrows a manually triggered job.
type TriggerOptions struct {
	TenantID int64
	AsOf     string
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string, opts TriggerOptions) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case JobDriftScan:
		if opts.TenantID < 0 {
			return nil, fmt.Errorf("jobs cli: invalid tenant %d", opts.TenantID)
		}
		task, err = jobs.NewDriftScanTask(opts.TenantID)
	case JobAgingWarmup:
		if opts.AsOf != "" {
			if _, perr := shared.ParseDate(opts.AsOf); perr != nil {
				return nil, fmt.Errorf("jobs cli: as-of must be YYYY-MM-DD: %w", perr)
			}
		}
		task, err = jobs.NewAgingWarmupTask(opts.AsOf)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Failed    int    `json:"failed_today"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Failed = info.Failed
	}
	return stats, nil
}
