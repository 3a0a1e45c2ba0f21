package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// RedisOpt builds the asynq redis connection options from configuration.
func RedisOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	parsed, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	opt := asynq.RedisClientOpt{
		Addr:      parsed.Addr,
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: parsed.TLSConfig,
	}
	if cfg.GetRedisTLSInsecure() && opt.TLSConfig != nil {
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return opt, nil
}

// Client schedules and cancels per-batch reconcile tasks.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
	interval  time.Duration
	log       *logger.Logger
}

// NewClient creates a scheduler client from configuration.
func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	opt, err := RedisOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     cfg.GetAsynqQueueName(),
		interval:  cfg.GetReconcileInterval(),
		log:       log,
	}, nil
}

// ScheduleReconcile enqueues a reconcile task for the batch, due after the
// configured interval. Scheduling is idempotent: if a task for the batch is
// already pending, the call is a no-op.
func (c *Client) ScheduleReconcile(ctx context.Context, batchID string) error {
	task, err := NewReconcileTask(batchID)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(reconcileTaskID(batchID)),
		asynq.ProcessIn(c.interval),
		asynq.MaxRetry(3),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// CancelReconcile removes any pending reconcile task for the batch. Missing
// tasks are not an error; cancellation races task execution by design.
func (c *Client) CancelReconcile(ctx context.Context, batchID string) error {
	err := c.inspector.DeleteTask(c.queue, reconcileTaskID(batchID))
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}

// Close releases the underlying redis connections.
func (c *Client) Close() error {
	ierr := c.inspector.Close()
	cerr := c.client.Close()
	if cerr != nil {
		return cerr
	}
	return ierr
}
