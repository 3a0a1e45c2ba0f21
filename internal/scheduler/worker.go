package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"outreach_backend/internal/batches/domain"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Reconciler is the orchestrator surface the worker drives.
type Reconciler interface {
	Reconcile(ctx context.Context, batchID string) (*domain.Batch, error)
}

// Worker consumes reconcile tasks. After each run it re-schedules itself
// while the batch is still in progress, so the loop is self-sustaining until
// completion or deletion.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	client *Client
	orch   Reconciler
	log    *logger.Logger
}

// NewWorker creates the asynq worker.
func NewWorker(cfg config.SchedulerConfig, orch Reconciler, client *Client, log *logger.Logger) (*Worker, error) {
	opt, err := RedisOpt(cfg)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
		Logger:      &asynqLogger{log: log},
	})

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		client: client,
		orch:   orch,
		log:    log,
	}
	w.mux.HandleFunc(TaskBatchReconcile, w.handleReconcile)
	return w, nil
}

// Run starts the worker and blocks until shutdown.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleReconcile(ctx context.Context, task *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode reconcile payload: %v: %w", err, asynq.SkipRetry)
	}

	batch, err := w.orch.Reconcile(ctx, payload.BatchID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			// Batch deleted while the task was queued.
			w.log.Info("reconcile_skipped_missing_batch", "batch_id", payload.BatchID)
			return nil
		}
		return err
	}

	if batch.Status == domain.BatchInProgress {
		if err := w.client.ScheduleReconcile(ctx, batch.ID); err != nil {
			return fmt.Errorf("reschedule batch %s: %w", batch.ID, err)
		}
	}
	return nil
}

// asynqLogger adapts the application logger to asynq's logging interface.
type asynqLogger struct {
	log *logger.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
