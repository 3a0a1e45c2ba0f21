// Package scheduler runs the background reconciliation loop on asynq. Each
// in-progress batch has at most one scheduled reconcile task, keyed by a
// deterministic task id, so repeated scheduling never piles up duplicates.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskBatchReconcile is the asynq task type for batch reconciliation.
const TaskBatchReconcile = "batches.reconcile"

// ReconcilePayload is the task payload.
type ReconcilePayload struct {
	BatchID string `json:"batchId"`
}

// reconcileTaskID returns the deterministic task id for a batch. One batch,
// one pending reconcile task.
func reconcileTaskID(batchID string) string {
	return "batches:reconcile:" + batchID
}

// NewReconcileTask builds a reconcile task for the given batch.
func NewReconcileTask(batchID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePayload{BatchID: batchID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchReconcile, payload), nil
}
