// Package scheduler runs the background jobs: the periodic offer expiry
// sweep and the ledger reconciliation pass. Tasks ride asynq over Redis.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskExpireSweep = "distributions.expire_sweep"

const TaskLedgerReconcile = "ledger.reconcile"

// ExpireSweepPayload carries the enqueue time for lag diagnostics.
type ExpireSweepPayload struct {
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// LedgerReconcilePayload carries the enqueue time for lag diagnostics.
type LedgerReconcilePayload struct {
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func NewExpireSweepTask(payload ExpireSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpireSweep, data), nil
}

func ParseExpireSweepPayload(task *asynq.Task) (ExpireSweepPayload, error) {
	var payload ExpireSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExpireSweepPayload{}, err
	}
	return payload, nil
}

func NewLedgerReconcileTask(payload LedgerReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcile, data), nil
}

func ParseLedgerReconcilePayload(task *asynq.Task) (LedgerReconcilePayload, error) {
	var payload LedgerReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LedgerReconcilePayload{}, err
	}
	return payload, nil
}
