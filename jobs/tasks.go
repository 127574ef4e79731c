package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLedgerWarmup rebuilds the cached ledger views.
	TaskLedgerWarmup = "ledger:warmup"
	// TaskAllocationGenerate upserts monthly allocations from the active
	// capital plan.
	TaskAllocationGenerate = "capital:allocation_generate"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "shared:idempotency_cleanup"
)

// LedgerWarmupPayload narrows the warmup to a month range. Empty fields fall
// back to the trailing year.
type LedgerWarmupPayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// NewLedgerWarmupTask constructs an Asynq task for ledger warmup.
func NewLedgerWarmupTask(payload LedgerWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerWarmup, data), nil
}

// AllocationGeneratePayload carries no parameters today; the job always works
// from the active plan.
type AllocationGeneratePayload struct{}

// NewAllocationGenerateTask constructs an Asynq task for allocation generation.
func NewAllocationGenerateTask() (*asynq.Task, error) {
	data, err := json.Marshal(AllocationGeneratePayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAllocationGenerate, data), nil
}

// IdempotencyCleanupPayload sets the retention window in hours.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for key cleanup.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
