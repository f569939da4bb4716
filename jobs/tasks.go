package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskDashboardWarmup pre-populates the dashboard caches.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskLowStockScan checks stock levels against the alert threshold.
	TaskLowStockScan = "inventory:lowstock_scan"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// DashboardWarmupPayload parameterises a warmup run.
type DashboardWarmupPayload struct {
	Trigger string `json:"trigger"`
}

// NewDashboardWarmupTask constructs a warmup task.
func NewDashboardWarmupTask(trigger string) (*asynq.Task, error) {
	data, err := json.Marshal(DashboardWarmupPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// LowStockScanPayload parameterises a low stock scan.
type LowStockScanPayload struct {
	Trigger string `json:"trigger"`
}

// NewLowStockScanTask constructs a scan task.
func NewLowStockScanTask(trigger string) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockScanPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// IdempotencyCleanupPayload parameterises a cleanup run.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retentionHours"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
