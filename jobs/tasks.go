package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLedgerDriftScan replays every tenant's cashflow ledger and reports drift.
	TaskLedgerDriftScan = "ledger:drift_scan"
	// TaskSalesAgingWarmup primes the aging report cache for all tenants.
	TaskSalesAgingWarmup = "sales:aging_warmup"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// DriftScanPayload narrows a drift scan to one tenant. Zero scans all tenants.
type DriftScanPayload struct {
	TenantID int64 `json:"tenant_id,omitempty"`
}

// AgingWarmupPayload selects the as-of date to warm. Empty means today (UTC).
type AgingWarmupPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// IdempotencyCleanupPayload sets the retention window for idempotency keys.
type IdempotencyCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// DefaultIdempotencyRetention keeps idempotency keys for a week.
const DefaultIdempotencyRetention = 7 * 24 * time.Hour

// NewDriftScanTask builds a drift scan task.
func NewDriftScanTask(tenantID int64) (*asynq.Task, error) {
	return newTask(TaskLedgerDriftScan, DriftScanPayload{TenantID: tenantID})
}

// NewAgingWarmupTask builds an aging warmup task.
func NewAgingWarmupTask(asOf string) (*asynq.Task, error) {
	return newTask(TaskSalesAgingWarmup, AgingWarmupPayload{AsOf: asOf})
}

// NewIdempotencyCleanupTask builds a cleanup task.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{OlderThan: olderThan})
}

func newTask(typename string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typename, data), nil
}
