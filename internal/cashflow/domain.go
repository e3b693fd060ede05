package cashflow

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/backoffice/backoffice/internal/ledger"
)

// Entry is a single cash flow ledger row.
type Entry struct {
	ID             int64           `json:"id"`
	TenantID       int64           `json:"tenant_id"`
	EntryDate      time.Time       `json:"date"`
	Kind           ledger.Kind     `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateEntryInput carries a new submission.
type CreateEntryInput struct {
	TenantID       int64
	ActorID        int64
	EntryDate      time.Time
	Kind           ledger.Kind
	Amount         decimal.Decimal
	Category       string
	Description    string
	IdempotencyKey string
}

// UpdateEntryInput changes the descriptive fields of an entry. Amounts,
// kinds and dates are immutable once recorded.
type UpdateEntryInput struct {
	Category    *string
	Description *string
}

// ListFilter narrows entry listings.
type ListFilter struct {
	TenantID int64
	From     *time.Time
	To       *time.Time
	Kind     ledger.Kind
	Page     int
	PerPage  int
}

// Summary aggregates a tenant's ledger.
type Summary struct {
	TotalInflow    decimal.Decimal `json:"total_inflow"`
	TotalOutflow   decimal.Decimal `json:"total_outflow"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Entries        int             `json:"entries"`
}

// DriftReport compares stored running balances with a replay in insertion order.
type DriftReport struct {
	TenantID        int64           `json:"tenant_id"`
	Entries         int             `json:"entries"`
	Mismatched      int             `json:"mismatched"`
	Backdated       int             `json:"backdated"`
	FirstMismatchID int64           `json:"first_mismatch_id,omitempty"`
	StoredBalance   decimal.Decimal `json:"stored_balance"`
	ReplayedBalance decimal.Decimal `json:"replayed_balance"`
}

// Drifted reports whether any stored balance disagrees with the replay.
func (r DriftReport) Drifted() bool {
	return r.Mismatched > 0
}

// RecordedEvent is published after an entry is stored.
type RecordedEvent struct {
	EntryID        int64           `json:"entry_id"`
	EntryDate      string          `json:"date"`
	Kind           ledger.Kind     `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}
