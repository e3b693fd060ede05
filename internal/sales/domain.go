package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/backoffice/backoffice/internal/ledger"
)

// Entry is a sale awaiting or having received payment.
type Entry struct {
	ID              int64                `json:"id"`
	TenantID        int64                `json:"tenant_id"`
	InvoiceNumber   string               `json:"invoice_number"`
	CustomerName    string               `json:"customer_name"`
	Amount          decimal.Decimal      `json:"amount"`
	SaleDate        time.Time            `json:"sale_date"`
	PaymentStatus   ledger.PaymentStatus `json:"payment_status"`
	DaysOutstanding int                  `json:"days_outstanding"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	CreatedBy       int64                `json:"created_by"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// CreateEntryInput carries a new sale.
type CreateEntryInput struct {
	TenantID      int64
	ActorID       int64
	InvoiceNumber string
	CustomerName  string
	Amount        decimal.Decimal
	SaleDate      time.Time
	PaymentStatus ledger.PaymentStatus
}

// ListFilter narrows sale listings.
type ListFilter struct {
	TenantID int64
	Status   ledger.PaymentStatus
	Page     int
	PerPage  int
}

// AgingReport groups pending amounts by days outstanding at AsOf.
type AgingReport struct {
	AsOf       string          `json:"as_of"`
	Current    decimal.Decimal `json:"current"`
	Days1To30  decimal.Decimal `json:"days_1_30"`
	Days31To60 decimal.Decimal `json:"days_31_60"`
	Days61To90 decimal.Decimal `json:"days_61_90"`
	Over90     decimal.Decimal `json:"over_90"`
	Total      decimal.Decimal `json:"total"`
	Invoices   int             `json:"invoices"`
}

// RecordedEvent is published when a sale is stored.
type RecordedEvent struct {
	EntryID         int64                `json:"entry_id"`
	InvoiceNumber   string               `json:"invoice_number"`
	Amount          decimal.Decimal      `json:"amount"`
	SaleDate        string               `json:"sale_date"`
	PaymentStatus   ledger.PaymentStatus `json:"payment_status"`
	DaysOutstanding int                  `json:"days_outstanding"`
}

// PaidEvent is published when a sale is marked paid.
type PaidEvent struct {
	EntryID       int64     `json:"entry_id"`
	InvoiceNumber string    `json:"invoice_number"`
	PaidAt        time.Time `json:"paid_at"`
}
