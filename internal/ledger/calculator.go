// Package ledger holds the derived-field arithmetic shared by the finance
// portals: running cash balances and sales days outstanding.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a cash-flow entry.
type Kind string

const (
	KindInflow  Kind = "inflow"
	KindOutflow Kind = "outflow"
)

// Valid reports whether k is a known entry kind.
func (k Kind) Valid() bool {
	return k == KindInflow || k == KindOutflow
}

// PaymentStatus is the settlement state of a sale.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid
}

const day = 24 * time.Hour

// RunningBalance applies a single entry on top of the previous balance.
// Inflows add, anything else subtracts. amount is expected to be
// non-negative; callers validate before getting here.
func RunningBalance(previous decimal.Decimal, kind Kind, amount decimal.Decimal) decimal.Decimal {
	if kind == KindInflow {
		return previous.Add(amount)
	}
	return previous.Sub(amount)
}

// DaysOutstanding returns the whole days elapsed from saleDate to now,
// clamped at zero for sales dated in the future.
func DaysOutstanding(saleDate, now time.Time) int {
	elapsed := now.Sub(saleDate)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / day)
}

// SaleDaysOutstanding is DaysOutstanding with the paid override applied.
func SaleDaysOutstanding(saleDate, now time.Time, status PaymentStatus) int {
	if status == PaymentPaid {
		return 0
	}
	return DaysOutstanding(saleDate, now)
}

// Replay recomputes running balances for amounts applied in order starting
// from zero. It is used to audit stored balances, never to rewrite them.
func Replay(kinds []Kind, amounts []decimal.Decimal) []decimal.Decimal {
	n := len(kinds)
	if len(amounts) < n {
		n = len(amounts)
	}
	out := make([]decimal.Decimal, n)
	balance := decimal.Zero
	for i := 0; i < n; i++ {
		balance = RunningBalance(balance, kinds[i], amounts[i])
		out[i] = balance
	}
	return out
}
