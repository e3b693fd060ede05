package cashflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice/backoffice/internal/events"
	"github.com/backoffice/backoffice/internal/ledger"
	"github.com/backoffice/backoffice/internal/platform/httpx"
)

func newTestService() (*Service, *memoryRepo, *events.Recorder) {
	repo := newMemoryRepo()
	rec := &events.Recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, rec, logger), repo, rec
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(t *testing.T, svc *Service, tenant int64, date string, kind ledger.Kind, amount string) *Entry {
	t.Helper()
	entry, err := svc.RecordEntry(context.Background(), CreateEntryInput{
		TenantID:  tenant,
		ActorID:   1,
		EntryDate: day(date),
		Kind:      kind,
		Amount:    decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return entry
}

func TestRecordEntryChainsRunningBalance(t *testing.T) {
	svc, repo, rec := newTestService()

	first := record(t, svc, 1, "2024-01-01", ledger.KindInflow, "100")
	second := record(t, svc, 1, "2024-01-02", ledger.KindOutflow, "30")
	third := record(t, svc, 1, "2024-01-03", ledger.KindOutflow, "100.50")

	assert.True(t, first.RunningBalance.Equal(decimal.NewFromInt(100)))
	assert.True(t, second.RunningBalance.Equal(decimal.NewFromInt(70)))
	assert.True(t, third.RunningBalance.Equal(decimal.RequireFromString("-30.50")))

	assert.Len(t, repo.audits, 3)
	msgs := rec.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, events.TopicCashflowRecorded, msgs[0].Topic)
	assert.Equal(t, "1", msgs[0].Key)
}

func TestRecordEntryIsolatesTenants(t *testing.T) {
	svc, _, _ := newTestService()

	record(t, svc, 1, "2024-01-01", ledger.KindInflow, "500")
	other := record(t, svc, 2, "2024-01-01", ledger.KindInflow, "10")
	assert.True(t, other.RunningBalance.Equal(decimal.NewFromInt(10)))
}

func TestBackdatedEntryUsesLatestByInsertionOrder(t *testing.T) {
	svc, repo, _ := newTestService()

	a := record(t, svc, 1, "2024-03-10", ledger.KindInflow, "100")
	backdated := record(t, svc, 1, "2024-03-01", ledger.KindOutflow, "40")

	assert.True(t, backdated.RunningBalance.Equal(decimal.NewFromInt(60)))
	stored, err := repo.GetEntry(context.Background(), 1, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.RunningBalance.Equal(decimal.NewFromInt(100)), "earlier entries are never recalculated")
}

func TestRecordEntryValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	cases := []CreateEntryInput{
		{TenantID: 1, EntryDate: day("2024-01-01"), Kind: "transfer", Amount: decimal.NewFromInt(1)},
		{TenantID: 1, EntryDate: day("2024-01-01"), Kind: ledger.KindInflow, Amount: decimal.NewFromInt(-1)},
		{TenantID: 1, Kind: ledger.KindInflow, Amount: decimal.NewFromInt(1)},
		{EntryDate: day("2024-01-01"), Kind: ledger.KindInflow, Amount: decimal.NewFromInt(1)},
	}
	for _, in := range cases {
		_, err := svc.RecordEntry(ctx, in)
		assert.ErrorIs(t, err, httpx.ErrValidation)
	}
	assert.Empty(t, repo.entries)
}

func TestRecordEntryZeroAmountIsAllowed(t *testing.T) {
	svc, _, _ := newTestService()
	record(t, svc, 1, "2024-01-01", ledger.KindInflow, "50")
	zero := record(t, svc, 1, "2024-01-02", ledger.KindOutflow, "0")
	assert.True(t, zero.RunningBalance.Equal(decimal.NewFromInt(50)))
}

func TestRecordEntryIdempotencyKey(t *testing.T) {
	svc, repo, rec := newTestService()
	in := CreateEntryInput{
		TenantID:       1,
		EntryDate:      day("2024-01-01"),
		Kind:           ledger.KindInflow,
		Amount:         decimal.NewFromInt(25),
		IdempotencyKey: "req-1",
	}
	_, err := svc.RecordEntry(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.RecordEntry(context.Background(), in)
	assert.ErrorIs(t, err, httpx.ErrConflict)
	assert.Len(t, repo.entries, 1)
	assert.Len(t, rec.Messages(), 1)

	in.TenantID = 2
	_, err = svc.RecordEntry(context.Background(), in)
	assert.NoError(t, err, "keys are scoped per tenant")
}

func TestPublishFailureDoesNotFailRecord(t *testing.T) {
	svc, repo, rec := newTestService()
	rec.Err = errors.New("broker unavailable")

	entry := record(t, svc, 1, "2024-01-01", ledger.KindInflow, "10")
	assert.NotZero(t, entry.ID)
	assert.Len(t, repo.entries, 1)
}

func TestUpdateEntryKeepsAmounts(t *testing.T) {
	svc, _, _ := newTestService()
	entry := record(t, svc, 1, "2024-01-01", ledger.KindInflow, "10")

	category := " payroll "
	updated, err := svc.UpdateEntry(context.Background(), 1, 1, entry.ID, UpdateEntryInput{Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "payroll", updated.Category)
	assert.True(t, updated.Amount.Equal(entry.Amount))
	assert.True(t, updated.RunningBalance.Equal(entry.RunningBalance))

	_, err = svc.UpdateEntry(context.Background(), 2, 1, entry.ID, UpdateEntryInput{Category: &category})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteEntryLeavesLaterBalances(t *testing.T) {
	svc, repo, _ := newTestService()
	first := record(t, svc, 1, "2024-01-01", ledger.KindInflow, "100")
	second := record(t, svc, 1, "2024-01-02", ledger.KindInflow, "50")

	require.NoError(t, svc.DeleteEntry(context.Background(), 1, 1, first.ID))
	stored, err := repo.GetEntry(context.Background(), 1, second.ID)
	require.NoError(t, err)
	assert.True(t, stored.RunningBalance.Equal(decimal.NewFromInt(150)))

	assert.ErrorIs(t, svc.DeleteEntry(context.Background(), 1, 1, first.ID), httpx.ErrNotFound)
}

func TestListEntriesNewestFirst(t *testing.T) {
	svc, _, _ := newTestService()
	for i := 0; i < 5; i++ {
		record(t, svc, 1, "2024-01-01", ledger.KindInflow, "1")
	}
	entries, meta, err := svc.ListEntries(context.Background(), ListFilter{TenantID: 1, Page: 1, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Greater(t, entries[0].ID, entries[1].ID)
	assert.Equal(t, 5, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	_, _, err = svc.ListEntries(context.Background(), ListFilter{TenantID: 1, Kind: "bogus"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSummary(t *testing.T) {
	svc, _, _ := newTestService()
	record(t, svc, 1, "2024-01-01", ledger.KindInflow, "100")
	record(t, svc, 1, "2024-01-02", ledger.KindOutflow, "30")

	summary, err := svc.Summary(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, summary.TotalInflow.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.TotalOutflow.Equal(decimal.NewFromInt(30)))
	assert.True(t, summary.CurrentBalance.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, 2, summary.Entries)
}

func TestScanDrift(t *testing.T) {
	svc, repo, _ := newTestService()
	record(t, svc, 1, "2024-01-05", ledger.KindInflow, "100")
	second := record(t, svc, 1, "2024-01-02", ledger.KindOutflow, "20")
	record(t, svc, 1, "2024-01-06", ledger.KindInflow, "5")

	report, err := svc.ScanDrift(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, 1, report.Backdated)
	assert.False(t, report.Drifted())

	repo.tamper(second.ID, decimal.NewFromInt(999))
	report, err = svc.ScanDrift(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Mismatched)
	assert.Equal(t, second.ID, report.FirstMismatchID)
	assert.True(t, report.ReplayedBalance.Equal(decimal.NewFromInt(85)))

	stored, err := repo.GetEntry(context.Background(), 1, second.ID)
	require.NoError(t, err)
	assert.True(t, stored.RunningBalance.Equal(decimal.NewFromInt(999)), "scan never repairs")
}

func TestScanAllDrift(t *testing.T) {
	svc, _, _ := newTestService()
	record(t, svc, 1, "2024-01-01", ledger.KindInflow, "1")
	record(t, svc, 3, "2024-01-01", ledger.KindInflow, "1")

	reports, err := svc.ScanAllDrift(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, int64(1), reports[0].TenantID)
	assert.Equal(t, int64(3), reports[1].TenantID)
}
