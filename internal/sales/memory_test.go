package sales

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/backoffice/backoffice/internal/ledger"
	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	entries  map[int64]*Entry
	audits   []shared.AuditLog
	pendingQ int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{entries: make(map[int64]*Entry)}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, memoryTx{m})
}

func (m *memoryRepo) GetEntry(_ context.Context, tenantID, id int64) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	found := *e
	return &found, nil
}

func (m *memoryRepo) sorted(tenantID int64) []Entry {
	var out []Entry
	for _, e := range m.entries {
		if e.TenantID == tenantID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memoryRepo) ListEntries(_ context.Context, f ListFilter) ([]Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.sorted(f.TenantID) {
		if f.Status == "" || e.PaymentStatus == f.Status {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) PendingAsOf(_ context.Context, tenantID int64, asOf time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingQ++
	var out []Entry
	for _, e := range m.sorted(tenantID) {
		if e.PaymentStatus == ledger.PaymentPending && !e.SaleDate.After(asOf) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) SalesTenants(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	var out []int64
	for _, e := range m.entries {
		if e.PaymentStatus == ledger.PaymentPending && !seen[e.TenantID] {
			seen[e.TenantID] = true
			out = append(out, e.TenantID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memoryRepo) pendingQueries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingQ
}

type memoryTx struct{ m *memoryRepo }

func (t memoryTx) InsertEntry(_ context.Context, e Entry) (int64, time.Time, error) {
	for _, existing := range t.m.entries {
		if existing.TenantID == e.TenantID && existing.InvoiceNumber == e.InvoiceNumber {
			return 0, time.Time{}, fmt.Errorf("%w: invoice %s already recorded", httpx.ErrDuplicate, e.InvoiceNumber)
		}
	}
	t.m.nextID++
	e.ID = t.m.nextID
	e.CreatedAt = time.Now().UTC()
	t.m.entries[e.ID] = &e
	return e.ID, e.CreatedAt, nil
}

func (t memoryTx) LockEntry(_ context.Context, tenantID, id int64) (*Entry, error) {
	e, ok := t.m.entries[id]
	if !ok || e.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	found := *e
	return &found, nil
}

func (t memoryTx) MarkPaid(_ context.Context, tenantID, id int64, paidAt time.Time) error {
	e, ok := t.m.entries[id]
	if !ok || e.TenantID != tenantID || e.PaymentStatus != ledger.PaymentPending {
		return httpx.ErrConflict
	}
	e.PaymentStatus = ledger.PaymentPaid
	e.DaysOutstanding = 0
	e.PaidAt = &paidAt
	return nil
}

func (t memoryTx) DeleteEntry(_ context.Context, tenantID, id int64) error {
	e, ok := t.m.entries[id]
	if !ok || e.TenantID != tenantID {
		return shared.ErrNotFound
	}
	delete(t.m.entries, id)
	return nil
}

func (t memoryTx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	t.m.audits = append(t.m.audits, log)
	return nil
}

var _ RepositoryPort = (*memoryRepo)(nil)
