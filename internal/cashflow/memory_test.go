package cashflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/backoffice/backoffice/internal/ledger"
	"github.com/backoffice/backoffice/internal/shared"
)

type idemKey struct {
	tenant int64
	key    string
}

// memoryRepo is an in-memory RepositoryPort. WithTx restores the previous
// state when the callback fails.
type memoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []Entry
	keys    map[idemKey]struct{}
	audits  []shared.AuditLog
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{keys: make(map[idemKey]struct{})}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := append([]Entry(nil), m.entries...)
	nextID := m.nextID
	audits := len(m.audits)
	keys := make(map[idemKey]struct{}, len(m.keys))
	for k := range m.keys {
		keys[k] = struct{}{}
	}
	if err := fn(ctx, memoryTx{m}); err != nil {
		m.entries = snapshot
		m.nextID = nextID
		m.audits = m.audits[:audits]
		m.keys = keys
		return err
	}
	return nil
}

func (m *memoryRepo) GetEntry(_ context.Context, tenantID, id int64) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.ID == id {
			found := e
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryRepo) ListEntries(_ context.Context, f ListFilter) ([]Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Entry
	for _, e := range m.entries {
		if e.TenantID != f.TenantID {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.From != nil && e.EntryDate.Before(*f.From) {
			continue
		}
		if f.To != nil && e.EntryDate.After(*f.To) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	page := shared.NewPagination(f.Page, f.PerPage, len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (m *memoryRepo) Summary(_ context.Context, tenantID int64) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Summary{TotalInflow: decimal.Zero, TotalOutflow: decimal.Zero, CurrentBalance: decimal.Zero}
	for _, e := range m.entries {
		if e.TenantID != tenantID {
			continue
		}
		s.Entries++
		if e.Kind == ledger.KindInflow {
			s.TotalInflow = s.TotalInflow.Add(e.Amount)
		} else {
			s.TotalOutflow = s.TotalOutflow.Add(e.Amount)
		}
		s.CurrentBalance = e.RunningBalance
	}
	return s, nil
}

func (m *memoryRepo) EntriesInOrder(_ context.Context, tenantID int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) LedgerTenants(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]struct{}{}
	var out []int64
	for _, e := range m.entries {
		if _, ok := seen[e.TenantID]; !ok {
			seen[e.TenantID] = struct{}{}
			out = append(out, e.TenantID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// tamper overwrites a stored balance to simulate an inconsistent ledger.
func (m *memoryRepo) tamper(id int64, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].RunningBalance = balance
		}
	}
}

type memoryTx struct{ m *memoryRepo }

func (t memoryTx) ClaimIdempotencyKey(_ context.Context, tenantID int64, key string) error {
	k := idemKey{tenantID, key}
	if _, ok := t.m.keys[k]; ok {
		return shared.ErrIdempotencyConflict
	}
	t.m.keys[k] = struct{}{}
	return nil
}

func (t memoryTx) LatestEntry(_ context.Context, tenantID int64) (*Entry, error) {
	for i := len(t.m.entries) - 1; i >= 0; i-- {
		if t.m.entries[i].TenantID == tenantID {
			found := t.m.entries[i]
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (t memoryTx) InsertEntry(_ context.Context, e Entry) (int64, time.Time, error) {
	t.m.nextID++
	e.ID = t.m.nextID
	e.CreatedAt = time.Now().UTC()
	t.m.entries = append(t.m.entries, e)
	return e.ID, e.CreatedAt, nil
}

func (t memoryTx) UpdateEntry(_ context.Context, tenantID, id int64, category, description string) error {
	for i := range t.m.entries {
		if t.m.entries[i].TenantID == tenantID && t.m.entries[i].ID == id {
			t.m.entries[i].Category = category
			t.m.entries[i].Description = description
			return nil
		}
	}
	return shared.ErrNotFound
}

func (t memoryTx) DeleteEntry(_ context.Context, tenantID, id int64) error {
	for i := range t.m.entries {
		if t.m.entries[i].TenantID == tenantID && t.m.entries[i].ID == id {
			t.m.entries = append(t.m.entries[:i], t.m.entries[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (t memoryTx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	t.m.audits = append(t.m.audits, log)
	return nil
}

var _ RepositoryPort = (*memoryRepo)(nil)
