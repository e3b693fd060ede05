package shared

import (
	"context"
	"errors"
	"time"

	"github.com/backoffice/backoffice/internal/platform/db"
)

// IdempotencyHeader is the request header carrying the client key.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore persists processed keys.
type IdempotencyStore struct {
	db db.Querier
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(q db.Querier) *IdempotencyStore {
	return &IdempotencyStore{db: q}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// CheckAndInsert ensures key uniqueness per tenant and module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, tenantID int64, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.db.Exec(ctx, `INSERT INTO idempotency_keys (tenant_id, key, module, created_at) VALUES ($1, $2, $3, $4)`,
		tenantID, key, module, time.Now())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Delete removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, tenantID int64, key, module string) error {
	if s == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE tenant_id = $1 AND key = $2 AND module = $3`, tenantID, key, module)
	return err
}

// Cleanup removes entries older than retention and returns how many went.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
