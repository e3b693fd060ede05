package audit

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/backoffice/backoffice/internal/platform/db"
)

// WindowParams selects audit rows. Invalid optional fields match everything.
type WindowParams struct {
	TenantID int64
	FromAt   pgtype.Timestamptz
	ToAt     pgtype.Timestamptz
	ActorID  pgtype.Int8
	Entity   pgtype.Text
	Action   pgtype.Text
	Offset   int32
	Limit    int32
}

// Repository reads audit_logs.
type Repository interface {
	TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error)
}

// PGRepository is the Postgres Repository.
type PGRepository struct {
	q db.Querier
}

// NewRepository constructs a repository.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

const timelineQuery = `SELECT id, occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs
WHERE tenant_id = $1
  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR occurred_at < $3)
  AND ($4::bigint IS NULL OR actor_id = $4)
  AND ($5::text IS NULL OR entity = $5)
  AND ($6::text IS NULL OR action = $6)
ORDER BY occurred_at DESC, id DESC
OFFSET $7 LIMIT NULLIF($8, 0)`

// TimelineWindow returns matching rows newest first. Limit zero returns all.
func (r *PGRepository) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	rows, err := r.q.Query(ctx, timelineQuery,
		arg.TenantID, arg.FromAt, arg.ToAt, arg.ActorID, arg.Entity, arg.Action, arg.Offset, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.ID, &row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 && string(meta) != "null" {
			row.Meta = meta
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func optionalInt(value int64) pgtype.Int8 {
	if value <= 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: value, Valid: true}
}
