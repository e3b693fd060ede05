package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/backoffice/backoffice/internal/platform/db"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	TenantID int64
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	db db.Querier
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(q db.Querier) *AuditLogger {
	return &AuditLogger{db: q}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.db == nil {
		return errors.New("audit logger not initialised")
	}
	if log.TenantID == 0 || log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires tenant/action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.db.Exec(ctx, `INSERT INTO audit_logs (tenant_id, actor_id, action, entity, entity_id, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		log.TenantID, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}
