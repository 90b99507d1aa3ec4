package repository

import (
	"context"
	"instametrics/internal/apperrors"
	"instametrics/internal/database"
	"instametrics/internal/models"
	"time"
)

type sqlAuditRepo struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) AuditRepository {
	return &sqlAuditRepo{db: db}
}

func (r *sqlAuditRepo) Record(ctx context.Context, e models.AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := r.db.Conn.ExecContext(ctx,
		r.db.Rebind("INSERT INTO audit_log (user_id, tenant_id, action, details, created_at) VALUES (?, ?, ?, ?, ?)"),
		e.UserID, e.TenantID, e.Action, e.Details, e.At.UTC())
	return apperrors.Storage("record audit entry", err)
}
