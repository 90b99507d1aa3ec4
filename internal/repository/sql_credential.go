package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"instametrics/internal/apperrors"
	"instametrics/internal/database"
	"instametrics/internal/models"
	"time"
)

const credentialColumns = `id, tenant_id, instagram_account_id, instagram_username,
	access_token, expires_at, last_refresh, active`

type sqlCredentialRepo struct {
	db *database.DB
}

func NewCredentialRepository(db *database.DB) CredentialRepository {
	return &sqlCredentialRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.AccountCredential, error) {
	var c models.AccountCredential
	if err := row.Scan(&c.ID, &c.TenantID, &c.InstagramAccountID, &c.Username,
		&c.AccessToken, &c.ExpiresAt, &c.LastRefresh, &c.Active); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *sqlCredentialRepo) ActiveForTenant(ctx context.Context, tenantID int64, now time.Time) (*models.AccountCredential, error) {
	query := r.db.Rebind(`SELECT ` + credentialColumns + `
		FROM account_credentials
		WHERE tenant_id = ? AND active = ? AND expires_at > ?
		ORDER BY last_refresh DESC
		LIMIT 1`)

	cred, err := scanCredential(r.db.Conn.QueryRowContext(ctx, query, tenantID, true, now.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active credential for tenant %d: %w", tenantID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Storage("get active credential", err)
	}
	return cred, nil
}

func (r *sqlCredentialRepo) ListForTenant(ctx context.Context, tenantID int64) ([]models.AccountCredential, error) {
	query := r.db.Rebind(`SELECT ` + credentialColumns + `
		FROM account_credentials
		WHERE tenant_id = ? AND active = ?
		ORDER BY last_refresh DESC`)
	return r.list(ctx, "list tenant credentials", query, tenantID, true)
}

func (r *sqlCredentialRepo) ListActive(ctx context.Context) ([]models.AccountCredential, error) {
	query := r.db.Rebind(`SELECT ` + credentialColumns + `
		FROM account_credentials
		WHERE active = ?
		ORDER BY tenant_id, id`)
	return r.list(ctx, "list active credentials", query, true)
}

func (r *sqlCredentialRepo) list(ctx context.Context, op, query string, args ...any) ([]models.AccountCredential, error) {
	rows, err := r.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage(op, err)
	}
	defer rows.Close()

	creds := make([]models.AccountCredential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, apperrors.Storage(op, err)
		}
		creds = append(creds, *c)
	}
	return creds, apperrors.Storage(op, rows.Err())
}

// Upsert inserts the credential or replaces the token of an existing
// (tenant, account) pair. cred.ID is set on return.
func (r *sqlCredentialRepo) Upsert(ctx context.Context, cred *models.AccountCredential) error {
	query := r.db.Rebind(`
		INSERT INTO account_credentials
			(tenant_id, instagram_account_id, instagram_username, access_token, expires_at, last_refresh, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, instagram_account_id) DO UPDATE SET
			instagram_username = excluded.instagram_username,
			access_token = excluded.access_token,
			expires_at = excluded.expires_at,
			last_refresh = excluded.last_refresh,
			active = excluded.active
		RETURNING id`)

	err := r.db.Conn.QueryRowContext(ctx, query,
		cred.TenantID, cred.InstagramAccountID, cred.Username, cred.AccessToken,
		cred.ExpiresAt.UTC(), cred.LastRefresh.UTC(), cred.Active,
	).Scan(&cred.ID)
	return apperrors.Storage("upsert credential", err)
}

func (r *sqlCredentialRepo) UpdateToken(ctx context.Context, id int64, token string, expiresAt, refreshedAt time.Time) error {
	query := r.db.Rebind(`
		UPDATE account_credentials
		SET access_token = ?, expires_at = ?, last_refresh = ?
		WHERE id = ?`)

	res, err := r.db.Conn.ExecContext(ctx, query, token, expiresAt.UTC(), refreshedAt.UTC(), id)
	if err != nil {
		return apperrors.Storage("update credential token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Storage("update credential token", err)
	}
	if n == 0 {
		return fmt.Errorf("credential %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
