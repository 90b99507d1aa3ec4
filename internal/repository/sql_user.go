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

const userWithTenantQuery = `
	SELECT u.id, u.tenant_id, u.name, u.email, u.password_hash, u.role, u.active, u.last_login_at,
		t.id, t.code, t.company_name, t.fantasy_name, t.plan, t.active
	FROM users u
	JOIN tenants t ON t.id = u.tenant_id
	WHERE u.active = ? AND t.active = ? AND `

type sqlUserRepo struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) UserRepository {
	return &sqlUserRepo{db: db}
}

// FindByEmailWithTenant only returns active users of active tenants.
func (r *sqlUserRepo) FindByEmailWithTenant(ctx context.Context, email string) (*models.UserWithTenant, error) {
	return r.findOne(ctx, r.db.Rebind(userWithTenantQuery+"u.email = ?"), true, true, email)
}

func (r *sqlUserRepo) GetWithTenant(ctx context.Context, userID int64) (*models.UserWithTenant, error) {
	return r.findOne(ctx, r.db.Rebind(userWithTenantQuery+"u.id = ?"), true, true, userID)
}

func (r *sqlUserRepo) findOne(ctx context.Context, query string, args ...any) (*models.UserWithTenant, error) {
	var uw models.UserWithTenant
	var lastLogin sql.NullTime

	err := r.db.Conn.QueryRowContext(ctx, query, args...).Scan(
		&uw.User.ID, &uw.User.TenantID, &uw.User.Name, &uw.User.Email, &uw.User.PasswordHash,
		&uw.User.Role, &uw.User.Active, &lastLogin,
		&uw.Tenant.ID, &uw.Tenant.Code, &uw.Tenant.CompanyName, &uw.Tenant.FantasyName,
		&uw.Tenant.Plan, &uw.Tenant.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Storage("find user", err)
	}
	if lastLogin.Valid {
		uw.User.LastLoginAt = &lastLogin.Time
	}
	return &uw, nil
}

func (r *sqlUserRepo) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.Conn.ExecContext(ctx,
		r.db.Rebind("UPDATE users SET last_login_at = ? WHERE id = ?"), at.UTC(), userID)
	return apperrors.Storage("update last login", err)
}

func (r *sqlUserRepo) CreateTenant(ctx context.Context, t *models.Tenant) error {
	query := r.db.Rebind(`
		INSERT INTO tenants (code, company_name, fantasy_name, plan, active)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)
	err := r.db.Conn.QueryRowContext(ctx, query, t.Code, t.CompanyName, t.FantasyName, t.Plan, t.Active).Scan(&t.ID)
	return apperrors.Storage("create tenant", err)
}

func (r *sqlUserRepo) CreateUser(ctx context.Context, u *models.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (tenant_id, name, email, password_hash, role, active)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := r.db.Conn.QueryRowContext(ctx, query, u.TenantID, u.Name, u.Email, u.PasswordHash, u.Role, u.Active).Scan(&u.ID)
	return apperrors.Storage("create user", err)
}
