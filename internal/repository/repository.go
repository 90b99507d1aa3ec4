package repository

import (
	"context"
	"instametrics/internal/models"
	"time"
)

// HistoryRepository stores one follower snapshot per account per calendar day.
type HistoryRepository interface {
	Upsert(ctx context.Context, snapshot models.FollowerSnapshot) error
	// ListSince returns snapshots dated on or after since, newest first.
	// A limit <= 0 means no limit.
	ListSince(ctx context.Context, accountID string, since time.Time, limit int) ([]models.FollowerSnapshot, error)
	Get(ctx context.Context, accountID string, date time.Time) (*models.FollowerSnapshot, error)
	OlderThan(ctx context.Context, cutoff time.Time) ([]models.FollowerSnapshot, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type CredentialRepository interface {
	// ActiveForTenant returns the most recently refreshed active credential
	// that has not expired at now.
	ActiveForTenant(ctx context.Context, tenantID int64, now time.Time) (*models.AccountCredential, error)
	ListForTenant(ctx context.Context, tenantID int64) ([]models.AccountCredential, error)
	ListActive(ctx context.Context) ([]models.AccountCredential, error)
	Upsert(ctx context.Context, cred *models.AccountCredential) error
	UpdateToken(ctx context.Context, id int64, token string, expiresAt, refreshedAt time.Time) error
}

type UserRepository interface {
	FindByEmailWithTenant(ctx context.Context, email string) (*models.UserWithTenant, error)
	GetWithTenant(ctx context.Context, userID int64) (*models.UserWithTenant, error)
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	CreateUser(ctx context.Context, user *models.User) error
}

type AuditRepository interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}
