package repository

import (
	"context"
	"errors"
	"instametrics/internal/apperrors"
	"instametrics/internal/database"
	"instametrics/internal/models"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return database.New(conn, database.DialectSQLite), mock
}

func day(s string) time.Time {
	d, _ := time.ParseInLocation(models.DateLayout, s, time.UTC)
	return d
}

func seedTenant(t *testing.T, users UserRepository, code string, active bool) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{Code: code, CompanyName: "Acme " + code, Plan: "basic", Active: active}
	require.NoError(t, users.CreateTenant(context.Background(), tenant))
	return tenant
}

func TestHistory_UpsertSameDayKeepsOneRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, models.FollowerSnapshot{AccountID: "acc1", Date: day("2026-10-01"), FollowerCount: 500}))
	require.NoError(t, repo.Upsert(ctx, models.FollowerSnapshot{AccountID: "acc1", Date: day("2026-10-01"), FollowerCount: 520}))

	var rows int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM follower_snapshots").Scan(&rows))
	assert.Equal(t, 1, rows)

	got, err := repo.Get(ctx, "acc1", day("2026-10-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(520), got.FollowerCount)
	assert.Equal(t, day("2026-10-01"), got.Date)
}

func TestHistory_AccountsAreSeparate(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, models.FollowerSnapshot{AccountID: "acc1", Date: day("2026-10-01"), FollowerCount: 500}))
	require.NoError(t, repo.Upsert(ctx, models.FollowerSnapshot{AccountID: "acc2", Date: day("2026-10-01"), FollowerCount: 9000}))

	got, err := repo.ListSince(ctx, "acc1", day("2026-09-01"), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(500), got[0].FollowerCount)
}

func TestHistory_ListSinceNewestFirst(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))
	ctx := context.Background()

	for i, d := range []string{"2026-09-01", "2026-10-03", "2026-10-01", "2026-10-02"} {
		require.NoError(t, repo.Upsert(ctx, models.FollowerSnapshot{AccountID: "acc1", Date: day(d), FollowerCount: int64(100 + i)}))
	}

	got, err := repo.ListSince(ctx, "acc1", day("2026-10-01"), 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, day("2026-10-03"), got[0].Date)
	assert.Equal(t, day("2026-10-02"), got[1].Date)
	assert.Equal(t, day("2026-10-01"), got[2].Date)

	limited, err := repo.ListSince(ctx, "acc1", day("2026-01-01"), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestHistory_GetMissing(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))
	_, err := repo.Get(context.Background(), "acc1", day("2026-10-01"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHistory_UpsertRejectsEmptyAccount(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))
	err := repo.Upsert(context.Background(), models.FollowerSnapshot{Date: day("2026-10-01"), FollowerCount: 1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestHistory_RetentionPurge(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))
	ctx := context.Background()

	for _, d := range []string{"2026-06-01", "2026-07-01", "2026-10-01"} {
		require.NoError(t, repo.Upsert(ctx, models.FollowerSnapshot{AccountID: "acc1", Date: day(d), FollowerCount: 10}))
	}

	cutoff := day("2026-07-16")
	old, err := repo.OlderThan(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, old, 2)
	assert.Equal(t, day("2026-06-01"), old[0].Date)

	n, err := repo.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rest, err := repo.ListSince(ctx, "acc1", day("2026-01-01"), 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, day("2026-10-01"), rest[0].Date)
}

func TestHistory_StorageFailuresAreWrapped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	mock.ExpectExec("INSERT INTO follower_snapshots").WillReturnError(boom)
	err := repo.Upsert(ctx, models.FollowerSnapshot{AccountID: "acc1", Date: day("2026-10-01"), FollowerCount: 1})
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT account_id").WillReturnError(boom)
	_, err = repo.ListSince(ctx, "acc1", day("2026-09-01"), 0)
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	mock.ExpectExec("DELETE FROM follower_snapshots").WillReturnError(boom)
	_, err = repo.PurgeOlderThan(ctx, day("2026-07-01"))
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_MalformedDateIsStorageError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHistoryRepository(db)

	rows := sqlmock.NewRows([]string{"account_id", "snapshot_date", "follower_count", "recorded_at"}).
		AddRow("acc1", "bad", 10, time.Now())
	mock.ExpectQuery("SELECT account_id").WillReturnRows(rows)

	_, err := repo.ListSince(context.Background(), "acc1", day("2026-09-01"), 0)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestParseDay(t *testing.T) {
	d, err := parseDay("2026-10-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, day("2026-10-01"), d)

	_, err = parseDay("10/01")
	assert.Error(t, err)
}

func TestCredentials_ActiveForTenant(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	creds := NewCredentialRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	tenant := seedTenant(t, users, "11222333000181", true)
	other := seedTenant(t, users, "99888777000100", true)

	fixtures := []models.AccountCredential{
		{TenantID: tenant.ID, InstagramAccountID: "old", AccessToken: "tok-old", ExpiresAt: now.AddDate(0, 1, 0), LastRefresh: now.AddDate(0, 0, -10), Active: true},
		{TenantID: tenant.ID, InstagramAccountID: "new", AccessToken: "tok-new", ExpiresAt: now.AddDate(0, 1, 0), LastRefresh: now.AddDate(0, 0, -1), Active: true},
		{TenantID: tenant.ID, InstagramAccountID: "expired", AccessToken: "tok-exp", ExpiresAt: now.Add(-time.Hour), LastRefresh: now, Active: true},
		{TenantID: tenant.ID, InstagramAccountID: "off", AccessToken: "tok-off", ExpiresAt: now.AddDate(0, 1, 0), LastRefresh: now, Active: false},
		{TenantID: other.ID, InstagramAccountID: "foreign", AccessToken: "tok-f", ExpiresAt: now.AddDate(0, 1, 0), LastRefresh: now, Active: true},
	}
	for i := range fixtures {
		require.NoError(t, creds.Upsert(ctx, &fixtures[i]))
		assert.NotZero(t, fixtures[i].ID)
	}

	got, err := creds.ActiveForTenant(ctx, tenant.ID, now)
	require.NoError(t, err)
	assert.Equal(t, "new", got.InstagramAccountID)
	assert.Equal(t, "tok-new", got.AccessToken)
	assert.True(t, got.Active)

	list, err := creds.ListForTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	all, err := creds.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = creds.ActiveForTenant(ctx, 424242, now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCredentials_UpsertAndUpdateToken(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	creds := NewCredentialRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	tenant := seedTenant(t, users, "11222333000181", true)

	c := &models.AccountCredential{TenantID: tenant.ID, InstagramAccountID: "acc", Username: "first", AccessToken: "a", ExpiresAt: now.Add(time.Hour), LastRefresh: now, Active: true}
	require.NoError(t, creds.Upsert(ctx, c))
	firstID := c.ID

	again := &models.AccountCredential{TenantID: tenant.ID, InstagramAccountID: "acc", Username: "second", AccessToken: "b", ExpiresAt: now.Add(2 * time.Hour), LastRefresh: now, Active: true}
	require.NoError(t, creds.Upsert(ctx, again))
	assert.Equal(t, firstID, again.ID)

	newExpiry := now.AddDate(0, 0, 60)
	require.NoError(t, creds.UpdateToken(ctx, firstID, "c", newExpiry, now))

	got, err := creds.ActiveForTenant(ctx, tenant.ID, now)
	require.NoError(t, err)
	assert.Equal(t, "c", got.AccessToken)
	assert.Equal(t, "second", got.Username)
	assert.True(t, newExpiry.Equal(got.ExpiresAt))

	err = creds.UpdateToken(ctx, 9999, "x", newExpiry, now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCredentials_StorageFailure(t *testing.T) {
	db, mock := newMockDB(t)
	creds := NewCredentialRepository(db)

	mock.ExpectQuery("FROM account_credentials").WillReturnError(errors.New("connection reset"))
	_, err := creds.ActiveForTenant(context.Background(), 1, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUsers_FindByEmailWithTenant(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	tenant := seedTenant(t, users, "11222333000181", true)
	u := &models.User{TenantID: tenant.ID, Name: "Ana", Email: "ana@acme.test", PasswordHash: "hash", Role: "admin", Active: true}
	require.NoError(t, users.CreateUser(ctx, u))
	assert.NotZero(t, u.ID)

	got, err := users.FindByEmailWithTenant(ctx, "ana@acme.test")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.User.ID)
	assert.Equal(t, "hash", got.User.PasswordHash)
	assert.Equal(t, "11222333000181", got.Tenant.Code)
	assert.Nil(t, got.User.LastLoginAt)

	at := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, users.UpdateLastLogin(ctx, u.ID, at))

	byID, err := users.GetWithTenant(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.User.LastLoginAt)
	assert.True(t, at.Equal(*byID.User.LastLoginAt))

	_, err = users.FindByEmailWithTenant(ctx, "nobody@acme.test")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUsers_InactiveTenantOrUserHidden(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	closed := seedTenant(t, users, "00000000000100", false)
	require.NoError(t, users.CreateUser(ctx, &models.User{TenantID: closed.ID, Name: "Bo", Email: "bo@closed.test", PasswordHash: "h", Role: "viewer", Active: true}))

	open := seedTenant(t, users, "00000000000200", true)
	require.NoError(t, users.CreateUser(ctx, &models.User{TenantID: open.ID, Name: "Cy", Email: "cy@open.test", PasswordHash: "h", Role: "viewer", Active: false}))

	_, err := users.FindByEmailWithTenant(ctx, "bo@closed.test")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = users.FindByEmailWithTenant(ctx, "cy@open.test")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUsers_DuplicateEmailIsStorageError(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()
	tenant := seedTenant(t, users, "11222333000181", true)

	require.NoError(t, users.CreateUser(ctx, &models.User{TenantID: tenant.ID, Name: "A", Email: "dup@acme.test", PasswordHash: "h", Role: "viewer", Active: true}))
	err := users.CreateUser(ctx, &models.User{TenantID: tenant.ID, Name: "B", Email: "dup@acme.test", PasswordHash: "h", Role: "viewer", Active: true})
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestAudit_Record(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditRepository(db)

	require.NoError(t, audit.Record(context.Background(), models.AuditEntry{UserID: 1, TenantID: 2, Action: "login", Details: "ok"}))

	var action string
	require.NoError(t, db.Conn.QueryRow("SELECT action FROM audit_log WHERE user_id = 1").Scan(&action))
	assert.Equal(t, "login", action)
}
