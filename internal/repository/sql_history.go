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

type sqlHistoryRepo struct {
	db *database.DB
}

func NewHistoryRepository(db *database.DB) HistoryRepository {
	return &sqlHistoryRepo{db: db}
}

func (r *sqlHistoryRepo) Upsert(ctx context.Context, s models.FollowerSnapshot) error {
	if s.AccountID == "" {
		return apperrors.NewValidationError("snapshot account id is empty")
	}
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now()
	}

	query := r.db.Rebind(`
		INSERT INTO follower_snapshots (account_id, snapshot_date, follower_count, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id, snapshot_date) DO UPDATE SET
			follower_count = excluded.follower_count,
			recorded_at = excluded.recorded_at`)

	_, err := r.db.Conn.ExecContext(ctx, query,
		s.AccountID, s.Date.Format(models.DateLayout), s.FollowerCount, s.RecordedAt.UTC())
	return apperrors.Storage("upsert follower snapshot", err)
}

func (r *sqlHistoryRepo) ListSince(ctx context.Context, accountID string, since time.Time, limit int) ([]models.FollowerSnapshot, error) {
	query := `
		SELECT account_id, snapshot_date, follower_count, recorded_at
		FROM follower_snapshots
		WHERE account_id = ? AND snapshot_date >= ?
		ORDER BY snapshot_date DESC`
	args := []any{accountID, since.Format(models.DateLayout)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Conn.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, apperrors.Storage("list follower snapshots", err)
	}
	defer rows.Close()

	snapshots, err := scanSnapshots(rows)
	return snapshots, apperrors.Storage("list follower snapshots", err)
}

func (r *sqlHistoryRepo) Get(ctx context.Context, accountID string, date time.Time) (*models.FollowerSnapshot, error) {
	query := r.db.Rebind(`
		SELECT account_id, snapshot_date, follower_count, recorded_at
		FROM follower_snapshots
		WHERE account_id = ? AND snapshot_date = ?`)

	var s models.FollowerSnapshot
	var day string
	err := r.db.Conn.QueryRowContext(ctx, query, accountID, date.Format(models.DateLayout)).
		Scan(&s.AccountID, &day, &s.FollowerCount, &s.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s/%s: %w", accountID, date.Format(models.DateLayout), apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Storage("get follower snapshot", err)
	}
	if s.Date, err = parseDay(day); err != nil {
		return nil, apperrors.Storage("get follower snapshot", err)
	}
	return &s, nil
}

func (r *sqlHistoryRepo) OlderThan(ctx context.Context, cutoff time.Time) ([]models.FollowerSnapshot, error) {
	query := r.db.Rebind(`
		SELECT account_id, snapshot_date, follower_count, recorded_at
		FROM follower_snapshots
		WHERE snapshot_date < ?
		ORDER BY account_id, snapshot_date`)

	rows, err := r.db.Conn.QueryContext(ctx, query, cutoff.Format(models.DateLayout))
	if err != nil {
		return nil, apperrors.Storage("list expired snapshots", err)
	}
	defer rows.Close()

	snapshots, err := scanSnapshots(rows)
	return snapshots, apperrors.Storage("list expired snapshots", err)
}

func (r *sqlHistoryRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.Conn.ExecContext(ctx,
		r.db.Rebind("DELETE FROM follower_snapshots WHERE snapshot_date < ?"),
		cutoff.Format(models.DateLayout))
	if err != nil {
		return 0, apperrors.Storage("purge follower snapshots", err)
	}
	n, err := res.RowsAffected()
	return n, apperrors.Storage("purge follower snapshots", err)
}

func scanSnapshots(rows *sql.Rows) ([]models.FollowerSnapshot, error) {
	snapshots := make([]models.FollowerSnapshot, 0)
	for rows.Next() {
		var s models.FollowerSnapshot
		var day string
		if err := rows.Scan(&s.AccountID, &day, &s.FollowerCount, &s.RecordedAt); err != nil {
			return nil, err
		}
		d, err := parseDay(day)
		if err != nil {
			return nil, err
		}
		s.Date = d
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// parseDay accepts both a bare date and the RFC 3339 text a DATE column
// scans into.
func parseDay(v string) (time.Time, error) {
	if len(v) < len(models.DateLayout) {
		return time.Time{}, fmt.Errorf("malformed snapshot date %q", v)
	}
	return time.ParseInLocation(models.DateLayout, v[:len(models.DateLayout)], time.UTC)
}
