package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// QuotaRepository persists weekly usage counters. It implements quota.Ledger
// with the conditional consume pushed into a single upsert statement so that
// concurrent gateway instances stay linearizable per (user_id, week_start).
type QuotaRepository struct {
	db *DB
}

// NewQuotaRepository creates a new quota repository
func NewQuotaRepository(db *DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// EnsureSchema creates the quota table when missing.
func (r *QuotaRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS quota_usage (
			user_id    TEXT    NOT NULL,
			week_start BIGINT  NOT NULL,
			used       INTEGER NOT NULL,
			PRIMARY KEY (user_id, week_start)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure quota schema: %w", err)
	}
	return nil
}

// Used returns the accumulated count for the key, 0 when no record exists.
func (r *QuotaRepository) Used(ctx context.Context, userID string, weekStart int64) (int, error) {
	var used int
	err := r.db.conn.GetContext(ctx, &used, `
		SELECT used FROM quota_usage
		WHERE user_id = $1 AND week_start = $2
	`, userID, weekStart)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota: %w", err)
	}
	return used, nil
}

// Increment upserts the record, adding by to the count.
func (r *QuotaRepository) Increment(ctx context.Context, userID string, weekStart int64, by int) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO quota_usage (user_id, week_start, used)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, week_start)
		DO UPDATE SET used = quota_usage.used + EXCLUDED.used
	`, userID, weekStart, by)
	if err != nil {
		return fmt.Errorf("failed to increment quota: %w", err)
	}
	return nil
}

// ConsumeIfBelow increments the count by one only while it is below limit.
// The WHERE clause on the conflict update makes the read-check-write a single
// atomic statement; a denied consume returns no row.
func (r *QuotaRepository) ConsumeIfBelow(ctx context.Context, userID string, weekStart int64, limit int) (int, bool, error) {
	if limit < 1 {
		used, err := r.Used(ctx, userID, weekStart)
		return used, false, err
	}

	var used int
	err := r.db.conn.GetContext(ctx, &used, `
		INSERT INTO quota_usage (user_id, week_start, used)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, week_start)
		DO UPDATE SET used = quota_usage.used + 1
		WHERE quota_usage.used < $3
		RETURNING used
	`, userID, weekStart, limit)
	if errors.Is(err, sql.ErrNoRows) {
		used, err := r.Used(ctx, userID, weekStart)
		return used, false, err
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to consume quota: %w", err)
	}
	return used, true, nil
}
