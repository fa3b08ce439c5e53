package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RefreshLogStore = (*RefreshLogRepo)(nil)

// RefreshLogRepo is the SQLite implementation of the RefreshLogStore port.
type RefreshLogRepo struct {
	db *DB
}

// NewRefreshLogRepo creates a RefreshLogRepo backed by the given DB.
func NewRefreshLogRepo(db *DB) *RefreshLogRepo {
	return &RefreshLogRepo{db: db}
}

// Append records a completed refresh. The log is append-only; duplicate
// entries for the same day are tolerated.
func (r *RefreshLogRepo) Append(ctx context.Context, entry model.RefreshLogEntry) error {
	const query = `INSERT INTO refresh_log (user_id, provider, refreshed_at) VALUES (?, ?, ?)`

	refreshedAt := entry.RefreshedAt
	if refreshedAt.IsZero() {
		refreshedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		entry.UserID, string(entry.Provider), formatTime(refreshedAt))
	if err != nil {
		return fmt.Errorf("append refresh log %s/%s: %w", entry.UserID, entry.Provider, err)
	}

	return nil
}

// LatestSince returns the most recent entry for (userID, provider) refreshed
// at or after since, or (nil, nil) if there is none.
func (r *RefreshLogRepo) LatestSince(ctx context.Context, userID string, provider model.Provider, since time.Time) (*model.RefreshLogEntry, error) {
	const query = `
		SELECT id, refreshed_at
		FROM refresh_log
		WHERE user_id = ? AND provider = ? AND refreshed_at >= ?
		ORDER BY refreshed_at DESC
		LIMIT 1`

	entry := model.RefreshLogEntry{
		UserID:   userID,
		Provider: provider,
	}
	var refreshedAt string

	err := r.db.Reader.QueryRowContext(ctx, query, userID, string(provider), formatTime(since)).
		Scan(&entry.ID, &refreshedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest refresh log %s/%s: %w", userID, provider, err)
	}

	if entry.RefreshedAt, err = parseTime(refreshedAt); err != nil {
		return nil, fmt.Errorf("parse refreshed_at: %w", err)
	}

	return &entry, nil
}

// PruneBefore deletes log entries older than cutoff, returning the number
// removed. Keeps the append-only table bounded.
func (r *RefreshLogRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM refresh_log WHERE refreshed_at < ?`

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune refresh log: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return removed, nil
}
