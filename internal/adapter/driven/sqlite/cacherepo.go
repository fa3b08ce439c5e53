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
var _ driven.CacheStore = (*CacheRepo)(nil)

// CacheRepo is the SQLite implementation of the CacheStore port. Rows are
// returned regardless of expiry; the application layer enforces the TTL so
// that the clock stays injectable in tests.
type CacheRepo struct {
	db *DB
}

// NewCacheRepo creates a CacheRepo backed by the given DB.
func NewCacheRepo(db *DB) *CacheRepo {
	return &CacheRepo{db: db}
}

// Get returns the entry for (userID, provider, dataType), or (nil, nil) if
// no row exists.
func (r *CacheRepo) Get(ctx context.Context, userID string, provider model.Provider, dataType string) (*model.CacheEntry, error) {
	const query = `
		SELECT data, created_at, updated_at, expires_at
		FROM cache_entries
		WHERE user_id = ? AND provider = ? AND data_type = ?`

	entry := model.CacheEntry{
		UserID:   userID,
		Provider: provider,
		DataType: dataType,
	}
	var createdAt, updatedAt, expiresAt string

	err := r.db.Reader.QueryRowContext(ctx, query, userID, string(provider), dataType).
		Scan(&entry.Data, &createdAt, &updatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry %s/%s/%s: %w", userID, provider, dataType, err)
	}

	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if entry.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	return &entry, nil
}

// Upsert inserts or replaces the entry for its composite key.
func (r *CacheRepo) Upsert(ctx context.Context, entry model.CacheEntry) error {
	const query = `
		INSERT INTO cache_entries (user_id, provider, data_type, data, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider, data_type) DO UPDATE SET
			data = excluded.data,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`

	_, err := r.db.Writer.ExecContext(ctx, query,
		entry.UserID,
		string(entry.Provider),
		entry.DataType,
		[]byte(entry.Data),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
		formatTime(entry.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry %s/%s/%s: %w",
			entry.UserID, entry.Provider, entry.DataType, err)
	}

	return nil
}

// Delete removes one entry. Deleting a nonexistent entry is not an error.
func (r *CacheRepo) Delete(ctx context.Context, userID string, provider model.Provider, dataType string) error {
	const query = `DELETE FROM cache_entries WHERE user_id = ? AND provider = ? AND data_type = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, userID, string(provider), dataType); err != nil {
		return fmt.Errorf("delete cache entry %s/%s/%s: %w", userID, provider, dataType, err)
	}

	return nil
}

// DeleteByProvider removes all of a user's entries for one provider.
func (r *CacheRepo) DeleteByProvider(ctx context.Context, userID string, provider model.Provider) error {
	const query = `DELETE FROM cache_entries WHERE user_id = ? AND provider = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, userID, string(provider)); err != nil {
		return fmt.Errorf("delete cache entries %s/%s: %w", userID, provider, err)
	}

	return nil
}

// DeleteByUser removes all of a user's entries across all providers.
func (r *CacheRepo) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM cache_entries WHERE user_id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete cache entries for user %s: %w", userID, err)
	}

	return nil
}

// Stats summarizes the stored entries for one user.
func (r *CacheRepo) Stats(ctx context.Context, userID string) (model.CacheStats, error) {
	const query = `
		SELECT provider, COUNT(*), MIN(created_at), MAX(created_at)
		FROM cache_entries
		WHERE user_id = ?
		GROUP BY provider`

	stats := model.CacheStats{
		PerProvider: make(map[model.Provider]int),
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return model.CacheStats{}, fmt.Errorf("cache stats for user %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var provider string
		var count int
		var oldest, newest string
		if err := rows.Scan(&provider, &count, &oldest, &newest); err != nil {
			return model.CacheStats{}, fmt.Errorf("scan cache stats: %w", err)
		}

		stats.PerProvider[model.Provider(provider)] = count
		stats.TotalEntries += count

		oldestAt, err := parseTime(oldest)
		if err != nil {
			return model.CacheStats{}, fmt.Errorf("parse oldest created_at: %w", err)
		}
		newestAt, err := parseTime(newest)
		if err != nil {
			return model.CacheStats{}, fmt.Errorf("parse newest created_at: %w", err)
		}

		if stats.OldestEntry == nil || oldestAt.Before(*stats.OldestEntry) {
			stats.OldestEntry = &oldestAt
		}
		if stats.NewestEntry == nil || newestAt.After(*stats.NewestEntry) {
			stats.NewestEntry = &newestAt
		}
	}
	if err := rows.Err(); err != nil {
		return model.CacheStats{}, fmt.Errorf("iterate cache stats: %w", err)
	}

	return stats, nil
}

// DeleteExpired removes every entry expiring at or before cutoff, for all
// users and providers. Stored timestamps sort lexicographically in time
// order, so the comparison runs on the index.
func (r *CacheRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM cache_entries WHERE expires_at <= ?`

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete expired cache entries: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return removed, nil
}
