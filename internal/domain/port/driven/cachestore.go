package driven

import (
	"context"
	"time"

	"github.com/cloudlens/cloudlens/internal/domain/model"
)

// CacheStore is the driven port for cached provider responses. Rows are
// returned regardless of expiry; TTL enforcement is the application layer's
// job so that time stays injectable.
type CacheStore interface {
	// Get returns the entry for the composite key, or (nil, nil) if none exists.
	Get(ctx context.Context, userID string, provider model.Provider, dataType string) (*model.CacheEntry, error)

	// Upsert inserts or replaces the entry for its composite key.
	Upsert(ctx context.Context, entry model.CacheEntry) error

	// Delete removes one entry. Deleting a nonexistent entry is not an error.
	Delete(ctx context.Context, userID string, provider model.Provider, dataType string) error

	// DeleteByProvider removes all of a user's entries for one provider.
	DeleteByProvider(ctx context.Context, userID string, provider model.Provider) error

	// DeleteByUser removes all of a user's entries across all providers.
	DeleteByUser(ctx context.Context, userID string) error

	// Stats summarizes the stored entries for one user.
	Stats(ctx context.Context, userID string) (model.CacheStats, error)

	// DeleteExpired removes every entry whose expiry is at or before cutoff,
	// for all users and providers. Returns the number of rows removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// RefreshLogStore is the driven port for the append-only daily-refresh log.
type RefreshLogStore interface {
	// Append records a completed refresh.
	Append(ctx context.Context, entry model.RefreshLogEntry) error

	// LatestSince returns the most recent entry for (userID, provider) with
	// RefreshedAt at or after since, or (nil, nil) if there is none.
	LatestSince(ctx context.Context, userID string, provider model.Provider, since time.Time) (*model.RefreshLogEntry, error)

	// PruneBefore deletes entries older than cutoff. Returns rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
