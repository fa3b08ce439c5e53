package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
	"github.com/cloudlens/cloudlens/internal/observability"
)

// CacheService implements the response cache: a TTL keyed by
// (user, provider, dataType) with lazy expiry on read and an explicit sweep,
// plus the daily-refresh gate that is orthogonal to the TTL. The TTL decides
// whether cached data is served; the gate decides whether a scheduled
// background refresh may run right now.
type CacheService struct {
	entries     driven.CacheStore
	refreshLog  driven.RefreshLogStore
	ttl         time.Duration
	refreshHour int
	clock       clockwork.Clock
	metrics     *observability.Metrics
}

// NewCacheService creates a CacheService. ttl is the entry lifetime (24h in
// production); refreshHour is the local clock hour (0-23) opening the daily
// one-hour refresh window. metrics must be non-nil; tests use
// observability.NewTestMetrics.
func NewCacheService(
	entries driven.CacheStore,
	refreshLog driven.RefreshLogStore,
	ttl time.Duration,
	refreshHour int,
	clock clockwork.Clock,
	metrics *observability.Metrics,
) *CacheService {
	return &CacheService{
		entries:     entries,
		refreshLog:  refreshLog,
		ttl:         ttl,
		refreshHour: refreshHour,
		clock:       clock,
		metrics:     metrics,
	}
}

// Get returns the cached payload for the key, or (nil, nil) on a miss. An
// entry past its expiry is deleted on read and reported as a miss; callers
// cannot distinguish "expired" from "never cached", and both mean "go fetch".
func (s *CacheService) Get(ctx context.Context, userID string, provider model.Provider, dataType string) (json.RawMessage, error) {
	entry, err := s.entries.Get(ctx, userID, provider, dataType)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		s.count(s.metrics.CacheMissesTotal, provider)
		return nil, nil
	}

	if entry.Expired(s.clock.Now()) {
		if err := s.entries.Delete(ctx, userID, provider, dataType); err != nil {
			return nil, err
		}
		s.count(s.metrics.CacheExpiredTotal, provider)
		s.count(s.metrics.CacheMissesTotal, provider)
		return nil, nil
	}

	s.count(s.metrics.CacheHitsTotal, provider)
	return entry.Data, nil
}

// Set upserts the payload for the key with expiry stamped ttl past now,
// unconditionally overwriting any prior entry.
func (s *CacheService) Set(ctx context.Context, userID string, provider model.Provider, dataType string, payload json.RawMessage) error {
	now := s.clock.Now().UTC()

	return s.entries.Upsert(ctx, model.CacheEntry{
		UserID:    userID,
		Provider:  provider,
		DataType:  dataType,
		Data:      payload,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
}

// Invalidate removes one entry when dataType is non-empty, otherwise every
// entry for the (user, provider) pair.
func (s *CacheService) Invalidate(ctx context.Context, userID string, provider model.Provider, dataType string) error {
	if dataType != "" {
		return s.entries.Delete(ctx, userID, provider, dataType)
	}
	return s.entries.DeleteByProvider(ctx, userID, provider)
}

// InvalidateUser removes all of a user's entries across all providers.
func (s *CacheService) InvalidateUser(ctx context.Context, userID string) error {
	return s.entries.DeleteByUser(ctx, userID)
}

// Stats summarizes a user's cached entries.
func (s *CacheService) Stats(ctx context.Context, userID string) (model.CacheStats, error) {
	return s.entries.Stats(ctx, userID)
}

// SweepExpired removes every logically expired entry for all users and
// providers, returning the count removed. Safe to run concurrently with
// normal traffic.
func (s *CacheService) SweepExpired(ctx context.Context) (int64, error) {
	removed, err := s.entries.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	s.metrics.CacheSweepRemoved.Add(float64(removed))

	return removed, nil
}

// ShouldDailyRefresh reports whether a scheduled refresh for (user,
// provider) may run right now: the current hour must fall inside the
// refresh window and no refresh may have been logged yet today.
func (s *CacheService) ShouldDailyRefresh(ctx context.Context, userID string, provider model.Provider) (bool, error) {
	now := s.clock.Now()
	if now.Hour() != s.refreshHour {
		return false, nil
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	latest, err := s.refreshLog.LatestSince(ctx, userID, provider, dayStart)
	if err != nil {
		return false, err
	}

	return latest == nil, nil
}

// MarkDailyRefreshComplete appends a refresh-log entry for (user, provider),
// closing today's window for that pair.
func (s *CacheService) MarkDailyRefreshComplete(ctx context.Context, userID string, provider model.Provider) error {
	return s.refreshLog.Append(ctx, model.RefreshLogEntry{
		UserID:      userID,
		Provider:    provider,
		RefreshedAt: s.clock.Now(),
	})
}

// TimeUntilNextRefresh computes the delta from now to the next opening of
// the refresh window, rolling to tomorrow when today's window has passed.
func (s *CacheService) TimeUntilNextRefresh(now time.Time) model.RefreshCountdown {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.refreshHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	delta := next.Sub(now)
	return model.RefreshCountdown{
		Hours:       int(delta.Hours()),
		Minutes:     int(delta.Minutes()) % 60,
		NextRefresh: next,
	}
}

// NextRefreshCountdown is TimeUntilNextRefresh evaluated at the current time.
func (s *CacheService) NextRefreshCountdown() model.RefreshCountdown {
	return s.TimeUntilNextRefresh(s.clock.Now())
}

// PruneRefreshLog deletes refresh-log entries older than retention,
// returning the count removed.
func (s *CacheService) PruneRefreshLog(ctx context.Context, retention time.Duration) (int64, error) {
	return s.refreshLog.PruneBefore(ctx, s.clock.Now().Add(-retention))
}

func (s *CacheService) count(vec *prometheus.CounterVec, provider model.Provider) {
	vec.WithLabelValues(string(provider)).Inc()
}
