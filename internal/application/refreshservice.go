package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
	"github.com/cloudlens/cloudlens/internal/observability"
)

// RefreshFunc performs one provider fetch-and-cache cycle for a user. It is
// supplied by the overview aggregators; this service only schedules it.
type RefreshFunc func(ctx context.Context, userID string, provider model.Provider) error

// RefreshService drives the scheduled maintenance work: running the
// registered refresh function for each (user, provider) pair once per day
// inside the refresh window, sweeping expired cache entries, and pruning old
// refresh-log rows. Start blocks until the context is canceled.
type RefreshService struct {
	cache         *CacheService
	credentials   driven.CredentialStore
	refresh       RefreshFunc
	checkInterval time.Duration
	sweepInterval time.Duration
	logRetention  time.Duration
	clock         clockwork.Clock
	metrics       *observability.Metrics
}

// NewRefreshService creates a RefreshService. refresh may be nil, in which
// case only sweeping and pruning run.
func NewRefreshService(
	cache *CacheService,
	credentials driven.CredentialStore,
	refresh RefreshFunc,
	checkInterval time.Duration,
	sweepInterval time.Duration,
	clock clockwork.Clock,
	metrics *observability.Metrics,
) *RefreshService {
	return &RefreshService{
		cache:         cache,
		credentials:   credentials,
		refresh:       refresh,
		checkInterval: checkInterval,
		sweepInterval: sweepInterval,
		logRetention:  30 * 24 * time.Hour,
		clock:         clock,
		metrics:       metrics,
	}
}

// Start runs the scheduling loop until ctx is canceled.
func (s *RefreshService) Start(ctx context.Context) {
	check := s.clock.NewTicker(s.checkInterval)
	defer check.Stop()
	sweep := s.clock.NewTicker(s.sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh service stopped")
			return
		case <-check.Chan():
			s.runDue(ctx)
		case <-sweep.Chan():
			s.runSweep(ctx)
		}
	}
}

// RunDueNow performs one scheduling pass outside the loop, for manual
// triggering and tests.
func (s *RefreshService) RunDueNow(ctx context.Context) {
	s.runDue(ctx)
}

// runDue runs the refresh function for every (user, provider) pair whose
// daily-refresh gate is open, marking completion only on success so a failed
// refresh is retried on the next pass within the window.
func (s *RefreshService) runDue(ctx context.Context) {
	if s.refresh == nil {
		return
	}

	userIDs, err := s.credentials.ListUserIDs(ctx)
	if err != nil {
		slog.Error("list users for scheduled refresh failed", "error", err)
		return
	}

	for _, userID := range userIDs {
		for _, provider := range model.AllProviders() {
			due, err := s.cache.ShouldDailyRefresh(ctx, userID, provider)
			if err != nil {
				slog.Error("refresh gate check failed", "provider", provider, "error", err)
				continue
			}
			if !due {
				continue
			}

			if err := s.refresh(ctx, userID, provider); err != nil {
				slog.Warn("scheduled refresh failed", "provider", provider, "error", err)
				s.metrics.DailyRefreshRunsTotal.WithLabelValues(string(provider), "error").Inc()
				continue
			}

			if err := s.cache.MarkDailyRefreshComplete(ctx, userID, provider); err != nil {
				slog.Error("mark refresh complete failed", "provider", provider, "error", err)
				continue
			}
			s.metrics.DailyRefreshRunsTotal.WithLabelValues(string(provider), "success").Inc()
		}
	}
}

// runSweep removes expired cache entries and prunes old refresh-log rows.
func (s *RefreshService) runSweep(ctx context.Context) {
	removed, err := s.cache.SweepExpired(ctx)
	if err != nil {
		slog.Error("cache sweep failed", "error", err)
	} else if removed > 0 {
		slog.Info("cache sweep complete", "removed", removed)
	}

	pruned, err := s.cache.PruneRefreshLog(ctx, s.logRetention)
	if err != nil {
		slog.Error("refresh log prune failed", "error", err)
	} else if pruned > 0 {
		slog.Info("refresh log pruned", "removed", pruned)
	}
}
