package application_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlens/cloudlens/internal/application"
	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/observability"
)

const refreshHour = 8

// newCacheService wires a CacheService against in-memory stores and a fake
// clock starting at 10:00 UTC, two hours past the refresh window.
func newCacheService(t *testing.T) (*application.CacheService, *fakeCacheStore, *fakeRefreshLog, clockwork.FakeClock) {
	t.Helper()
	entries := newFakeCacheStore()
	refreshLog := &fakeRefreshLog{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	svc := application.NewCacheService(entries, refreshLog, 24*time.Hour, refreshHour, clock, observability.NewTestMetrics())
	return svc, entries, refreshLog, clock
}

func TestCacheService_SetThenGet(t *testing.T) {
	svc, _, _, _ := newCacheService(t)
	ctx := context.Background()
	payload := json.RawMessage(`{"instances":[{"id":"i-1"}]}`)

	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "ec2_instances", payload))

	got, err := svc.Get(ctx, "user-1", model.ProviderAWS, "ec2_instances")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))
}

func TestCacheService_MissOnUnknownKey(t *testing.T) {
	svc, _, _, _ := newCacheService(t)
	ctx := context.Background()

	got, err := svc.Get(ctx, "user-1", model.ProviderAWS, "ec2_instances")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheService_ExpiryRemovesEntry(t *testing.T) {
	svc, entries, _, clock := newCacheService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "ec2_instances", json.RawMessage(`[]`)))

	clock.Advance(24*time.Hour - time.Second)
	got, err := svc.Get(ctx, "user-1", model.ProviderAWS, "ec2_instances")
	require.NoError(t, err)
	assert.NotNil(t, got, "entry just under the TTL must still be served")

	clock.Advance(2 * time.Second)
	got, err = svc.Get(ctx, "user-1", model.ProviderAWS, "ec2_instances")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, entries.entries, "expired entry must be deleted on read")
}

func TestCacheService_KeyIsolation(t *testing.T) {
	svc, _, _, _ := newCacheService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "ec2_instances", json.RawMessage(`"a"`)))
	require.NoError(t, svc.Set(ctx, "user-2", model.ProviderAWS, "ec2_instances", json.RawMessage(`"b"`)))
	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAzure, "ec2_instances", json.RawMessage(`"c"`)))
	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "s3_buckets", json.RawMessage(`"d"`)))

	got, err := svc.Get(ctx, "user-1", model.ProviderAWS, "ec2_instances")
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(got))

	got, err = svc.Get(ctx, "user-2", model.ProviderAWS, "ec2_instances")
	require.NoError(t, err)
	assert.Equal(t, `"b"`, string(got))
}

func TestCacheService_SetReplaces(t *testing.T) {
	svc, _, _, clock := newCacheService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderGCP, "gce_instances", json.RawMessage(`"old"`)))

	// Rewriting near the end of the TTL restarts the clock for the entry.
	clock.Advance(23 * time.Hour)
	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderGCP, "gce_instances", json.RawMessage(`"new"`)))

	clock.Advance(2 * time.Hour)
	got, err := svc.Get(ctx, "user-1", model.ProviderGCP, "gce_instances")
	require.NoError(t, err)
	assert.Equal(t, `"new"`, string(got))
}

func TestCacheService_InvalidateScopes(t *testing.T) {
	svc, _, _, _ := newCacheService(t)
	ctx := context.Background()

	seed := func() {
		require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "ec2_instances", json.RawMessage(`1`)))
		require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "s3_buckets", json.RawMessage(`2`)))
		require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAzure, "vms", json.RawMessage(`3`)))
		require.NoError(t, svc.Set(ctx, "user-2", model.ProviderAWS, "ec2_instances", json.RawMessage(`4`)))
	}
	mustGet := func(userID string, p model.Provider, dt string) json.RawMessage {
		got, err := svc.Get(ctx, userID, p, dt)
		require.NoError(t, err)
		return got
	}

	seed()
	require.NoError(t, svc.Invalidate(ctx, "user-1", model.ProviderAWS, "ec2_instances"))
	assert.Nil(t, mustGet("user-1", model.ProviderAWS, "ec2_instances"))
	assert.NotNil(t, mustGet("user-1", model.ProviderAWS, "s3_buckets"))

	seed()
	require.NoError(t, svc.Invalidate(ctx, "user-1", model.ProviderAWS, ""))
	assert.Nil(t, mustGet("user-1", model.ProviderAWS, "ec2_instances"))
	assert.Nil(t, mustGet("user-1", model.ProviderAWS, "s3_buckets"))
	assert.NotNil(t, mustGet("user-1", model.ProviderAzure, "vms"))
	assert.NotNil(t, mustGet("user-2", model.ProviderAWS, "ec2_instances"))

	seed()
	require.NoError(t, svc.InvalidateUser(ctx, "user-1"))
	assert.Nil(t, mustGet("user-1", model.ProviderAzure, "vms"))
	assert.NotNil(t, mustGet("user-2", model.ProviderAWS, "ec2_instances"))
}

func TestCacheService_Stats(t *testing.T) {
	svc, _, _, _ := newCacheService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "ec2_instances", json.RawMessage(`1`)))
	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "s3_buckets", json.RawMessage(`2`)))
	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderGCP, "gce_instances", json.RawMessage(`3`)))

	stats, err := svc.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 2, stats.PerProvider[model.ProviderAWS])
	assert.Equal(t, 1, stats.PerProvider[model.ProviderGCP])
	require.NotNil(t, stats.OldestEntry)
	require.NotNil(t, stats.NewestEntry)
}

func TestCacheService_SweepExpired(t *testing.T) {
	svc, entries, _, clock := newCacheService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "old", json.RawMessage(`1`)))
	clock.Advance(12 * time.Hour)
	require.NoError(t, svc.Set(ctx, "user-1", model.ProviderAWS, "new", json.RawMessage(`2`)))
	clock.Advance(13 * time.Hour)

	removed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Len(t, entries.entries, 1)

	removed, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCacheService_DailyRefreshGate(t *testing.T) {
	svc, _, _, clock := newCacheService(t)
	ctx := context.Background()

	// 10:00 is outside the 08:00-09:00 window.
	due, err := svc.ShouldDailyRefresh(ctx, "user-1", model.ProviderAWS)
	require.NoError(t, err)
	assert.False(t, due)

	// Next day at 08:30 the window is open and nothing ran today.
	clock.Advance(22*time.Hour + 30*time.Minute)
	due, err = svc.ShouldDailyRefresh(ctx, "user-1", model.ProviderAWS)
	require.NoError(t, err)
	assert.True(t, due)

	require.NoError(t, svc.MarkDailyRefreshComplete(ctx, "user-1", model.ProviderAWS))
	due, err = svc.ShouldDailyRefresh(ctx, "user-1", model.ProviderAWS)
	require.NoError(t, err)
	assert.False(t, due, "gate must close after the day's refresh is recorded")

	// The gate tracks each (user, provider) pair independently.
	due, err = svc.ShouldDailyRefresh(ctx, "user-1", model.ProviderAzure)
	require.NoError(t, err)
	assert.True(t, due)
	due, err = svc.ShouldDailyRefresh(ctx, "user-2", model.ProviderAWS)
	require.NoError(t, err)
	assert.True(t, due)

	// Yesterday's run does not satisfy today's gate.
	clock.Advance(24 * time.Hour)
	due, err = svc.ShouldDailyRefresh(ctx, "user-1", model.ProviderAWS)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestCacheService_TimeUntilNextRefresh(t *testing.T) {
	svc, _, _, _ := newCacheService(t)

	// 10:00, past today's 08:00 window: next run is tomorrow.
	countdown := svc.TimeUntilNextRefresh(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, 22, countdown.Hours)
	assert.Equal(t, 0, countdown.Minutes)
	assert.Equal(t, time.Date(2026, 3, 15, refreshHour, 0, 0, 0, time.UTC), countdown.NextRefresh)

	// 06:15, before today's window.
	countdown = svc.TimeUntilNextRefresh(time.Date(2026, 3, 14, 6, 15, 0, 0, time.UTC))
	assert.Equal(t, 1, countdown.Hours)
	assert.Equal(t, 45, countdown.Minutes)
	assert.Equal(t, time.Date(2026, 3, 14, refreshHour, 0, 0, 0, time.UTC), countdown.NextRefresh)
}

func TestCacheService_PruneRefreshLog(t *testing.T) {
	svc, _, refreshLog, clock := newCacheService(t)
	ctx := context.Background()

	require.NoError(t, svc.MarkDailyRefreshComplete(ctx, "user-1", model.ProviderAWS))
	clock.Advance(40 * 24 * time.Hour)
	require.NoError(t, svc.MarkDailyRefreshComplete(ctx, "user-1", model.ProviderAWS))

	removed, err := svc.PruneRefreshLog(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Len(t, refreshLog.entries, 1)
}
