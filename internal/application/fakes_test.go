package application_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
)

var errStoreUnavailable = errors.New("store unavailable")

// fakeCredentialStore is an in-memory CredentialStore.
type fakeCredentialStore struct {
	records map[string]model.CredentialRecord
	failing bool
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{records: make(map[string]model.CredentialRecord)}
}

func (f *fakeCredentialStore) Store(_ context.Context, record model.CredentialRecord) error {
	if f.failing {
		return errStoreUnavailable
	}
	blobs := make(map[model.Provider]string, len(record.Blobs))
	for p, b := range record.Blobs {
		blobs[p] = b
	}
	record.Blobs = blobs
	f.records[record.UserID] = record
	return nil
}

func (f *fakeCredentialStore) Get(_ context.Context, userID string) (*model.CredentialRecord, error) {
	if f.failing {
		return nil, errStoreUnavailable
	}
	record, ok := f.records[userID]
	if !ok {
		return nil, nil
	}
	copied := record
	copied.Blobs = make(map[model.Provider]string, len(record.Blobs))
	for p, b := range record.Blobs {
		copied.Blobs[p] = b
	}
	return &copied, nil
}

func (f *fakeCredentialStore) Delete(_ context.Context, userID string) (bool, error) {
	if f.failing {
		return false, errStoreUnavailable
	}
	_, ok := f.records[userID]
	delete(f.records, userID)
	return ok, nil
}

func (f *fakeCredentialStore) Exists(_ context.Context, userID string) (bool, error) {
	if f.failing {
		return false, errStoreUnavailable
	}
	_, ok := f.records[userID]
	return ok, nil
}

func (f *fakeCredentialStore) ListUserIDs(context.Context) ([]string, error) {
	if f.failing {
		return nil, errStoreUnavailable
	}
	ids := make([]string, 0, len(f.records))
	for id := range f.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeCredentialStore) ClearAll(context.Context) error {
	if f.failing {
		return errStoreUnavailable
	}
	f.records = make(map[string]model.CredentialRecord)
	return nil
}

// fakeCacheStore is an in-memory CacheStore.
type fakeCacheStore struct {
	entries map[string]model.CacheEntry
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: make(map[string]model.CacheEntry)}
}

func cacheKey(userID string, provider model.Provider, dataType string) string {
	return fmt.Sprintf("%s|%s|%s", userID, provider, dataType)
}

func (f *fakeCacheStore) Get(_ context.Context, userID string, provider model.Provider, dataType string) (*model.CacheEntry, error) {
	entry, ok := f.entries[cacheKey(userID, provider, dataType)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (f *fakeCacheStore) Upsert(_ context.Context, entry model.CacheEntry) error {
	f.entries[cacheKey(entry.UserID, entry.Provider, entry.DataType)] = entry
	return nil
}

func (f *fakeCacheStore) Delete(_ context.Context, userID string, provider model.Provider, dataType string) error {
	delete(f.entries, cacheKey(userID, provider, dataType))
	return nil
}

func (f *fakeCacheStore) DeleteByProvider(_ context.Context, userID string, provider model.Provider) error {
	for key, entry := range f.entries {
		if entry.UserID == userID && entry.Provider == provider {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *fakeCacheStore) DeleteByUser(_ context.Context, userID string) error {
	for key, entry := range f.entries {
		if entry.UserID == userID {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *fakeCacheStore) Stats(_ context.Context, userID string) (model.CacheStats, error) {
	stats := model.CacheStats{PerProvider: make(map[model.Provider]int)}
	for _, entry := range f.entries {
		if entry.UserID != userID {
			continue
		}
		stats.TotalEntries++
		stats.PerProvider[entry.Provider]++
		createdAt := entry.CreatedAt
		if stats.OldestEntry == nil || createdAt.Before(*stats.OldestEntry) {
			stats.OldestEntry = &createdAt
		}
		if stats.NewestEntry == nil || createdAt.After(*stats.NewestEntry) {
			stats.NewestEntry = &createdAt
		}
	}
	return stats, nil
}

func (f *fakeCacheStore) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for key, entry := range f.entries {
		if !entry.ExpiresAt.After(cutoff) {
			delete(f.entries, key)
			removed++
		}
	}
	return removed, nil
}

// fakeRefreshLog is an in-memory RefreshLogStore.
type fakeRefreshLog struct {
	entries []model.RefreshLogEntry
}

func (f *fakeRefreshLog) Append(_ context.Context, entry model.RefreshLogEntry) error {
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRefreshLog) LatestSince(_ context.Context, userID string, provider model.Provider, since time.Time) (*model.RefreshLogEntry, error) {
	var latest *model.RefreshLogEntry
	for i := range f.entries {
		entry := f.entries[i]
		if entry.UserID != userID || entry.Provider != provider || entry.RefreshedAt.Before(since) {
			continue
		}
		if latest == nil || entry.RefreshedAt.After(latest.RefreshedAt) {
			latest = &entry
		}
	}
	return latest, nil
}

func (f *fakeRefreshLog) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []model.RefreshLogEntry
	var removed int64
	for _, entry := range f.entries {
		if entry.RefreshedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	f.entries = kept
	return removed, nil
}

// fakeAWSSource counts construction calls and stamps the returned config's
// Region so tests can tell user-derived configs from default ones.
type fakeAWSSource struct {
	credentialCalls int
	defaultCalls    int
	defaultErr      error
}

func (f *fakeAWSSource) FromCredential(_ context.Context, cred model.AWSCredential) (aws.Config, error) {
	f.credentialCalls++
	region := cred.Region
	if region == "" {
		region = "user-region"
	}
	return aws.Config{Region: region}, nil
}

func (f *fakeAWSSource) FromDefaults(context.Context) (aws.Config, error) {
	f.defaultCalls++
	if f.defaultErr != nil {
		return aws.Config{}, f.defaultErr
	}
	return aws.Config{Region: "default-region"}, nil
}

// fakeAzureSource mirrors fakeAWSSource for the Azure resolver, stamping the
// returned config's SubscriptionID to tell the two paths apart.
type fakeAzureSource struct {
	credentialCalls int
	defaultCalls    int
	defaultErr      error
	defaultSub      string
}

func (f *fakeAzureSource) FromCredential(_ context.Context, cred model.AzureCredential) (driven.AzureClientConfig, error) {
	f.credentialCalls++
	return driven.AzureClientConfig{SubscriptionID: cred.SubscriptionID}, nil
}

func (f *fakeAzureSource) FromDefaults(context.Context) (driven.AzureClientConfig, error) {
	f.defaultCalls++
	if f.defaultErr != nil {
		return driven.AzureClientConfig{}, f.defaultErr
	}
	return driven.AzureClientConfig{SubscriptionID: f.defaultSub}, nil
}

// fakeGCPSource mirrors fakeAWSSource for the GCP resolver.
type fakeGCPSource struct {
	credentialCalls int
	defaultCalls    int
	defaultErr      error
	defaultProject  string
}

func (f *fakeGCPSource) FromCredential(_ context.Context, cred model.GCPCredential) (driven.GCPClientConfig, error) {
	f.credentialCalls++
	return driven.GCPClientConfig{ProjectID: cred.ProjectID}, nil
}

func (f *fakeGCPSource) FromDefaults(context.Context) (driven.GCPClientConfig, error) {
	f.defaultCalls++
	if f.defaultErr != nil {
		return driven.GCPClientConfig{}, f.defaultErr
	}
	return driven.GCPClientConfig{ProjectID: f.defaultProject}, nil
}
