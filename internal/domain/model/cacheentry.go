package model

import (
	"encoding/json"
	"time"
)

// CacheEntry is one cached provider response, unique per
// (UserID, Provider, DataType). Data is an opaque JSON payload whose shape
// belongs to the aggregator that produced it.
type CacheEntry struct {
	UserID    string
	Provider  Provider
	DataType  string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry's TTL has passed at the given instant.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// CacheStats summarizes a user's cached entries.
type CacheStats struct {
	TotalEntries int
	PerProvider  map[Provider]int
	OldestEntry  *time.Time
	NewestEntry  *time.Time
}
