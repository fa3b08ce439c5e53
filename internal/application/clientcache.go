package application

import "sync"

// ClientCache memoizes lazily built anonymous client configurations, keyed
// by region (or a fixed key for region-less providers). Entries carry no
// per-user secrets and live for the process lifetime.
//
// It must never hold a configuration built from a user credential: those are
// constructed fresh on every resolution to rule out identity confusion.
type ClientCache[T any] struct {
	mu      sync.Mutex
	entries map[string]T
}

// NewClientCache creates an empty ClientCache.
func NewClientCache[T any]() *ClientCache[T] {
	return &ClientCache[T]{entries: make(map[string]T)}
}

// GetOrCreate returns the cached configuration for key, building it with
// build on first use. Concurrent first requests may build redundantly; the
// first stored result wins and later calls reuse it. Build failures are not
// cached.
func (c *ClientCache[T]) GetOrCreate(key string, build func() (T, error)) (T, error) {
	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	// Build outside the lock: construction may do network I/O.
	built, err := build()
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.entries[key]; ok {
		return cached, nil
	}
	c.entries[key] = built
	return built, nil
}

// Len returns the number of cached configurations.
func (c *ClientCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
