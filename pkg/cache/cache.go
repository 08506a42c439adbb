// Package cache is a small key/value cache with expiry.
//
// Values are JSON encoded. The default store lives in process memory; Connect
// swaps in Redis so several instances share state (OTP codes, dashboard
// aggregates). If Redis is unreachable the memory store stays in place.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-oriented expiring key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

var (
	mu      sync.RWMutex
	current Store = NewMemoryStore()
)

// Use replaces the active store.
func Use(s Store) {
	mu.Lock()
	current = s
	mu.Unlock()
}

// Default returns the active store.
func Default() Store {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Get retrieves a cached value by key and unmarshals into dest.
// Returns true on a cache hit, false on miss or error.
func Get(ctx context.Context, key string, dest interface{}) bool {
	raw, err := Default().Get(ctx, key)
	if err != nil {
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}

	return true
}

// Set stores value under key for the given TTL. A zero TTL never expires.
func Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return Default().Set(ctx, key, data, ttl)
}

// Del removes one or more keys.
func Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return Default().Del(ctx, keys...)
}

// Forget is an alias for Del (Laravel-style).
func Forget(ctx context.Context, key string) error {
	return Del(ctx, key)
}

// Remember returns the cached value for key, or calls fn, caches its result
// for ttl and returns it.
func Remember(ctx context.Context, key string, ttl time.Duration, dest interface{}, fn func() (interface{}, error)) error {
	if Get(ctx, key, dest) {
		return nil
	}

	v, err := fn()
	if err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = Default().Set(ctx, key, data, ttl)

	return json.Unmarshal(data, dest)
}

// ─── Memory store ─────────────────────────────────────────────────────────────

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in a map. Expired entries are dropped lazily on
// read and by Sweep.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		delete(m.items, key)
		return nil, ErrMiss
	}
	return item.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.items, k)
	}
	m.mu.Unlock()
	return nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	now := m.now()
	for k, item := range m.items {
		if !item.expiresAt.IsZero() && !now.Before(item.expiresAt) {
			delete(m.items, k)
			n++
		}
	}
	return n
}
