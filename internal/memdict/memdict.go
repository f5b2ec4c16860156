// Package memdict implements kvdict.Store with in-memory storage. It backs
// the harness's self-test mode and unit tests, where comparing a revision
// against itself must always pass without a live backing store.
package memdict

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

// MemDict implements the kvdict.Store interface with in-memory storage.
type MemDict struct {
	data  map[string]*entry
	mutex sync.RWMutex
}

// entry represents a stored value with expiry metadata.
type entry struct {
	value     any
	expiresAt time.Time
}

// New creates a new MemDict instance.
func New() *MemDict {
	return &MemDict{data: make(map[string]*entry)}
}

// NewStore adapts New to the loader's constructor signature. The endpoint
// and namespace are ignored; every instance owns its own private map.
func NewStore(endpoint, namespace string) (kvdict.Store, error) {
	return New(), nil
}

// live reports whether e exists and has not expired at time now.
func (e *entry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// Set stores a value for the given key.
func (m *MemDict) Set(ctx context.Context, key string, value any) error {
	if key == "" {
		return kvdict.NewError(kvdict.KindUnsupportedValue, "empty key", nil)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.data[key] = &entry{value: kvdict.Normalize(value)}
	return nil
}

// Get retrieves the value for the given key.
func (m *MemDict) Get(ctx context.Context, key string) (any, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	e, exists := m.data[key]
	if !exists {
		return nil, kvdict.NewError(kvdict.KindNotFound, "key not found: "+key, nil)
	}
	if !e.live(time.Now()) {
		delete(m.data, key)
		return nil, kvdict.NewError(kvdict.KindNotFound, "key not found: "+key, nil)
	}
	return e.value, nil
}

// Delete removes a key; deleting a missing key is a not-found error.
func (m *MemDict) Delete(ctx context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	e, exists := m.data[key]
	if !exists || !e.live(time.Now()) {
		delete(m.data, key)
		return kvdict.NewError(kvdict.KindNotFound, "key not found: "+key, nil)
	}
	delete(m.data, key)
	return nil
}

// Contains reports whether key is present and unexpired.
func (m *MemDict) Contains(ctx context.Context, key string) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	e, exists := m.data[key]
	return exists && e.live(time.Now()), nil
}

// Expire sets a time-to-live on an existing key.
func (m *MemDict) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return kvdict.NewError(kvdict.KindUnsupportedValue, "ttl must be positive", nil)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	e, exists := m.data[key]
	if !exists || !e.live(time.Now()) {
		return kvdict.NewError(kvdict.KindNotFound, "key not found: "+key, nil)
	}
	e.expiresAt = time.Now().Add(ttl)
	return nil
}

// TTL returns the remaining time-to-live for key; zero means no expiry.
func (m *MemDict) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := time.Now()
	e, exists := m.data[key]
	if !exists || !e.live(now) {
		return 0, kvdict.NewError(kvdict.KindNotFound, "key not found: "+key, nil)
	}
	if e.expiresAt.IsZero() {
		return 0, nil
	}
	return e.expiresAt.Sub(now), nil
}

// Keys returns all live keys, sorted.
func (m *MemDict) Keys(ctx context.Context) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := time.Now()
	keys := []string{}
	for k, e := range m.data {
		if e.live(now) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of live keys.
func (m *MemDict) Len(ctx context.Context) (int64, error) {
	keys, err := m.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

// BulkSet stores every entry of items.
func (m *MemDict) BulkSet(ctx context.Context, items map[string]any) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key := range items {
		if key == "" {
			return kvdict.NewError(kvdict.KindUnsupportedValue, "empty key", nil)
		}
	}
	for key, value := range items {
		m.data[key] = &entry{value: kvdict.Normalize(value)}
	}
	return nil
}

// BulkGet returns one value per requested key; missing keys yield nil.
func (m *MemDict) BulkGet(ctx context.Context, keys []string) ([]any, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := time.Now()
	values := make([]any, len(keys))
	for i, key := range keys {
		if e, exists := m.data[key]; exists && e.live(now) {
			values[i] = e.value
		}
	}
	return values, nil
}

// MultiGet returns the values of every live key beginning with prefix,
// ordered by key.
func (m *MemDict) MultiGet(ctx context.Context, prefix string) ([]any, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := time.Now()
	matched := []string{}
	for k, e := range m.data {
		if strings.HasPrefix(k, prefix) && e.live(now) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)
	values := make([]any, len(matched))
	for i, k := range matched {
		values[i] = m.data[k].value
	}
	return values, nil
}

// ChainSet stores value under a nested key path.
func (m *MemDict) ChainSet(ctx context.Context, path []string, value any) error {
	key, err := kvdict.ChainKey(path)
	if err != nil {
		return err
	}
	return m.Set(ctx, key, value)
}

// ChainGet returns the value stored under a nested key path.
func (m *MemDict) ChainGet(ctx context.Context, path []string) (any, error) {
	key, err := kvdict.ChainKey(path)
	if err != nil {
		return nil, err
	}
	return m.Get(ctx, key)
}

// ChainDel removes the key addressed by a nested key path.
func (m *MemDict) ChainDel(ctx context.Context, path []string) error {
	key, err := kvdict.ChainKey(path)
	if err != nil {
		return err
	}
	return m.Delete(ctx, key)
}

// ToMap returns a snapshot of all live key-value pairs.
func (m *MemDict) ToMap(ctx context.Context) (map[string]any, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := time.Now()
	out := make(map[string]any, len(m.data))
	for k, e := range m.data {
		if e.live(now) {
			out[k] = e.value
		}
	}
	return out, nil
}

// Clear removes every key. Idempotent.
func (m *MemDict) Clear(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.data = make(map[string]*entry)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemDict) Close() error {
	return nil
}
