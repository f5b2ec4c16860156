// Package kvdict defines the dictionary-style interface a key-value store
// wrapper must satisfy to be loaded into the comparison harness, the
// tagged wire codec for its values, and the error taxonomy the comparator
// classifies by. Both revisions under test, whether built in or running
// as revision subprocesses, implement Store; the harness itself never
// talks to the backing store through anything else during a run.
package kvdict

import (
	"context"
	"strings"
	"time"
)

// Store is the behavior surface the harness exercises. Values are the
// normalized dynamic types produced by Normalize: string, int64, float64,
// bool, nil, []any and map[string]any.
type Store interface {
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value any) error
	// Get returns the value stored under key, or a KindNotFound
	// error if the key is absent or expired.
	Get(ctx context.Context, key string) (any, error)
	// Delete removes key. Deleting a missing key is a
	// KindNotFound error, matching dictionary semantics.
	Delete(ctx context.Context, key string) error
	// Contains reports whether key is present and unexpired.
	Contains(ctx context.Context, key string) (bool, error)
	// Expire sets a time-to-live on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining time-to-live for key. Zero means the key
	// has no expiry; a missing key is a KindNotFound error.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Keys returns all live keys in the store's key-space, sorted.
	Keys(ctx context.Context) ([]string, error)
	// Len returns the number of live keys.
	Len(ctx context.Context) (int64, error)
	// BulkSet stores every entry of items.
	BulkSet(ctx context.Context, items map[string]any) error
	// BulkGet returns one value per requested key; missing keys yield
	// nil elements rather than an error.
	BulkGet(ctx context.Context, keys []string) ([]any, error)
	// MultiGet returns the values of every live key that begins with
	// prefix, ordered by key. No matches yield an empty slice.
	MultiGet(ctx context.Context, prefix string) ([]any, error)
	// ChainSet stores value under the key formed from a nested key path.
	ChainSet(ctx context.Context, path []string, value any) error
	// ChainGet returns the value stored under a nested key path.
	ChainGet(ctx context.Context, path []string) (any, error)
	// ChainDel removes the key formed from a nested key path.
	ChainDel(ctx context.Context, path []string) error
	// ToMap returns every live key and its value.
	ToMap(ctx context.Context) (map[string]any, error)
	// Clear removes every key in the store's key-space.
	Clear(ctx context.Context) error
	// Close releases the underlying connection.
	Close() error
}

// Constructor builds a Store bound to a backing-store endpoint and a
// dedicated key-space prefix. Revision executables serve a constructor of
// this type; builtins register one directly.
type Constructor func(endpoint, namespace string) (Store, error)

// ChainKey flattens a nested key path into the colon-joined key the chain
// operations address. Empty paths and empty segments are unsupported.
func ChainKey(path []string) (string, error) {
	if len(path) == 0 {
		return "", NewError(KindUnsupportedValue, "empty key path", nil)
	}
	for _, segment := range path {
		if segment == "" {
			return "", NewError(KindUnsupportedValue, "empty key path segment", nil)
		}
	}
	return strings.Join(path, ":"), nil
}
