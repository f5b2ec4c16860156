// Package redisdict is a dictionary-style wrapper around Redis: typed
// values, a namespace prefix per instance, and missing-key errors that
// follow dictionary semantics. It is the reference implementation the
// harness ships with, usable both as a builtin revision and as the body
// of an out-of-tree revision executable.
package redisdict

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

// PTTL sentinel replies; go-redis passes them through unscaled.
const (
	pttlMissing  = time.Duration(-2)
	pttlNoExpire = time.Duration(-1)
)

// RedisDict implements kvdict.Store on top of a Redis connection. Every
// key is transparently prefixed with the instance namespace, so two
// instances with distinct namespaces never observe each other's writes.
type RedisDict struct {
	client    *redis.Client
	namespace string
}

// New connects to the Redis endpoint and returns a RedisDict scoped to
// namespace. It fails with a connection-kind error if the server is
// unreachable.
func New(endpoint, namespace string) (*RedisDict, error) {
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, kvdict.NewError(kvdict.KindConnection, "redis unreachable at "+endpoint, err)
	}
	return &RedisDict{client: client, namespace: namespace}, nil
}

// NewStore adapts New to the loader's constructor signature.
func NewStore(endpoint, namespace string) (kvdict.Store, error) {
	return New(endpoint, namespace)
}

func (d *RedisDict) prefixed(key string) string {
	return d.namespace + ":" + key
}

func (d *RedisDict) strip(raw string) string {
	return strings.TrimPrefix(raw, d.namespace+":")
}

// wrap classifies a raw Redis error.
func wrap(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return kvdict.NewError(kvdict.KindTimeout, op+" timed out", err)
	}
	return kvdict.NewError(kvdict.KindConnection, op+" failed", err)
}

func validateKey(key string) error {
	if key == "" {
		return kvdict.NewError(kvdict.KindUnsupportedValue, "empty key", nil)
	}
	return nil
}

// Set stores value under key, overwriting any previous value.
func (d *RedisDict) Set(ctx context.Context, key string, value any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	raw, err := kvdict.Encode(value)
	if err != nil {
		return err
	}
	if err := d.client.Set(ctx, d.prefixed(key), raw, 0).Err(); err != nil {
		return wrap("set", err)
	}
	return nil
}

// Get returns the value stored under key.
func (d *RedisDict) Get(ctx context.Context, key string) (any, error) {
	raw, err := d.client.Get(ctx, d.prefixed(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, kvdict.NewError(kvdict.KindNotFound, "key not found: "+key, nil)
	}
	if err != nil {
		return nil, wrap("get", err)
	}
	return kvdict.Decode(raw)
}

// Delete removes key; deleting a missing key is a not-found error.
func (d *RedisDict) Delete(ctx context.Context, key string) error {
	n, err := d.client.Del(ctx, d.prefixed(key)).Result()
	if err != nil {
		return wrap("delete", err)
	}
	if n == 0 {
		return kvdict.NewError(kvdict.KindNotFound, "key not found: "+key, nil)
	}
	return nil
}

// Contains reports whether key exists.
func (d *RedisDict) Contains(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefixed(key)).Result()
	if err != nil {
		return false, wrap("contains", err)
	}
	return n > 0, nil
}

// Expire sets a time-to-live on an existing key.
func (d *RedisDict) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return kvdict.NewError(kvdict.KindUnsupportedValue, "ttl must be positive", nil)
	}
	ok, err := d.client.Expire(ctx, d.prefixed(key), ttl).Result()
	if err != nil {
		return wrap("expire", err)
	}
	if !ok {
		return kvdict.NewError(kvdict.KindNotFound, "key not found: "+key, nil)
	}
	return nil
}

// TTL returns the remaining time-to-live for key; zero means no expiry.
func (d *RedisDict) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := d.client.PTTL(ctx, d.prefixed(key)).Result()
	if err != nil {
		return 0, wrap("ttl", err)
	}
	switch ttl {
	case pttlMissing:
		return 0, kvdict.NewError(kvdict.KindNotFound, "key not found: "+key, nil)
	case pttlNoExpire:
		return 0, nil
	default:
		return ttl, nil
	}
}

// Keys returns every live key in the namespace, sorted.
func (d *RedisDict) Keys(ctx context.Context) ([]string, error) {
	keys := []string{}
	iter := d.client.Scan(ctx, 0, d.namespace+":*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, d.strip(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("keys", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of live keys in the namespace.
func (d *RedisDict) Len(ctx context.Context) (int64, error) {
	keys, err := d.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

// BulkSet stores every entry of items. All values are validated before
// anything is written, so an unsupported value leaves the store untouched.
func (d *RedisDict) BulkSet(ctx context.Context, items map[string]any) error {
	pairs := make([]any, 0, len(items)*2)
	for key, value := range items {
		if err := validateKey(key); err != nil {
			return err
		}
		raw, err := kvdict.Encode(value)
		if err != nil {
			return err
		}
		pairs = append(pairs, d.prefixed(key), raw)
	}
	if len(pairs) == 0 {
		return nil
	}
	if err := d.client.MSet(ctx, pairs...).Err(); err != nil {
		return wrap("bulk_set", err)
	}
	return nil
}

// BulkGet returns one value per requested key; missing keys yield nil.
func (d *RedisDict) BulkGet(ctx context.Context, keys []string) ([]any, error) {
	if len(keys) == 0 {
		return []any{}, nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = d.prefixed(key)
	}
	raws, err := d.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, wrap("bulk_get", err)
	}
	values := make([]any, len(raws))
	for i, raw := range raws {
		if raw == nil {
			values[i] = nil
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, kvdict.NewError(kvdict.KindInternal, "unexpected mget reply type", nil)
		}
		v, err := kvdict.Decode(s)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// MultiGet returns the values of every key beginning with prefix, ordered
// by key.
func (d *RedisDict) MultiGet(ctx context.Context, prefix string) ([]any, error) {
	matched := []string{}
	iter := d.client.Scan(ctx, 0, d.prefixed(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		matched = append(matched, d.strip(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("multi_get", err)
	}
	sort.Strings(matched)
	if len(matched) == 0 {
		return []any{}, nil
	}
	return d.BulkGet(ctx, matched)
}

// ChainSet stores value under a nested key path.
func (d *RedisDict) ChainSet(ctx context.Context, path []string, value any) error {
	key, err := kvdict.ChainKey(path)
	if err != nil {
		return err
	}
	return d.Set(ctx, key, value)
}

// ChainGet returns the value stored under a nested key path.
func (d *RedisDict) ChainGet(ctx context.Context, path []string) (any, error) {
	key, err := kvdict.ChainKey(path)
	if err != nil {
		return nil, err
	}
	return d.Get(ctx, key)
}

// ChainDel removes the key addressed by a nested key path.
func (d *RedisDict) ChainDel(ctx context.Context, path []string) error {
	key, err := kvdict.ChainKey(path)
	if err != nil {
		return err
	}
	return d.Delete(ctx, key)
}

// ToMap returns every live key and its decoded value.
func (d *RedisDict) ToMap(ctx context.Context) (map[string]any, error) {
	keys, err := d.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, err := d.BulkGet(ctx, keys)
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		// A key can expire between the scan and the read.
		if values[i] == nil {
			exists, err := d.Contains(ctx, key)
			if err != nil {
				return nil, err
			}
			if !exists {
				continue
			}
		}
		out[key] = values[i]
	}
	return out, nil
}

// Clear removes every key in the namespace. Idempotent.
func (d *RedisDict) Clear(ctx context.Context) error {
	iter := d.client.Scan(ctx, 0, d.namespace+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := d.client.Del(ctx, iter.Val()).Err(); err != nil {
			return wrap("clear", err)
		}
	}
	if err := iter.Err(); err != nil {
		return wrap("clear", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (d *RedisDict) Close() error {
	return d.client.Close()
}
