// Package connector manages the harness's own connection to the backing
// store: reachability checks at setup, namespace-scoped views, and the
// flush that guarantees each side a clean key-space before and after a run.
package connector

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

// Config describes how to reach the backing store.
type Config struct {
	Endpoint string
	Password string
	DB       int
}

// Conn is a verified connection to the backing store.
type Conn struct {
	client *redis.Client
}

// Connect establishes and verifies a connection. An unreachable or
// misconfigured store is a connection-kind error, fatal during setup.
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Endpoint,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, kvdict.NewError(kvdict.KindConnection,
			"backing store unreachable at "+cfg.Endpoint, err)
	}
	return &Conn{client: client}, nil
}

// Namespace returns a view of the connection where every key operation is
// scoped under prefix. Views on the same Conn with distinct prefixes are
// isolated from one another.
func (c *Conn) Namespace(prefix string) *Scoped {
	return &Scoped{client: c.client, prefix: prefix}
}

// Close releases the connection.
func (c *Conn) Close() error {
	return c.client.Close()
}

// Scoped is a namespace-prefixed view of a connection. The harness uses it
// for flushing and for raw key inspection independent of the loaded
// implementations' own codecs.
type Scoped struct {
	client *redis.Client
	prefix string
}

// Prefix returns the namespace prefix of this view.
func (s *Scoped) Prefix() string {
	return s.prefix
}

// Flush removes every key under the view's prefix. Idempotent; flushing an
// empty key-space succeeds.
func (s *Scoped) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return kvdict.NewError(kvdict.KindConnection, "flush failed", err)
		}
	}
	if err := iter.Err(); err != nil {
		return kvdict.NewError(kvdict.KindConnection, "flush scan failed", err)
	}
	return nil
}

// Keys returns the raw keys under the view's prefix, stripped and sorted.
func (s *Scoped) Keys(ctx context.Context) ([]string, error) {
	keys := []string{}
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix+":"))
	}
	if err := iter.Err(); err != nil {
		return nil, kvdict.NewError(kvdict.KindConnection, "key scan failed", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// IsConnectionError reports whether err indicates an unreachable store.
func IsConnectionError(err error) bool {
	var kvErr *kvdict.Error
	if errors.As(err, &kvErr) {
		return kvErr.Kind == kvdict.KindConnection
	}
	return false
}
