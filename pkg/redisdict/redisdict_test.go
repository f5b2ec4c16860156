package redisdict

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

func setupTest(t *testing.T) (*RedisDict, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	d, err := New(srv.Addr(), "rd_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, srv
}

func TestNewUnreachable(t *testing.T) {
	_, err := New("127.0.0.1:1", "rd_test")
	require.Error(t, err)
	assert.Equal(t, kvdict.KindConnection, kvdict.KindOf(err))
}

func TestRoundTripPerType(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		value any
	}{
		{"string", "hello"},
		{"int", int64(42)},
		{"float", 3.14159},
		{"bool", true},
		{"nil", nil},
		{"list", []any{"apple", int64(2), 3.5, true}},
		{"map", map[string]any{"name": "ada", "age": int64(36), "scores": []any{int64(1), int64(2)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, d.Set(ctx, tt.name, tt.value))
			got, err := d.Get(ctx, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestOverwriteChangesType(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "k", "text"))
	require.NoError(t, d.Set(ctx, "k", int64(99)))

	got, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(99), got)
}

func TestMissingKeyErrors(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	_, err := d.Get(ctx, "nothere")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))

	err = d.Delete(ctx, "nothere")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))

	_, err = d.TTL(ctx, "nothere")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))

	err = d.Expire(ctx, "nothere", time.Second)
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))
}

func TestDeleteThenReadMisses(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "k", "v"))
	require.NoError(t, d.Delete(ctx, "k"))

	_, err := d.Get(ctx, "k")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))
}

func TestExpireAndTTL(t *testing.T) {
	d, srv := setupTest(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "k", "v"))

	ttl, err := d.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl, "no expiry reads as zero")

	require.NoError(t, d.Expire(ctx, "k", 2500*time.Millisecond))
	ttl, err = d.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, ttl)

	srv.FastForward(3 * time.Second)
	_, err = d.Get(ctx, "k")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))
}

func TestExpireRejectsNonPositiveTTL(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "k", "v"))
	err := d.Expire(ctx, "k", -time.Second)
	assert.Equal(t, kvdict.KindUnsupportedValue, kvdict.KindOf(err))
}

func TestEmptyKeyRejected(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	err := d.Set(ctx, "", "v")
	assert.Equal(t, kvdict.KindUnsupportedValue, kvdict.KindOf(err))

	err = d.BulkSet(ctx, map[string]any{"": "v"})
	assert.Equal(t, kvdict.KindUnsupportedValue, kvdict.KindOf(err))
}

func TestUnsupportedValueRejected(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	err := d.Set(ctx, "k", make(chan int))
	assert.Equal(t, kvdict.KindUnsupportedValue, kvdict.KindOf(err))
}

func TestKeysAndLen(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "zebra", int64(1)))
	require.NoError(t, d.Set(ctx, "apple", int64(2)))
	require.NoError(t, d.Set(ctx, "mango", int64(3)))

	keys, err := d.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "mango", "zebra"}, keys, "keys are sorted")

	n, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestBulkSetGet(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	items := map[string]any{"a": "alpha", "b": int64(7), "c": []any{"x", "y"}}
	require.NoError(t, d.BulkSet(ctx, items))

	values, err := d.BulkGet(ctx, []string{"a", "b", "c", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []any{"alpha", int64(7), []any{"x", "y"}, nil}, values)
}

func TestMultiGetPrefix(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, d.BulkSet(ctx, map[string]any{
		"user:ada:city":  "paris",
		"user:ada:email": "ada@example.org",
		"other":          true,
	}))

	values, err := d.MultiGet(ctx, "user:")
	require.NoError(t, err)
	assert.Equal(t, []any{"paris", "ada@example.org"}, values, "values come back in key order")

	values, err = d.MultiGet(ctx, "zzz_nothing")
	require.NoError(t, err)
	assert.Equal(t, []any{}, values, "no match is an empty list, not an error")
}

func TestMultiGetStaysInNamespace(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	d1, err := New(srv.Addr(), "rd_one")
	require.NoError(t, err)
	defer d1.Close()
	d2, err := New(srv.Addr(), "rd_two")
	require.NoError(t, err)
	defer d2.Close()

	require.NoError(t, d1.Set(ctx, "p_a", "mine"))
	require.NoError(t, d2.Set(ctx, "p_a", "theirs"))

	values, err := d1.MultiGet(ctx, "p_")
	require.NoError(t, err)
	assert.Equal(t, []any{"mine"}, values)
}

func TestChainOperations(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	path := []string{"user", "ada", "email"}
	require.NoError(t, d.ChainSet(ctx, path, "ada@example.org"))

	got, err := d.ChainGet(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", got)

	flat, err := d.Get(ctx, "user:ada:email")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", flat, "chain paths address colon-joined keys")

	require.NoError(t, d.ChainDel(ctx, path))
	err = d.ChainDel(ctx, path)
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))

	_, err = d.ChainGet(ctx, nil)
	assert.Equal(t, kvdict.KindUnsupportedValue, kvdict.KindOf(err))
}

func TestToMap(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "a", int64(1)))
	require.NoError(t, d.Set(ctx, "b", nil))

	state, err := d.ToMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1), "b": nil}, state)
}

func TestClearIsIdempotent(t *testing.T) {
	d, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "a", int64(1)))
	require.NoError(t, d.Clear(ctx))
	require.NoError(t, d.Clear(ctx))

	n, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestNamespaceIsolation(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	d1, err := New(srv.Addr(), "rd_one")
	require.NoError(t, err)
	defer d1.Close()
	d2, err := New(srv.Addr(), "rd_two")
	require.NoError(t, err)
	defer d2.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, d1.Set(ctx, string(rune('a'+i)), int64(i)))
	}

	n, err := d2.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "writes through one namespace must be invisible to the other")

	_, err = d2.Get(ctx, "a")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))
}
