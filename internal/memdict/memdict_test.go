package memdict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

func TestSetGet(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", int(42)))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got, "values are normalized on write")
}

func TestMissingKeySemantics(t *testing.T) {
	m := New()
	ctx := context.Background()

	_, err := m.Get(ctx, "nothere")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))

	err = m.Delete(ctx, "nothere")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))

	_, err = m.TTL(ctx, "nothere")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))

	err = m.Expire(ctx, "nothere", time.Second)
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))
}

func TestExpiry(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v"))
	require.NoError(t, m.Expire(ctx, "k", 10*time.Millisecond))

	ttl, err := m.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	time.Sleep(25 * time.Millisecond)

	_, err = m.Get(ctx, "k")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))

	exists, err := m.Contains(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKeysSortedAndLen(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.BulkSet(ctx, map[string]any{"c": 1, "a": 2, "b": 3}))

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	n, err := m.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestBulkGetMissingYieldsNil(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "x"))
	values, err := m.BulkGet(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", nil}, values)
}

func TestMultiGetPrefix(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.BulkSet(ctx, map[string]any{
		"user:ada:city":  "paris",
		"user:ada:email": "ada@example.org",
		"other":          true,
	}))

	values, err := m.MultiGet(ctx, "user:")
	require.NoError(t, err)
	assert.Equal(t, []any{"paris", "ada@example.org"}, values, "values come back in key order")

	values, err = m.MultiGet(ctx, "zzz_nothing")
	require.NoError(t, err)
	assert.Equal(t, []any{}, values, "no match is an empty list, not an error")
}

func TestMultiGetSkipsExpired(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "p_live", "v"))
	require.NoError(t, m.Set(ctx, "p_gone", "v"))
	require.NoError(t, m.Expire(ctx, "p_gone", 5*time.Millisecond))
	time.Sleep(15 * time.Millisecond)

	values, err := m.MultiGet(ctx, "p_")
	require.NoError(t, err)
	assert.Equal(t, []any{"v"}, values)
}

func TestChainOperations(t *testing.T) {
	m := New()
	ctx := context.Background()

	path := []string{"user", "ada", "email"}
	require.NoError(t, m.ChainSet(ctx, path, "ada@example.org"))

	got, err := m.ChainGet(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", got)

	flat, err := m.Get(ctx, "user:ada:email")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", flat, "chain paths address colon-joined keys")

	require.NoError(t, m.ChainDel(ctx, path))
	err = m.ChainDel(ctx, path)
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))

	_, err = m.ChainGet(ctx, []string{})
	assert.Equal(t, kvdict.KindUnsupportedValue, kvdict.KindOf(err))
	err = m.ChainSet(ctx, []string{"a", ""}, "v")
	assert.Equal(t, kvdict.KindUnsupportedValue, kvdict.KindOf(err))
}

func TestToMapAndClear(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", int64(1)))
	require.NoError(t, m.Set(ctx, "b", nil))

	state, err := m.ToMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1), "b": nil}, state)

	require.NoError(t, m.Clear(ctx))
	require.NoError(t, m.Clear(ctx))
	n, err := m.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInstancesAreIndependent(t *testing.T) {
	ctx := context.Background()

	s1, err := NewStore("", "ignored")
	require.NoError(t, err)
	s2, err := NewStore("", "ignored")
	require.NoError(t, err)

	require.NoError(t, s1.Set(ctx, "k", "v"))
	_, err = s2.Get(ctx, "k")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))
}
