package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	return s
}

func TestSQLiteSetGetAndTTL(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", "v1", 0))
	v, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	ttl, err := s.TTL(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, -1*time.Second, ttl)

	ttl, err = s.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, -2*time.Second, ttl)
}

func TestSQLiteSetWithTTLExpires(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k2", "v2", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, ok, err := s.Get(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteJSONRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	type payload struct {
		Query string `json:"query"`
	}
	require.NoError(t, s.SetJSON(ctx, "j1", payload{Query: "두통"}, 0))
	var out payload
	ok, err := s.GetJSON(ctx, "j1", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "두통", out.Query)
}

func TestSQLiteListPushRangeAndTrim(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.RPush(ctx, "hist", "a"))
	require.NoError(t, s.RPush(ctx, "hist", "b"))
	require.NoError(t, s.RPush(ctx, "hist", "c"))
	require.NoError(t, s.LPush(ctx, "hist", "z"))

	all, err := s.LRange(ctx, "hist", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "b", "c"}, all)

	n, err := s.LLen(ctx, "hist")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, s.LTrim(ctx, "hist", 1, 2))
	remaining, err := s.LRange(ctx, "hist", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, remaining)
}

func TestSQLiteIncr(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	n, err := s.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSQLiteKeysWildcard(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "cache:query:aaa", "1", 0))
	require.NoError(t, s.Set(ctx, "cache:query:bbb", "2", 0))
	require.NoError(t, s.Set(ctx, "history:sess1", "3", 0))

	keys, err := s.Keys(ctx, "cache:query:*")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestSQLiteFlushAll(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", "1", 0))
	require.NoError(t, s.FlushAll(ctx))
	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisDisabledDegradesToNoopSuccessAndEmptyReads(t *testing.T) {
	s := &redisStore{}
	s.disabled.Store(true)
	ctx := context.Background()

	assert.NoError(t, s.Set(ctx, "k", "v", 0))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, -2*time.Second, ttl)
}
