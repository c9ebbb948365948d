package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := NewRedisStore(RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestNewRedisStore_RequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(RedisConfig{})
	assert.Error(t, err)
}

func TestRedisStore_IncrementAndExpire(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	n, err := s.Increment(ctx, "rate_limit:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := s.Expire(ctx, "rate_limit:1.2.3.4", 60*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 60*time.Second, mr.TTL("rate_limit:1.2.3.4"))

	n, err = s.Increment(ctx, "rate_limit:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mr.FastForward(61 * time.Second)
	assert.False(t, mr.Exists("rate_limit:1.2.3.4"))

	n, err = s.Increment(ctx, "rate_limit:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisStore_ExpireMissingKey(t *testing.T) {
	t.Parallel()

	s, _ := newTestRedisStore(t)

	ok, err := s.Expire(context.Background(), "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Ping(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedisStore(t)
	require.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestRedisStore_ServerDown(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedisStore(t)
	mr.Close()

	_, err := s.Increment(context.Background(), "k")
	assert.Error(t, err)
	_, err = s.Expire(context.Background(), "k", time.Second)
	assert.Error(t, err)
}

func TestRedisStore_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &RedisStore{}

	_, err := s.Increment(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Expire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisStore_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	s, _ := newTestRedisStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestWaitReady(t *testing.T) {
	t.Parallel()

	t.Run("reachable", func(t *testing.T) {
		t.Parallel()
		s, _ := newTestRedisStore(t)
		err := WaitReady(context.Background(), s, WaitConfig{Backend: "redis", MaxTries: 2})
		assert.NoError(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		s, mr := newTestRedisStore(t)
		mr.Close()
		err := WaitReady(context.Background(), s, WaitConfig{
			Backend:        "redis",
			MaxTries:       2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
		})
		assert.Error(t, err)
	})
}
