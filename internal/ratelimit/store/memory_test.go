package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()

	s := NewMemoryStoreWithCleanupInterval(time.Hour)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.mu.Lock()
	s.now = func() time.Time { return now }
	s.mu.Unlock()
	return s, &now
}

func TestMemoryStore_Increment(t *testing.T) {
	t.Parallel()

	s, _ := newTestMemoryStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := s.Increment(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, 1, s.Size())
}

func TestMemoryStore_Expire(t *testing.T) {
	t.Parallel()

	s, now := newTestMemoryStore(t)
	ctx := context.Background()

	ok, err := s.Expire(ctx, "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Increment(ctx, "k")
	require.NoError(t, err)
	ok, err = s.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Increment(ctx, "k")
	require.NoError(t, err)

	s.mu.Lock()
	*now = now.Add(time.Minute)
	s.mu.Unlock()

	n, err := s.Increment(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired counter restarts from zero")
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	t.Parallel()

	s, now := newTestMemoryStore(t)
	ctx := context.Background()

	_, _ = s.Increment(ctx, "a")
	_, _ = s.Expire(ctx, "a", time.Second)
	_, _ = s.Increment(ctx, "b")

	s.mu.Lock()
	*now = now.Add(2 * time.Second)
	s.mu.Unlock()

	s.cleanupExpired()
	assert.Equal(t, 1, s.Size())
}

func TestMemoryStore_ContextCancelled(t *testing.T) {
	t.Parallel()

	s, _ := newTestMemoryStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Increment(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Expire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}

func TestMemoryStore_Closed(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err := s.Increment(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Expire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Ping(ctx), ErrClosed)
}

func TestMemoryStore_ConcurrentIncrement(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	defer s.Close()

	const workers, perWorker = 10, 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, _ = s.Increment(context.Background(), "shared")
			}
		}()
	}
	wg.Wait()

	n, err := s.Increment(context.Background(), "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker+1), n)
}
