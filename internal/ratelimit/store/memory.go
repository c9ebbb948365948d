package store

import (
	"context"
	"sync"
	"time"
)

const backendMemory = "memory"

type entry struct {
	value      int64
	expiration time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && !now.Before(e.expiration)
}

// MemoryStore implements Store in process memory. Counters are local to
// one gateway instance, which makes it suitable for tests and single
// replica deployments only.
type MemoryStore struct {
	mu      sync.Mutex
	data    map[string]*entry
	cleanup *time.Ticker
	done    chan struct{}
	closed  bool
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithCleanupInterval(time.Minute)
}

// NewMemoryStoreWithCleanupInterval creates a new in-memory store that
// sweeps expired entries at the given interval.
func NewMemoryStoreWithCleanupInterval(interval time.Duration) *MemoryStore {
	s := &MemoryStore{
		data:    make(map[string]*entry),
		cleanup: time.NewTicker(interval),
		done:    make(chan struct{}),
		now:     time.Now,
	}

	go s.startCleanup()

	return s
}

// Increment implements Store.
func (s *MemoryStore) Increment(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		observe(backendMemory, opIncrement, start, ErrClosed)
		return 0, ErrClosed
	}

	e, ok := s.data[key]
	if !ok || e.expired(s.now()) {
		e = &entry{}
		s.data[key] = e
	}
	e.value++

	observe(backendMemory, opIncrement, start, nil)
	return e.value, nil
}

// Expire implements Store.
func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		observe(backendMemory, opExpire, start, ErrClosed)
		return false, ErrClosed
	}

	now := s.now()
	e, ok := s.data[key]
	if !ok || e.expired(now) {
		observe(backendMemory, opExpire, start, nil)
		return false, nil
	}
	e.expiration = now.Add(ttl)

	observe(backendMemory, opExpire, start, nil)
	return true, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.cleanup.Stop()
	close(s.done)

	return nil
}

// Size returns the number of entries in the store.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *MemoryStore) startCleanup() {
	for {
		select {
		case <-s.cleanup.C:
			s.cleanupExpired()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.data {
		if e.expired(now) {
			delete(s.data, key)
		}
	}
}
