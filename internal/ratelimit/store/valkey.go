package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

const backendValkey = "valkey"

// ValkeyConfig holds configuration for the Valkey store.
type ValkeyConfig struct {
	Addresses    []string
	Password     string
	DB           int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// ValkeyStore implements Store on a valkey-go client.
type ValkeyStore struct {
	client valkey.Client
	mu     sync.Mutex
	closed bool
}

// NewValkeyStore connects to the given Valkey nodes.
func NewValkeyStore(cfg ValkeyConfig) (*ValkeyStore, error) {
	opt := valkey.ClientOption{
		InitAddress:      cfg.Addresses,
		Password:         cfg.Password,
		SelectDB:         cfg.DB,
		ConnWriteTimeout: cfg.WriteTimeout,
	}
	if cfg.DialTimeout > 0 {
		opt.Dialer.Timeout = cfg.DialTimeout
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}
	return &ValkeyStore{client: client}, nil
}

// Increment implements Store.
func (s *ValkeyStore) Increment(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error before valkey incr: %w", err)
	}

	start := time.Now()
	n, err := s.client.Do(ctx, s.client.B().Incr().Key(key).Build()).AsInt64()
	observe(backendValkey, opIncrement, start, err)
	if err != nil {
		return 0, fmt.Errorf("valkey incr error: %w", err)
	}
	return n, nil
}

// Expire implements Store.
func (s *ValkeyStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error before valkey expire: %w", err)
	}

	start := time.Now()
	cmd := s.client.B().Expire().Key(key).Seconds(expireSeconds(ttl)).Build()
	n, err := s.client.Do(ctx, cmd).AsInt64()
	observe(backendValkey, opExpire, start, err)
	if err != nil {
		return false, fmt.Errorf("valkey expire error: %w", err)
	}
	return n == 1, nil
}

// Ping implements Store.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.client.Do(ctx, s.client.B().Ping().Build()).Error()
	observe(backendValkey, opPing, start, err)
	if err != nil {
		return fmt.Errorf("valkey ping error: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *ValkeyStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.client.Close()
	}
	return nil
}

// expireSeconds rounds ttl up to whole seconds, with a floor of one.
func expireSeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
