package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const backendRedis = "redis"

// RedisConfig holds configuration for the Redis store.
type RedisConfig struct {
	Address  string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStore implements Store on a go-redis client.
type RedisStore struct {
	client *redis.Client
	mu     sync.Mutex
	closed bool
}

// NewRedisStore creates a Redis store. It does not contact the server;
// use WaitReady to check connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	return &RedisStore{client: createRedisClient(cfg)}, nil
}

func createRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error before redis incr: %w", err)
	}

	start := time.Now()
	n, err := s.client.Incr(ctx, key).Result()
	observe(backendRedis, opIncrement, start, err)
	if err != nil {
		return 0, fmt.Errorf("redis incr error: %w", err)
	}
	return n, nil
}

// Expire implements Store.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error before redis expire: %w", err)
	}

	start := time.Now()
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	observe(backendRedis, opExpire, start, err)
	if err != nil {
		return false, fmt.Errorf("redis expire error: %w", err)
	}
	return ok, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.client.Ping(ctx).Err()
	observe(backendRedis, opPing, start, err)
	if err != nil {
		return fmt.Errorf("redis ping error: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
