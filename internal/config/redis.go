package config

import "time"

// Store client kinds.
const (
	StoreClientRedis  = "redis"
	StoreClientValkey = "valkey"
	StoreClientMemory = "memory"
)

// RedisConfig configures the shared counter store.
type RedisConfig struct {
	// Client selects the driver: redis (default), valkey, or memory.
	Client       string   `yaml:"client,omitempty" json:"client,omitempty"`
	Address      string   `yaml:"address" json:"address"`
	Password     string   `yaml:"password,omitempty" json:"-"`
	DB           int      `yaml:"db,omitempty" json:"db,omitempty"`
	DialTimeout  Duration `yaml:"dialTimeout,omitempty" json:"dialTimeout,omitempty"`
	ReadTimeout  Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	PoolSize     int      `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`
	MinIdleConns int      `yaml:"minIdleConns,omitempty" json:"minIdleConns,omitempty"`
	MaxRetries   int      `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
}

// DefaultRedisConfig returns the store defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Client:       StoreClientRedis,
		Address:      "localhost:6379",
		DialTimeout:  Duration(2 * time.Second),
		ReadTimeout:  Duration(2 * time.Second),
		WriteTimeout: Duration(2 * time.Second),
		PoolSize:     16,
		MinIdleConns: 2,
	}
}
