// Package vault reads gateway secrets from HashiCorp Vault.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/apigw/internal/observability"
)

// DefaultMount is the KV v2 mount used when none is given.
const DefaultMount = "secret"

// Sentinel errors for secret lookups.
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrKeyNotFound    = errors.New("key not found in secret")
)

// Config holds Vault connection settings. Empty fields fall back to the
// VAULT_ADDR and VAULT_TOKEN environment variables.
type Config struct {
	Address string
	Token   string
	Timeout time.Duration
}

// Client is a thin Vault client for KV v2 reads.
type Client struct {
	api    *vaultapi.Client
	logger observability.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Vault client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	apiCfg := vaultapi.DefaultConfig()
	if apiCfg.Error != nil {
		return nil, fmt.Errorf("failed to read vault environment: %w", apiCfg.Error)
	}
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	if cfg.Timeout > 0 {
		apiCfg.Timeout = cfg.Timeout
	}

	api, err := vaultapi.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		api.SetToken(cfg.Token)
	}

	c := &Client{api: api, logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ReadKV2 returns one string value of a KV v2 secret.
func (c *Client) ReadKV2(ctx context.Context, mount, path, key string) (string, error) {
	if mount == "" {
		mount = DefaultMount
	}
	c.logger.Debug("reading vault secret",
		observability.String("mount", mount),
		observability.String("path", path),
	)

	secret, err := c.api.KVv2(mount).Get(ctx, path)
	if err != nil {
		if errors.Is(err, vaultapi.ErrSecretNotFound) {
			return "", fmt.Errorf("%w: %s/%s", ErrSecretNotFound, mount, path)
		}
		return "", fmt.Errorf("failed to read %s/%s: %w", mount, path, err)
	}

	raw, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value of %s is %T, not a string", key, raw)
	}
	return value, nil
}
