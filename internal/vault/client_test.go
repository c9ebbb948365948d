package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kvResponse = `{
  "data": {
    "data": {"jwtSecret": "super-secret-signing-key", "count": 3},
    "metadata": {"version": 1}
  }
}`

func newVaultServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		if r.URL.Path != "/v1/secret/data/apigw" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(kvResponse))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ReadKV2(t *testing.T) {
	t.Parallel()

	srv := newVaultServer(t)
	c, err := NewClient(Config{Address: srv.URL, Token: "root", Timeout: time.Second})
	require.NoError(t, err)

	ctx := context.Background()

	got, err := c.ReadKV2(ctx, "", "apigw", "jwtSecret")
	require.NoError(t, err)
	assert.Equal(t, "super-secret-signing-key", got)

	_, err = c.ReadKV2(ctx, "secret", "apigw", "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = c.ReadKV2(ctx, "secret", "apigw", "count")
	assert.Error(t, err)

	_, err = c.ReadKV2(ctx, "secret", "other", "jwtSecret")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestClient_ReadKV2_Forbidden(t *testing.T) {
	t.Parallel()

	srv := newVaultServer(t)
	c, err := NewClient(Config{Address: srv.URL, Token: "wrong"})
	require.NoError(t, err)

	_, err = c.ReadKV2(context.Background(), "secret", "apigw", "jwtSecret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSecretNotFound)
}
