package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	var out struct {
		Timeout Duration `yaml:"timeout"`
		Empty   Duration `yaml:"empty"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("timeout: 1m30s\nempty: \"\"\n"), &out))

	assert.Equal(t, 90*time.Second, out.Timeout.Duration())
	assert.Zero(t, out.Empty)
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	var n Duration
	require.NoError(t, json.Unmarshal([]byte(`null`), &n))
	assert.Zero(t, n)

	assert.Error(t, json.Unmarshal([]byte(`"fast"`), &d))

	b, err := json.Marshal(Duration(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(b))
}

func TestDuration_OrDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Second, Duration(0).OrDefault(time.Second))
	assert.Equal(t, time.Minute, Duration(time.Minute).OrDefault(time.Second))
}

func TestRoute_PathPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"/api/users/**", "/api/users"},
		{"/api/users/*", "/api/users"},
		{"/api/users/", "/api/users"},
		{"/api/users", "/api/users"},
		{"/**", "/"},
		{"/", "/"},
	}

	for _, tt := range tests {
		r := Route{Path: tt.path}
		assert.Equal(t, tt.want, r.PathPrefix(), tt.path)
	}
}
