package circuitbreaker

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/observability"
)

func gatherText(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRegistry_SharesBreakersByName(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig())
	custom := Config{ConsecutiveFailures: 2, Timeout: time.Second}

	a := r.Get("shared", &custom)
	b := r.Get("shared", nil)
	assert.Same(t, a, b)
	assert.Equal(t, uint32(2), b.Config().ConsecutiveFailures, "first settings win")

	other := r.Get("other", nil)
	assert.NotSame(t, a, other)
	assert.Equal(t, uint32(5), other.Config().ConsecutiveFailures)

	assert.Equal(t, map[string]State{"other": StateClosed, "shared": StateClosed}, r.States())

	got, ok := r.Lookup("shared")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_ConcurrentGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig())
	results := make([]*Breaker, 20)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Get("race", nil)
		}(i)
	}
	wg.Wait()

	for _, b := range results {
		assert.Same(t, results[0], b)
	}
	assert.Len(t, r.States(), 1)
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	defaults := config.DefaultCircuitBreakerConfig()

	tests := []struct {
		name        string
		route       *config.RouteCircuitBreakerConfig
		wantFails   uint32
		wantTimeout time.Duration
	}{
		{
			name:        "defaults",
			wantFails:   5,
			wantTimeout: 30 * time.Second,
		},
		{
			name:        "route without overrides",
			route:       &config.RouteCircuitBreakerConfig{Name: "x"},
			wantFails:   5,
			wantTimeout: 30 * time.Second,
		},
		{
			name: "route overrides",
			route: &config.RouteCircuitBreakerConfig{
				Name:                "x",
				ConsecutiveFailures: 2,
				Timeout:             config.Duration(5 * time.Second),
			},
			wantFails:   2,
			wantTimeout: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := FromConfig(defaults, tt.route)
			assert.Equal(t, tt.wantFails, c.ConsecutiveFailures)
			assert.Equal(t, tt.wantTimeout, c.Timeout)
			assert.Equal(t, 0.5, c.FailureRatio)
			assert.Equal(t, uint32(10), c.MinRequests)
			assert.Equal(t, uint32(1), c.HalfOpenRequests)
		})
	}
}

func TestConfig_Normalize(t *testing.T) {
	t.Parallel()

	c := Config{FailureRatio: 2, Interval: -time.Second}.normalize()
	assert.Equal(t, DefaultConfig().ConsecutiveFailures, c.ConsecutiveFailures)
	assert.Equal(t, 0.0, c.FailureRatio)
	assert.Equal(t, time.Duration(0), c.Interval)
	assert.Equal(t, DefaultConfig().Timeout, c.Timeout)
	assert.Equal(t, uint32(1), c.HalfOpenRequests)
}
