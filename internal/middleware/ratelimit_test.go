package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/apigw/internal/ratelimit"
	"github.com/vyrodovalexey/apigw/internal/ratelimit/store"
	"github.com/vyrodovalexey/apigw/internal/util"
)

type brokenStore struct{}

func (brokenStore) Increment(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func (brokenStore) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenStore) Ping(context.Context) error { return errors.New("connection refused") }
func (brokenStore) Close() error               { return nil }

func newLimiter(t *testing.T, s store.Store, maxRequests int64, window time.Duration) *ratelimit.FixedWindowLimiter {
	t.Helper()
	l, err := ratelimit.NewFixedWindowLimiter(s, ratelimit.FixedWindowConfig{Max: maxRequests, Window: window})
	require.NoError(t, err)
	return l
}

func TestRateLimit_FixedWindowScenario(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	s, err := store.NewRedisStore(store.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	next := &captureHandler{}
	handler := RateLimit(newLimiter(t, s, 3, time.Minute))(next)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i, wantRemaining := range []int{2, 1, 0} {
		rec := send()
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, "3", rec.Header().Get(ratelimit.HeaderLimit))
		assert.Equal(t, strconv.Itoa(wantRemaining), rec.Header().Get(ratelimit.HeaderRemaining))
		assert.Equal(t, "60", rec.Header().Get(ratelimit.HeaderReset))
	}
	assert.Equal(t, "192.168.1.1", util.ClientIPFromContext(next.req.Context()))

	next.req = nil
	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Nil(t, next.req)
	assert.Equal(t, "60", rec.Header().Get(ratelimit.HeaderRetryAfter))
	assert.Equal(t, "0", rec.Header().Get(ratelimit.HeaderRemaining))
	assert.Contains(t, rec.Body.String(), `"error":"Too Many Requests"`)
	assert.Contains(t, rec.Body.String(), `"retryAfter":60`)

	assert.Equal(t, 60*time.Second, mr.TTL("rate_limit:192.168.1.1"))
}

func TestRateLimit_ClientsAreIndependent(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	handler := RateLimit(newLimiter(t, s, 1, time.Minute))(&captureHandler{})

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_FailOpen(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger(t)
	next := &captureHandler{}
	handler := RateLimit(newLimiter(t, brokenStore{}, 1, time.Minute), WithRateLimitLogger(logger))(next)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(ratelimit.HeaderLimit))
	}
	assert.NotNil(t, next.req)

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	assert.Len(t, errs, 3)
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	next := &captureHandler{}
	handler := RateLimit(nil)(next)
	assert.Same(t, next, handler)
}
