package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/apigw/internal/observability"
)

func TestFallbackHandler(t *testing.T) {
	t.Parallel()

	h := NewFallbackHandler()

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		req := httptest.NewRequest(method, "/fallback/products", nil)
		req = req.WithContext(observability.ContextWithCorrelationID(req.Context(), "abc-123"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{
			"error":"Service Unavailable",
			"message":"products service is temporarily unavailable. Please try again later.",
			"service":"products",
			"correlationId":"abc-123"
		}`, rec.Body.String())
	}
}

func TestFallbackHandler_UnknownTarget(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewFallbackHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Service Unavailable")
}

func TestProxyError(t *testing.T) {
	t.Parallel()

	err := newProxyError("roundtrip", "users", "http://u1", ErrUpstreamTimeout)
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
	assert.Equal(t, "proxy error [roundtrip] route=users target=http://u1: upstream request timed out", err.Error())

	err = newProxyError("resolve", "users", "", ErrUpstreamTimeout)
	assert.Equal(t, "proxy error [resolve] route=users: upstream request timed out", err.Error())
}
