package middleware

import (
	"net/http"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/apigw/internal/observability"
)

func newObservedLogger(t *testing.T) (observability.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return observability.NewZapLogger(zap.New(core)), logs
}

// captureHandler records the last request it served.
type captureHandler struct {
	req    *http.Request
	status int
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.req = r
	if h.status != 0 {
		w.WriteHeader(h.status)
	}
}
