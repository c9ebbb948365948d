package proxy

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/util"
)

// FallbackResponse is the body served when a backend is unavailable.
type FallbackResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Service       string `json:"service"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// NewFallbackHandler returns the in-process fallback targets. Any method
// on /fallback/{service} answers 503 with a degraded-service body.
func NewFallbackHandler() http.Handler {
	r := chi.NewRouter()
	r.HandleFunc("/fallback/{service}", serveFallback)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		util.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	})
	return r
}

func serveFallback(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	util.WriteJSON(w, http.StatusServiceUnavailable, FallbackResponse{
		Error:         http.StatusText(http.StatusServiceUnavailable),
		Message:       fmt.Sprintf("%s service is temporarily unavailable. Please try again later.", service),
		Service:       service,
		CorrelationID: observability.CorrelationIDFromContext(r.Context()),
	})
}
