package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/apigw/internal/observability"
)

// ResolveCorrelationID returns the caller's correlation id when it is not
// blank, or a new random UUID.
func ResolveCorrelationID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderCorrelationID)); id != "" {
		return id
	}
	return uuid.NewString()
}

// requestCorrelationID returns the id an outer stage already established,
// resolving one if none was.
func requestCorrelationID(r *http.Request) string {
	if id := observability.CorrelationIDFromContext(r.Context()); id != "" {
		return id
	}
	return ResolveCorrelationID(r)
}

// Correlation returns a middleware that establishes the request's
// correlation id. The id is placed on the forwarded request, on the
// response and in the context.
func Correlation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestCorrelationID(r)
			w.Header().Set(HeaderCorrelationID, id)

			fwd := forwardedCopy(observability.ContextWithCorrelationID(r.Context(), id), r)
			fwd.Header.Set(HeaderCorrelationID, id)
			next.ServeHTTP(w, fwd)
		})
	}
}

// forwardedCopy returns a copy of r carrying ctx with its own header map.
// Stages edit the copy so the inbound request stays as received.
func forwardedCopy(ctx context.Context, r *http.Request) *http.Request {
	out := r.WithContext(ctx)
	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	return out
}
