package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/vyrodovalexey/apigw/internal/util"
)

// Rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Rejection is the body of a 429 response.
type Rejection struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter"`
}

// SetHeaders writes the limit, remaining budget and reset headers.
func SetHeaders(h http.Header, limit, remaining, resetSeconds int64) {
	h.Set(HeaderLimit, strconv.FormatInt(limit, 10))
	h.Set(HeaderRemaining, strconv.FormatInt(remaining, 10))
	h.Set(HeaderReset, strconv.FormatInt(resetSeconds, 10))
}

// WriteRejection answers 429 with Retry-After set to the window length.
// Callers set the rate limit headers first.
func WriteRejection(w http.ResponseWriter, limit, windowSeconds int64) {
	w.Header().Set(HeaderRetryAfter, strconv.FormatInt(windowSeconds, 10))
	util.WriteJSON(w, http.StatusTooManyRequests, Rejection{
		Error:      http.StatusText(http.StatusTooManyRequests),
		Message:    fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %d seconds.", limit, windowSeconds),
		RetryAfter: windowSeconds,
	})
}
