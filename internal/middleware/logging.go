package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/util"
)

// maxUserAgentLength is where logged user agents are cut.
const maxUserAgentLength = 100

// sensitiveHeaderMarkers exclude a header from debug dumps when its
// lower-cased name contains any of them.
var sensitiveHeaderMarkers = []string{"authorization", "cookie", "token", "secret", "api-key"}

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size.
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Flush implements http.Flusher interface for streaming support.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying writer for http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingOption configures the Logging middleware.
type LoggingOption func(*loggingConfig)

type loggingConfig struct {
	slowThreshold time.Duration
}

// WithSlowThreshold sets the duration above which a request is reported
// as slow.
func WithSlowThreshold(d time.Duration) LoggingOption {
	return func(c *loggingConfig) {
		if d > 0 {
			c.slowThreshold = d
		}
	}
}

// Logging returns the outermost logging stage. It establishes the
// correlation id, logs the request on entry and the outcome on
// completion. A panic further down is logged and re-raised.
func Logging(logger observability.Logger, opts ...LoggingOption) func(http.Handler) http.Handler {
	cfg := loggingConfig{slowThreshold: config.DefaultSlowRequestThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := requestCorrelationID(r)

			ctx := util.ContextWithStartTime(r.Context(), start)
			ctx = observability.ContextWithCorrelationID(ctx, id)
			r = r.WithContext(ctx)
			w.Header().Set(HeaderCorrelationID, id)

			logger.Info("incoming request",
				observability.String("correlation_id", id),
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("client_ip", remoteIP(r)),
				observability.String("query", orDash(r.URL.RawQuery)),
				observability.String("content_type", orDash(r.Header.Get(HeaderContentType))),
				observability.String("user_agent", truncateUserAgent(r.UserAgent())),
			)
			logger.Debug("request headers",
				observability.String("correlation_id", id),
				observability.Any("headers", loggableHeaders(r.Header)),
			)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("request failed",
						observability.String("correlation_id", id),
						observability.String("method", r.Method),
						observability.String("path", r.URL.Path),
						observability.Any("error", rec),
						observability.Duration("duration", time.Since(start)),
					)
					panic(rec)
				}
			}()

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			fields := []observability.Field{
				observability.String("correlation_id", id),
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.Int("status", rw.status),
				observability.Int("size", rw.size),
				observability.Duration("duration", duration),
			}
			if route := util.RouteFromContext(r.Context()); route != "" {
				fields = append(fields, observability.String("route", route))
			}

			switch {
			case rw.status >= http.StatusInternalServerError:
				logger.Error("outgoing response", fields...)
			case rw.status >= http.StatusBadRequest:
				logger.Warn("outgoing response", fields...)
			default:
				logger.Info("outgoing response", fields...)
			}

			if duration > cfg.slowThreshold {
				logger.Warn("slow request detected",
					observability.String("correlation_id", id),
					observability.String("method", r.Method),
					observability.String("path", r.URL.Path),
					observability.Int64("duration_ms", duration.Milliseconds()),
				)
			}
		})
	}
}

func remoteIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncateUserAgent(ua string) string {
	if ua == "" {
		return "-"
	}
	if len(ua) <= maxUserAgentLength {
		return ua
	}
	return ua[:maxUserAgentLength] + "..."
}

// loggableHeaders returns the headers that are safe to log.
func loggableHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitiveHeader(name) {
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func isSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveHeaderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
