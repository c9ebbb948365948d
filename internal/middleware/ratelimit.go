package middleware

import (
	"net/http"

	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/ratelimit"
	"github.com/vyrodovalexey/apigw/internal/util"
)

// limiterGlobal labels decisions of the shared fixed-window limiter.
const limiterGlobal = "global"

// RateLimitOption configures the RateLimit middleware.
type RateLimitOption func(*rateLimitStage)

type rateLimitStage struct {
	logger  observability.Logger
	metrics *observability.Metrics
}

// WithRateLimitLogger sets the logger.
func WithRateLimitLogger(logger observability.Logger) RateLimitOption {
	return func(s *rateLimitStage) {
		s.logger = logger
	}
}

// WithRateLimitMetrics sets the metrics.
func WithRateLimitMetrics(metrics *observability.Metrics) RateLimitOption {
	return func(s *rateLimitStage) {
		s.metrics = metrics
	}
}

// RateLimit returns the shared fixed-window rate limiting stage. A nil
// limiter disables the stage. When the counter store fails the request
// is let through and the failure is logged.
func RateLimit(limiter *ratelimit.FixedWindowLimiter, opts ...RateLimitOption) func(http.Handler) http.Handler {
	s := &rateLimitStage{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}

	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ratelimit.ClientIdentity(r)
			ctx := util.ContextWithClientIP(r.Context(), client)
			r = r.WithContext(ctx)

			res, err := limiter.Allow(ctx, client)
			if err != nil {
				s.metrics.RecordRateLimit(limiterGlobal, observability.RateLimitError)
				s.logger.WithContext(ctx).Error("rate limiter unavailable, allowing request",
					observability.String("client", client),
					observability.String("path", r.URL.Path),
					observability.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			ratelimit.SetHeaders(w.Header(), res.Limit, res.Remaining, res.ResetSeconds())

			if !res.Allowed {
				s.metrics.RecordRateLimit(limiterGlobal, observability.RateLimitRejected)
				s.logger.WithContext(ctx).Warn("rate limit exceeded",
					observability.String("client", client),
					observability.String("path", r.URL.Path),
					observability.Int64("count", res.Count),
					observability.Int64("limit", res.Limit),
				)
				ratelimit.WriteRejection(w, res.Limit, res.ResetSeconds())
				return
			}

			s.metrics.RecordRateLimit(limiterGlobal, observability.RateLimitAllowed)
			next.ServeHTTP(w, r)
		})
	}
}
