package middleware

import (
	"net/http"
	"strings"

	"github.com/vyrodovalexey/apigw/internal/auth/jwt"
	"github.com/vyrodovalexey/apigw/internal/observability"
	"github.com/vyrodovalexey/apigw/internal/util"
)

// Auth failure reasons that do not come from token validation.
const (
	reasonMissingHeader = "missing_header"
	reasonInvalidScheme = "invalid_scheme"
)

// AuthOption configures the Auth middleware.
type AuthOption func(*authStage)

type authStage struct {
	validator   *jwt.Validator
	exemptPaths []string
	logger      observability.Logger
	metrics     *observability.Metrics
}

// WithAuthLogger sets the logger.
func WithAuthLogger(logger observability.Logger) AuthOption {
	return func(s *authStage) {
		s.logger = logger
	}
}

// WithAuthMetrics sets the metrics.
func WithAuthMetrics(metrics *observability.Metrics) AuthOption {
	return func(s *authStage) {
		s.metrics = metrics
	}
}

// Auth returns the bearer token stage. Paths starting with one of
// exemptPaths pass without a credential. Otherwise the token must verify
// against validator; its subject and role are then forwarded as
// X-User-Id and X-User-Role. Identity headers sent by the caller are
// always removed.
func Auth(validator *jwt.Validator, exemptPaths []string, opts ...AuthOption) func(http.Handler) http.Handler {
	s := &authStage{
		validator:   validator,
		exemptPaths: append([]string(nil), exemptPaths...),
		logger:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fwd := forwardedCopy(r.Context(), r)
			fwd.Header.Del(HeaderUserID)
			fwd.Header.Del(HeaderUserRole)

			if s.isExempt(r.URL.Path) {
				next.ServeHTTP(w, fwd)
				return
			}

			header := r.Header.Get(HeaderAuthorization)
			if header == "" {
				s.reject(w, r, msgMissingAuthorization, reasonMissingHeader)
				return
			}
			if !strings.HasPrefix(header, bearerPrefix) {
				s.reject(w, r, msgInvalidAuthFormat, reasonInvalidScheme)
				return
			}

			claims, err := s.validator.Validate(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				s.reject(w, r, msgInvalidToken, jwt.Reason(err))
				return
			}

			fwd.Header.Set(HeaderUserID, claims.Subject)
			if claims.Role != "" {
				fwd.Header.Set(HeaderUserRole, claims.Role)
			}
			fwd.Header.Set(HeaderCorrelationID, requestCorrelationID(r))

			next.ServeHTTP(w, fwd)
		})
	}
}

func (s *authStage) isExempt(path string) bool {
	for _, prefix := range s.exemptPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (s *authStage) reject(w http.ResponseWriter, r *http.Request, message, reason string) {
	s.metrics.RecordAuthFailure(reason)
	s.logger.WithContext(r.Context()).Warn("authentication failed",
		observability.String("path", r.URL.Path),
		observability.String("reason", reason),
		observability.String("message", message),
	)
	util.WriteError(w, http.StatusUnauthorized, message)
}
