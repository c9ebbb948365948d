package middleware

// HTTP header constants.
const (
	// HeaderCorrelationID carries the request correlation id.
	HeaderCorrelationID = "X-Correlation-Id"

	// HeaderUserID carries the authenticated subject to backends.
	HeaderUserID = "X-User-Id"

	// HeaderUserRole carries the authenticated role to backends.
	HeaderUserRole = "X-User-Role"

	// HeaderAuthorization is the Authorization header name.
	HeaderAuthorization = "Authorization"

	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"
)

// bearerPrefix is the Authorization scheme the gateway accepts.
const bearerPrefix = "Bearer "

// Client-facing error messages.
const (
	msgMissingAuthorization = "Missing authorization header"
	msgInvalidAuthFormat    = "Invalid authorization header format"
	msgInvalidToken         = "Invalid or expired token"
	msgInternalError        = "An unexpected error occurred"
)
