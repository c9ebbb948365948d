// Package proxy forwards matched requests to backend services.
//
// Each route owns a circuit breaker and an optional retry policy. The
// breaker sees one outcome per client request: the whole retry loop is a
// single attempt from its point of view. When the breaker is open, or the
// retries run out, the request is answered by the route's fallback target
// instead of the raw failure.
package proxy
