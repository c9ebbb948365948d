// Package middleware provides the policy stages of the gateway pipeline.
//
// Every stage has the signature func(http.Handler) http.Handler. The
// gateway package composes them in a fixed order: Recovery, Tracing,
// Logging, Correlation, RateLimit, Auth, then the proxy.
package middleware
