package util

import (
	"context"
	"time"
)

// Context keys.
type ctxKey string

const (
	ctxKeyStartTime ctxKey = "start_time"
	ctxKeyRoute     ctxKey = "route"
	ctxKeyClientIP  ctxKey = "client_ip"
)

// ContextWithStartTime adds a start time to the context.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext extracts the start time from context.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyStartTime).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// RouteHolder is a mutable slot placed in the request context by an outer
// stage so that the router can report the matched route name back to it.
type RouteHolder struct {
	Name string
}

// ContextWithRouteHolder adds an empty route holder to the context.
func ContextWithRouteHolder(ctx context.Context) (context.Context, *RouteHolder) {
	h := &RouteHolder{}
	return context.WithValue(ctx, ctxKeyRoute, h), h
}

// SetRoute records the matched route name if a holder is present.
func SetRoute(ctx context.Context, route string) {
	if h, ok := ctx.Value(ctxKeyRoute).(*RouteHolder); ok {
		h.Name = route
	}
}

// RouteFromContext extracts the route name from context.
func RouteFromContext(ctx context.Context) string {
	if h, ok := ctx.Value(ctxKeyRoute).(*RouteHolder); ok {
		return h.Name
	}
	return ""
}

// ContextWithClientIP adds the resolved client identity to the context.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// ClientIPFromContext extracts the resolved client identity from context.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}

// ElapsedTime returns the elapsed time since the start time in context.
func ElapsedTime(ctx context.Context) time.Duration {
	startTime := StartTimeFromContext(ctx)
	if startTime.IsZero() {
		return 0
	}
	return time.Since(startTime)
}
