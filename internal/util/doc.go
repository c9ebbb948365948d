// Package util provides shared helpers for the gateway.
//
// # Error Conventions
//
//   - Sentinel errors (errors.New) for stable conditions that callers
//     check with errors.Is. Example: ErrRouteNotFound.
//   - Structured error types for errors that carry extra fields
//     (ConfigError, BackendError). Each type implements Error(),
//     Unwrap() when it wraps, and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping.
//
// # Context Helpers
//
//	ctx = util.ContextWithStartTime(ctx, time.Now())
//	ctx, holder := util.ContextWithRouteHolder(ctx)
//	util.SetRoute(ctx, "user-service") // holder.Name == "user-service"
package util
