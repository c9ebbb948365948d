// Package router matches request paths against the static route table.
//
// Routes are compiled once at startup and never change afterwards, so
// matching needs no locking. The most specific prefix wins: routes are
// ordered by prefix length, longest first, and the first route whose
// prefix matches at a path segment boundary is returned.
package router
