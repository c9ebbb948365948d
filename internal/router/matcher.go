package router

import "strings"

// PrefixMatcher matches path prefixes at segment boundaries.
type PrefixMatcher struct {
	prefix string
}

// NewPrefixMatcher creates a new prefix path matcher.
func NewPrefixMatcher(prefix string) *PrefixMatcher {
	return &PrefixMatcher{prefix: prefix}
}

// Match reports whether path starts with the prefix. "/api/users" matches
// "/api/users" and "/api/users/42" but not "/api/usersx".
func (m *PrefixMatcher) Match(path string) bool {
	if !strings.HasPrefix(path, m.prefix) {
		return false
	}
	if len(path) == len(m.prefix) {
		return true
	}
	return strings.HasSuffix(m.prefix, "/") || path[len(m.prefix)] == '/'
}

// Pattern returns the prefix.
func (m *PrefixMatcher) Pattern() string {
	return m.prefix
}
