package jwt

import "time"

// RoleClaim is the private claim carrying the caller's role.
const RoleClaim = "role"

// Claims are the identity claims the gateway forwards to backends.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the token carried a role claim.
func (c *Claims) HasRole() bool {
	return c.Role != ""
}
