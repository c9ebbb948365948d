package jwt

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Signer mints HMAC-signed tokens.
type Signer struct {
	key []byte
	alg jwa.SignatureAlgorithm
	now func() time.Time
}

// NewSigner creates a signer for the given HMAC algorithm.
func NewSigner(key []byte, alg string) (*Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	sa, err := hmacAlgorithm(alg)
	if err != nil {
		return nil, err
	}
	return &Signer{key: append([]byte(nil), key...), alg: sa, now: time.Now}, nil
}

// Sign returns a compact token for claims. A positive ttl sets exp
// relative to now; an explicit claims.ExpiresAt takes precedence.
func (s *Signer) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := s.now()

	b := jwt.NewBuilder().
		Subject(claims.Subject).
		IssuedAt(now)

	switch {
	case !claims.ExpiresAt.IsZero():
		b = b.Expiration(claims.ExpiresAt)
	case ttl > 0:
		b = b.Expiration(now.Add(ttl))
	}
	if claims.Role != "" {
		b = b.Claim(RoleClaim, claims.Role)
	}

	tok, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(s.alg, s.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}
