package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Validator verifies HMAC-signed tokens against a shared key.
// It is safe for concurrent use.
type Validator struct {
	key        []byte
	algorithms map[jwa.SignatureAlgorithm]struct{}
	clockSkew  time.Duration
	now        func() time.Time
}

// ValidatorOption is a functional option for the validator.
type ValidatorOption func(*Validator)

// WithClockSkew sets the tolerance applied to exp and nbf.
func WithClockSkew(skew time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.clockSkew = skew
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator creates a validator that accepts the given algorithms.
// With no algorithms it accepts HS256 only.
func NewValidator(key []byte, algorithms []string, opts ...ValidatorOption) (*Validator, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if len(algorithms) == 0 {
		algorithms = []string{AlgHS256}
	}

	v := &Validator{
		key:        append([]byte(nil), key...),
		algorithms: make(map[jwa.SignatureAlgorithm]struct{}, len(algorithms)),
		now:        time.Now,
	}
	for _, alg := range algorithms {
		sa, err := hmacAlgorithm(alg)
		if err != nil {
			return nil, err
		}
		v.algorithms[sa] = struct{}{}
	}

	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate verifies token and returns its identity claims. Every failure
// is a *ValidationError wrapping one of the package sentinels.
func (v *Validator) Validate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, NewValidationError("empty token", ErrEmptyToken)
	}

	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, NewValidationError("failed to parse token", ErrTokenMalformed)
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return nil, NewValidationError("expected exactly one signature", ErrTokenMalformed)
	}

	alg := sigs[0].ProtectedHeaders().Algorithm()
	if _, ok := v.algorithms[alg]; !ok {
		return nil, NewValidationError(fmt.Sprintf("algorithm %q not accepted", alg), ErrUnsupportedAlgorithm)
	}

	if _, err := jws.Verify([]byte(token), jws.WithKey(alg, v.key)); err != nil {
		return nil, NewValidationError("signature verification failed", ErrTokenInvalidSignature)
	}

	tok, err := jwt.Parse([]byte(token),
		jwt.WithVerify(false),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.clockSkew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	return extractClaims(tok)
}

func classifyParseError(err error) *ValidationError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired()):
		return NewValidationError("token expired", ErrTokenExpired)
	case errors.Is(err, jwt.ErrTokenNotYetValid()):
		return NewValidationError("token not yet valid", ErrTokenNotYetValid)
	case jwt.IsValidationError(err):
		return NewValidationError(err.Error(), ErrTokenInvalidClaim)
	default:
		return NewValidationError("failed to decode claims", ErrTokenMalformed)
	}
}

func extractClaims(tok jwt.Token) (*Claims, error) {
	claims := &Claims{
		Subject:   tok.Subject(),
		ExpiresAt: tok.Expiration(),
		IssuedAt:  tok.IssuedAt(),
	}
	if claims.Subject == "" {
		return nil, NewValidationError("sub", ErrTokenMissingClaim)
	}

	if raw, ok := tok.Get(RoleClaim); ok {
		role, isString := raw.(string)
		if !isString {
			return nil, NewValidationError(fmt.Sprintf("%s must be a string", RoleClaim), ErrTokenInvalidClaim)
		}
		claims.Role = role
	}

	return claims, nil
}

func hmacAlgorithm(alg string) (jwa.SignatureAlgorithm, error) {
	switch strings.ToUpper(alg) {
	case AlgHS256:
		return jwa.HS256, nil
	case AlgHS384:
		return jwa.HS384, nil
	case AlgHS512:
		return jwa.HS512, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
}
