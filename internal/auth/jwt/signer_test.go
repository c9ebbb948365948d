package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner(t *testing.T) {
	t.Parallel()

	_, err := NewSigner(nil, AlgHS256)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewSigner(testKey, "ES256")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestSigner_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{AlgHS256, AlgHS384, AlgHS512} {
		t.Run(alg, func(t *testing.T) {
			t.Parallel()

			s, err := NewSigner(testKey, alg)
			require.NoError(t, err)
			token, err := s.Sign(Claims{Subject: "user-1", Role: "USER"}, time.Hour)
			require.NoError(t, err)

			v, err := NewValidator(testKey, []string{alg})
			require.NoError(t, err)
			claims, err := v.Validate(token)
			require.NoError(t, err)

			assert.Equal(t, "user-1", claims.Subject)
			assert.Equal(t, "USER", claims.Role)
			assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 2*time.Second)
			assert.False(t, claims.IssuedAt.IsZero())
		})
	}
}

func TestSigner_ExplicitExpiry(t *testing.T) {
	t.Parallel()

	s, err := NewSigner(testKey, AlgHS256)
	require.NoError(t, err)

	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	token, err := s.Sign(Claims{Subject: "a", ExpiresAt: exp}, time.Hour)
	require.NoError(t, err)

	v, err := NewValidator(testKey, nil)
	require.NoError(t, err)
	claims, err := v.Validate(token)
	require.NoError(t, err)
	assert.True(t, exp.Equal(claims.ExpiresAt))
}
