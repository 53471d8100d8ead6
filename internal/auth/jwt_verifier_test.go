package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier(JWTConfig{})
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestIssueAndVerifyToken(t *testing.T) {
	current := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	verifier, err := NewJWTVerifier(JWTConfig{
		Secret:   "super-secret",
		Issuer:   "https://project.supabase.co/auth/v1",
		Audience: "authenticated",
		Clock:    func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := verifier.IssueToken("user-123", "alice@example.com")
	require.NoError(t, err)

	identity, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, &Identity{UserID: "user-123", Email: "alice@example.com"}, identity)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTVerifier(JWTConfig{Secret: "issuer-secret", Clock: now})
	require.NoError(t, err)
	token, err := issuer.IssueToken("user-123", "")
	require.NoError(t, err)

	verifier, err := NewJWTVerifier(JWTConfig{Secret: "other-secret", Clock: now})
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	current := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	verifier, err := NewJWTVerifier(JWTConfig{Secret: "secret", TokenTTL: time.Minute, Clock: clock})
	require.NoError(t, err)
	token, err := verifier.IssueToken("user-123", "")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestVerifyChecksIssuerAndAudience(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }

	other, err := NewJWTVerifier(JWTConfig{Secret: "secret", Issuer: "elsewhere", Audience: "anon", Clock: now})
	require.NoError(t, err)
	token, err := other.IssueToken("user-123", "")
	require.NoError(t, err)

	strict, err := NewJWTVerifier(JWTConfig{Secret: "secret", Issuer: "lifeloop", Clock: now})
	require.NoError(t, err)
	_, err = strict.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)

	audience, err := NewJWTVerifier(JWTConfig{Secret: "secret", Audience: "authenticated", Clock: now})
	require.NoError(t, err)
	_, err = audience.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingSubjectAndAlgorithm(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	verifier, err := NewJWTVerifier(JWTConfig{Secret: "secret", Clock: func() time.Time { return now }})
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = verifier.Verify(context.Background(), noSubject)
	require.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = verifier.Verify(context.Background(), hs512)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}
