package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer("test-secret", "task-tracker-test", time.Hour)
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "task-tracker-test", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenIssuer_UniqueTokenIDs(t *testing.T) {
	issuer := newTestIssuer()

	first, err := issuer.Issue("user-123")
	require.NoError(t, err)
	second, err := issuer.Issue("user-123")
	require.NoError(t, err)

	c1, err := issuer.Verify(first)
	require.NoError(t, err)
	c2, err := issuer.Verify(second)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestTokenIssuer_IssueRequiresUser(t *testing.T) {
	_, err := newTestIssuer().Issue("")
	assert.Error(t, err)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := newTestIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := newTestIssuer()
	valid, err := issuer.Issue("user-123")
	require.NoError(t, err)

	otherSecret, err := NewTokenIssuer("other-secret", "task-tracker-test", time.Hour).Issue("user-123")
	require.NoError(t, err)

	otherIssuer, err := NewTokenIssuer("test-secret", "someone-else", time.Hour).Issue("user-123")
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-123",
		Issuer:    "task-tracker-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"tampered":     tampered,
		"alg none":     unsigned,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRedisRevocationStore_DisabledWithoutRedis(t *testing.T) {
	store := NewRedisRevocationStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "token-id", time.Minute))
	revoked, err := store.IsRevoked(ctx, "token-id")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRemainingTTL(t *testing.T) {
	now := time.Now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(30 * time.Minute))}}

	assert.InDelta(t, (30 * time.Minute).Seconds(), RemainingTTL(claims, now).Seconds(), 1)
	assert.Equal(t, time.Duration(0), RemainingTTL(nil, now))
}
