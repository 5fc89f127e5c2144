package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/iso-assessment/internal/config"
	"github.com/terra-clan/iso-assessment/internal/models"
)

var testSecret = strings.Repeat("s", 32)

func newTestProvider(t *testing.T, allowAnonymous bool) *JWTProvider {
	t.Helper()
	p, ok := NewProvider(config.IdentityConfig{
		Secret:         testSecret,
		Issuer:         "test",
		TokenTTL:       time.Hour,
		AllowAnonymous: allowAnonymous,
	}).(*JWTProvider)
	require.True(t, ok)
	p.newID = func() string { return "anon-123" }
	return p
}

func TestNewProvider_LocalWithoutSecret(t *testing.T) {
	p := NewProvider(config.IdentityConfig{})
	assert.False(t, p.Enabled())

	identity, err := p.SignIn(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, models.LocalUserID, identity.UserID)
	assert.False(t, identity.CanPersist())

	_, err = p.Issue(identity)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestJWTProvider_AnonymousSignIn(t *testing.T) {
	p := newTestProvider(t, true)

	identity, err := p.SignIn(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "anon-123", identity.UserID)
	assert.Equal(t, models.ModeAnonymous, identity.Mode)
}

func TestJWTProvider_IssueVerifyRoundTrip(t *testing.T) {
	p := newTestProvider(t, true)

	token, err := p.Issue(&models.Identity{UserID: "user-42", Mode: models.ModeAnonymous})
	require.NoError(t, err)

	identity, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", identity.UserID)
	assert.Equal(t, models.ModeAnonymous, identity.Mode)
	require.NotNil(t, identity.ExpiresAt)
}

func TestJWTProvider_TokenSignIn(t *testing.T) {
	p := newTestProvider(t, true)

	token, err := p.Issue(&models.Identity{UserID: "user-7"})
	require.NoError(t, err)

	identity, err := p.SignIn(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", identity.UserID)
	assert.Equal(t, models.ModeToken, identity.Mode)
}

func TestJWTProvider_InvalidTokenFallsBackToAnonymous(t *testing.T) {
	p := newTestProvider(t, true)

	identity, err := p.SignIn(context.Background(), "not-a-jwt")
	require.NoError(t, err)
	assert.Equal(t, models.ModeAnonymous, identity.Mode)
}

func TestJWTProvider_InvalidTokenRejectedWithoutAnonymous(t *testing.T) {
	p := newTestProvider(t, false)

	_, err := p.SignIn(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.SignIn(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTProvider_Verify(t *testing.T) {
	p := newTestProvider(t, true)
	token, err := p.Issue(&models.Identity{UserID: "user-1"})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newTestProvider(t, true)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Verify(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := newTestProvider(t, true)
		other.secret = []byte(strings.Repeat("x", 32))
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := newTestProvider(t, true)
		other.issuer = "someone-else"
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := p.Verify(token + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTProvider_IssueRejectsEmptyIdentity(t *testing.T) {
	p := newTestProvider(t, true)
	_, err := p.Issue(&models.Identity{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
