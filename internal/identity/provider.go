// Package identity hands out opaque user identities and the access tokens
// that carry them between requests.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/terra-clan/iso-assessment/internal/config"
	"github.com/terra-clan/iso-assessment/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrDisabled     = errors.New("identity provider disabled")
)

// Provider signs users in and verifies their access tokens
type Provider interface {
	// SignIn exchanges an optional sign-in token for an identity.
	// An empty token signs in anonymously.
	SignIn(ctx context.Context, token string) (*models.Identity, error)
	// Issue mints an access token for an identity
	Issue(identity *models.Identity) (string, error)
	// Verify parses an access token
	Verify(token string) (*models.Identity, error)
	// Enabled is false when every request runs in local mode
	Enabled() bool
}

// claims is the internal claims type used for JWT parsing
type claims struct {
	jwt.RegisteredClaims
	Mode models.IdentityMode `json:"mode"`
}

// JWTProvider implements Provider with HS256 tokens
type JWTProvider struct {
	secret         []byte
	issuer         string
	ttl            time.Duration
	allowAnonymous bool
	now            func() time.Time
	newID          func() string
}

// NewProvider returns a JWT provider, or a local-mode provider when no secret is configured
func NewProvider(cfg config.IdentityConfig) Provider {
	if !cfg.Enabled() {
		return LocalProvider{}
	}
	return &JWTProvider{
		secret:         []byte(cfg.Secret),
		issuer:         cfg.Issuer,
		ttl:            cfg.TokenTTL,
		allowAnonymous: cfg.AllowAnonymous,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

func (p *JWTProvider) Enabled() bool {
	return true
}

// SignIn verifies a token-based sign-in. A rejected token falls back to an
// anonymous identity when anonymous sign-in is allowed.
func (p *JWTProvider) SignIn(ctx context.Context, token string) (*models.Identity, error) {
	token = strings.TrimSpace(token)
	if token != "" {
		identity, err := p.Verify(token)
		if err == nil {
			identity.Mode = models.ModeToken
			return identity, nil
		}
		if !p.allowAnonymous {
			return nil, err
		}
		slog.Warn("token sign-in failed, falling back to anonymous", "error", err)
	}

	if !p.allowAnonymous {
		return nil, fmt.Errorf("%w: anonymous sign-in not allowed", ErrInvalidToken)
	}

	now := p.now().UTC()
	return &models.Identity{
		UserID:   p.newID(),
		Mode:     models.ModeAnonymous,
		IssuedAt: now,
	}, nil
}

// Issue mints an access token whose subject is the user id
func (p *JWTProvider) Issue(identity *models.Identity) (string, error) {
	if identity == nil || identity.UserID == "" {
		return "", fmt.Errorf("%w: empty identity", ErrInvalidToken)
	}

	now := p.now().UTC()
	expires := now.Add(p.ttl)
	identity.IssuedAt = now
	identity.ExpiresAt = &expires

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Mode: identity.Mode,
	})

	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature, issuer, expiry and subject of a token
func (p *JWTProvider) Verify(token string) (*models.Identity, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if strings.TrimSpace(parsed.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}

	identity := &models.Identity{
		UserID: parsed.Subject,
		Mode:   parsed.Mode,
	}
	if identity.Mode == "" {
		identity.Mode = models.ModeToken
	}
	if parsed.IssuedAt != nil {
		identity.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if parsed.ExpiresAt != nil {
		exp := parsed.ExpiresAt.Time.UTC()
		identity.ExpiresAt = &exp
	}
	return identity, nil
}

// mapJWTError translates jwt library errors to package errors
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}

// LocalProvider is used when no identity secret is configured.
// Every caller shares the local identity and nothing is persisted.
type LocalProvider struct{}

func (LocalProvider) Enabled() bool {
	return false
}

func (LocalProvider) SignIn(ctx context.Context, token string) (*models.Identity, error) {
	return Local(), nil
}

func (LocalProvider) Issue(identity *models.Identity) (string, error) {
	return "", ErrDisabled
}

func (LocalProvider) Verify(token string) (*models.Identity, error) {
	return Local(), nil
}

// Local returns the shared local-mode identity
func Local() *models.Identity {
	return &models.Identity{UserID: models.LocalUserID, Mode: models.ModeLocal}
}
