package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/terra-clan/iso-assessment/internal/identity"
)

// AuthMiddleware resolves the caller identity from an access token
type AuthMiddleware struct {
	provider identity.Provider
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(provider identity.Provider) *AuthMiddleware {
	return &AuthMiddleware{provider: provider}
}

// Authenticate verifies the access token from the Authorization header.
// Supports "Bearer <token>" or the access_token query parameter, which
// browsers need for websocket upgrades. Without an identity provider every
// request runs as the local user.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.provider.Enabled() {
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity.Local())))
			return
		}

		token := extractToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing_token", "provide Authorization header with Bearer token")
			return
		}

		id, err := m.provider.Verify(token)
		if err != nil {
			if errors.Is(err, identity.ErrExpiredToken) {
				respondError(w, http.StatusUnauthorized, "token_expired", "access token has expired, sign in again")
				return
			}
			slog.Warn("invalid access token", "error", err, "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_token", "the provided access token is not valid")
			return
		}

		slog.Debug("authenticated request", "user_id", id.MaskedUserID(), "mode", id.Mode)

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
	})
}

// extractToken extracts the access token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}
		return strings.TrimSpace(authHeader)
	}

	return r.URL.Query().Get("access_token")
}
