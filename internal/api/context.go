package api

import (
	"context"

	"github.com/terra-clan/iso-assessment/internal/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityFromContext extracts the caller identity from context
func IdentityFromContext(ctx context.Context) *models.Identity {
	id, ok := ctx.Value(identityContextKey).(*models.Identity)
	if !ok {
		return nil
	}
	return id
}

// ContextWithIdentity adds the caller identity to context
func ContextWithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}
