package auth

import (
	"context"

	"scriptmentor/internal/domain/models"
)

// JWTVerifier validates Supabase access tokens.
type JWTVerifier interface {
	// VerifyToken returns the claims of a valid token, or domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}

// UserFetcher resolves an access token to the signed-in user.
type UserFetcher interface {
	GetUser(ctx context.Context, accessToken string) (*User, error)
}
