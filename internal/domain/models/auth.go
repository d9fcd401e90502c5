package models

import "github.com/golang-jwt/jwt/v5"

// SupabaseClaims is the subset of a Supabase access token the app reads.
type SupabaseClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	Role        string `json:"role"` // "authenticated" or "anon"
	SessionID   string `json:"session_id"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// GetUserID returns the subject claim, which owns scripts and token accounts.
func (c *SupabaseClaims) GetUserID() string {
	return c.Subject
}
