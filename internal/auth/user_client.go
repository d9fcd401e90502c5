package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scriptmentor/internal/domain"
)

// User is the subset of the Supabase user object the app needs.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserClient calls the Supabase /auth/v1/user endpoint with a user's access
// token. It is used where no verified JWT is available in the request, such
// as the operator CLI.
type UserClient struct {
	supabaseURL string
	apiKey      string
	httpClient  *http.Client
}

// NewUserClient creates a client for the given project. apiKey is the anon
// or service key sent as the apikey header.
func NewUserClient(supabaseURL, apiKey string) *UserClient {
	return &UserClient{
		supabaseURL: strings.TrimRight(supabaseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// GetUser returns the user owning accessToken. An empty, expired or revoked
// token is an UnauthorizedError; an unreachable or failing endpoint is a
// ConnectivityError.
func (c *UserClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, &domain.UnauthorizedError{Message: "no active session"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.supabaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ConnectivityError{Op: "fetch user", Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &domain.UnauthorizedError{Message: "session expired, sign in again"}
	case resp.StatusCode >= 500:
		return nil, &domain.ConnectivityError{Op: "fetch user", Cause: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch user failed with status %d: %s", resp.StatusCode, string(body))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	if user.ID == "" {
		return nil, &domain.UnauthorizedError{Message: "session has no user"}
	}
	return &user, nil
}
