package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AdminClient provides access to the Supabase Admin API. It is used for
// seeding users, not for the regular authentication flow.
type AdminClient struct {
	supabaseURL string
	serviceKey  string
	httpClient  *http.Client
}

// NewAdminClient creates a new Supabase Admin API client.
// Requires the service role key (SUPABASE_KEY).
func NewAdminClient(supabaseURL, serviceKey string) *AdminClient {
	return &AdminClient{
		supabaseURL: strings.TrimRight(supabaseURL, "/"),
		serviceKey:  serviceKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type createUserRequest struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	EmailConfirm bool           `json:"email_confirm"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

type listUsersResponse struct {
	Users []User `json:"users"`
}

// CreateUser creates a confirmed user and returns its id.
func (c *AdminClient) CreateUser(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(createUserRequest{Email: email, Password: password, EmailConfirm: true})
	if err != nil {
		return "", fmt.Errorf("failed to marshal create request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", payload)
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create user failed with status %d: %s", resp.StatusCode, string(body))
	}

	var created User
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	return created.ID, nil
}

// FindUserIDByEmail returns the id of the user with the given email, or ""
// when there is none.
func (c *AdminClient) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users", nil)
	if err != nil {
		return "", fmt.Errorf("failed to list users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("list users failed with status %d: %s", resp.StatusCode, string(body))
	}

	var list listUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("failed to decode list response: %w", err)
	}
	for _, u := range list.Users {
		if strings.EqualFold(u.Email, email) {
			return u.ID, nil
		}
	}
	return "", nil
}

// EnsureUser returns the id of the user with email, creating it if needed.
func (c *AdminClient) EnsureUser(ctx context.Context, email, password string) (string, error) {
	id, err := c.FindUserIDByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return c.CreateUser(ctx, email, password)
}

func (c *AdminClient) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.supabaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}
