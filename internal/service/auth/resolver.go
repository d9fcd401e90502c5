// Package auth resolves the current user's identity for the services that
// scope data by owner.
package auth

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	authclient "scriptmentor/internal/auth"
	"scriptmentor/internal/domain"
)

// Resolver returns the id of the signed-in user.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

type contextKey struct{}

// WithUserID returns a context carrying a verified user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserIDFromContext returns the user id set by WithUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// ContextResolver reads the user id placed in the request context by the
// JWT middleware.
type ContextResolver struct{}

// Resolve returns an UnauthorizedError when no user is present.
func (ContextResolver) Resolve(ctx context.Context) (string, error) {
	if id := UserIDFromContext(ctx); id != "" {
		return id, nil
	}
	return "", &domain.UnauthorizedError{Message: "not signed in"}
}

// SessionResolver resolves an access token through the auth provider once
// and caches the result until SignOut. Concurrent first lookups share one
// request.
type SessionResolver struct {
	users  authclient.UserFetcher
	logger *slog.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	token  string
	userID string
}

// NewSessionResolver creates a resolver for the session's access token.
func NewSessionResolver(users authclient.UserFetcher, accessToken string, logger *slog.Logger) *SessionResolver {
	return &SessionResolver{users: users, token: accessToken, logger: logger}
}

// Resolve returns the cached user id, fetching it on first use.
// Authentication and connectivity failures are not cached.
func (r *SessionResolver) Resolve(ctx context.Context) (string, error) {
	r.mu.RLock()
	id, token := r.userID, r.token
	r.mu.RUnlock()
	if id != "" {
		return id, nil
	}
	if token == "" {
		return "", &domain.UnauthorizedError{Message: "not signed in"}
	}

	v, err, shared := r.group.Do(token, func() (any, error) {
		user, err := r.users.GetUser(ctx, token)
		if err != nil {
			return "", err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		// a SignOut during the lookup wins
		if r.token == token {
			r.userID = user.ID
		}
		return user.ID, nil
	})
	if err != nil {
		r.logger.Warn("identity lookup failed", "error", err)
		return "", err
	}
	if !shared {
		r.logger.Debug("identity resolved", "user_id", v)
	}
	return v.(string), nil
}

// SignOut forgets the cached identity and the access token.
func (r *SessionResolver) SignOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = ""
	r.userID = ""
}
