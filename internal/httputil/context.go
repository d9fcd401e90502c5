package httputil

import (
	"net/http"

	"scriptmentor/internal/service/auth"
)

// WithUserID adds the verified user id to the request context
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

// GetUserID retrieves the user id from the request, or "" when absent
func GetUserID(r *http.Request) string {
	return auth.UserIDFromContext(r.Context())
}
