package httputil

import (
	"context"
	"net/http"
)

// Unexported key type so nothing outside this package can collide with it.
type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a shallow copy of the request whose context carries the
// authenticated principal. The auth middleware calls this after verifying the
// bearer token; handlers never set it themselves.
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID reports the authenticated principal stored on the request, or ""
// for requests that never passed through the auth middleware.
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
