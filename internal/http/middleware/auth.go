package middleware

import (
	"context"
	"net/http"
	"strings"

	"clinic-federation-service/internal/http/response"
	"clinic-federation-service/internal/security"
)

type contextKey string

const userIDContextKey contextKey = "auth_user_id"

// SessionValidator checks a session credential and returns the owning user.
type SessionValidator interface {
	Validate(ctx context.Context, credential string) (uint, error)
}

// SessionAuth extracts the session credential from the Authorization header
// or the session cookie and rejects the request unless it validates against
// a live server-side session.
func SessionAuth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := CredentialFromRequest(r)
			if credential == "" {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session credential", nil)
				return
			}
			userID, err := validator.Validate(r.Context(), credential)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session", nil)
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CredentialFromRequest prefers the bearer token, then the session cookie.
func CredentialFromRequest(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len("bearer ") && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return security.GetCookie(r, security.SessionCookieName)
}

func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDContextKey).(uint)
	return id, ok
}
