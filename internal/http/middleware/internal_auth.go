package middleware

import (
	"crypto/subtle"
	"net/http"

	"clinic-federation-service/internal/http/response"
)

// InternalSecretHeader carries the shared secret that identifies trusted
// internal callers, such as the IdP callback finalizer.
const InternalSecretHeader = "X-Internal-Secret"

// InternalAuth admits only requests presenting the configured shared secret.
// A blank configured secret locks the route entirely.
func InternalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(InternalSecretHeader)
			if secret == "" || presented == "" ||
				subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "internal credential required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
