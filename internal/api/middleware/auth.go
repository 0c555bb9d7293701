// internal/api/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/industryrunners/pulse/internal/api/response"
	"github.com/industryrunners/pulse/internal/core"
)

// APIKeyAuth returns middleware that validates the X-API-Key header
// against the configured keys. With no keys configured, authentication
// is disabled.
func APIKeyAuth(apiKeys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(apiKeys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				response.Error(w, http.StatusUnauthorized, core.ErrUnauthorized)
				return
			}

			// Constant-time comparison to prevent timing attacks
			for _, key := range apiKeys {
				if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, http.StatusUnauthorized, core.ErrUnauthorized)
		})
	}
}
