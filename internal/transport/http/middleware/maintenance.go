package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// MaintenanceKey returns middleware that gates maintenance endpoints
// behind a static bearer key. The comparison is constant-time; key is
// assumed non-empty (the route is not mounted otherwise).
func MaintenanceKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			provided := strings.TrimPrefix(authHeader, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "invalid maintenance key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
