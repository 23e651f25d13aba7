package middleware

import (
	"net/http"
)

const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization, X-Request-ID"
)

// matchOrigin reports how an origin is allowed: listed explicitly, or only
// through a "*" entry
func matchOrigin(origin string, allowedOrigins []string) (explicit, wildcard bool) {
	for _, allowed := range allowedOrigins {
		if allowed == origin {
			return true, false
		}
		if allowed == "*" {
			wildcard = true
		}
	}
	return false, wildcard
}

// CORSMiddleware adds CORS headers for the configured origins. Explicitly
// listed origins are echoed back with credentials allowed; a "*" entry
// opens the API to any origin without credentials.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				explicit, wildcard := matchOrigin(origin, allowedOrigins)
				switch {
				case explicit:
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Add("Vary", "Origin")
				case wildcard:
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)

			// Handle preflight requests
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
