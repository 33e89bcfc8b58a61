package middleware

import (
	"net/http"
	"slices"
	"strings"
)

const corsAllowedMethods = "GET, POST"

// CORS answers browsers from allow-listed origins. "*" allows any origin but
// never with credentials. Preflight requests are answered directly.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	allowAll := slices.Contains(m.allowedOrigins, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Origin")

		allowed := allowAll || slices.ContainsFunc(m.allowedOrigins, func(o string) bool {
			return strings.TrimRight(strings.TrimSpace(o), "/") == strings.TrimRight(origin, "/")
		})
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			if !allowAll {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if !allowed {
				errorResponse(w, http.StatusForbidden, "origin not allowed")
				return
			}
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
