package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowedMethods = "GET, POST, DELETE, OPTIONS"
	// Last-Event-ID and Cache-Control are sent by EventSource reconnects
	corsAllowedHeaders = "Content-Type, Authorization, Last-Event-ID, Cache-Control"
)

// CORSMiddleware returns a middleware that admits the given origins. An
// empty list or a "*" entry admits any origin.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	wildcard := len(origins) == 0
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			wildcard = true
		default:
			allowed[origin] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				switch {
				case wildcard:
					w.Header().Set("Access-Control-Allow-Origin", "*")
				case allowed[origin]:
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
