package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/session"
)

// Authenticator identifies the caller of a request
type Authenticator interface {
	Authenticate(r *http.Request) (*session.Identity, error)
}

// RequireRole rejects requests whose caller cannot be authenticated, or does
// not hold one of roles. With no roles any authenticated caller passes. A nil
// authenticator rejects everything. The caller's identity is stored in the
// request context.
func RequireRole(auth Authenticator, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			identity, err := auth.Authenticate(r)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Request authentication failed")
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if len(roles) > 0 && !identity.HasRole(roles...) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), identity)))
		})
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}` + "\n"))
}
