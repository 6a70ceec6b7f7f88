package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/session"
)

// SessionHandler exposes the service's backend session to signed-in staff
type SessionHandler struct {
	session *session.Provider
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(provider *session.Provider) *SessionHandler {
	return &SessionHandler{session: provider}
}

// GetSession handles GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	caller, _ := session.IdentityFromContext(r.Context())
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": h.session.Authenticated(),
		"user":          h.session.Identity(),
		"caller":        caller,
	})
}

// Logout handles POST /api/session/logout. Backend calls made afterwards
// go out without a bearer token.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	event := log.Warn()
	if caller, ok := session.IdentityFromContext(r.Context()); ok {
		event = event.Str("caller_id", caller.UserID).Str("caller_role", caller.Role)
	}
	event.Msg("Backend session signed out")

	h.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}
