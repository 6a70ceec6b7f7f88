package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/application/services"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
)

// LiveResponse is the latest polled state of one scope
type LiveResponse struct {
	Scope     string                       `json:"scope"`
	FetchedAt time.Time                    `json:"fetched_at"`
	Board     *entities.QueueBoard         `json:"board,omitempty"`
	Dashboard *entities.ReceptionDashboard `json:"dashboard,omitempty"`
	Stale     bool                         `json:"stale"`
	LastError string                       `json:"last_error,omitempty"`
}

// LiveHandler serves the boards kept current by the pollers
type LiveHandler struct {
	sources   map[string]services.SnapshotSource
	estimator *services.WaitTimeEstimator
	now       func() time.Time
}

// NewLiveHandler creates a live handler over the given scope sources
func NewLiveHandler(sources map[string]services.SnapshotSource, estimator *services.WaitTimeEstimator) *LiveHandler {
	return &LiveHandler{
		sources:   sources,
		estimator: estimator,
		now:       time.Now,
	}
}

// GetLive handles GET /api/queue/live?scope=today|reception
func (h *LiveHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = services.PollScopeToday
	}

	source, ok := h.sources[scope]
	if !ok {
		respondWithError(w, http.StatusBadRequest, "unknown scope: "+scope)
		return
	}

	state, err := source.Live(r.Context())
	if err != nil {
		log.Error().Err(err).Str("scope", scope).Msg("Failed to read live snapshot")
		respondWithError(w, http.StatusInternalServerError, "failed to read live snapshot")
		return
	}

	if state.Snapshot == nil {
		payload := map[string]string{"error": services.ErrNoSnapshot.Error()}
		if state.LastError != nil {
			payload["last_error"] = state.LastError.Error()
		}
		respondWithJSON(w, http.StatusServiceUnavailable, payload)
		return
	}

	respondWithJSON(w, http.StatusOK, h.buildResponse(scope, state))
}

func (h *LiveHandler) buildResponse(scope string, state services.LiveState) *LiveResponse {
	now := h.now()
	resp := &LiveResponse{
		Scope:     scope,
		FetchedAt: state.Snapshot.FetchedAt,
		Board:     h.estimator.RefreshBoard(state.Snapshot.Board, now),
		Dashboard: h.estimator.RefreshDashboard(state.Snapshot.Dashboard, now),
	}
	if state.LastError != nil {
		resp.Stale = true
		resp.LastError = state.LastError.Error()
	}
	return resp
}
