package handlers

import (
	"net/http"

	"github.com/zatekoja/Receptionqueue/backend/internal/application/services"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
)

// QueueHandler serves the on-demand queue endpoints
type QueueHandler struct {
	service *services.QueueService
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(service *services.QueueService) *QueueHandler {
	return &QueueHandler{service: service}
}

// GetTodayBoard handles GET /api/queue/today?date=YYYY-MM-DD
func (h *QueueHandler) GetTodayBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.TodayBoard(r.Context(), h.dateParam(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, board)
}

// GetPatientsBoard handles GET /api/queue/patients?date=YYYY-MM-DD
func (h *QueueHandler) GetPatientsBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.PatientsBoard(r.Context(), h.dateParam(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, board)
}

// GetWaitingQueue handles GET /api/queue/waiting?date=&doctor_id=
func (h *QueueHandler) GetWaitingQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.WaitingEstimates(r.Context(), h.dateParam(r), r.URL.Query().Get("doctor_id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if entries == nil {
		entries = []entities.QueueEntry{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"waiting": entries,
		"count":   len(entries),
	})
}

// GetReceptionDashboard handles GET /api/reception/dashboard
func (h *QueueHandler) GetReceptionDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.ReceptionDashboard(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dashboard)
}

func (h *QueueHandler) dateParam(r *http.Request) string {
	if date := r.URL.Query().Get("date"); date != "" {
		return date
	}
	return h.service.Today()
}
