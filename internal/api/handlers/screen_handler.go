package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/zatekoja/Receptionqueue/backend/internal/application/services"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/repositories"
)

// ScreenHandler handles display screen HTTP requests
type ScreenHandler struct {
	service *services.ScreenService
}

// NewScreenHandler creates a new screen handler
func NewScreenHandler(service *services.ScreenService) *ScreenHandler {
	return &ScreenHandler{service: service}
}

type createScreenRequest struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Variant  entities.ScreenVariant `json:"variant"`
	DoctorID *string                `json:"doctor_id"`
	Location string                 `json:"location"`
}

// ListScreens handles GET /api/screens
func (h *ScreenHandler) ListScreens(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.DisplayScreenFilter{
		Variant:  entities.ScreenVariant(query.Get("variant")),
		DoctorID: query.Get("doctor_id"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}

	screens, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"screens": screens,
		"count":   len(screens),
	})
}

// CreateScreen handles POST /api/screens
func (h *ScreenHandler) CreateScreen(w http.ResponseWriter, r *http.Request) {
	var req createScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	screen := &entities.DisplayScreen{
		ID:       req.ID,
		Name:     req.Name,
		Variant:  req.Variant,
		DoctorID: req.DoctorID,
		Location: req.Location,
	}
	if err := h.service.Create(r.Context(), screen); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, screen)
}

// GetScreen handles GET /api/screens/{id}
func (h *ScreenHandler) GetScreen(w http.ResponseWriter, r *http.Request) {
	screen, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, screen)
}

// DeleteScreen handles DELETE /api/screens/{id}
func (h *ScreenHandler) DeleteScreen(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetScreenBoard handles GET /api/screens/{id}/board
func (h *ScreenHandler) GetScreenBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Board(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, board)
}
