package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Receptionqueue/backend/internal/api/handlers"
	"github.com/zatekoja/Receptionqueue/backend/internal/application/services"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
)

func newScreenHandler(t *testing.T) (*handlers.ScreenHandler, *memoryScreenRepo) {
	t.Helper()
	repo := newMemoryScreenRepo()
	buckets := entities.NewQueueBuckets()
	buckets.Waiting = []entities.Appointment{offlineDoctorAppt("w1"), appt("w2", entities.AppointmentStatusWaiting, "8")}
	buckets.Completed = []entities.Appointment{appt("c1", entities.AppointmentStatusCompleted, "7")}
	board := &entities.QueueBoard{Date: "2025-01-20", Buckets: buckets, Counts: buckets.Counts()}

	svc := services.NewScreenService(repo, staticBoards{board: board})
	return handlers.NewScreenHandler(svc), repo
}

func TestScreenHandler_CreateScreen(t *testing.T) {
	handler, repo := newScreenHandler(t)

	t.Run("creates", func(t *testing.T) {
		body := `{"name": "  Lobby  ", "variant": "compact", "location": "Ground floor"}`
		req := httptest.NewRequest(http.MethodPost, "/api/screens", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.CreateScreen(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var screen entities.DisplayScreen
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &screen))
		assert.NotEmpty(t, screen.ID)
		assert.Equal(t, "Lobby", screen.Name)
		assert.Equal(t, entities.ScreenVariantCompact, screen.Variant)
		assert.Len(t, repo.screens, 1)
	})

	t.Run("doctor screen without doctor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/screens", strings.NewReader(`{"name": "Room 4", "variant": "doctor"}`))
		w := httptest.NewRecorder()
		handler.CreateScreen(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/screens", strings.NewReader(`{"name":`))
		w := httptest.NewRecorder()
		handler.CreateScreen(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate id", func(t *testing.T) {
		body := `{"id": "scr-1", "name": "Lobby"}`
		first := httptest.NewRecorder()
		handler.CreateScreen(first, httptest.NewRequest(http.MethodPost, "/api/screens", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, first.Code)

		second := httptest.NewRecorder()
		handler.CreateScreen(second, httptest.NewRequest(http.MethodPost, "/api/screens", strings.NewReader(body)))
		assert.Equal(t, http.StatusConflict, second.Code)
	})
}

func TestScreenHandler_GetAndDelete(t *testing.T) {
	handler, repo := newScreenHandler(t)
	repo.screens["scr-1"] = &entities.DisplayScreen{ID: "scr-1", Name: "Lobby", Variant: entities.ScreenVariantStandard}

	req := httptest.NewRequest(http.MethodGet, "/api/screens/scr-1", nil)
	req.SetPathValue("id", "scr-1")
	w := httptest.NewRecorder()
	handler.GetScreen(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Lobby"`)

	req = httptest.NewRequest(http.MethodDelete, "/api/screens/scr-1", nil)
	req.SetPathValue("id", "scr-1")
	w = httptest.NewRecorder()
	handler.DeleteScreen(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/screens/scr-1", nil)
	req.SetPathValue("id", "scr-1")
	w = httptest.NewRecorder()
	handler.GetScreen(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScreenHandler_ListScreens(t *testing.T) {
	handler, repo := newScreenHandler(t)
	repo.screens["a"] = &entities.DisplayScreen{ID: "a", Name: "A", Variant: entities.ScreenVariantToken}
	repo.screens["b"] = &entities.DisplayScreen{ID: "b", Name: "B", Variant: entities.ScreenVariantStandard}

	req := httptest.NewRequest(http.MethodGet, "/api/screens?variant=token&limit=500", nil)
	w := httptest.NewRecorder()
	handler.ListScreens(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Screens []entities.DisplayScreen `json:"screens"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "a", resp.Screens[0].ID)
}

func TestScreenHandler_GetScreenBoard(t *testing.T) {
	handler, repo := newScreenHandler(t)
	repo.screens["room-7"] = &entities.DisplayScreen{ID: "room-7", Name: "Room 7", Variant: entities.ScreenVariantDoctor, DoctorID: strPtr("7")}
	repo.screens["tokens"] = &entities.DisplayScreen{ID: "tokens", Name: "Tokens", Variant: entities.ScreenVariantToken}

	t.Run("doctor screen", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/screens/room-7/board", nil)
		req.SetPathValue("id", "room-7")
		w := httptest.NewRecorder()
		handler.GetScreenBoard(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp entities.ScreenBoard
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Board)
		assert.Equal(t, 1, resp.Board.Counts.Waiting)
		assert.Equal(t, "w1", resp.Board.Buckets.Waiting[0].ID.String())
	})

	t.Run("token screen hides patients", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/screens/tokens/board", nil)
		req.SetPathValue("id", "tokens")
		w := httptest.NewRecorder()
		handler.GetScreenBoard(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "Patient w1")
	})

	t.Run("unknown screen", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/screens/nope/board", nil)
		req.SetPathValue("id", "nope")
		w := httptest.NewRecorder()
		handler.GetScreenBoard(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
