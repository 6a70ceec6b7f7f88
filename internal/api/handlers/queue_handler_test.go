package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Receptionqueue/backend/internal/api/handlers"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
)

func TestQueueHandler_GetTodayBoard(t *testing.T) {
	backend := new(MockReceptionBackend)
	backend.On("TodayAppointmentsGrouped", mock.Anything, "2025-01-20").Return(&entities.GroupedAppointments{
		Active:  []entities.Appointment{appt("a1", entities.AppointmentStatusActive, "7")},
		Waiting: []entities.Appointment{offlineDoctorAppt("w1"), offlineDoctorAppt("w2")},
	}, nil)
	handler := handlers.NewQueueHandler(newQueueService(backend))

	t.Run("defaults to today", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/queue/today", nil)
		w := httptest.NewRecorder()
		handler.GetTodayBoard(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var board entities.QueueBoard
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
		assert.Equal(t, "2025-01-20", board.Date)
		assert.Equal(t, 1, board.Counts.Active)
		require.Len(t, board.Waiting, 2)
		require.NotNil(t, board.Waiting[1].Estimate)
		assert.Equal(t, "00:15:00", board.Waiting[1].Estimate.Countdown)
	})

	t.Run("empty buckets encode as arrays", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/queue/today?date=2025-01-20", nil)
		w := httptest.NewRecorder()
		handler.GetTodayBoard(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"booked":[]`)
		assert.NotContains(t, w.Body.String(), `"booked":null`)
	})

	t.Run("invalid date", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/queue/today?date=20-01-2025", nil)
		w := httptest.NewRecorder()
		handler.GetTodayBoard(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQueueHandler_BackendFailure(t *testing.T) {
	backend := new(MockReceptionBackend)
	backend.On("TodayAppointmentsGrouped", mock.Anything, "2025-01-20").Return(nil, errors.New("connection refused"))
	handler := handlers.NewQueueHandler(newQueueService(backend))

	req := httptest.NewRequest(http.MethodGet, "/api/queue/today", nil)
	w := httptest.NewRecorder()
	handler.GetTodayBoard(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestQueueHandler_GetPatientsBoard(t *testing.T) {
	backend := new(MockReceptionBackend)
	backend.On("PatientsByDate", mock.Anything, "2025-01-19").Return([]entities.Appointment{
		appt("b1", entities.AppointmentStatusBooked, "7"),
		appt("c1", entities.AppointmentStatusCancelled, "7"),
	}, nil)
	handler := handlers.NewQueueHandler(newQueueService(backend))

	req := httptest.NewRequest(http.MethodGet, "/api/queue/patients?date=2025-01-19", nil)
	w := httptest.NewRecorder()
	handler.GetPatientsBoard(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var board entities.QueueBoard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	assert.Equal(t, 1, board.Counts.Booked)
	assert.Equal(t, 1, board.Counts.Dismissed)
	assert.Equal(t, 2, board.Counts.Total)
}

func TestQueueHandler_GetWaitingQueue(t *testing.T) {
	backend := new(MockReceptionBackend)
	other := appt("w3", entities.AppointmentStatusWaiting, "8")
	backend.On("TodayAppointmentsGrouped", mock.Anything, "2025-01-20").Return(&entities.GroupedAppointments{
		Waiting: []entities.Appointment{offlineDoctorAppt("w1"), other, offlineDoctorAppt("w2")},
	}, nil)
	handler := handlers.NewQueueHandler(newQueueService(backend))

	req := httptest.NewRequest(http.MethodGet, "/api/queue/waiting?doctor_id=7", nil)
	w := httptest.NewRecorder()
	handler.GetWaitingQueue(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Waiting []entities.QueueEntry `json:"waiting"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "w1", resp.Waiting[0].Appointment.ID.String())
	assert.Equal(t, "00:05:00", resp.Waiting[0].Estimate.Countdown)
	assert.Equal(t, 1, resp.Waiting[1].Estimate.QueueIndex)
}

func TestQueueHandler_GetReceptionDashboard(t *testing.T) {
	backend := new(MockReceptionBackend)
	backend.On("ReceptionDashboardStats", mock.Anything).Return(&entities.ReceptionDashboardStats{
		Stats:        map[string]interface{}{"totalToday": 12},
		WaitingQueue: []entities.Appointment{appt("w1", entities.AppointmentStatusWaiting, "7")},
		Doctors: []entities.DoctorAvailability{
			{ID: "7", Name: "Dr. 7", Status: entities.DoctorStatusOffline, BackOnlineTime: strPtr("10:00")},
		},
	}, nil)
	handler := handlers.NewQueueHandler(newQueueService(backend))

	req := httptest.NewRequest(http.MethodGet, "/api/reception/dashboard", nil)
	w := httptest.NewRecorder()
	handler.GetReceptionDashboard(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var dashboard entities.ReceptionDashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.Equal(t, 1.0, dashboard.Stats["waiting"])
	assert.Equal(t, 0.0, dashboard.Stats["active"])
	require.Len(t, dashboard.WaitingQueue, 1)
	require.NotNil(t, dashboard.WaitingQueue[0].Estimate)
	assert.Equal(t, "00:05:00", dashboard.WaitingQueue[0].Estimate.Countdown)
	assert.NotNil(t, dashboard.ActiveConsultations)
}
