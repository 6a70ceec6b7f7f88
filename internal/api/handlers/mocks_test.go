package handlers_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/Receptionqueue/backend/internal/application/services"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Receptionqueue/backend/pkg/errors"
)

var fixedNow = time.Date(2025, time.January, 20, 9, 55, 0, 0, time.UTC)

// MockReceptionBackend for testing
type MockReceptionBackend struct {
	mock.Mock
}

func (m *MockReceptionBackend) TodayAppointmentsGrouped(ctx context.Context, date string) (*entities.GroupedAppointments, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GroupedAppointments), args.Error(1)
}

func (m *MockReceptionBackend) ReceptionDashboardStats(ctx context.Context) (*entities.ReceptionDashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReceptionDashboardStats), args.Error(1)
}

func (m *MockReceptionBackend) PatientsByDate(ctx context.Context, date string) ([]entities.Appointment, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Appointment), args.Error(1)
}

// stubSource is a SnapshotSource with a settable state
type stubSource struct {
	mu    sync.Mutex
	state services.LiveState
	err   error
}

func (s *stubSource) Live(ctx context.Context) (services.LiveState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.err
}

// memoryScreenRepo is an in-memory DisplayScreenRepository
type memoryScreenRepo struct {
	mu      sync.Mutex
	screens map[string]*entities.DisplayScreen
}

func newMemoryScreenRepo() *memoryScreenRepo {
	return &memoryScreenRepo{screens: make(map[string]*entities.DisplayScreen)}
}

func (r *memoryScreenRepo) Create(ctx context.Context, screen *entities.DisplayScreen) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.screens[screen.ID]; exists {
		return apperrors.NewConflictError("screen already exists")
	}
	copied := *screen
	r.screens[screen.ID] = &copied
	return nil
}

func (r *memoryScreenRepo) GetByID(ctx context.Context, id string) (*entities.DisplayScreen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	screen, ok := r.screens[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("screen with id " + id + " not found")
	}
	copied := *screen
	return &copied, nil
}

func (r *memoryScreenRepo) List(ctx context.Context, filter repositories.DisplayScreenFilter) ([]*entities.DisplayScreen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	screens := make([]*entities.DisplayScreen, 0, len(r.screens))
	for _, screen := range r.screens {
		if filter.Variant != "" && screen.Variant != filter.Variant {
			continue
		}
		copied := *screen
		screens = append(screens, &copied)
	}
	return screens, nil
}

func (r *memoryScreenRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.screens[id]; !ok {
		return apperrors.NewNotFoundError("screen with id " + id + " not found")
	}
	delete(r.screens, id)
	return nil
}

// staticBoards is a BoardSource returning a fixed board
type staticBoards struct {
	board *entities.QueueBoard
	err   error
}

func (s staticBoards) CurrentBoard(ctx context.Context) (*entities.QueueBoard, error) {
	return s.board, s.err
}

func strPtr(s string) *string { return &s }

// appt builds an appointment for doctor 7 unless doctorID says otherwise
func appt(id string, status entities.AppointmentStatus, doctorID string) entities.Appointment {
	return entities.Appointment{
		ID:          entities.FlexibleID(id),
		TokenNumber: len(id),
		Patient:     entities.PatientRef{ID: entities.FlexibleID("p-" + id), Name: "Patient " + id},
		Doctor:      entities.DoctorRef{ID: entities.FlexibleID(doctorID), Name: "Dr. " + doctorID},
		Status:      status,
	}
}

// offlineDoctorAppt is a waiting appointment whose doctor is back at 10:00
func offlineDoctorAppt(id string) entities.Appointment {
	a := appt(id, entities.AppointmentStatusWaiting, "7")
	a.Doctor.Status = "offline"
	a.Doctor.BackOnlineTime = strPtr("2025-01-20 10:00:00")
	return a
}

func newQueueService(backend *MockReceptionBackend) *services.QueueService {
	estimator := services.NewWaitTimeEstimator(time.UTC, 10*time.Minute)
	svc := services.NewQueueService(backend, nil, estimator, 0)
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}
