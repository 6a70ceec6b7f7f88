package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/providers"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Receptionqueue/backend/pkg/errors"
)

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

// MockCacheProvider for testing
type MockCacheProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
	sets int
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, providers.ErrCacheMiss
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheProvider) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// MockEventBus records published events
type MockEventBus struct {
	mu        sync.Mutex
	published map[string][]*entities.QueueEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		published: make(map[string][]*entities.QueueEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.QueueEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[channel] = append(m.published[channel], event)
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error) {
	return make(chan *entities.QueueEvent), nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return nil
}

func (m *MockEventBus) Close() error {
	return nil
}

func (m *MockEventBus) Published(channel string) []*entities.QueueEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.QueueEvent(nil), m.published[channel]...)
}

// MockDisplayScreenRepository is an in-memory screen store
type MockDisplayScreenRepository struct {
	mu      sync.Mutex
	screens map[string]*entities.DisplayScreen
	filters []repositories.DisplayScreenFilter
}

func NewMockDisplayScreenRepository(screens ...*entities.DisplayScreen) *MockDisplayScreenRepository {
	repo := &MockDisplayScreenRepository{screens: make(map[string]*entities.DisplayScreen)}
	for _, s := range screens {
		repo.screens[s.ID] = s
	}
	return repo
}

func (m *MockDisplayScreenRepository) Create(ctx context.Context, screen *entities.DisplayScreen) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.screens[screen.ID]; ok {
		return apperrors.NewConflictError("screen already exists")
	}
	m.screens[screen.ID] = screen
	return nil
}

func (m *MockDisplayScreenRepository) GetByID(ctx context.Context, id string) (*entities.DisplayScreen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.screens[id]; ok {
		return s, nil
	}
	return nil, apperrors.NewNotFoundError("screen not found")
}

func (m *MockDisplayScreenRepository) List(ctx context.Context, filter repositories.DisplayScreenFilter) ([]*entities.DisplayScreen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	out := make([]*entities.DisplayScreen, 0, len(m.screens))
	for _, s := range m.screens {
		out = append(out, s)
	}
	return out, nil
}

func (m *MockDisplayScreenRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.screens[id]; !ok {
		return apperrors.NewNotFoundError("screen not found")
	}
	delete(m.screens, id)
	return nil
}

// fixtures

func appt(id, status, doctorID string) entities.Appointment {
	return entities.Appointment{
		ID:          entities.FlexibleID(id),
		TokenNumber: len(id),
		Patient:     entities.PatientRef{ID: entities.FlexibleID("p-" + id), Name: "Patient " + id, Phone: "9000000000"},
		Doctor:      entities.DoctorRef{ID: entities.FlexibleID(doctorID), Name: "Dr. " + doctorID},
		Status:      entities.AppointmentStatus(status),
	}
}

func offlineDoctor(id, backOnline string) entities.DoctorAvailability {
	return entities.DoctorAvailability{
		ID:             entities.FlexibleID(id),
		Name:           "Dr. " + id,
		Status:         entities.DoctorStatusOffline,
		BackOnlineTime: &backOnline,
	}
}
