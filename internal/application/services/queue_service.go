package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/providers"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Receptionqueue/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// QueueService builds queue boards from the hospital backend
type QueueService struct {
	backend   providers.ReceptionBackend
	cache     providers.CacheProvider
	estimator *WaitTimeEstimator
	cacheTTL  time.Duration
	now       func() time.Time

	rosterMu sync.RWMutex
	roster   []entities.DoctorAvailability
}

// NewQueueService creates a new queue service. cache may be nil.
func NewQueueService(
	backend providers.ReceptionBackend,
	cache providers.CacheProvider,
	estimator *WaitTimeEstimator,
	cacheTTL time.Duration,
) *QueueService {
	return &QueueService{
		backend:   backend,
		cache:     cache,
		estimator: estimator,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (s *QueueService) SetClock(now func() time.Time) {
	s.now = now
}

// Today returns the current date in the queue's zone
func (s *QueueService) Today() string {
	return s.now().In(s.estimator.Location()).Format(QueueDateLayout)
}

// TodayBoard returns the grouped board for a date, served from the shared
// cache when a poller has stored a recent copy.
func (s *QueueService) TodayBoard(ctx context.Context, date string) (*entities.QueueBoard, error) {
	if err := ValidateQueueDate(date); err != nil {
		return nil, err
	}

	if grouped, ok := s.cachedGrouped(ctx, date); ok {
		buckets := RegroupBuckets(grouped)
		return s.BuildBoard(date, buckets, s.rosterFor(ctx, buckets.Waiting), s.now()), nil
	}

	return s.FetchTodayBoard(ctx, date)
}

// FetchTodayBoard always asks the backend and refreshes the shared cache
func (s *QueueService) FetchTodayBoard(ctx context.Context, date string) (*entities.QueueBoard, error) {
	if err := ValidateQueueDate(date); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "QueueService.FetchTodayBoard")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("queue.date", date))

	grouped, err := s.backend.TodayAppointmentsGrouped(ctx, date)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewExternalError("failed to fetch today's appointments", err)
	}

	s.storeGrouped(ctx, date, grouped)
	buckets := RegroupBuckets(grouped)
	return s.BuildBoard(date, buckets, s.rosterFor(ctx, buckets.Waiting), s.now()), nil
}

// PatientsBoard classifies the backend's flat patient list for a date
func (s *QueueService) PatientsBoard(ctx context.Context, date string) (*entities.QueueBoard, error) {
	if err := ValidateQueueDate(date); err != nil {
		return nil, err
	}

	appointments, err := s.backend.PatientsByDate(ctx, date)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to fetch patients by date", err)
	}

	buckets := GroupAppointments(appointments)
	return s.BuildBoard(date, buckets, s.rosterFor(ctx, buckets.Waiting), s.now()), nil
}
// ReceptionDashboard fetches the reception dashboard and annotates its waiting queue
func (s *QueueService) ReceptionDashboard(ctx context.Context) (*entities.ReceptionDashboard, error) {
	raw, err := s.backend.ReceptionDashboardStats(ctx)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to fetch reception dashboard", err)
	}

	now := s.now()
	stats := raw.Stats
	if stats == nil {
		stats = make(map[string]interface{})
	}
	if _, ok := stats["waiting"]; !ok {
		stats["waiting"] = len(raw.WaitingQueue)
	}
	if _, ok := stats["active"]; !ok {
		stats["active"] = len(raw.ActiveConsultations)
	}

	active := raw.ActiveConsultations
	if active == nil {
		active = []entities.Appointment{}
	}
	doctors := raw.Doctors
	if doctors == nil {
		doctors = []entities.DoctorAvailability{}
	} else {
		s.rememberRoster(ctx, doctors)
	}

	return &entities.ReceptionDashboard{
		GeneratedAt:         now,
		Stats:               stats,
		ActiveConsultations: active,
		WaitingQueue:        s.AnnotateWaitingQueue(raw.WaitingQueue, doctors, now),
		Doctors:             doctors,
	}, nil
}

// WaitingEstimates returns the annotated waiting queue, optionally for one doctor
func (s *QueueService) WaitingEstimates(ctx context.Context, date, doctorID string) ([]entities.QueueEntry, error) {
	board, err := s.TodayBoard(ctx, date)
	if err != nil {
		return nil, err
	}
	return FilterEntriesByDoctor(board.Waiting, doctorID), nil
}

// BuildBoard assembles a board and computes estimates relative to now
func (s *QueueService) BuildBoard(date string, buckets entities.QueueBuckets, doctors []entities.DoctorAvailability, now time.Time) *entities.QueueBoard {
	return &entities.QueueBoard{
		Date:        date,
		GeneratedAt: now,
		Buckets:     buckets,
		Waiting:     s.AnnotateWaitingQueue(buckets.Waiting, doctors, now),
		Doctors:     doctors,
		Counts:      buckets.Counts(),
	}
}

// RefreshEstimates returns a copy of board with estimates recomputed for now
func (s *QueueService) RefreshEstimates(board *entities.QueueBoard, now time.Time) *entities.QueueBoard {
	return s.estimator.RefreshBoard(board, now)
}

// AnnotateWaitingQueue attaches an estimate to each waiting appointment
func (s *QueueService) AnnotateWaitingQueue(waiting []entities.Appointment, doctors []entities.DoctorAvailability, now time.Time) []entities.QueueEntry {
	return s.estimator.Annotate(waiting, doctors, now)
}

// FilterEntriesByDoctor keeps entries of one doctor; an empty id keeps all
func FilterEntriesByDoctor(entries []entities.QueueEntry, doctorID string) []entities.QueueEntry {
	if doctorID == "" {
		return entries
	}
	filtered := make([]entities.QueueEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Appointment.Doctor.ID.String() == doctorID {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func groupedCacheKey(date string) string {
	return fmt.Sprintf("queue:grouped:%s", date)
}

func (s *QueueService) cachedGrouped(ctx context.Context, date string) (*entities.GroupedAppointments, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, groupedCacheKey(date))
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("date", date).Msg("Queue cache read failed")
		}
		return nil, false
	}

	var grouped entities.GroupedAppointments
	if err := json.Unmarshal(data, &grouped); err != nil {
		log.Warn().Err(err).Str("date", date).Msg("Discarding unreadable cached queue")
		return nil, false
	}
	return &grouped, true
}

func (s *QueueService) storeGrouped(ctx context.Context, date string, grouped *entities.GroupedAppointments) {
	if s.cache == nil || grouped == nil || s.cacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(grouped)
	if err != nil {
		log.Warn().Err(err).Str("date", date).Msg("Failed to marshal queue for cache")
		return
	}
	if err := s.cache.Set(ctx, groupedCacheKey(date), data, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("date", date).Msg("Queue cache write failed")
	}
}

const doctorRosterCacheKey = "queue:doctors"

// rememberRoster keeps the dashboard's doctor list for the grouped and
// patients boards, whose responses carry no roster of their own
func (s *QueueService) rememberRoster(ctx context.Context, doctors []entities.DoctorAvailability) {
	roster := append([]entities.DoctorAvailability(nil), doctors...)
	s.rosterMu.Lock()
	s.roster = roster
	s.rosterMu.Unlock()

	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(roster)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal doctor roster for cache")
		return
	}
	if err := s.cache.Set(ctx, doctorRosterCacheKey, data, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("Doctor roster cache write failed")
	}
}

func (s *QueueService) knownRoster(ctx context.Context) []entities.DoctorAvailability {
	s.rosterMu.RLock()
	roster := s.roster
	s.rosterMu.RUnlock()
	if roster != nil || s.cache == nil {
		return roster
	}

	data, err := s.cache.Get(ctx, doctorRosterCacheKey)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Msg("Doctor roster cache read failed")
		}
		return nil
	}
	if err := json.Unmarshal(data, &roster); err != nil {
		log.Warn().Err(err).Msg("Discarding unreadable cached doctor roster")
		return nil
	}
	return roster
}

// rosterFor returns the known roster minus doctors whose availability is
// already inlined on a waiting appointment. Inline fields come with the
// board itself and are never older than the roster.
func (s *QueueService) rosterFor(ctx context.Context, waiting []entities.Appointment) []entities.DoctorAvailability {
	roster := s.knownRoster(ctx)
	if len(roster) == 0 {
		return nil
	}

	inline := make(map[string]bool)
	for _, appt := range waiting {
		if appt.Doctor.Status != "" {
			inline[appt.Doctor.ID.String()] = true
		}
	}

	doctors := make([]entities.DoctorAvailability, 0, len(roster))
	for _, d := range roster {
		if !inline[d.ID.String()] {
			doctors = append(doctors, d)
		}
	}
	return doctors
}
