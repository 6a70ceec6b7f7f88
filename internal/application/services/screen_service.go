package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Receptionqueue/backend/pkg/errors"
)

// BoardSource supplies the current queue board
type BoardSource interface {
	CurrentBoard(ctx context.Context) (*entities.QueueBoard, error)
}

// LiveBoardSource serves the poller's latest board with fresh estimates and
// falls back to a direct fetch before the first successful poll.
type LiveBoardSource struct {
	poller  *QueuePoller
	service *QueueService
}

// NewLiveBoardSource creates a board source. poller may be nil.
func NewLiveBoardSource(poller *QueuePoller, service *QueueService) *LiveBoardSource {
	return &LiveBoardSource{poller: poller, service: service}
}

// CurrentBoard returns today's board
func (s *LiveBoardSource) CurrentBoard(ctx context.Context) (*entities.QueueBoard, error) {
	if s.poller != nil {
		if snapshot := s.poller.Latest(); snapshot != nil && snapshot.Board != nil {
			return s.service.RefreshEstimates(snapshot.Board, s.service.now()), nil
		}
	}
	return s.service.TodayBoard(ctx, s.service.Today())
}

// ScreenService manages waiting-room display screens
type ScreenService struct {
	repo   repositories.DisplayScreenRepository
	boards BoardSource
}

// NewScreenService creates a new screen service
func NewScreenService(repo repositories.DisplayScreenRepository, boards BoardSource) *ScreenService {
	return &ScreenService{
		repo:   repo,
		boards: boards,
	}
}

// Create validates and stores a new screen
func (s *ScreenService) Create(ctx context.Context, screen *entities.DisplayScreen) error {
	screen.Name = strings.TrimSpace(screen.Name)
	if err := screen.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	if screen.ID == "" {
		screen.ID = uuid.New().String()
	}
	now := time.Now()
	screen.CreatedAt = now
	screen.UpdatedAt = now

	if err := s.repo.Create(ctx, screen); err != nil {
		return err
	}

	log.Info().
		Str("screen_id", screen.ID).
		Str("variant", string(screen.Variant)).
		Msg("Display screen registered")
	return nil
}

// Get retrieves a screen by ID
func (s *ScreenService) Get(ctx context.Context, id string) (*entities.DisplayScreen, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves screens
func (s *ScreenService) List(ctx context.Context, filter repositories.DisplayScreenFilter) ([]*entities.DisplayScreen, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Delete removes a screen
func (s *ScreenService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("screen_id", id).Msg("Display screen removed")
	return nil
}

// Board renders the current queue for a screen
func (s *ScreenService) Board(ctx context.Context, id string) (*entities.ScreenBoard, error) {
	screen, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	board, err := s.boards.CurrentBoard(ctx)
	if err != nil {
		return nil, err
	}

	return &entities.ScreenBoard{
		Screen: screen,
		Board:  ShapeBoardForScreen(board, screen),
	}, nil
}

// ShapeBoardForScreen filters a board to the screen's doctor and trims it to
// its variant. The input board is not modified.
func ShapeBoardForScreen(board *entities.QueueBoard, screen *entities.DisplayScreen) *entities.QueueBoard {
	shaped := *board
	shaped.Buckets = entities.QueueBuckets{
		Active:    copyAppointments(board.Buckets.Active),
		Waiting:   copyAppointments(board.Buckets.Waiting),
		Arrived:   copyAppointments(board.Buckets.Arrived),
		Booked:    copyAppointments(board.Buckets.Booked),
		Completed: copyAppointments(board.Buckets.Completed),
		Dismissed: []entities.Appointment{},
	}
	shaped.Waiting = append([]entities.QueueEntry{}, board.Waiting...)

	if screen.DoctorID != nil && *screen.DoctorID != "" {
		doctorID := *screen.DoctorID
		shaped.Buckets.Active = filterByDoctor(shaped.Buckets.Active, doctorID)
		shaped.Buckets.Waiting = filterByDoctor(shaped.Buckets.Waiting, doctorID)
		shaped.Buckets.Arrived = filterByDoctor(shaped.Buckets.Arrived, doctorID)
		shaped.Buckets.Booked = filterByDoctor(shaped.Buckets.Booked, doctorID)
		shaped.Buckets.Completed = filterByDoctor(shaped.Buckets.Completed, doctorID)
		shaped.Waiting = FilterEntriesByDoctor(shaped.Waiting, doctorID)
		shaped.Doctors = filterDoctors(board.Doctors, doctorID)
	}

	switch screen.Variant {
	case entities.ScreenVariantCompact:
		shaped.Buckets.Completed = []entities.Appointment{}
	case entities.ScreenVariantToken:
		for _, bucket := range []*[]entities.Appointment{
			&shaped.Buckets.Active, &shaped.Buckets.Waiting, &shaped.Buckets.Arrived,
			&shaped.Buckets.Booked, &shaped.Buckets.Completed,
		} {
			for i := range *bucket {
				(*bucket)[i] = tokenOnly((*bucket)[i])
			}
		}
		for i := range shaped.Waiting {
			shaped.Waiting[i].Appointment = tokenOnly(shaped.Waiting[i].Appointment)
		}
	}

	shaped.Counts = shaped.Buckets.Counts()
	return &shaped
}

func copyAppointments(in []entities.Appointment) []entities.Appointment {
	return append([]entities.Appointment{}, in...)
}

func filterByDoctor(appointments []entities.Appointment, doctorID string) []entities.Appointment {
	filtered := make([]entities.Appointment, 0, len(appointments))
	for _, appt := range appointments {
		if appt.Doctor.ID.String() == doctorID {
			filtered = append(filtered, appt)
		}
	}
	return filtered
}

func filterDoctors(doctors []entities.DoctorAvailability, doctorID string) []entities.DoctorAvailability {
	var filtered []entities.DoctorAvailability
	for _, d := range doctors {
		if d.ID.String() == doctorID {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// tokenOnly strips patient details, keeping what a public token display shows
func tokenOnly(appt entities.Appointment) entities.Appointment {
	return entities.Appointment{
		ID:          appt.ID,
		TokenNumber: appt.TokenNumber,
		Doctor: entities.DoctorRef{
			ID:   appt.Doctor.ID,
			Name: appt.Doctor.Name,
		},
		Status:        appt.Status,
		TimeSlot:      appt.TimeSlot,
		QueuePosition: appt.QueuePosition,
	}
}
