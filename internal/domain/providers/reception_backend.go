package providers

import (
	"context"

	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
)

// ReceptionBackend is the hospital REST backend as seen by the queue board
type ReceptionBackend interface {
	// TodayAppointmentsGrouped returns the backend's pre-grouped appointments for a date
	TodayAppointmentsGrouped(ctx context.Context, date string) (*entities.GroupedAppointments, error)

	// ReceptionDashboardStats returns counters, active consultations, the waiting queue and doctors
	ReceptionDashboardStats(ctx context.Context) (*entities.ReceptionDashboardStats, error)

	// PatientsByDate returns a flat list of appointment records for a date
	PatientsByDate(ctx context.Context, date string) ([]entities.Appointment, error)
}
