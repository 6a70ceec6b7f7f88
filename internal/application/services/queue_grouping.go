package services

import (
	"time"

	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/Receptionqueue/backend/pkg/errors"
)

// QueueDateLayout is the date format used by the backend and the board API
const QueueDateLayout = "2006-01-02"

// ValidateQueueDate checks a YYYY-MM-DD date string
func ValidateQueueDate(date string) error {
	if _, err := time.Parse(QueueDateLayout, date); err != nil {
		return apperrors.NewValidationError("date must be in YYYY-MM-DD format")
	}
	return nil
}

// GroupAppointments partitions a flat appointment list into display buckets.
// Order within a bucket follows input order. Unrecognized statuses land in
// Booked; cancelled and no-show records go to Dismissed.
func GroupAppointments(appointments []entities.Appointment) entities.QueueBuckets {
	buckets := entities.NewQueueBuckets()
	for _, appt := range appointments {
		placeAppointment(&buckets, appt, entities.AppointmentStatusBooked)
	}
	return buckets
}

// RegroupBuckets normalizes a backend pre-grouped response. Records are visited
// in bucket order (active, waiting, arrived, booked, completed) and classified by
// their own status; a record without a status keeps the backend's bucket.
func RegroupBuckets(grouped *entities.GroupedAppointments) entities.QueueBuckets {
	buckets := entities.NewQueueBuckets()
	if grouped == nil {
		return buckets
	}

	sources := []struct {
		fallback entities.AppointmentStatus
		items    []entities.Appointment
	}{
		{entities.AppointmentStatusActive, grouped.Active},
		{entities.AppointmentStatusWaiting, grouped.Waiting},
		{entities.AppointmentStatusArrived, grouped.Arrived},
		{entities.AppointmentStatusBooked, grouped.Booked},
		{entities.AppointmentStatusCompleted, grouped.Completed},
	}
	for _, src := range sources {
		for _, appt := range src.items {
			placeAppointment(&buckets, appt, src.fallback)
		}
	}
	return buckets
}

// placeAppointment appends appt to its bucket without touching its status.
// fallback is used only when the status field is empty.
func placeAppointment(buckets *entities.QueueBuckets, appt entities.Appointment, fallback entities.AppointmentStatus) {
	status, ok := entities.NormalizeStatus(string(appt.Status))
	if !ok {
		if appt.Status == "" {
			status = fallback
		} else {
			status = entities.AppointmentStatusBooked
		}
	}

	switch status {
	case entities.AppointmentStatusActive:
		buckets.Active = append(buckets.Active, appt)
	case entities.AppointmentStatusWaiting:
		buckets.Waiting = append(buckets.Waiting, appt)
	case entities.AppointmentStatusArrived:
		buckets.Arrived = append(buckets.Arrived, appt)
	case entities.AppointmentStatusCompleted:
		buckets.Completed = append(buckets.Completed, appt)
	case entities.AppointmentStatusCancelled, entities.AppointmentStatusNoShow:
		buckets.Dismissed = append(buckets.Dismissed, appt)
	default:
		buckets.Booked = append(buckets.Booked, appt)
	}
}
