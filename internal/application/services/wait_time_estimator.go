package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
)

// zonedLayouts carry a date and are interpreted in the configured zone
var zonedLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// offsetLayouts carry their own UTC offset, which wins over the configured zone
var offsetLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// clockLayouts have no date component and are anchored to "today"
var clockLayouts = []string{
	"15:04:05",
	"15:04",
}

// WaitTimeEstimator projects consultation start times for patients waiting on an offline doctor
type WaitTimeEstimator struct {
	location   *time.Location
	perPatient time.Duration
}

// NewWaitTimeEstimator creates an estimator for a zone and a default consultation duration
func NewWaitTimeEstimator(location *time.Location, perPatient time.Duration) *WaitTimeEstimator {
	if location == nil {
		location = time.UTC
	}
	if perPatient <= 0 {
		perPatient = 10 * time.Minute
	}
	return &WaitTimeEstimator{
		location:   location,
		perPatient: perPatient,
	}
}

// Location returns the zone naive timestamps are read in
func (e *WaitTimeEstimator) Location() *time.Location {
	return e.location
}

// SlotDuration returns the per-patient duration for a doctor, preferring the
// doctor's own average when the backend supplies one.
func (e *WaitTimeEstimator) SlotDuration(doctor entities.DoctorAvailability) time.Duration {
	if doctor.AverageConsultationMinutes != nil && *doctor.AverageConsultationMinutes > 0 {
		return time.Duration(*doctor.AverageConsultationMinutes) * time.Minute
	}
	return e.perPatient
}

// Estimate returns the projected start of the patient at queue index for an
// offline doctor. It returns nil when the doctor is online, has no back-online
// time, or the time cannot be parsed.
func (e *WaitTimeEstimator) Estimate(doctor entities.DoctorAvailability, index int, now time.Time) *entities.WaitEstimate {
	if index < 0 || !doctor.IsOffline() || !doctor.HasBackOnlineTime() {
		return nil
	}

	base, err := e.ParseBackOnline(*doctor.BackOnlineTime, now)
	if err != nil {
		log.Debug().
			Err(err).
			Str("doctor_id", doctor.ID.String()).
			Str("back_online_time", *doctor.BackOnlineTime).
			Msg("Skipping wait estimate")
		return nil
	}

	projected := base.Add(time.Duration(index) * e.SlotDuration(doctor))
	remaining := projected.Sub(now)

	estimate := &entities.WaitEstimate{
		QueueIndex:     index,
		ProjectedStart: projected,
	}

	// Once the head of the queue is overdue every later entry is overdue too.
	if remaining <= 0 || (index > 0 && !base.After(now)) {
		estimate.Delayed = true
		estimate.Countdown = entities.DelayedCountdown
		return estimate
	}

	estimate.RemainingSeconds = int64(remaining / time.Second)
	estimate.Countdown = FormatCountdown(remaining)
	return estimate
}

// ParseBackOnline reads a back-online timestamp. Date-less values are anchored
// to the date of now in the estimator's zone.
func (e *WaitTimeEstimator) ParseBackOnline(raw string, now time.Time) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty back-online time")
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	for _, layout := range zonedLayouts {
		if t, err := time.ParseInLocation(layout, value, e.location); err == nil {
			return t, nil
		}
	}

	today := now.In(e.location)
	for _, layout := range clockLayouts {
		if t, err := time.ParseInLocation(layout, value, e.location); err == nil {
			return time.Date(today.Year(), today.Month(), today.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, e.location), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized back-online time %q", raw)
}

// FormatCountdown renders a positive duration as zero-padded HH:MM:SS
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// Annotate attaches an estimate to each waiting appointment. The queue index
// is the appointment's position among the same doctor's waiting patients, in
// input order. Availability comes from doctors when listed there, otherwise
// from the fields inlined on the appointment.
func (e *WaitTimeEstimator) Annotate(waiting []entities.Appointment, doctors []entities.DoctorAvailability, now time.Time) []entities.QueueEntry {
	byID := make(map[string]entities.DoctorAvailability, len(doctors))
	for _, d := range doctors {
		if d.ID != "" {
			byID[d.ID.String()] = d
		}
	}

	positions := make(map[string]int)
	entries := make([]entities.QueueEntry, 0, len(waiting))
	for _, appt := range waiting {
		key := doctorKey(appt.Doctor)
		index := positions[key]
		positions[key] = index + 1

		availability, ok := byID[appt.Doctor.ID.String()]
		if !ok {
			availability = appt.Doctor.Availability()
		}

		entries = append(entries, entities.QueueEntry{
			Appointment: appt,
			Estimate:    e.Estimate(availability, index, now),
		})
	}
	return entries
}

// RefreshBoard returns a copy of board with estimates recomputed for now
func (e *WaitTimeEstimator) RefreshBoard(board *entities.QueueBoard, now time.Time) *entities.QueueBoard {
	if board == nil {
		return nil
	}
	refreshed := *board
	refreshed.Waiting = e.Annotate(board.Buckets.Waiting, board.Doctors, now)
	return &refreshed
}

// RefreshDashboard returns a copy of dashboard with estimates recomputed for now
func (e *WaitTimeEstimator) RefreshDashboard(dashboard *entities.ReceptionDashboard, now time.Time) *entities.ReceptionDashboard {
	if dashboard == nil {
		return nil
	}
	waiting := make([]entities.Appointment, len(dashboard.WaitingQueue))
	for i, entry := range dashboard.WaitingQueue {
		waiting[i] = entry.Appointment
	}
	refreshed := *dashboard
	refreshed.WaitingQueue = e.Annotate(waiting, dashboard.Doctors, now)
	return &refreshed
}

func doctorKey(d entities.DoctorRef) string {
	if d.ID != "" {
		return "id:" + d.ID.String()
	}
	return "name:" + d.Name
}
