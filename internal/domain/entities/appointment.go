package entities

import (
	"strings"
)

// AppointmentStatus represents the lifecycle status of an appointment as reported by the backend
type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusWaiting   AppointmentStatus = "waiting"
	AppointmentStatusArrived   AppointmentStatus = "arrived"
	AppointmentStatusActive    AppointmentStatus = "active"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no-show"
)

// statusAliases maps every accepted spelling to its canonical status.
// Keys are already lower-cased with "_" and " " folded to "-".
var statusAliases = map[string]AppointmentStatus{
	"booked":          AppointmentStatusBooked,
	"scheduled":       AppointmentStatusBooked,
	"waiting":         AppointmentStatusWaiting,
	"arrived":         AppointmentStatusArrived,
	"checked-in":      AppointmentStatusArrived,
	"checkedin":       AppointmentStatusArrived,
	"active":          AppointmentStatusActive,
	"in-progress":     AppointmentStatusActive,
	"inprogress":      AppointmentStatusActive,
	"in-consultation": AppointmentStatusActive,
	"completed":       AppointmentStatusCompleted,
	"cancelled":       AppointmentStatusCancelled,
	"canceled":        AppointmentStatusCancelled,
	"no-show":         AppointmentStatusNoShow,
	"noshow":          AppointmentStatusNoShow,
}

// NormalizeStatus maps a raw backend status onto the canonical set.
// ok is false when the value is not recognized.
func NormalizeStatus(raw string) (AppointmentStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	status, ok := statusAliases[key]
	return status, ok
}

// Appointment is the read-only appointment snapshot consumed by the queue board
type Appointment struct {
	ID                    FlexibleID        `json:"id"`
	TokenNumber           int               `json:"tokenNumber"`
	Patient               PatientRef        `json:"patient"`
	Doctor                DoctorRef         `json:"doctor"`
	Status                AppointmentStatus `json:"status"`
	TimeSlot              *TimeSlot         `json:"timeSlot,omitempty"`
	ArrivalTime           *string           `json:"arrivalTime,omitempty"`
	ConsultationStartTime *string           `json:"consultationStartTime,omitempty"`
	CompletedTime         *string           `json:"completedTime,omitempty"`
	QueuePosition         *int              `json:"queuePosition,omitempty"`
}

// PatientRef is the patient identity snapshot attached to an appointment
type PatientRef struct {
	ID    FlexibleID `json:"id"`
	Name  string     `json:"name"`
	Phone string     `json:"phone,omitempty"`
	Age   *int       `json:"age,omitempty"`
}

// DoctorRef is the doctor snapshot attached to an appointment. Some backend
// endpoints inline the availability fields, others only return id and name.
type DoctorRef struct {
	ID                         FlexibleID `json:"id"`
	Name                       string     `json:"name"`
	Status                     string     `json:"status,omitempty"`
	BackOnlineTime             *string    `json:"back_online_time,omitempty"`
	AverageConsultationMinutes *int       `json:"average_consultation_minutes,omitempty"`
}

// Availability converts the inline doctor fields into an availability context
func (d DoctorRef) Availability() DoctorAvailability {
	return DoctorAvailability{
		ID:                         d.ID,
		Name:                       d.Name,
		Status:                     DoctorStatus(strings.ToLower(strings.TrimSpace(d.Status))),
		BackOnlineTime:             d.BackOnlineTime,
		AverageConsultationMinutes: d.AverageConsultationMinutes,
	}
}

// TimeSlot is the scheduled window of an appointment
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GroupedAppointments is the backend's pre-grouped response shape
type GroupedAppointments struct {
	Active    []Appointment `json:"active"`
	Waiting   []Appointment `json:"waiting"`
	Arrived   []Appointment `json:"arrived"`
	Booked    []Appointment `json:"booked"`
	Completed []Appointment `json:"completed"`
}
