package entities

import (
	"encoding/json"
	"time"
)

// DelayedCountdown is shown instead of a countdown once a projected start has passed
const DelayedCountdown = "Delayed"

// QueueBuckets is the display partition of one day's appointments.
// Dismissed is not a display bucket: it holds cancelled and no-show records so
// that every input appointment is accounted for.
type QueueBuckets struct {
	Active    []Appointment `json:"active"`
	Waiting   []Appointment `json:"waiting"`
	Arrived   []Appointment `json:"arrived"`
	Booked    []Appointment `json:"booked"`
	Completed []Appointment `json:"completed"`
	Dismissed []Appointment `json:"dismissed"`
}

// NewQueueBuckets returns buckets with every slice allocated
func NewQueueBuckets() QueueBuckets {
	return QueueBuckets{
		Active:    []Appointment{},
		Waiting:   []Appointment{},
		Arrived:   []Appointment{},
		Booked:    []Appointment{},
		Completed: []Appointment{},
		Dismissed: []Appointment{},
	}
}

// BucketTotal counts the appointments in the five display buckets
func (b QueueBuckets) BucketTotal() int {
	return len(b.Active) + len(b.Waiting) + len(b.Arrived) + len(b.Booked) + len(b.Completed)
}

// Total counts every appointment, dismissed ones included
func (b QueueBuckets) Total() int {
	return b.BucketTotal() + len(b.Dismissed)
}

// Counts summarizes bucket sizes
func (b QueueBuckets) Counts() QueueCounts {
	return QueueCounts{
		Active:    len(b.Active),
		Waiting:   len(b.Waiting),
		Arrived:   len(b.Arrived),
		Booked:    len(b.Booked),
		Completed: len(b.Completed),
		Dismissed: len(b.Dismissed),
		Total:     b.Total(),
	}
}

// MarshalJSON never emits null for an empty bucket
func (b QueueBuckets) MarshalJSON() ([]byte, error) {
	type plain QueueBuckets
	out := plain(b)
	for _, bucket := range []*[]Appointment{&out.Active, &out.Waiting, &out.Arrived, &out.Booked, &out.Completed, &out.Dismissed} {
		if *bucket == nil {
			*bucket = []Appointment{}
		}
	}
	return json.Marshal(out)
}

// QueueCounts holds per-bucket totals
type QueueCounts struct {
	Active    int `json:"active"`
	Waiting   int `json:"waiting"`
	Arrived   int `json:"arrived"`
	Booked    int `json:"booked"`
	Completed int `json:"completed"`
	Dismissed int `json:"dismissed"`
	Total     int `json:"total"`
}

// WaitEstimate is the projected consultation start of one waiting-queue entry
type WaitEstimate struct {
	QueueIndex       int       `json:"queue_index"`
	ProjectedStart   time.Time `json:"projected_start"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Countdown        string    `json:"countdown"`
	Delayed          bool      `json:"delayed"`
}

// QueueEntry is a waiting appointment with its optional estimate
type QueueEntry struct {
	Appointment Appointment   `json:"appointment"`
	Estimate    *WaitEstimate `json:"estimate,omitempty"`
}

// QueueBoard is the UI-ready snapshot of a day's queue
type QueueBoard struct {
	Date        string               `json:"date"`
	GeneratedAt time.Time            `json:"generated_at"`
	Buckets     QueueBuckets         `json:"buckets"`
	Waiting     []QueueEntry         `json:"waiting_queue"`
	Doctors     []DoctorAvailability `json:"doctors,omitempty"`
	Counts      QueueCounts          `json:"counts"`
}

// ReceptionDashboardStats is the raw reception dashboard payload of the backend
type ReceptionDashboardStats struct {
	Stats               map[string]interface{} `json:"stats"`
	ActiveConsultations []Appointment          `json:"activeConsultations"`
	WaitingQueue        []Appointment          `json:"waitingQueue"`
	Doctors             []DoctorAvailability   `json:"doctors"`
}

// ReceptionDashboard is the annotated dashboard served to reception screens
type ReceptionDashboard struct {
	GeneratedAt         time.Time              `json:"generated_at"`
	Stats               map[string]interface{} `json:"stats"`
	ActiveConsultations []Appointment          `json:"active_consultations"`
	WaitingQueue        []QueueEntry           `json:"waiting_queue"`
	Doctors             []DoctorAvailability   `json:"doctors"`
}
