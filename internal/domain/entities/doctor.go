package entities

import "strings"

// DoctorStatus represents whether a doctor is currently seeing patients
type DoctorStatus string

const (
	DoctorStatusOnline  DoctorStatus = "online"
	DoctorStatusOffline DoctorStatus = "offline"
)

// DoctorAvailability is the availability context used by the wait-time estimator
type DoctorAvailability struct {
	ID                         FlexibleID   `json:"id"`
	Name                       string       `json:"name"`
	Status                     DoctorStatus `json:"status"`
	BackOnlineTime             *string      `json:"back_online_time,omitempty"`
	AverageConsultationMinutes *int         `json:"average_consultation_minutes,omitempty"`
}

// IsOffline reports whether the doctor is offline. Unknown statuses count as online
// so that no estimate is shown for them.
func (d DoctorAvailability) IsOffline() bool {
	return strings.EqualFold(strings.TrimSpace(string(d.Status)), string(DoctorStatusOffline))
}

// HasBackOnlineTime reports whether a non-empty back-online timestamp is present
func (d DoctorAvailability) HasBackOnlineTime() bool {
	return d.BackOnlineTime != nil && *d.BackOnlineTime != ""
}
