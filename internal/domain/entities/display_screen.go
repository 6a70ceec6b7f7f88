package entities

import (
	"fmt"
	"strings"
	"time"
)

// ScreenVariant selects how much of the queue a waiting-room display shows
type ScreenVariant string

const (
	// ScreenVariantStandard shows every bucket with estimates
	ScreenVariantStandard ScreenVariant = "standard"
	// ScreenVariantCompact hides the completed list
	ScreenVariantCompact ScreenVariant = "compact"
	// ScreenVariantToken shows token numbers only, no patient details
	ScreenVariantToken ScreenVariant = "token"
	// ScreenVariantDoctor shows a single doctor's queue
	ScreenVariantDoctor ScreenVariant = "doctor"
)

// DisplayScreen is a registered waiting-room display
type DisplayScreen struct {
	ID        string        `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	Variant   ScreenVariant `json:"variant" db:"variant"`
	DoctorID  *string       `json:"doctor_id,omitempty" db:"doctor_id"`
	Location  string        `json:"location,omitempty" db:"location"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// Validate checks the screen definition
func (s *DisplayScreen) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("screen name is required")
	}
	if s.Variant == "" {
		s.Variant = ScreenVariantStandard
	}
	switch s.Variant {
	case ScreenVariantStandard, ScreenVariantCompact, ScreenVariantToken:
	case ScreenVariantDoctor:
		if s.DoctorID == nil || strings.TrimSpace(*s.DoctorID) == "" {
			return fmt.Errorf("doctor screens require a doctor_id")
		}
	default:
		return fmt.Errorf("unknown screen variant %q", s.Variant)
	}
	return nil
}

// ScreenBoard is a queue board shaped for one display screen
type ScreenBoard struct {
	Screen *DisplayScreen `json:"screen"`
	Board  *QueueBoard    `json:"board"`
}
