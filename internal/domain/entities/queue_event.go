package entities

import (
	"time"

	"github.com/google/uuid"
)

// QueueEventType represents the type of queue event
type QueueEventType string

const (
	QueueEventTypeSnapshot   QueueEventType = "snapshot"
	QueueEventTypePollFailed QueueEventType = "poll_failed"
)

// QueueEvent is published by a poller after every fetch attempt
type QueueEvent struct {
	ID        string              `json:"id"`
	Scope     string              `json:"scope"`
	EventType QueueEventType      `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	Board     *QueueBoard         `json:"board,omitempty"`
	Dashboard *ReceptionDashboard `json:"dashboard,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// NewSnapshotEvent creates an event carrying a freshly polled board
func NewSnapshotEvent(scope string, board *QueueBoard, dashboard *ReceptionDashboard) *QueueEvent {
	return &QueueEvent{
		ID:        uuid.New().String(),
		Scope:     scope,
		EventType: QueueEventTypeSnapshot,
		Timestamp: time.Now(),
		Board:     board,
		Dashboard: dashboard,
	}
}

// NewPollFailedEvent creates an event reporting a failed fetch
func NewPollFailedEvent(scope string, err error) *QueueEvent {
	event := &QueueEvent{
		ID:        uuid.New().String(),
		Scope:     scope,
		EventType: QueueEventTypePollFailed,
		Timestamp: time.Now(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}
