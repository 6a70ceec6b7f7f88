package providers

import (
	"context"

	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to queue events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.QueueEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelQueueUpdates carries every event of every scope
	EventChannelQueueUpdates = "queue:updates"

	// EventChannelQueuePrefix is the prefix for scope-specific channels
	EventChannelQueuePrefix = "queue:"
)

// GetQueueChannel returns the channel name for a poller scope
func GetQueueChannel(scope string) string {
	return EventChannelQueuePrefix + scope
}
