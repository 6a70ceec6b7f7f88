package events

import (
	"context"

	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/providers"
)

// MemoryEventBus fans events out to subscribers of the same process. It is
// used when the service runs without Redis.
type MemoryEventBus struct {
	local *fanout
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus() providers.EventBus {
	return &MemoryEventBus{local: newFanout()}
}

// Publish delivers the event to every current subscriber of channel
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.QueueEvent) error {
	return b.local.deliver(channel, event)
}

// Subscribe returns a channel receiving events until ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error) {
	eventChan, err := b.local.add(channel)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		b.local.remove(channel, eventChan)
	}()
	return eventChan, nil
}

// Unsubscribe closes every subscription of channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.local.drop(channel)
	return nil
}

// Close closes every subscription and rejects further use
func (b *MemoryEventBus) Close() error {
	b.local.close()
	return nil
}
