package events

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
)

// ErrBusClosed is returned after Close
var ErrBusClosed = errors.New("event bus closed")

const subscriberBuffer = 100

// fanout tracks the local subscribers of each channel. Delivery never
// blocks: a subscriber whose buffer is full misses the event.
type fanout struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.QueueEvent]struct{}
	closed      bool
}

func newFanout() *fanout {
	return &fanout{subscribers: make(map[string]map[chan *entities.QueueEvent]struct{})}
}

func (f *fanout) add(channel string) (chan *entities.QueueEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrBusClosed
	}
	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[chan *entities.QueueEvent]struct{})
	}
	eventChan := make(chan *entities.QueueEvent, subscriberBuffer)
	f.subscribers[channel][eventChan] = struct{}{}
	return eventChan, nil
}

func (f *fanout) remove(channel string, eventChan chan *entities.QueueEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subscribers := f.subscribers[channel]
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(f.subscribers, channel)
	}
}

func (f *fanout) deliver(channel string, event *entities.QueueEvent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return ErrBusClosed
	}
	for subscriber := range f.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().
				Str("channel", channel).
				Str("event_id", event.ID).
				Msg("Subscriber channel full, dropping event")
		}
	}
	return nil
}

func (f *fanout) count(channel string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers[channel])
}

// drop closes every subscriber of channel
func (f *fanout) drop(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for subscriber := range f.subscribers[channel] {
		close(subscriber)
	}
	delete(f.subscribers, channel)
}

// close closes every subscriber and rejects further use. It reports false
// when the fanout was already closed.
func (f *fanout) close() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.closed = true
	for channel, subscribers := range f.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(f.subscribers, channel)
	}
	return true
}

func (f *fanout) isClosed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}
