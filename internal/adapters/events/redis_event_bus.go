package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/clients/redis"
)

// queuePattern matches every queue channel, scoped and aggregate
const queuePattern = providers.EventChannelQueuePrefix + "*"

// RedisEventBus carries queue events between processes over Redis Pub/Sub.
// Each process holds one pattern subscription for all queue channels and
// relays what arrives to its local subscribers.
type RedisEventBus struct {
	client *redisclient.Client
	local  *fanout

	relayMu sync.Mutex
	relay   *redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		local:  newFanout(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish sends the event to every process subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.QueueEvent) error {
	if b.local.isClosed() {
		return ErrBusClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal queue event: %w", err)
	}
	if err := b.client.Client().Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	log.Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("event_type", string(event.EventType)).
		Msg("Published queue event")
	return nil
}

// Subscribe returns a channel receiving events published on channel by any
// process, until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error) {
	if err := b.ensureRelay(ctx); err != nil {
		return nil, err
	}

	eventChan, err := b.local.add(channel)
	if err != nil {
		return nil, err
	}
	log.Info().Str("channel", channel).Int("subscribers", b.local.count(channel)).Msg("Subscribed to queue channel")

	go func() {
		<-ctx.Done()
		b.local.remove(channel, eventChan)
	}()
	return eventChan, nil
}

// ensureRelay opens the pattern subscription on first use and waits for the
// server to confirm it, so an event published right after Subscribe returns
// is not missed.
func (b *RedisEventBus) ensureRelay(ctx context.Context) error {
	b.relayMu.Lock()
	defer b.relayMu.Unlock()

	if b.local.isClosed() {
		return ErrBusClosed
	}
	if b.relay != nil {
		return nil
	}

	pubsub := b.client.Client().PSubscribe(b.ctx, queuePattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", queuePattern, err)
	}
	b.relay = pubsub
	go b.forward(pubsub.Channel())

	log.Info().Str("pattern", queuePattern).Msg("Queue event relay started")
	return nil
}

// forward hands Redis messages to local subscribers of their channel
func (b *RedisEventBus) forward(messages <-chan *redis.Message) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if b.local.count(msg.Channel) == 0 {
				continue
			}

			var event entities.QueueEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("Ignoring malformed queue event")
				continue
			}
			_ = b.local.deliver(msg.Channel, &event)
		}
	}
}

// Unsubscribe ends every local subscription of channel. The relay stays open
// for the other channels.
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.local.drop(channel)
	log.Info().Str("channel", channel).Msg("Unsubscribed from queue channel")
	return nil
}

// Close stops the relay and ends every subscription
func (b *RedisEventBus) Close() error {
	if !b.local.close() {
		return nil
	}
	b.cancel()

	b.relayMu.Lock()
	defer b.relayMu.Unlock()

	if b.relay != nil {
		if err := b.relay.Close(); err != nil {
			return fmt.Errorf("failed to close queue event relay: %w", err)
		}
		b.relay = nil
	}
	log.Info().Msg("Event bus closed")
	return nil
}
