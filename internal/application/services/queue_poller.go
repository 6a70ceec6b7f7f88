package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/providers"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/observability"
)

const (
	// PollScopeToday is the poller scope of the day's grouped board
	PollScopeToday = "today"
	// PollScopeReception is the poller scope of the reception dashboard
	PollScopeReception = "reception"
)

// Snapshot is the result of one successful poll
type Snapshot struct {
	Scope     string                       `json:"scope"`
	FetchedAt time.Time                    `json:"fetched_at"`
	Board     *entities.QueueBoard         `json:"board,omitempty"`
	Dashboard *entities.ReceptionDashboard `json:"dashboard,omitempty"`
}

// FetchFunc performs one fetch for a poller
type FetchFunc func(ctx context.Context) (*Snapshot, error)

// ErrNoSnapshot is returned when no poll has succeeded yet
var ErrNoSnapshot = errors.New("no snapshot available yet")

// QueuePoller refreshes a snapshot on a fixed interval. It fetches once on
// Start, then on every tick. A failed fetch keeps the previous snapshot.
// There is no retry: the next tick is the retry.
type QueuePoller struct {
	scope    string
	fetch    FetchFunc
	interval time.Duration
	eventBus providers.EventBus
	cache    providers.CacheProvider
	cacheTTL time.Duration
	metrics  *observability.Metrics

	mu        sync.RWMutex
	latest    *Snapshot
	lastError error
	lastPoll  time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	runMu   sync.Mutex
}

// PollerOption configures optional poller collaborators
type PollerOption func(*QueuePoller)

// WithEventBus publishes an event after every fetch attempt
func WithEventBus(bus providers.EventBus) PollerOption {
	return func(p *QueuePoller) {
		p.eventBus = bus
	}
}

// WithSnapshotCache stores every successful snapshot for replicas
func WithSnapshotCache(cache providers.CacheProvider, ttl time.Duration) PollerOption {
	return func(p *QueuePoller) {
		p.cache = cache
		p.cacheTTL = ttl
	}
}

// WithPollerMetrics records poll counters and durations
func WithPollerMetrics(metrics *observability.Metrics) PollerOption {
	return func(p *QueuePoller) {
		p.metrics = metrics
	}
}

// NewQueuePoller creates a poller for a scope
func NewQueuePoller(scope string, fetch FetchFunc, interval time.Duration, opts ...PollerOption) *QueuePoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	p := &QueuePoller{
		scope:    scope,
		fetch:    fetch,
		interval: interval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scope returns the poller's scope name
func (p *QueuePoller) Scope() string {
	return p.scope
}

// Start fetches immediately and then on every interval until Stop is called
// or ctx is cancelled. Calling Start on a running poller is a no-op.
func (p *QueuePoller) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.run(loopCtx, p.done)

	log.Info().
		Str("scope", p.scope).
		Dur("interval", p.interval).
		Msg("Queue poller started")
}

// Stop cancels the ticker and waits for the loop to exit. No fetch starts
// after Stop returns.
func (p *QueuePoller) Stop() {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	<-p.done
	p.running = false

	log.Info().Str("scope", p.scope).Msg("Queue poller stopped")
}

func (p *QueuePoller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.PollOnce(ctx)
		}
	}
}

// PollOnce performs a single fetch and records its outcome
func (p *QueuePoller) PollOnce(ctx context.Context) {
	start := time.Now()
	snapshot, err := p.fetch(ctx)
	duration := time.Since(start)

	if err == nil && snapshot == nil {
		err = fmt.Errorf("poller %s: fetch returned no snapshot", p.scope)
	}

	// A fetch cut short by Stop is not a backend failure.
	if err != nil && ctx.Err() != nil {
		return
	}

	if p.metrics != nil {
		observability.RecordPollMetric(ctx, p.metrics, p.scope, err == nil, duration)
	}

	if err != nil {
		p.mu.Lock()
		p.lastError = err
		p.lastPoll = start
		p.mu.Unlock()

		log.Warn().
			Err(err).
			Str("scope", p.scope).
			Dur("duration", duration).
			Msg("Queue poll failed, keeping previous snapshot")

		p.publish(ctx, entities.NewPollFailedEvent(p.scope, err))
		return
	}

	snapshot.Scope = p.scope
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = start
	}

	p.mu.Lock()
	p.latest = snapshot
	p.lastError = nil
	p.lastPoll = start
	p.mu.Unlock()

	log.Debug().
		Str("scope", p.scope).
		Dur("duration", duration).
		Msg("Queue poll succeeded")

	p.storeSnapshot(ctx, snapshot)
	p.publish(ctx, entities.NewSnapshotEvent(p.scope, snapshot.Board, snapshot.Dashboard))
}

// Latest returns the last successful snapshot, or nil before the first success
func (p *QueuePoller) Latest() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// LastError returns the error of the most recent poll, nil after a success
func (p *QueuePoller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastError
}

// LastPoll returns when the most recent poll started
func (p *QueuePoller) LastPoll() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPoll
}

func (p *QueuePoller) publish(ctx context.Context, event *entities.QueueEvent) {
	if p.eventBus == nil {
		return
	}

	for _, channel := range []string{providers.GetQueueChannel(p.scope), providers.EventChannelQueueUpdates} {
		if err := p.eventBus.Publish(ctx, channel, event); err != nil {
			log.Warn().
				Err(err).
				Str("channel", channel).
				Str("event_type", string(event.EventType)).
				Msg("Failed to publish queue event")
		}
	}
}

// SnapshotCacheKey is where pollers store the latest snapshot of a scope
func SnapshotCacheKey(scope string) string {
	return fmt.Sprintf("queue:snapshot:%s", scope)
}

func (p *QueuePoller) storeSnapshot(ctx context.Context, snapshot *Snapshot) {
	if p.cache == nil || p.cacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Warn().Err(err).Str("scope", p.scope).Msg("Failed to marshal snapshot")
		return
	}
	if err := p.cache.Set(ctx, SnapshotCacheKey(p.scope), data, p.cacheTTL); err != nil {
		log.Warn().Err(err).Str("scope", p.scope).Msg("Failed to cache snapshot")
	}
}

// LoadSnapshot reads a scope's snapshot written by a poller in another process
func LoadSnapshot(ctx context.Context, cache providers.CacheProvider, scope string) (*Snapshot, error) {
	if cache == nil {
		return nil, ErrNoSnapshot
	}

	data, err := cache.Get(ctx, SnapshotCacheKey(scope))
	if err != nil {
		if errors.Is(err, providers.ErrCacheMiss) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// TodayFetcher polls the grouped board for the current date in the queue's zone
func TodayFetcher(svc *QueueService) FetchFunc {
	return func(ctx context.Context) (*Snapshot, error) {
		board, err := svc.FetchTodayBoard(ctx, svc.Today())
		if err != nil {
			return nil, err
		}
		return &Snapshot{Board: board, FetchedAt: board.GeneratedAt}, nil
	}
}

// ReceptionFetcher polls the reception dashboard
func ReceptionFetcher(svc *QueueService) FetchFunc {
	return func(ctx context.Context) (*Snapshot, error) {
		dashboard, err := svc.ReceptionDashboard(ctx)
		if err != nil {
			return nil, err
		}
		return &Snapshot{Dashboard: dashboard, FetchedAt: dashboard.GeneratedAt}, nil
	}
}

// LiveState is the latest snapshot of a scope with the outcome of the most
// recent poll. Snapshot is nil until a poll has succeeded.
type LiveState struct {
	Snapshot  *Snapshot
	LastError error
}

// SnapshotSource reports the live state of one scope
type SnapshotSource interface {
	Live(ctx context.Context) (LiveState, error)
}

// Live implements SnapshotSource from the poller's own memory
func (p *QueuePoller) Live(ctx context.Context) (LiveState, error) {
	return LiveState{Snapshot: p.Latest(), LastError: p.LastError()}, nil
}

// CachedSnapshotSource reads the snapshot a poller in another process
// stored in the shared cache. It cannot see that poller's errors.
type CachedSnapshotSource struct {
	cache providers.CacheProvider
	scope string
}

// NewCachedSnapshotSource creates a snapshot source backed by the shared cache
func NewCachedSnapshotSource(cache providers.CacheProvider, scope string) *CachedSnapshotSource {
	return &CachedSnapshotSource{cache: cache, scope: scope}
}

// Live implements SnapshotSource
func (s *CachedSnapshotSource) Live(ctx context.Context) (LiveState, error) {
	snapshot, err := LoadSnapshot(ctx, s.cache, s.scope)
	if errors.Is(err, ErrNoSnapshot) {
		return LiveState{}, nil
	}
	if err != nil {
		return LiveState{}, err
	}
	return LiveState{Snapshot: snapshot}, nil
}
