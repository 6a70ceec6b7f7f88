package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/application/services"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/providers"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/observability"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultClockTick         = time.Second
)

// SSEHandler streams queue events to display screens
type SSEHandler struct {
	eventBus  providers.EventBus
	sources   map[string]services.SnapshotSource
	metrics   *observability.Metrics
	heartbeat time.Duration
	clockTick time.Duration

	clients map[string]map[chan *entities.QueueEvent]bool // channel -> clients
	mu      sync.RWMutex
}

// SSEOption configures an SSEHandler
type SSEOption func(*SSEHandler)

// WithSnapshotSources sends each new client the current snapshot of its scopes
func WithSnapshotSources(sources map[string]services.SnapshotSource) SSEOption {
	return func(h *SSEHandler) {
		h.sources = sources
	}
}

// WithSSEMetrics records the connected client gauge
func WithSSEMetrics(metrics *observability.Metrics) SSEOption {
	return func(h *SSEHandler) {
		h.metrics = metrics
	}
}

// WithClockTick sets the interval of clock events; zero or less disables them
func WithClockTick(interval time.Duration) SSEOption {
	return func(h *SSEHandler) {
		h.clockTick = interval
	}
}

// WithHeartbeat sets the heartbeat interval
func WithHeartbeat(interval time.Duration) SSEOption {
	return func(h *SSEHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus, opts ...SSEOption) *SSEHandler {
	h := &SSEHandler{
		eventBus:  eventBus,
		heartbeat: defaultHeartbeatInterval,
		clockTick: defaultClockTick,
		clients:   make(map[string]map[chan *entities.QueueEvent]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StreamQueue handles SSE connections for queue updates
// GET /api/stream/queue?scope=today|reception
func (h *SSEHandler) StreamQueue(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	channel := providers.EventChannelQueueUpdates
	if scope != "" {
		if scope != services.PollScopeToday && scope != services.PollScopeReception {
			respondWithError(w, http.StatusBadRequest, "unknown scope: "+scope)
			return
		}
		channel = providers.GetQueueChannel(scope)
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	eventChan, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe to queue channel")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	clientChan := make(chan *entities.QueueEvent, 10)
	h.registerClient(ctx, channel, clientChan)
	defer h.unregisterClient(channel, clientChan)

	h.sendEvent(w, "connected", map[string]interface{}{
		"scope":     scope,
		"timestamp": time.Now(),
	})
	h.sendInitialSnapshots(ctx, w, scope)
	flusher.Flush()

	go h.forwardEvents(ctx, eventChan, clientChan)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	var clock <-chan time.Time
	if h.clockTick > 0 {
		clockTicker := time.NewTicker(h.clockTick)
		defer clockTicker.Stop()
		clock = clockTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("channel", channel).Msg("Client disconnected from queue stream")
			return
		case <-heartbeat.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case tick := <-clock:
			h.sendEvent(w, "clock", map[string]interface{}{
				"timestamp": tick,
			})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

// GetStats handles GET /api/stream/stats
func (h *SSEHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"connected_clients": h.GetClientCount(),
	})
}

// sendInitialSnapshots lets a screen render before the next poll
func (h *SSEHandler) sendInitialSnapshots(ctx context.Context, w http.ResponseWriter, scope string) {
	scopes := []string{scope}
	if scope == "" {
		scopes = make([]string, 0, len(h.sources))
		for s := range h.sources {
			scopes = append(scopes, s)
		}
		sort.Strings(scopes)
	}

	for _, s := range scopes {
		source, ok := h.sources[s]
		if !ok {
			continue
		}
		state, err := source.Live(ctx)
		if err != nil {
			log.Warn().Err(err).Str("scope", s).Msg("Failed to load initial snapshot")
			continue
		}
		if state.Snapshot == nil {
			continue
		}
		event := entities.NewSnapshotEvent(s, state.Snapshot.Board, state.Snapshot.Dashboard)
		event.Timestamp = state.Snapshot.FetchedAt
		h.sendEvent(w, string(event.EventType), event)
	}
}

// forwardEvents forwards events from the event bus to a client channel
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.QueueEvent, clientChan chan<- *entities.QueueEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			select {
			case clientChan <- event:
			default:
				log.Warn().Str("event_id", event.ID).Msg("Stream client is behind, dropping queue event")
			}
		}
	}
}

func (h *SSEHandler) registerClient(ctx context.Context, channel string, clientChan chan *entities.QueueEvent) {
	h.mu.Lock()
	if h.clients[channel] == nil {
		h.clients[channel] = make(map[chan *entities.QueueEvent]bool)
	}
	h.clients[channel][clientChan] = true
	total := len(h.clients[channel])
	h.mu.Unlock()

	observability.RecordSSEClient(ctx, h.metrics, 1)
	log.Debug().Str("channel", channel).Int("total", total).Msg("Stream client registered")
}

func (h *SSEHandler) unregisterClient(channel string, clientChan chan *entities.QueueEvent) {
	h.mu.Lock()
	remaining := 0
	if clients, exists := h.clients[channel]; exists {
		delete(clients, clientChan)
		remaining = len(clients)
		if remaining == 0 {
			delete(h.clients, channel)
		}
	}
	h.mu.Unlock()

	observability.RecordSSEClient(context.Background(), h.metrics, -1)
	log.Debug().Str("channel", channel).Int("remaining", remaining).Msg("Stream client unregistered")
}

// sendEvent writes one SSE frame
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}
