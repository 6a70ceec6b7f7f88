package handlers_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Receptionqueue/backend/internal/adapters/events"
	"github.com/zatekoja/Receptionqueue/backend/internal/api/handlers"
	"github.com/zatekoja/Receptionqueue/backend/internal/application/services"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/providers"
)

type sseFrame struct {
	event string
	data  string
}

func scanFrames(body io.Reader) <-chan sseFrame {
	frames := make(chan sseFrame, 32)
	go func() {
		defer close(frames)
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		var current sseFrame
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				current.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				current.data = strings.TrimPrefix(line, "data: ")
			case line == "":
				frames <- current
				current = sseFrame{}
			}
		}
	}()
	return frames
}

// nextFrame skips frames until one of the wanted type arrives
func nextFrame(t *testing.T, frames <-chan sseFrame, want string) sseFrame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame, ok := <-frames:
			require.True(t, ok, "stream closed while waiting for %s", want)
			if frame.event == want {
				return frame
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
			return sseFrame{}
		}
	}
}

func openStream(t *testing.T, handler *handlers.SSEHandler, query string) (<-chan sseFrame, *http.Response, context.CancelFunc) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler.StreamQueue))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+query, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		resp.Body.Close()
	})
	return scanFrames(resp.Body), resp, cancel
}

func TestSSEHandler_StreamQueue(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()

	source := &stubSource{state: services.LiveState{
		Snapshot: &services.Snapshot{Scope: services.PollScopeToday, FetchedAt: fixedNow, Board: liveBoard()},
	}}
	handler := handlers.NewSSEHandler(bus,
		handlers.WithSnapshotSources(map[string]services.SnapshotSource{services.PollScopeToday: source}),
		handlers.WithClockTick(20*time.Millisecond),
	)

	frames, resp, _ := openStream(t, handler, "?scope=today")
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	connected := nextFrame(t, frames, "connected")
	assert.Contains(t, connected.data, `"scope":"today"`)

	initial := nextFrame(t, frames, "snapshot")
	assert.Contains(t, initial.data, `"date":"2025-01-20"`)

	event := entities.NewPollFailedEvent(services.PollScopeToday, errors.New("backend down"))
	require.NoError(t, bus.Publish(context.Background(), providers.GetQueueChannel(services.PollScopeToday), event))

	failed := nextFrame(t, frames, "poll_failed")
	assert.Contains(t, failed.data, "backend down")
	assert.Contains(t, failed.data, event.ID)

	clock := nextFrame(t, frames, "clock")
	assert.Contains(t, clock.data, "timestamp")
	assert.NotContains(t, clock.data, "board")
}

func TestSSEHandler_AllScopes(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus, handlers.WithClockTick(0))

	frames, _, _ := openStream(t, handler, "")
	nextFrame(t, frames, "connected")

	board := liveBoard()
	event := entities.NewSnapshotEvent(services.PollScopeReception, nil, &entities.ReceptionDashboard{GeneratedAt: fixedNow})
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelQueueUpdates, event))
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelQueueUpdates,
		entities.NewSnapshotEvent(services.PollScopeToday, board, nil)))

	first := nextFrame(t, frames, "snapshot")
	assert.Contains(t, first.data, `"scope":"reception"`)
	second := nextFrame(t, frames, "snapshot")
	assert.Contains(t, second.data, `"scope":"today"`)
}

func TestSSEHandler_Heartbeat(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus, handlers.WithClockTick(0), handlers.WithHeartbeat(20*time.Millisecond))

	frames, _, _ := openStream(t, handler, "?scope=reception")
	nextFrame(t, frames, "connected")
	heartbeat := nextFrame(t, frames, "heartbeat")
	assert.Contains(t, heartbeat.data, "timestamp")
}

func TestSSEHandler_UnknownScope(t *testing.T) {
	handler := handlers.NewSSEHandler(events.NewMemoryEventBus())

	req := httptest.NewRequest(http.MethodGet, "/api/stream/queue?scope=lobby", nil)
	w := httptest.NewRecorder()
	handler.StreamQueue(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSSEHandler_ClosedBus(t *testing.T) {
	bus := events.NewMemoryEventBus()
	require.NoError(t, bus.Close())
	handler := handlers.NewSSEHandler(bus)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/queue", nil)
	w := httptest.NewRecorder()
	handler.StreamQueue(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSSEHandler_ClientCount(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus, handlers.WithClockTick(0))

	assert.Equal(t, 0, handler.GetClientCount())

	frames, _, cancel := openStream(t, handler, "?scope=today")
	nextFrame(t, frames, "connected")
	assert.Equal(t, 1, handler.GetClientCount())

	stats := httptest.NewRecorder()
	handler.GetStats(stats, httptest.NewRequest(http.MethodGet, "/api/stream/stats", nil))
	assert.JSONEq(t, `{"connected_clients": 1}`, stats.Body.String())

	cancel()
	assert.Eventually(t, func() bool {
		return handler.GetClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
