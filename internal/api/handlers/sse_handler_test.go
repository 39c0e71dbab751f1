package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/pediatric-clinic/internal/api/handlers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
)

// MockEventBus for testing
type MockEventBus struct {
	mu           sync.RWMutex
	subscribers  map[string][]chan *entities.HallEvent
	published    []*entities.HallEvent
	subscribeErr error
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.HallEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.HallEvent) error {
	m.mu.Lock()
	m.published = append(m.published, event)
	channels := append([]chan *entities.HallEvent(nil), m.subscribers[channel]...)
	m.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.HallEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}
	ch := make(chan *entities.HallEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	subs := m.subscribers
	m.subscribers = make(map[string][]chan *entities.HallEvent)
	m.mu.Unlock()
	for _, channels := range subs {
		for _, ch := range channels {
			close(ch)
		}
	}
	return nil
}

// streamRecorder is a ResponseWriter that can be read while the stream is open
type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	status int
	body   bytes.Buffer
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header)}
}

func (s *streamRecorder) Header() http.Header { return s.header }

func (s *streamRecorder) WriteHeader(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *streamRecorder) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body.Write(p)
}

func (s *streamRecorder) Flush() {}

func (s *streamRecorder) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body.String()
}

func startStream(t *testing.T, handler *handlers.SSEHandler) (*streamRecorder, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/stream/hall", nil).WithContext(ctx)
	w := newStreamRecorder()

	done := make(chan struct{})
	go func() {
		handler.StreamHall(w, req)
		close(done)
	}()

	stop := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler did not exit after cancel")
		}
	}
	return w, stop
}

func TestSSEHandler_StreamHall(t *testing.T) {
	t.Run("should establish SSE connection", func(t *testing.T) {
		handler := handlers.NewSSEHandler(NewMockEventBus(), time.Hour, nil)
		w, stop := startStream(t, handler)

		require.Eventually(t, func() bool { return handler.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)
		require.Eventually(t, func() bool { return strings.Contains(w.String(), "event: connected") }, time.Second, 10*time.Millisecond)
		stop()

		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
		assert.Zero(t, handler.GetClientCount())
	})

	t.Run("should forward hall events", func(t *testing.T) {
		bus := NewMockEventBus()
		handler := handlers.NewSSEHandler(bus, time.Hour, nil)
		w, stop := startStream(t, handler)
		defer stop()

		require.Eventually(t, func() bool { return handler.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

		event := entities.NewHallEvent(entities.HallEventSubmitted, []string{"p1", "p2"}, "user", time.Now())
		require.NoError(t, bus.Publish(context.Background(), providers.EventChannelHall, event))

		assert.Eventually(t, func() bool {
			body := w.String()
			return strings.Contains(body, "event: submitted_to_hall") && strings.Contains(body, `"patient_ids":["p1","p2"]`)
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("should send heartbeats", func(t *testing.T) {
		handler := handlers.NewSSEHandler(NewMockEventBus(), 20*time.Millisecond, nil)
		w, stop := startStream(t, handler)
		defer stop()

		assert.Eventually(t, func() bool { return strings.Contains(w.String(), "event: heartbeat") }, time.Second, 10*time.Millisecond)
	})

	t.Run("should fail when the bus is unavailable", func(t *testing.T) {
		bus := NewMockEventBus()
		bus.subscribeErr = errors.New("redis down")
		handler := handlers.NewSSEHandler(bus, time.Hour, nil)

		w := httptest.NewRecorder()
		handler.StreamHall(w, httptest.NewRequest(http.MethodGet, "/api/stream/hall", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
