package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
)

// DefaultHeartbeatInterval keeps idle hall screens connected through proxies
const DefaultHeartbeatInterval = 30 * time.Second

// SSEHandler streams hall board changes to connected screens
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	metrics   *observability.Metrics
	clients   map[chan *entities.HallEvent]struct{}
	mu        sync.RWMutex
}

// NewSSEHandler creates a new SSE handler. A non-positive heartbeat uses
// DefaultHeartbeatInterval.
func NewSSEHandler(eventBus providers.EventBus, heartbeat time.Duration, metrics *observability.Metrics) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: heartbeat,
		metrics:   metrics,
		clients:   make(map[chan *entities.HallEvent]struct{}),
	}
}

// StreamHall handles GET /api/stream/hall
func (h *SSEHandler) StreamHall(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	eventChan, err := h.eventBus.Subscribe(ctx, providers.EventChannelHall)
	if err != nil {
		logger.Error().Err(err).Str("channel", providers.EventChannelHall).Msg("failed to subscribe to hall events")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	clientChan := make(chan *entities.HallEvent, 10)
	h.registerClient(clientChan)
	defer h.unregisterClient(clientChan)

	h.sendEvent(w, "connected", map[string]interface{}{
		"channel":   providers.EventChannelHall,
		"timestamp": time.Now(),
	})
	flusher.Flush()

	go h.forwardEvents(ctx, eventChan, clientChan)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("client disconnected from hall stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
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

// forwardEvents moves bus events to the client, dropping them when the client lags
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.HallEvent, clientChan chan<- *entities.HallEvent) {
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
				observability.LoggerFromContext(ctx).Warn().Str("event_id", event.ID).Msg("hall stream client lagging, event dropped")
			}
		}
	}
}

func (h *SSEHandler) registerClient(clientChan chan *entities.HallEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[clientChan] = struct{}{}
	observability.RecordStreamClients(context.Background(), h.metrics, 1)
}

func (h *SSEHandler) unregisterClient(clientChan chan *entities.HallEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, clientChan)
	observability.RecordStreamClients(context.Background(), h.metrics, -1)
}

// sendEvent writes one SSE frame
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected hall screens
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
