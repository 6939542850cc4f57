package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"cropadvisor/internal"
	"cropadvisor/ports"

	"github.com/gin-gonic/gin"
)

// allFarmers is the subscription key of clients that want every event
const allFarmers = ""

const keepAliveInterval = 30 * time.Second

// EventHub fans recommendation events out to Server-Sent Events clients. It
// implements ports.EventPublisher so it can sit next to Kafka in the
// publisher chain.
type EventHub struct {
	clients   map[string]map[chan ports.RecommendationEvent]bool
	clientsMu sync.RWMutex
	closed    bool
	broadcast chan ports.RecommendationEvent
	done      chan struct{}
	closeOnce sync.Once
	logger    *internal.Logger
}

// NewEventHub creates a hub and starts its dispatch loop
func NewEventHub(logger *internal.Logger) *EventHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	hub := &EventHub{
		clients:   make(map[string]map[chan ports.RecommendationEvent]bool),
		broadcast: make(chan ports.RecommendationEvent, 100),
		done:      make(chan struct{}),
		logger:    logger,
	}

	go hub.run()
	return hub
}

func (h *EventHub) run() {
	for {
		select {
		case event := <-h.broadcast:
			h.clientsMu.RLock()
			h.deliver(h.clients[allFarmers], event)
			if event.FarmerID != allFarmers {
				h.deliver(h.clients[event.FarmerID], event)
			}
			h.clientsMu.RUnlock()

		case <-h.done:
			return
		}
	}
}

func (h *EventHub) deliver(clients map[chan ports.RecommendationEvent]bool, event ports.RecommendationEvent) {
	for ch := range clients {
		select {
		case ch <- event:
		default:
			h.logger.Warn("[EventHub] client channel full, skipping event %s", event.RecommendationID)
		}
	}
}

// Publish queues event for delivery. A full queue drops the event rather than
// blocking the recommendation path.
func (h *EventHub) Publish(_ context.Context, event ports.RecommendationEvent) error {
	select {
	case <-h.done:
		return nil
	default:
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("[EventHub] broadcast queue full, dropping event %s", event.RecommendationID)
	}
	return nil
}

// Close stops the dispatch loop and disconnects every client
func (h *EventHub) Close() error {
	h.closeOnce.Do(func() {
		h.clientsMu.Lock()
		h.closed = true
		for key, clients := range h.clients {
			for ch := range clients {
				close(ch)
			}
			delete(h.clients, key)
		}
		h.clientsMu.Unlock()
		close(h.done)
	})
	return nil
}

// ClientCount returns the number of clients subscribed under farmerID
func (h *EventHub) ClientCount(farmerID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[farmerID])
}

// Subscribe registers a client and returns its channel and a cancel func.
// After Close the returned channel is already closed.
func (h *EventHub) Subscribe(farmerID string) (<-chan ports.RecommendationEvent, func()) {
	ch := make(chan ports.RecommendationEvent, 10)

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.clients[farmerID] == nil {
		h.clients[farmerID] = make(map[chan ports.RecommendationEvent]bool)
	}
	h.clients[farmerID][ch] = true
	h.logger.Debug("[EventHub] client registered for %q (clients: %d)", farmerID, len(h.clients[farmerID]))

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(farmerID, ch) })
	}
}

func (h *EventHub) unsubscribe(farmerID string, ch chan ports.RecommendationEvent) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	clients, exists := h.clients[farmerID]
	if !exists || !clients[ch] {
		return
	}
	delete(clients, ch)
	close(ch)
	if len(clients) == 0 {
		delete(h.clients, farmerID)
	}
}

// HandleStream serves GET /api/v1/recommendations/stream
func (h *EventHub) HandleStream(c *gin.Context) {
	farmerID := c.Query("farmer_id")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// the stream outlives the server's WriteTimeout
	rc := http.NewResponseController(c.Writer)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("[EventHub] failed to clear write deadline: %v", err)
	}

	events, cancel := h.Subscribe(farmerID)
	defer cancel()

	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("[EventHub] failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.Type, string(payload))
			return true

		case <-ticker.C:
			c.SSEvent("ping", `{"status":"alive","timestamp":"`+time.Now().UTC().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}
