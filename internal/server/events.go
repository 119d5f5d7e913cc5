package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jichen-jay/esp32-sound/internal/metrics"
)

// EventHub fans capture progress events out to websocket clients. New
// clients immediately receive the most recent event so a dashboard has
// something to draw before the next second boundary.
type EventHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	clients   []*websocket.Conn
	lastEvent []byte
	closed    bool
}

// NewEventHub creates an empty hub.
func NewEventHub(m *metrics.Metrics, logger *slog.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		metrics: m,
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade event client", "error", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients = append(h.clients, conn)
	count := len(h.clients)
	last := h.lastEvent
	h.mu.Unlock()

	h.metrics.SetEventClients(count)
	h.logger.Info("event client connected", "clients", count)

	if last != nil {
		if err := conn.WriteMessage(websocket.TextMessage, last); err != nil {
			h.logger.Warn("failed to replay last event", "error", err)
		}
	}
}

// Broadcast encodes the event as JSON and sends it to every client. Clients
// whose writes fail are dropped.
func (h *EventHub) Broadcast(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to encode event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.lastEvent = data

	alive := h.clients[:0]
	for _, conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("dropping event client", "error", err)
			conn.Close()
			continue
		}
		alive = append(alive, conn)
	}
	h.clients = alive
	h.metrics.SetEventClients(len(h.clients))
}

// Close disconnects every client and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, conn := range h.clients {
		conn.Close()
	}
	h.clients = nil
	h.metrics.SetEventClients(0)
}

// Clients returns the number of connected event subscribers.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
