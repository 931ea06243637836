package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"indicator-overlay/internal/logger"
	"indicator-overlay/internal/metrics"
)

// Hub tracks connected WebSocket clients. Each client is served
// independently: every request frame is answered on the same connection, and
// nothing is fanned out between clients.
type Hub struct {
	svc     *Service
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	closed  bool
}

// NewHub creates a new Hub serving overlays from svc.
func NewHub(svc *Service, m *metrics.Metrics) *Hub {
	return &Hub{
		svc:     svc,
		metrics: m,
		clients: make(map[*Client]bool),
	}
}

// HandleWSRequest registers an upgraded connection and starts its pumps.
func (h *Hub) HandleWSRequest(conn *websocket.Conn) {
	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 16),
		done:    make(chan struct{}),
		hub:     h,
		traceID: logger.GenerateTraceID("ws", time.Now()),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.WSClients.Set(float64(count))
	slog.Info("ws client connected", "clients", count, "trace_id", client.traceID)

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	h.metrics.WSClients.Set(float64(count))
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll refuses new clients and closes every open connection. The read
// pumps then unregister themselves.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	if len(conns) > 0 {
		slog.Info("ws clients closed", "count", len(conns))
	}
}
