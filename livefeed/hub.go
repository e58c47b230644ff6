// Package livefeed broadcasts the engine's latest command record to
// connected websocket subscribers, the concrete stand-in for the
// dashboard/rendering layer placed out of scope by the core controller.
// Grounded on the hub/client broadcast pattern used for real-time updates
// in the rest of the example pack.
package livefeed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/solarhome/gridctl/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one connected websocket subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans the latest command out to every connected subscriber. The zero
// value is not usable; construct with NewHub.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	lastMu sync.RWMutex
	last   []byte
}

// NewHub returns an empty, ready-to-use Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// Publish marshals cmd and broadcasts it to every connected subscriber,
// also caching it so new connections immediately receive the latest state.
func (h *Hub) Publish(cmd telemetry.Command) {
	msg, err := json.Marshal(cmd)
	if err != nil {
		slog.Error("failed to marshal command for live feed", "error", err)
		return
	}

	h.lastMu.Lock()
	h.last = msg
	h.lastMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Warn("live feed client buffer full, dropping message")
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount reports how many subscribers are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket connection and streams
// command updates to it until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("live feed websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.register(c)
	go h.writePump(c)

	h.lastMu.RLock()
	last := h.last
	h.lastMu.RUnlock()
	if last != nil {
		select {
		case c.send <- last:
		default:
		}
	}

	h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	for {
		// gridctl's feed is one-directional; discard any inbound message but
		// keep reading so the connection's close/ping frames are handled.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
