package ws

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// snapshotTypes are the messages a client needs to render the replay
// without history, in the order they are replayed on Register.
var snapshotTypes = []string{TypeDataLoaded, TypeSimState, TypeSummaryUpdate}

func inSnapshot(msgType string) bool {
	for _, t := range snapshotTypes {
		if t == msgType {
			return true
		}
	}
	return false
}

// Client is one connected dashboard.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans replay events out to clients. It keeps the latest scenario,
// engine state and totals so a client joining mid-replay starts from the
// current picture instead of waiting for the next update.
type Hub struct {
	mu       sync.Mutex
	clients  map[*Client]bool
	snapshot map[string][]byte
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		snapshot: make(map[string][]byte),
	}
}

// Register adds c and queues the current snapshot to it.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	for _, t := range snapshotTypes {
		if msg, ok := h.snapshot[t]; ok {
			h.enqueue(c, msg)
		}
	}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Publish sends a typed message to all clients. Scenario, state and
// summary messages also replace the snapshot.
func (h *Hub) Publish(msgType string, payload any) error {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", msgType, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if inSnapshot(msgType) {
		h.snapshot[msgType] = msg
	}
	for c := range h.clients {
		h.enqueue(c, msg)
	}
	return nil
}

// Retain replaces the snapshot entry of msgType without sending it, for
// updates the bridge throttles away.
func (h *Hub) Retain(msgType string, payload any) error {
	if !inSnapshot(msgType) {
		return fmt.Errorf("%s is not part of the replay snapshot", msgType)
	}
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", msgType, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot[msgType] = msg
	return nil
}

// enqueue drops msg for clients that do not keep up. Callers hold mu.
func (h *Hub) enqueue(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		log.Debugf("client send buffer full (%d), dropping message", cap(c.send))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
