package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types sent over WebSocket besides the notification kinds.
const (
	EventConnected       = "connected"
	EventSessionStarted  = "session_started"
	EventSessionEnded    = "session_ended"
	EventDayProcessed    = "day_processed"
	EventCaptureRecorded = "capture_recorded"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type string `json:"type"`
	Day  uint64 `json:"day,omitempty"`
	Data any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from the client. Subscribing
// to a hero delivers the messages addressed to that hero.
type ClientMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Hero   string `json:"hero"`
}

// WSConn wraps a WebSocket connection with its host and hero subscriptions.
type WSConn struct {
	conn   *websocket.Conn
	hostID string
	send   chan []byte
}

// Hub manages WebSocket connections and hero subscriptions.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
	heroes      map[string]map[*WSConn]bool // hero -> set of connections
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]bool),
		heroes:      make(map[string]map[*WSConn]bool),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection from the hub and all its subscriptions.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	for hero, conns := range h.heroes {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.heroes, hero)
		}
	}
	close(c.send)
}

// Subscribe adds a connection to a hero's channel.
func (h *Hub) Subscribe(c *WSConn, hero string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.heroes[hero] == nil {
		h.heroes[hero] = make(map[*WSConn]bool)
	}
	h.heroes[hero][c] = true
}

// Unsubscribe removes a connection from a hero's channel.
func (h *Hub) Unsubscribe(c *WSConn, hero string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.heroes[hero]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.heroes, hero)
		}
	}
}

// Broadcast sends an event to every connection.
func (h *Hub) Broadcast(event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		h.enqueue(c, data)
	}
}

// BroadcastToHero sends an event to the connections subscribed to a hero.
func (h *Hub) BroadcastToHero(hero string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("hero", hero).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.heroes[hero] {
		h.enqueue(c, data)
	}
}

func (h *Hub) enqueue(c *WSConn, data []byte) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("hostId", c.hostID).Msg("Dropping WebSocket message, buffer full")
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HeroSubscriberCount returns the number of connections subscribed to a hero.
func (h *Hub) HeroSubscriberCount(hero string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.heroes[hero])
}
