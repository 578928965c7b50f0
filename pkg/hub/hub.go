// Package hub fans out alert and status events to dashboard
// websocket clients using the channel-based broadcast pattern.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/visionaid/go-visionaid/internal/log"
)

// Event is one message pushed to dashboard clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Time    time.Time   `json:"time"`
}

// Hub maintains the set of connected clients and broadcasts events
// to all of them. Slow clients are dropped rather than allowed to
// back up the alert pipeline.
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// New creates a hub. Name appears in log lines only.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run dispatches events until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("websocket client connected", "hub", h.name, "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("websocket client disconnected", "hub", h.name, "clients", count)

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow websocket client", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish broadcasts an event to every connected client. It never
// blocks; if the hub is saturated the event is dropped.
func (h *Hub) Publish(eventType string, payload interface{}) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload, Time: time.Now()})
	if err != nil {
		log.Error("failed to encode hub event", "hub", h.name, "type", eventType, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warn("hub broadcast channel full, dropping event", "hub", h.name, "type", eventType)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
