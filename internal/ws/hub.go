package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Station rooms a client can subscribe to.
const (
	StationKitchen = "kitchen"
	StationCashier = "cashier"
	StationFloor   = "floor"
)

// ValidStation reports whether s names a known station room.
func ValidStation(s string) bool {
	switch s {
	case StationKitchen, StationCashier, StationFloor:
		return true
	}
	return false
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by station room
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan Event

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.station] == nil {
				h.rooms[client.station] = make(map[*Client]bool)
			}
			h.rooms[client.station][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.station]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.station)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for station, clients := range h.rooms {
				for client := range clients {
					select {
					case client.send <- message:
					default:
						// Client's send buffer is full, close and unregister
						close(client.send)
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.rooms, station)
						}
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast marshals payload and fans the event out to every subscribed
// client. Called by the services strictly after their transaction commits.
func (h *Hub) Broadcast(eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event payload: %v", eventType, err)
		return
	}
	h.broadcast <- Event{Type: eventType, Payload: raw}
}
