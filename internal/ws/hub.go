// Package ws implements the real-time fan-out channel. Every connected
// observer receives every trip event; filtering by trip id is a client-side
// concern.
package ws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Simphiwe396/Delivery-pwa/internal/domain"
)

// Event types emitted to observers.
const (
	EventLocationUpdate = "locationUpdate"
	EventTripUpdate     = "tripUpdate"
	EventTripCompleted  = "tripCompleted"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TripSnapshot is the public subset of trip fields carried by every event.
type TripSnapshot struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distance"`
	Fare     float64 `json:"fare"`
	Status   string  `json:"status"`
}

// Event is the wire format for server-to-client messages.
type Event struct {
	Type string       `json:"type"`
	Trip TripSnapshot `json:"trip"`
}

// client wraps a connection with a write mutex; gorilla/websocket allows at
// most one concurrent writer per connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub tracks connected observers and broadcasts trip events to all of them.
// Delivery is best-effort: a connection that cannot be written to is dropped,
// missed events are not replayed, and failures never reach the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// Handle upgrades an HTTP request to a WebSocket connection and subscribes it
// until it disconnects. Incoming messages are read and discarded: client
// messages are never authoritative, all mutation goes through the HTTP API.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	cl := &client{conn: conn}
	h.add(cl)
	defer func() {
		h.remove(cl)
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := cl.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// LocationUpdated broadcasts a location report.
func (h *Hub) LocationUpdated(trip *domain.Trip) {
	h.broadcast(EventLocationUpdate, trip)
}

// TripUpdated broadcasts a trip creation or cancellation.
func (h *Hub) TripUpdated(trip *domain.Trip) {
	h.broadcast(EventTripUpdate, trip)
}

// TripCompleted broadcasts a trip completion.
func (h *Hub) TripCompleted(trip *domain.Trip) {
	h.broadcast(EventTripCompleted, trip)
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[cl] = struct{}{}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, cl)
}

func (h *Hub) broadcast(eventType string, trip *domain.Trip) {
	event := Event{
		Type: eventType,
		Trip: TripSnapshot{
			ID:       trip.ID,
			Lat:      trip.Lat,
			Lng:      trip.Lng,
			Distance: trip.Distance,
			Fare:     trip.Fare,
			Status:   string(trip.Status),
		},
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.writeJSON(event); err != nil {
			// One dead observer must not stop delivery to the rest.
			h.remove(cl)
			_ = cl.conn.Close()
		}
	}
}
