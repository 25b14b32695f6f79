package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultClientBuffer = 32

// Observer receives connection and drop counts.
type Observer interface {
	RelayConnected(delta int)
	RelayDropped()
}

// Client is one websocket participant on this instance.
type Client struct {
	ID        string
	SessionID string
	UserID    string
	Outbound  chan Event
}

// Hub tracks local clients per session and fans events out to them. Outbound buffers are bounded:
// a client whose buffer is full misses the event.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	buffer   int
	observer Observer
	logger   *zap.Logger
}

// NewHub constructs a Hub. observer may be nil.
func NewHub(buffer int, observer Observer, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{rooms: make(map[string]map[*Client]struct{}), buffer: buffer, observer: observer, logger: logger}
}

// Join registers a new client for a session.
func (h *Hub) Join(sessionID, userID string) *Client {
	c := &Client{ID: uuid.NewString(), SessionID: sessionID, UserID: userID, Outbound: make(chan Event, h.buffer)}
	h.mu.Lock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()
	if h.observer != nil {
		h.observer.RelayConnected(1)
	}
	return c
}

// Leave removes the client and closes its outbound channel. Calling it twice is safe.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.SessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := room[c]; !present {
		h.mu.Unlock()
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.SessionID)
	}
	close(c.Outbound)
	h.mu.Unlock()
	if h.observer != nil {
		h.observer.RelayConnected(-1)
	}
}

// Broadcast delivers evt to every local client of its session and returns the number of deliveries.
func (h *Hub) Broadcast(evt Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.rooms[evt.SessionID] {
		if h.offer(c, evt) {
			delivered++
		}
	}
	return delivered
}

// Send delivers evt to one client without blocking.
func (h *Hub) Send(c *Client, evt Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.SessionID][c]; !ok {
		return false
	}
	return h.offer(c, evt)
}

// Count returns the number of local clients in a session.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// offer must be called with the read lock held so Leave cannot close the channel concurrently.
func (h *Hub) offer(c *Client, evt Event) bool {
	select {
	case c.Outbound <- evt:
		return true
	default:
		if h.observer != nil {
			h.observer.RelayDropped()
		}
		h.logger.Debug("relay client buffer full", zap.String("session_id", c.SessionID), zap.String("client_id", c.ID))
		return false
	}
}
