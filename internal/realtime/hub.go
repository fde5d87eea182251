package realtime

import (
	"sync"

	"github.com/google/uuid"
)

const clientBuffer = 64

// Client is one connected device. Send is drained by the websocket writer.
type Client struct {
	UserID uuid.UUID
	Send   chan Event

	rooms map[string]struct{}
}

func NewClient(userID uuid.UUID) *Client {
	return &Client{UserID: userID, Send: make(chan Event, clientBuffer), rooms: map[string]struct{}{}}
}

// Hub tracks room membership of the clients connected to this instance.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: map[string]map[*Client]struct{}{}}
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.rooms[room]
	if set == nil {
		set = map[*Client]struct{}{}
		h.rooms[room] = set
	}
	set[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if set, ok := h.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Remove drops c from every room it joined.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
}

// Deliver pushes env to every local client in its rooms. A client in
// several target rooms receives the event once. Full buffers drop the
// event; the number of deliveries is returned.
func (h *Hub) Deliver(env Envelope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := map[*Client]struct{}{}
	n := 0
	for _, room := range env.Rooms {
		for c := range h.rooms[room] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			select {
			case c.Send <- Event{Type: env.Type, Room: room, Data: env.Data}:
				n++
			default:
			}
		}
	}
	return n
}

// Size returns the number of clients in room.
func (h *Hub) Size(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
