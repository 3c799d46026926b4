// internal/lobby/hub.go

package lobby

import "sync"

// Hub tracks the live connections of every room so they can be woken when
// the room changes. It never touches room state itself.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*Subscriber]struct{}
}

// Subscriber is one live connection. Wake receives a signal after the room
// changed; signals coalesce, so a slow reader sees at most one pending.
type Subscriber struct {
	Code   string
	UserID string
	Wake   chan struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a connection of userID to the room with the given code.
func (h *Hub) Subscribe(code, userID string) *Subscriber {
	sub := &Subscriber{Code: NormalizeCode(code), UserID: userID, Wake: make(chan struct{}, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[sub.Code]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.rooms[sub.Code] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Unsubscribe drops a connection, forgetting the room once nobody listens.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.rooms[sub.Code]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.rooms, sub.Code)
	}
}

// Notify wakes every connection of a room without blocking.
func (h *Hub) Notify(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.rooms[code] {
		select {
		case sub.Wake <- struct{}{}:
		default:
		}
	}
}

// Count returns the number of live connections of a room.
func (h *Hub) Count(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[NormalizeCode(code)])
}
