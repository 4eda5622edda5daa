// Package chat holds the live-session hub: websocket clients grouped
// by actor, fed by the broadcast dispatcher through the task queue.
package chat

import (
	"log"
	"sync"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[string][]*Client // actor key -> sessions
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string][]*Client)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.actor.Key()] = append(h.clients[c.actor.Key()], c)
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	key := c.actor.Key()
	sessions := h.clients[key]
	for i, s := range sessions {
		if s == c {
			h.clients[key] = append(sessions[:i], sessions[i+1:]...)
			break
		}
	}
	if len(h.clients[key]) == 0 {
		delete(h.clients, key)
	}
	h.mu.Unlock()
	c.close()
}

// Deliver pushes the event to every live session of the actor. Returns
// how many sessions accepted it; zero simply means the actor is
// offline, which is not an error.
func (h *Hub) Deliver(actorKey string, ev Event) int {
	data, err := marshalEvent(ev)
	if err != nil {
		log.Printf("hub: marshal event: %v", err)
		return 0
	}
	h.mu.RLock()
	sessions := make([]*Client, len(h.clients[actorKey]))
	copy(sessions, h.clients[actorKey])
	h.mu.RUnlock()

	n := 0
	for _, c := range sessions {
		if c.deliver(ev, data) {
			n++
		}
	}
	return n
}

func (h *Hub) Online(actorKey string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[actorKey]) > 0
}
