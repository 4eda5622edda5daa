package chat

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siberfx/wirechat/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second

	sendBuffer = 64
	seenCap    = 256
)

// Client is one live websocket session for an actor. An actor may hold
// several sessions (multiple tabs/devices); the hub fans out to all of
// them.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	actor model.Actor
	send  chan []byte

	// The task queue guarantees at-least-once delivery, so the same
	// message id can arrive twice; a small seen-set makes duplicate
	// created-events a no-op.
	mu        sync.Mutex
	seen      map[uint64]struct{}
	seenOrder []uint64

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, actor model.Actor) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		actor: actor,
		send:  make(chan []byte, sendBuffer),
		seen:  make(map[uint64]struct{}, seenCap),
	}
}

func (c *Client) Actor() model.Actor {
	return c.actor
}

// deliver queues the event for the session, dropping duplicates of
// already-delivered created events and never blocking the hub.
func (c *Client) deliver(ev Event, data []byte) bool {
	if ev.Kind == EventMessageCreated && !c.markSeen(ev.MessageID) {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		// Slow consumer; the client catches up over normal history
		// polling.
		return false
	}
}

func (c *Client) markSeen(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[id]; ok {
		return false
	}
	c.seen[id] = struct{}{}
	c.seenOrder = append(c.seenOrder, id)
	if len(c.seenOrder) > seenCap {
		oldest := c.seenOrder[0]
		c.seenOrder = c.seenOrder[1:]
		delete(c.seen, oldest)
	}
	return true
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// ReadPump drains the connection until it drops, then unregisters the
// session. Inbound frames are ignored; the write path is HTTP.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error for %s: %v", c.actor.Key(), err)
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func marshalEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}
