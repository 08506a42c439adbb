// Package ws pushes live updates to browser clients over WebSockets using
// gorilla/websocket.
//
// Every connection belongs to one owner and only receives what is published
// for that owner:
//
//	hub := ws.NewHub()
//	go hub.Run(ctx)
//
//	r.Get("/ws/stock", "ws.stock", func(w http.ResponseWriter, r *http.Request) {
//	    ws.Upgrade(w, r, hub, auth.UserID(r.Context()))
//	})
//
//	hub.Publish(ownerID, payload)
package ws

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shashiranjanraj/billbook/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SetCheckOrigin replaces the default (allow-all) origin checker.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is one connected subscriber.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	ownerID uint
	send    chan []byte
}

// readPump only services control frames; subscribers do not talk back.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "owner_id", c.ownerID, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// ─── Hub ──────────────────────────────────────────────────────────────────────

type envelope struct {
	ownerID uint
	data    []byte
}

// Hub tracks connections per owner and fans published messages out to
// them. All map access happens on the Run goroutine.
type Hub struct {
	owners     map[uint]map[*Client]struct{}
	publish    chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		owners:     make(map[uint]map[*Client]struct{}),
		publish:    make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.owners {
				for c := range set {
					h.drop(c)
				}
			}
			return

		case c := <-h.register:
			set, ok := h.owners[c.ownerID]
			if !ok {
				set = make(map[*Client]struct{})
				h.owners[c.ownerID] = set
			}
			set[c] = struct{}{}
			h.count.Add(1)
			logger.Debug("ws: client connected", "owner_id", c.ownerID, "total", h.count.Load())

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.publish:
			for c := range h.owners[msg.ownerID] {
				select {
				case c.send <- msg.data:
				default:
					// Slow consumer.
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	set, ok := h.owners[c.ownerID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.owners, c.ownerID)
	}
	close(c.send)
	h.count.Add(-1)
}

// Publish queues data for every connection of ownerID. It never blocks; a
// full queue drops the message.
func (h *Hub) Publish(ownerID uint, data []byte) bool {
	select {
	case h.publish <- envelope{ownerID: ownerID, data: data}:
		return true
	default:
		logger.Warn("ws: publish queue full, message dropped", "owner_id", ownerID)
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// ─── Upgrade ─────────────────────────────────────────────────────────────────

// Upgrade switches the request to a WebSocket subscribed to ownerID.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *Hub, ownerID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}
	c := &Client{hub: hub, conn: conn, ownerID: ownerID, send: make(chan []byte, sendBuffer)}
	select {
	case hub.register <- c:
	case <-hub.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
