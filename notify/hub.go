// Package notify pushes agent-side events to the table's browser UI
// over websockets: state-changed nudges, and the reload command the
// nuclear reset uses to defeat in-memory UI caches.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Message is the envelope for every push. Types in use: "state"
// (local state changed, re-fetch), "reload" (payload is a
// cache-busting token the UI must navigate with).
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	// done is closed when Run exits, so a connection that lands in
	// the shutdown window fails fast instead of blocking forever on
	// the register channel.
	done chan struct{}

	mu      sync.RWMutex
	clients map[*Client]bool

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run owns the client set until the context ends. One hub per agent;
// every connected browser belongs to the same table, so there are no
// rooms to route between.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				c.closeSend()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.logger.Info("ui client connected", slog.Int("clients", len(h.clients)))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				client.closeSend()
				delete(h.clients, client)
				h.logger.Info("ui client disconnected", slog.Int("clients", len(h.clients)))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop the message, the UI
					// re-fetches full state on the next one.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast fans a message out to every connected UI client.
func (h *Hub) Broadcast(msgType string, payload any) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Warn("failed to marshal push message", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("push channel full, dropping message", slog.String("type", msgType))
	}
}

// BroadcastReload orders every attached UI to do a full reload with
// the given cache-busting token.
func (h *Hub) BroadcastReload(token string) {
	h.Broadcast("reload", map[string]string{"token": token})
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan []byte, 64)}
}

// Register attaches the client and starts its pumps. An upgrade that
// lands after the hub has stopped closes the connection instead.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		c.conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// The push channel is one-way; inbound frames only keep the
		// connection alive.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("ui client read error", slog.Any("error", err))
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
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
