// Package ws pushes new messages to connected clients over websockets.
package ws

import (
	"net/http"
	"sync"
	"time"

	"food-ordering-api/access"
	"food-ordering-api/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Hub keeps the set of connected clients and fans messages out to the ones
// allowed to see them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan *models.Message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	once       sync.Once
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	caller access.Caller
	send   chan *models.Message
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan *models.Message, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.Named("ws"),
	}
}

// Run owns the client set. It returns after Close.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case m := <-h.broadcast:
			for c := range h.clients {
				if !canSee(c.caller, m) {
					continue
				}
				select {
				case c.send <- m:
				default:
					// Slow reader.
					delete(h.clients, c)
					close(c.send)
				}
			}
		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// Close stops Run and disconnects every client.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

// Publish queues m for delivery. It never blocks the caller.
func (h *Hub) Publish(m *models.Message) {
	select {
	case h.broadcast <- m:
	default:
		h.log.Warn("broadcast queue full, dropping message push", zap.Uint("message_id", m.ID))
	}
}

// Serve upgrades the request and subscribes the connection for caller.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, caller access.Caller) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{hub: h, conn: conn, caller: caller, send: make(chan *models.Message, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}
	h.log.Debug("client connected", zap.Uint("user_id", caller.AccountID), zap.String("role", string(caller.Role)))

	go c.writePump()
	go c.readPump()
	return nil
}

// canSee reports whether the account behind c may receive m.
func canSee(c access.Caller, m *models.Message) bool {
	switch {
	case c.AccountID == m.SenderID:
		return true
	case m.ReceiverID != nil && c.AccountID == *m.ReceiverID:
		return true
	case c.IsSuperAdmin():
		return true
	case c.Role.TenantScoped():
		return c.RestaurantID != nil && *c.RestaurantID == m.RestaurantID
	}
	return false
}

// readPump only watches for the connection closing; clients do not send
// messages over the socket.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("ws read error", zap.Uint("user_id", c.caller.AccountID), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case m, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(m); err != nil {
				c.hub.log.Debug("ws write error", zap.Uint("user_id", c.caller.AccountID), zap.Error(err))
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
