package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/session"
	"github.com/milk9111/tilecanvas/tilemap"
)

const (
	MessageHello = "hello"
	MessageTile  = "tile"

	sendBuffer   = 256
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingEvery    = pongWait * 9 / 10
	maxMessage   = 4096
)

// Message is the websocket wire format. Tile is null for an erase.
type Message struct {
	Type     string        `json:"type"`
	X        int           `json:"x"`
	Y        int           `json:"y"`
	Tile     *tilemap.Tile `json:"tile"`
	Author   string        `json:"author,omitempty"`
	ClientID string        `json:"clientId,omitempty"`
}

type clientConn struct {
	id   string
	conn *websocket.Conn
	send chan Message
	once sync.Once
}

func (c *clientConn) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub relays tile changes between websocket clients and the session. Remote
// writes are last-write-wins: the session applies them as they arrive and
// every other client receives them.
type Hub struct {
	mu      sync.Mutex
	sess    *session.Session
	clients map[*clientConn]struct{}
	unsub   func()
	log     logrus.FieldLogger

	upgrader websocket.Upgrader
}

func NewHub(sess *session.Session, log logrus.FieldLogger) *Hub {
	h := &Hub{
		sess:    sess,
		clients: make(map[*clientConn]struct{}),
		log:     log.WithField("component", "hub"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
	h.unsub = sess.Subscribe(h.onTile)
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// onTile runs under the session lock, so it only queues.
func (h *Hub) onTile(ev session.TileEvent) {
	msg := Message{Type: MessageTile, X: ev.X, Y: ev.Y, Tile: ev.Tile, Author: ev.Author}
	skip := ""
	if ev.Origin == session.OriginRemote {
		skip = ev.Author
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.id == skip {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.log.WithField("client", c.id).Warn("client too slow, disconnecting")
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.WithFields(logrus.Fields{"client": c.id, "clients": n}).Info("client connected")
}

func (h *Hub) remove(c *clientConn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and serves one client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	c := &clientConn{id: uuid.NewString(), conn: conn, send: make(chan Message, sendBuffer)}
	c.send <- Message{Type: MessageHello, ClientID: c.id}
	h.add(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *clientConn) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		h.log.WithField("client", c.id).Info("client disconnected")
	}()
	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.log.WithError(err).WithField("client", c.id).Debug("bad message")
			continue
		}
		if msg.Type != MessageTile {
			continue
		}
		if msg.Tile != nil && tilemap.IsEmptyType(msg.Tile.Type) {
			msg.Tile = nil
		}
		if msg.Tile != nil && msg.Tile.Variant != nil {
			*msg.Tile = msg.Tile.WithVariant(*msg.Tile.Variant)
		}
		h.sess.ApplyRemote(msg.X, msg.Y, msg.Tile, c.id)
	}
}

func (h *Hub) writePump(c *clientConn) {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).WithField("client", c.id).Debug("client write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and stops listening to the session.
func (h *Hub) Close() {
	h.unsub()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
