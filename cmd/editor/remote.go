package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/server"
	"github.com/milk9111/tilecanvas/session"
)

// remote mirrors a local session with a tilecanvas server: local edits are
// sent over the websocket and tiles from other clients are applied
// last-write-wins.
type remote struct {
	conn  *websocket.Conn
	sess  *session.Session
	log   logrus.FieldLogger
	send  chan server.Message
	unsub func()
	done  chan struct{}
	once  sync.Once

	mu sync.Mutex
	id string
}

// pullCanvas replaces the session contents with the server's export.
func pullCanvas(ctx context.Context, base string, sess *session.Session) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/api/canvas/export", nil)
	if err != nil {
		return err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("export: %s", res.Status)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	return sess.Import(ctx, data)
}

func wsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func dialRemote(ctx context.Context, base string, sess *session.Session, log logrus.FieldLogger) (*remote, error) {
	if err := pullCanvas(ctx, base, sess); err != nil {
		return nil, fmt.Errorf("pull canvas: %w", err)
	}
	target, err := wsURL(base)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	r := &remote{
		conn: conn,
		sess: sess,
		log:  log.WithField("remote", target),
		send: make(chan server.Message, 256),
		done: make(chan struct{}),
	}
	r.unsub = sess.Subscribe(r.onTile)
	go r.writeLoop()
	go r.readLoop()
	return r, nil
}

// onTile runs under the session lock; it only queues.
func (r *remote) onTile(ev session.TileEvent) {
	if ev.Origin != session.OriginLocal {
		return
	}
	select {
	case r.send <- server.Message{Type: server.MessageTile, X: ev.X, Y: ev.Y, Tile: ev.Tile}:
	default:
		r.log.Warn("remote send buffer full, tile dropped")
	}
}

func (r *remote) readLoop() {
	defer r.Close()
	for {
		var msg server.Message
		if err := r.conn.ReadJSON(&msg); err != nil {
			r.log.WithError(err).Info("remote closed")
			return
		}
		switch msg.Type {
		case server.MessageHello:
			r.mu.Lock()
			r.id = msg.ClientID
			r.mu.Unlock()
		case server.MessageTile:
			author := msg.Author
			if author == "" {
				author = "remote"
			}
			r.sess.ApplyRemote(msg.X, msg.Y, msg.Tile, author)
		}
	}
}

func (r *remote) writeLoop() {
	for {
		select {
		case msg := <-r.send:
			_ = r.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := r.conn.WriteJSON(msg); err != nil {
				r.log.WithError(err).Warn("remote write failed")
				r.Close()
				return
			}
		case <-r.done:
			return
		}
	}
}

// ClientID is the id the server assigned to this connection.
func (r *remote) ClientID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *remote) Close() {
	r.once.Do(func() {
		r.unsub()
		close(r.done)
		_ = r.conn.Close()
	})
}
