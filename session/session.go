// Package session is the canvas controller: it owns one tilemap and routes
// every local edit through the command history, batches dirty tiles to the
// persistence backend and fans tile changes out to subscribers.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/autotile"
	"github.com/milk9111/tilecanvas/batch"
	"github.com/milk9111/tilecanvas/history"
	"github.com/milk9111/tilecanvas/persist"
	"github.com/milk9111/tilecanvas/tilemap"
)

// Options configure a Session. Zero values pick defaults.
type Options struct {
	CanvasID string
	Author   string
	Meta     *tilemap.Meta

	// Backend persists and loads chunks. nil keeps the canvas in memory.
	Backend persist.Backend

	QueueSize       int
	CommitTimeout   time.Duration
	BatchSize       int
	HistoryCapacity int
	Limits          Limits

	// StrictPalette rejects tile types missing from a non-empty palette.
	StrictPalette bool

	// PersistRemote marks tiles received through ApplyRemote dirty so the
	// next flush saves them. Set it on the session that owns the database.
	PersistRemote bool

	// LoadTimeout bounds chunk loads for edits that take no context.
	LoadTimeout time.Duration

	Log   logrus.FieldLogger
	Clock func() time.Time
}

// Session is safe for concurrent use; every exported method takes the
// session lock.
type Session struct {
	mu sync.Mutex

	id       string
	canvasID string
	author   string
	limits   Limits
	strict   bool
	remote   bool
	timeout  time.Duration
	clock    func() time.Time
	log      logrus.FieldLogger

	meta    *tilemap.Meta
	store   *tilemap.Store
	engine  *autotile.Engine
	history *history.Manager
	stroke  history.Stroke
	brush   int
	last    *tilemap.Pos
	pending *tilemap.Tile

	backend persist.Backend
	queue   *persist.Queue
	batcher *batch.Batcher
	closed  bool

	subMu   sync.Mutex
	subs    map[int]func(TileEvent)
	nextSub int
}

// New builds a session. The meta is copied.
func New(opts Options) (*Session, error) {
	meta := tilemap.DefaultMeta()
	if opts.Meta != nil {
		meta = opts.Meta.Clone()
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Session{
		id:       uuid.NewString(),
		canvasID: opts.CanvasID,
		author:   opts.Author,
		limits:   opts.Limits.withDefaults(),
		strict:   opts.StrictPalette,
		remote:   opts.PersistRemote,
		timeout:  opts.LoadTimeout,
		clock:    clock,
		meta:     &meta,
		brush:    1,
		backend:  opts.Backend,
		subs:     make(map[int]func(TileEvent)),
	}
	if s.canvasID == "" {
		s.canvasID = uuid.NewString()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultLoadTimeout
	}
	if s.author == "" {
		s.author = "local"
	}
	s.log = log.WithFields(logrus.Fields{"canvas": s.canvasID, "session": s.id})
	if s.backend == nil {
		s.backend = persist.NewMemoryBackend()
	}

	storeOpts := []tilemap.Option{
		tilemap.WithLogger(s.log),
		tilemap.WithSource(persist.Source{Loader: s.backend, CanvasID: s.canvasID}),
	}
	s.store = tilemap.NewStore(s.meta, storeOpts...)
	s.engine = autotile.New(autotile.WithSpriteTypes(s.hasSprite))
	s.history = history.NewManager(s.store, s.engine,
		history.WithCapacity(opts.HistoryCapacity),
		history.WithLogger(s.log),
		history.WithObserver(s.onHistory),
	)
	s.queue = persist.NewQueue(s.backend, opts.QueueSize, opts.CommitTimeout, s.log)
	s.batcher = &batch.Batcher{
		Committer: s.queue,
		CanvasID:  s.canvasID,
		ChunkSize: s.store.ChunkSize(),
		Author:    s.author,
		Size:      opts.BatchSize,
		Clock:     clock,
		Log:       s.log,
	}
	return s, nil
}

// hasSprite decides which types carry variants. With no palette every type
// does.
func (s *Session) hasSprite(typ string) bool {
	if len(s.meta.Palette) == 0 {
		return true
	}
	return s.meta.Palette.HasSprite(typ)
}

func (s *Session) onHistory(ev history.Event) {
	// strokes were published while they were painted
	if ev.Op == history.OpRecord {
		return
	}
	s.publish(OriginLocal, s.author, ev.Changes)
}

func (s *Session) ID() string       { return s.id }
func (s *Session) CanvasID() string { return s.canvasID }
func (s *Session) Author() string   { return s.author }
func (s *Session) Limits() Limits   { return s.limits }

// Meta returns a copy of the tilemap meta.
func (s *Session) Meta() tilemap.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.Clone()
}

// Tile returns the tile at (x, y).
func (s *Session) Tile(x, y int) (tilemap.Tile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(x, y)
}

// Tiles lists the tiles inside r in row-major chunk order, loading the
// chunks r covers first.
func (s *Session) Tiles(ctx context.Context, r tilemap.Rect) ([]tilemap.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, err := s.store.LoadRect(ctx, r); err != nil {
		return nil, fmt.Errorf("session: load tiles: %w", err)
	}
	var out []tilemap.Placement
	s.store.EachInRect(r, func(x, y int, t tilemap.Tile) {
		p := tilemap.Placement{X: x, Y: y, Type: t.Type, Color: t.Color}
		if t.Variant != nil {
			v := *t.Variant
			p.Variant = &v
		}
		out = append(out, p)
	})
	return out, nil
}

// View runs fn with the store under the session lock, for renderers.
func (s *Session) View(fn func(st *tilemap.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

// Status is a snapshot of the session for status indicators.
type Status struct {
	UndoLen   int                `json:"undo"`
	RedoLen   int                `json:"redo"`
	Dirty     int                `json:"dirty"`
	Pending   int                `json:"pendingChunks"`
	Tiles     int                `json:"tiles"`
	Queue     persist.QueueStats `json:"queue"`
	Connected bool               `json:"connected"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		UndoLen:   s.history.UndoLen(),
		RedoLen:   s.history.RedoLen(),
		Dirty:     s.store.DirtyCount(),
		Pending:   s.store.Pending(),
		Tiles:     s.store.Len(),
		Queue:     s.queue.Stats(),
		Connected: s.queue.Healthy(),
	}
}

// Close flushes dirty tiles, drains the write queue and closes the backend.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	_, err := s.flushLocked(ctx)
	s.closed = true
	s.store.Close()
	s.mu.Unlock()

	s.queue.Close()
	if cerr := s.backend.Close(); err == nil {
		err = cerr
	}
	return err
}
