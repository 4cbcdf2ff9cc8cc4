package tilemap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// LoadState distinguishes an empty cell from a cell whose chunk has not been
// fetched yet.
type LoadState int

const (
	Absent LoadState = iota
	Present
	NotLoaded
)

func (s LoadState) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	case NotLoaded:
		return "not_loaded"
	default:
		return "unknown"
	}
}

const (
	// DefaultViewportPadding is the number of chunks loaded beyond the viewport.
	DefaultViewportPadding = 2
	// DefaultEvictAfter is how many viewport updates a chunk may stay out of
	// range before it becomes eligible for eviction.
	DefaultEvictAfter = 8
)

// ErrNotLoaded is returned when a chunk could not be fetched.
var ErrNotLoaded = errors.New("tilemap: chunk not loaded")

// ChunkTile is a tile addressed by its chunk-local coordinates.
type ChunkTile struct {
	LocalX int
	LocalY int
	Tile   Tile
}

// ChunkSource fetches persisted chunk contents. It is called from a background
// goroutine; results are applied by Store.Pump on the caller's goroutine.
type ChunkSource interface {
	FetchChunk(ctx context.Context, key ChunkKey) ([]ChunkTile, error)
}

// DirtyTile is a position with unflushed local writes and its current tile
// (nil when the tile was deleted).
type DirtyTile struct {
	Pos
	Tile *Tile
}

type fetchResult struct {
	key   ChunkKey
	tiles []ChunkTile
	err   error
}

// Option configures a Store.
type Option func(*Store)

// WithSource enables windowed loading from src.
func WithSource(src ChunkSource) Option {
	return func(s *Store) { s.source = src }
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithEvictAfter sets the eviction age in viewport updates. n <= 0 disables eviction.
func WithEvictAfter(n int) Option {
	return func(s *Store) { s.evictAfter = n }
}

// WithViewportPadding sets the chunk margin used by LoadVisibleChunks.
func WithViewportPadding(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.padding = n
		}
	}
}

// Store is the authoritative in-memory sparse tile set of one canvas session,
// partitioned into chunks. It is not safe for concurrent use; background
// fetches only hand results over a channel that Pump drains.
type Store struct {
	meta   *Meta
	size   int
	chunks map[ChunkKey]*Chunk

	source     ChunkSource
	ctx        context.Context
	cancel     context.CancelFunc
	pending    map[ChunkKey]struct{}
	results    chan fetchResult
	generation int
	evictAfter int
	padding    int

	dirtyOrder []Pos
	dirtySet   map[Pos]struct{}

	log logrus.FieldLogger
}

// NewStore creates a store for meta. The store keeps a reference to meta so
// bounds follow Resize; the chunk size is fixed at construction.
func NewStore(meta *Meta, opts ...Option) *Store {
	if meta == nil {
		m := DefaultMeta()
		meta = &m
	}
	size := meta.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
		meta.ChunkSize = size
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		meta:       meta,
		size:       size,
		chunks:     make(map[ChunkKey]*Chunk),
		ctx:        ctx,
		cancel:     cancel,
		pending:    make(map[ChunkKey]struct{}),
		results:    make(chan fetchResult, 64),
		evictAfter: DefaultEvictAfter,
		padding:    DefaultViewportPadding,
		dirtySet:   make(map[Pos]struct{}),
		log:        discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close cancels outstanding fetches.
func (s *Store) Close() {
	s.cancel()
}

// Meta returns the meta the store was created with.
func (s *Store) Meta() *Meta { return s.meta }

// ChunkSize returns the chunk edge length.
func (s *Store) ChunkSize() int { return s.size }

func (s *Store) locate(x, y int) (*Chunk, int, ChunkKey) {
	cc := ToChunkCoords(x, y, s.size)
	key := cc.Key()
	ch := s.chunks[key]
	return ch, cc.LocalY*s.size + cc.LocalX, key
}

func (s *Store) chunkLoaded(ch *Chunk) bool {
	if s.source == nil {
		return true
	}
	return ch != nil && ch.loaded
}

// Get returns a copy of the tile at (x, y).
func (s *Store) Get(x, y int) (Tile, bool) {
	ch, i, _ := s.locate(x, y)
	if !ch.has(i) {
		return Tile{}, false
	}
	return ch.tiles[ch.sparse[i]].Clone(), true
}

// Lookup is Get that also reports whether the owning chunk has been loaded.
// It never blocks on the persistence layer.
func (s *Store) Lookup(x, y int) (Tile, LoadState) {
	ch, i, _ := s.locate(x, y)
	if ch.has(i) {
		return ch.tiles[ch.sparse[i]].Clone(), Present
	}
	if !s.chunkLoaded(ch) {
		return Tile{}, NotLoaded
	}
	return Tile{}, Absent
}

// InBounds reports whether (x, y) is inside the map and its chunk is loaded.
func (s *Store) InBounds(x, y int) bool {
	if !s.meta.InBounds(x, y) {
		return false
	}
	if s.source == nil {
		return true
	}
	ch, _, _ := s.locate(x, y)
	return s.chunkLoaded(ch)
}

func (s *Store) chunkFor(key ChunkKey) *Chunk {
	ch := s.chunks[key]
	if ch == nil {
		ch = newChunk(key, s.size)
		ch.loaded = s.source == nil
		ch.lastSeen = s.generation
		s.chunks[key] = ch
	}
	return ch
}

// Set inserts or overwrites the tile at (x, y) and marks it dirty.
func (s *Store) Set(x, y int, t Tile) error {
	if IsEmptyType(t.Type) {
		return fmt.Errorf("%w: type %q at %s", ErrInvalidTile, t.Type, CoordToKey(x, y))
	}
	if !s.meta.InBounds(x, y) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, CoordToKey(x, y))
	}
	_, i, key := s.locate(x, y)
	ch := s.chunkFor(key)
	if ch.has(i) && ch.tiles[ch.sparse[i]].Equal(t) {
		return nil
	}
	ch.set(i, t.Clone())
	ch.touch(i)
	s.markDirty(ch, x, y)
	return nil
}

// Delete removes the tile at (x, y). Absence is how an empty cell is stored.
func (s *Store) Delete(x, y int) {
	ch, i, _ := s.locate(x, y)
	if ch == nil {
		return
	}
	ch.touch(i)
	if ch.remove(i) {
		s.markDirty(ch, x, y)
	}
}

// Apply writes t at (x, y), deleting when t is nil.
func (s *Store) Apply(x, y int, t *Tile) error {
	return ApplyTile(s, x, y, t)
}

// ApplyRemote applies an update received from another client. The last write
// wins; the update is neither marked dirty nor recorded anywhere.
func (s *Store) ApplyRemote(x, y int, t *Tile) {
	_, i, key := s.locate(x, y)
	if t == nil {
		if ch := s.chunks[key]; ch != nil {
			ch.remove(i)
		}
		return
	}
	if IsEmptyType(t.Type) || !s.meta.InBounds(x, y) {
		return
	}
	s.chunkFor(key).set(i, t.Clone())
}

func (s *Store) markDirty(ch *Chunk, x, y int) {
	ch.dirty = true
	p := Pos{x, y}
	if _, ok := s.dirtySet[p]; ok {
		return
	}
	s.dirtySet[p] = struct{}{}
	s.dirtyOrder = append(s.dirtyOrder, p)
}

// MarkDirty flags positions for the next flush again, for writes that never
// reached the persistence layer.
func (s *Store) MarkDirty(ps ...Pos) {
	for _, p := range ps {
		_, _, key := s.locate(p.X, p.Y)
		s.markDirty(s.chunkFor(key), p.X, p.Y)
	}
}

// DirtyCount returns the number of positions awaiting a flush.
func (s *Store) DirtyCount() int { return len(s.dirtyOrder) }

// TakeDirty returns dirty positions in the order they were first written,
// with their current contents, and clears the dirty state.
func (s *Store) TakeDirty() []DirtyTile {
	out := make([]DirtyTile, 0, len(s.dirtyOrder))
	for _, p := range s.dirtyOrder {
		out = append(out, DirtyTile{Pos: p, Tile: GetPtr(s, p.X, p.Y)})
	}
	for _, ch := range s.chunks {
		ch.dirty = false
	}
	s.dirtyOrder = nil
	s.dirtySet = make(map[Pos]struct{})
	return out
}

// Len returns the number of tiles held.
func (s *Store) Len() int {
	n := 0
	for _, ch := range s.chunks {
		n += ch.Len()
	}
	return n
}

// Each calls fn for every tile in chunk-key then row-major order.
func (s *Store) Each(fn func(x, y int, t Tile)) {
	for _, key := range s.ChunkKeys() {
		ch := s.chunks[key]
		type entry struct {
			lx, ly int
			t      Tile
		}
		entries := make([]entry, 0, ch.Len())
		ch.Each(func(lx, ly int, t Tile) {
			entries = append(entries, entry{lx, ly, t})
		})
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].ly != entries[j].ly {
				return entries[i].ly < entries[j].ly
			}
			return entries[i].lx < entries[j].lx
		})
		for _, e := range entries {
			x, y := FromChunkCoords(ChunkCoords{ChunkX: key.X, ChunkY: key.Y, LocalX: e.lx, LocalY: e.ly}, s.size)
			fn(x, y, e.t.Clone())
		}
	}
}

// EachInRect calls fn for every tile inside r.
func (s *Store) EachInRect(r Rect, fn func(x, y int, t Tile)) {
	min, max := r.ChunkRange(s.size)
	for cy := min.Y; cy <= max.Y; cy++ {
		for cx := min.X; cx <= max.X; cx++ {
			ch := s.chunks[ChunkKey{cx, cy}]
			ch.Each(func(lx, ly int, t Tile) {
				x, y := FromChunkCoords(ChunkCoords{ChunkX: cx, ChunkY: cy, LocalX: lx, LocalY: ly}, s.size)
				if r.Contains(x, y) {
					fn(x, y, t.Clone())
				}
			})
		}
	}
}

// Snapshot returns all tiles keyed by tile key.
func (s *Store) Snapshot() map[string]Tile {
	out := make(map[string]Tile, s.Len())
	s.Each(func(x, y int, t Tile) {
		out[CoordToKey(x, y)] = t
	})
	return out
}

// Bounds returns the bounding rect of all tiles; ok is false when empty.
func (s *Store) Bounds() (r Rect, ok bool) {
	s.Each(func(x, y int, _ Tile) {
		if !ok {
			r = Rect{MinX: x, MinY: y, MaxX: x, MaxY: y}
			ok = true
			return
		}
		r.MinX = min(r.MinX, x)
		r.MinY = min(r.MinY, y)
		r.MaxX = max(r.MaxX, x)
		r.MaxY = max(r.MaxY, y)
	})
	return r, ok
}

// Clear drops every tile and the dirty state. Loaded chunks stay loaded.
func (s *Store) Clear() {
	for key, ch := range s.chunks {
		fresh := newChunk(key, s.size)
		fresh.loaded = ch.loaded
		fresh.lastSeen = ch.lastSeen
		s.chunks[key] = fresh
	}
	s.dirtyOrder = nil
	s.dirtySet = make(map[Pos]struct{})
}

// ChunkKeys returns the keys of all resident chunks, sorted.
func (s *Store) ChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys
}

// Chunk returns the resident chunk for key, or nil.
func (s *Store) Chunk(key ChunkKey) *Chunk {
	return s.chunks[key]
}

// LoadVisibleChunks makes sure every chunk overlapping rect (plus the padding
// margin) is resident or requested, and evicts clean chunks that have been out
// of range for too long. It returns the keys in range and never blocks.
func (s *Store) LoadVisibleChunks(rect Rect) []ChunkKey {
	s.generation++
	min, max := rect.ChunkRange(s.size)
	min.X -= s.padding
	min.Y -= s.padding
	max.X += s.padding
	max.Y += s.padding

	keys := make([]ChunkKey, 0, (max.X-min.X+1)*(max.Y-min.Y+1))
	for cy := min.Y; cy <= max.Y; cy++ {
		for cx := min.X; cx <= max.X; cx++ {
			key := ChunkKey{cx, cy}
			keys = append(keys, key)
			ch := s.chunkFor(key)
			ch.lastSeen = s.generation
			if !ch.loaded {
				s.request(key)
			}
		}
	}
	s.evict()
	return keys
}

// LoadChunks requests every listed chunk that is not loaded yet and blocks
// until the fetches are merged or ctx is done. It returns how many of the
// listed chunks became loaded.
func (s *Store) LoadChunks(ctx context.Context, keys []ChunkKey) (int, error) {
	if s.source == nil {
		return 0, nil
	}
	var want []ChunkKey
	for _, key := range keys {
		ch := s.chunkFor(key)
		ch.lastSeen = s.generation
		if !ch.loaded {
			s.request(key)
			want = append(want, key)
		}
	}
	if len(want) == 0 {
		return 0, nil
	}
	if err := s.AwaitPending(ctx); err != nil {
		return 0, err
	}
	n := 0
	var missing []string
	for _, key := range want {
		if ch := s.chunks[key]; ch != nil && ch.loaded {
			n++
			continue
		}
		missing = append(missing, key.String())
	}
	if len(missing) > 0 {
		return n, fmt.Errorf("%w: %s", ErrNotLoaded, strings.Join(missing, ", "))
	}
	return n, nil
}

// LoadRect is LoadChunks for every chunk overlapping r, without padding.
func (s *Store) LoadRect(ctx context.Context, r Rect) (int, error) {
	min, max := r.ChunkRange(s.size)
	keys := make([]ChunkKey, 0, (max.X-min.X+1)*(max.Y-min.Y+1))
	for cy := min.Y; cy <= max.Y; cy++ {
		for cx := min.X; cx <= max.X; cx++ {
			keys = append(keys, ChunkKey{cx, cy})
		}
	}
	return s.LoadChunks(ctx, keys)
}

func (s *Store) request(key ChunkKey) {
	if s.source == nil {
		return
	}
	if _, ok := s.pending[key]; ok {
		return
	}
	s.pending[key] = struct{}{}
	go func() {
		tiles, err := s.source.FetchChunk(s.ctx, key)
		select {
		case s.results <- fetchResult{key: key, tiles: tiles, err: err}:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Store) evict() {
	if s.source == nil || s.evictAfter <= 0 {
		return
	}
	for key, ch := range s.chunks {
		if s.generation-ch.lastSeen <= s.evictAfter {
			continue
		}
		if ch.dirty {
			continue
		}
		if _, ok := s.pending[key]; ok {
			continue
		}
		delete(s.chunks, key)
	}
}

// Pending returns the number of outstanding chunk fetches.
func (s *Store) Pending() int { return len(s.pending) }

// Pump applies every finished fetch without blocking and returns how many
// chunks were merged.
func (s *Store) Pump() int {
	n := 0
	for {
		select {
		case res := <-s.results:
			if s.merge(res) {
				n++
			}
		default:
			return n
		}
	}
}

// AwaitPending blocks until every outstanding fetch has been applied or ctx is done.
func (s *Store) AwaitPending(ctx context.Context) error {
	for len(s.pending) > 0 {
		select {
		case res := <-s.results:
			s.merge(res)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Store) merge(res fetchResult) bool {
	delete(s.pending, res.key)
	if res.err != nil {
		s.log.WithFields(logrus.Fields{"chunk": res.key.String()}).WithError(res.err).Warn("chunk fetch failed")
		return false
	}
	ch := s.chunkFor(res.key)
	for _, ct := range res.tiles {
		if ct.LocalX < 0 || ct.LocalX >= s.size || ct.LocalY < 0 || ct.LocalY >= s.size {
			continue
		}
		if IsEmptyType(ct.Tile.Type) {
			continue
		}
		i := ch.index(ct.LocalX, ct.LocalY)
		if ch.has(i) || ch.wasTouched(i) {
			continue
		}
		ch.set(i, ct.Tile.Clone())
	}
	ch.loaded = true
	ch.touched = nil
	return true
}
