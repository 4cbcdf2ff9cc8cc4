package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/assets"
	"github.com/milk9111/tilecanvas/autotile"
	"github.com/milk9111/tilecanvas/batch"
	"github.com/milk9111/tilecanvas/gen"
	"github.com/milk9111/tilecanvas/history"
	"github.com/milk9111/tilecanvas/tilemap"
)

// RegionResult reports a bulk edit and the persistence batches it produced.
type RegionResult struct {
	Changed int          `json:"changed"`
	Batches batch.Result `json:"batches"`
}

// regionRect validates a row/column region; bounds are inclusive and may be
// given in any order.
func (s *Session) regionRect(startRow, startCol, endRow, endCol int) (tilemap.Rect, error) {
	r := tilemap.NewRect(startCol, startRow, endCol, endRow)
	if n := r.Area(); n > s.limits.MaxRegionTiles {
		return r, invalid("region", ErrRegionTooLarge, "region %s has %d tiles, the limit is %d",
			describe(r.MinX, r.MinY, r.MaxX, r.MaxY), n, s.limits.MaxRegionTiles)
	}
	if !s.meta.InBounds(r.MinX, r.MinY) || !s.meta.InBounds(r.MaxX, r.MaxY) {
		return r, invalid("region", tilemap.ErrOutOfBounds, "region %s is outside the map",
			describe(r.MinX, r.MinY, r.MaxX, r.MaxY))
	}
	return r, nil
}

// PaintRegion fills the rectangle between (startRow, startCol) and
// (endRow, endCol) with typ as one undoable command and flushes the result.
func (s *Session) PaintRegion(ctx context.Context, startRow, startCol, endRow, endCol int, typ string) (RegionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkType(typ); err != nil {
		return RegionResult{}, err
	}
	r, err := s.regionRect(startRow, startCol, endRow, endCol)
	if err != nil {
		return RegionResult{}, err
	}
	if err := s.loadRectLocked(ctx, r); err != nil {
		return RegionResult{}, err
	}
	t := s.newTile(typ, "")
	writes := make([]autotile.Write, 0, r.Area())
	for _, p := range batch.RegionPositions(r) {
		writes = append(writes, autotile.Write{X: p.X, Y: p.Y, Tile: tilemap.ClonePtr(&t)})
	}
	return s.bulkLocked(ctx, writes)
}

// EraseRegion clears the rectangle as one undoable command.
func (s *Session) EraseRegion(ctx context.Context, startRow, startCol, endRow, endCol int) (RegionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.regionRect(startRow, startCol, endRow, endCol)
	if err != nil {
		return RegionResult{}, err
	}
	if err := s.loadRectLocked(ctx, r); err != nil {
		return RegionResult{}, err
	}
	writes := make([]autotile.Write, 0, r.Area())
	for _, p := range batch.RegionPositions(r) {
		writes = append(writes, autotile.Write{X: p.X, Y: p.Y})
	}
	return s.bulkLocked(ctx, writes)
}

func (s *Session) bulkLocked(ctx context.Context, writes []autotile.Write) (RegionResult, error) {
	s.settleStrokeLocked()
	changes, err := s.engine.PlaceChanges(s.store, writes)
	if err != nil {
		return RegionResult{}, err
	}
	res := RegionResult{Changed: len(changes)}
	if len(changes) == 0 {
		return res, nil
	}
	if err := s.execute(history.NewBulk(changes)); err != nil {
		return res, err
	}
	res.Batches, err = s.flushLocked(ctx)
	return res, err
}

// Generate runs a procedural generator over the w x h area at the origin and
// replaces that area with its output as one undoable command.
func (s *Session) Generate(ctx context.Context, w, h int, algorithm string, params map[string]any) (RegionResult, error) {
	limit := s.limits.MaxGenerateDim
	if w <= 0 || h <= 0 || w > limit || h > limit {
		return RegionResult{}, invalid("size", ErrGenerateTooBig, "generation size %dx%d must be within 1..%d", w, h, limit)
	}
	if w*h > s.limits.MaxRegionTiles {
		return RegionResult{}, invalid("size", ErrRegionTooLarge, "generation covers %d tiles, the limit is %d", w*h, s.limits.MaxRegionTiles)
	}
	params, err := resolveScript(algorithm, params)
	if err != nil {
		return RegionResult{}, err
	}
	placements, err := gen.Run(ctx, algorithm, w, h, params)
	if err != nil {
		if errors.Is(err, gen.ErrUnknownAlgorithm) {
			return RegionResult{}, invalid("algorithm", err, "unknown algorithm %q", algorithm)
		}
		return RegionResult{}, invalid("params", err, "%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.meta.InBounds(0, 0) || !s.meta.InBounds(w-1, h-1) {
		return RegionResult{}, invalid("size", tilemap.ErrOutOfBounds, "generation size %dx%d exceeds the map", w, h)
	}
	types := make(map[string]struct{})
	for _, p := range placements {
		if _, ok := types[p.Type]; ok {
			continue
		}
		if err := s.checkType(p.Type); err != nil {
			return RegionResult{}, err
		}
		types[p.Type] = struct{}{}
	}

	area := tilemap.NewRect(0, 0, w-1, h-1)
	if err := s.loadRectLocked(ctx, area); err != nil {
		return RegionResult{}, err
	}
	writes := make([]autotile.Write, 0, area.Area())
	at := make(map[tilemap.Pos]int, len(placements))
	for _, p := range batch.RegionPositions(area) {
		at[p] = len(writes)
		writes = append(writes, autotile.Write{X: p.X, Y: p.Y})
	}
	for _, p := range placements {
		t := s.newTile(p.Type, p.Color)
		writes[at[tilemap.Pos{X: p.X, Y: p.Y}]].Tile = &t
	}
	return s.bulkLocked(ctx, writes)
}

// resolveScript lets a script generation name a bundled script instead of
// passing its source.
func resolveScript(algorithm string, params map[string]any) (map[string]any, error) {
	if algorithm != gen.AlgorithmScript {
		return params, nil
	}
	name, _ := params["script"].(string)
	if src, _ := params["source"].(string); name == "" || src != "" {
		return params, nil
	}
	data, err := assets.LoadScript(name)
	if err != nil {
		return nil, invalid("params", err, "unknown script %q", name)
	}
	out := maps.Clone(params)
	out["source"] = string(data)
	return out, nil
}

// Flush hands every dirty tile to the write queue in batches. Persistence
// errors are logged and surface through Status, not here; tiles the queue
// did not take stay dirty for the next flush.
func (s *Session) Flush(ctx context.Context) (batch.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Session) flushLocked(ctx context.Context) (batch.Result, error) {
	if s.closed {
		return batch.Result{}, ErrClosed
	}
	dirty := s.store.TakeDirty()
	if len(dirty) == 0 {
		return batch.Result{}, nil
	}
	res, err := s.batcher.WriteDirty(ctx, dirty)
	if err != nil {
		rest := dirty[min(res.TileCount, len(dirty)):]
		ps := make([]tilemap.Pos, len(rest))
		for i, d := range rest {
			ps[i] = d.Pos
		}
		s.store.MarkDirty(ps...)
		s.log.WithError(err).WithFields(logrus.Fields{
			"queued":  res.TileCount,
			"pending": len(ps),
		}).Warn("flush incomplete, tiles stay dirty")
	}
	return res, nil
}

// WaitPersisted blocks until the write queue is idle.
func (s *Session) WaitPersisted(ctx context.Context) error {
	return s.queue.Wait(ctx)
}

// ApplyRemote applies a tile written by another client. The last write wins
// and the change is never undoable. It is persisted only when the session was
// opened with PersistRemote.
func (s *Session) ApplyRemote(x, y int, t *tilemap.Tile, author string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.remote && !s.loadRemoteLocked(x, y, t) {
		return
	}
	old := tilemap.GetPtr(s.store, x, y)
	if s.remote {
		_ = s.store.Apply(x, y, t)
	} else {
		s.store.ApplyRemote(x, y, t)
	}
	cur := tilemap.GetPtr(s.store, x, y)
	if tilemap.EqualPtr(old, cur) {
		return
	}
	s.publish(OriginRemote, author, []tilemap.Change{{X: x, Y: y, Old: old, New: cur}})
}

// loadRemoteLocked loads the chunk of (x, y) so a persisted remote write
// replaces the saved tile, and reports whether the write can be applied.
func (s *Session) loadRemoteLocked(x, y int, t *tilemap.Tile) bool {
	if t != nil && (tilemap.IsEmptyType(t.Type) || !s.meta.InBounds(x, y)) {
		return false
	}
	ctx, cancel := s.loadContext()
	defer cancel()
	key := tilemap.ChunkKeyFor(x, y, s.store.ChunkSize())
	if _, err := s.store.LoadChunks(ctx, []tilemap.ChunkKey{key}); err != nil {
		s.log.WithError(err).WithField("chunk", key.String()).Warn("remote tile dropped")
		return false
	}
	return true
}

// LoadViewport requests the chunks around r from the backend.
func (s *Session) LoadViewport(r tilemap.Rect) []tilemap.ChunkKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadVisibleChunks(r)
}

// Pump merges finished chunk fetches. Call it once per frame.
func (s *Session) Pump() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Pump()
}

// AwaitChunks blocks until every requested chunk has been merged.
func (s *Session) AwaitChunks(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AwaitPending(ctx)
}

// Export serializes the whole canvas, including chunks that were never
// loaded into a viewport, in the given format.
func (s *Session) Export(ctx context.Context, format string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadCanvasLocked(ctx); err != nil {
		return nil, err
	}
	doc, err := tilemap.Export(s.store, format, s.author, s.clock())
	if err != nil {
		return nil, err
	}
	return doc.Marshal()
}

// Import replaces the canvas with an exported document. Saved tiles the
// document lacks are deleted. History is cleared and every change is
// persisted on the next flush.
func (s *Session) Import(ctx context.Context, data []byte) error {
	doc, err := tilemap.ParseDocument(data)
	if err != nil {
		return invalid("document", err, "%v", err)
	}
	placements, err := doc.Placements()
	if err != nil {
		return invalid("document", err, "%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if doc.Meta.ChunkSize != s.store.ChunkSize() {
		return invalid("chunkSize", tilemap.ErrInvalidMeta, "chunk size %d does not match %d", doc.Meta.ChunkSize, s.store.ChunkSize())
	}
	next := doc.Meta.Clone()
	for _, p := range placements {
		if !next.InBounds(p.X, p.Y) {
			return invalid("document", tilemap.ErrOutOfBounds, "tile %s is outside the map", tilemap.CoordToKey(p.X, p.Y))
		}
	}

	if err := s.loadCanvasLocked(ctx); err != nil {
		return err
	}
	if s.stroke.Active() {
		s.stroke.Cancel()
		s.last, s.pending = nil, nil
	}
	before := s.store.Snapshot()
	version := max(s.meta.Version, next.Version) + 1
	*s.meta = next
	s.meta.Version = version

	incoming := make(map[string]tilemap.Tile, len(placements))
	for _, p := range placements {
		incoming[tilemap.CoordToKey(p.X, p.Y)] = p.Tile()
	}
	var changes []tilemap.Change
	for key, old := range before {
		if _, keep := incoming[key]; keep {
			continue
		}
		x, y, _ := tilemap.ParseKey(key)
		s.store.Delete(x, y)
		changes = append(changes, tilemap.Change{X: x, Y: y, Old: tilemap.ClonePtr(&old)})
	}
	for _, p := range placements {
		t := p.Tile()
		old := tilemap.GetPtr(s.store, p.X, p.Y)
		if err := s.store.Set(p.X, p.Y, t); err != nil {
			return fmt.Errorf("session: import %s: %w", tilemap.CoordToKey(p.X, p.Y), err)
		}
		c := tilemap.Change{X: p.X, Y: p.Y, Old: old, New: tilemap.ClonePtr(&t)}
		if !c.NoOp() {
			changes = append(changes, c)
		}
	}
	s.history.Clear()
	s.log.WithField("tiles", len(placements)).Info("canvas imported")
	s.publish(OriginLocal, s.author, changes)
	return nil
}

// Preview writes a PNG thumbnail of the whole canvas.
func (s *Session) Preview(ctx context.Context, w io.Writer, opts tilemap.PreviewOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadCanvasLocked(ctx); err != nil {
		return err
	}
	return tilemap.WritePreviewPNG(w, s.store, opts)
}

// SetPalette replaces the palette. Existing tiles keep their variants.
func (s *Session) SetPalette(p tilemap.Palette) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.meta.SetPalette(p); err != nil {
		return invalid("palette", err, "%v", err)
	}
	s.log.WithField("types", len(p)).Info("palette updated")
	return nil
}

// Resize changes the map bounds. Tiles left outside are erased and history
// is cleared since it may refer to them.
func (s *Session) Resize(ctx context.Context, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadCanvasLocked(ctx); err != nil {
		return err
	}
	if err := s.meta.Resize(width, height); err != nil {
		return invalid("size", err, "%v", err)
	}
	var changes []tilemap.Change
	s.store.Each(func(x, y int, t tilemap.Tile) {
		if !s.meta.InBounds(x, y) {
			changes = append(changes, tilemap.Change{X: x, Y: y, Old: tilemap.ClonePtr(&t)})
		}
	})
	for _, c := range changes {
		s.store.Delete(c.X, c.Y)
	}
	s.history.Clear()
	s.publish(OriginLocal, s.author, changes)
	return nil
}
