// Package batch turns large tile write sets into bounded persistence batches.
package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/persist"
	"github.com/milk9111/tilecanvas/tilemap"
)

// DefaultSize is the number of tile writes per batch.
const DefaultSize = 100

// Result reports what was committed. On error it counts only the batches that
// were committed before the failure.
type Result struct {
	TileCount  int `json:"tileCount"`
	BatchCount int `json:"batchCount"`
}

// Batcher writes tiles through a Committer, one atomic commit per batch.
// Batches are not atomic with each other. It does not limit the size of a
// request; callers validate that.
type Batcher struct {
	Committer persist.Committer
	CanvasID  string
	ChunkSize int
	Author    string
	Size      int
	Clock     func() time.Time
	Log       logrus.FieldLogger
}

func (b *Batcher) size() int {
	if b.Size <= 0 {
		return DefaultSize
	}
	return b.Size
}

func (b *Batcher) now() int64 {
	if b.Clock == nil {
		return time.Now().UnixMilli()
	}
	return b.Clock().UnixMilli()
}

func (b *Batcher) log() logrus.FieldLogger {
	if b.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return b.Log
}

func (b *Batcher) path(x, y int) string {
	return persist.TilePathFor(b.CanvasID, x, y, b.ChunkSize)
}

// SetTiles writes placements in input order.
func (b *Batcher) SetTiles(ctx context.Context, tiles []tilemap.Placement) (Result, error) {
	ts := b.now()
	updates := make([]persist.Update, len(tiles))
	for i, p := range tiles {
		updates[i] = persist.Update{Path: b.path(p.X, p.Y), Record: persist.NewRecord(p.Tile(), b.Author, ts)}
	}
	return b.commit(ctx, updates)
}

// EraseTiles writes tombstones in input order.
func (b *Batcher) EraseTiles(ctx context.Context, positions []tilemap.Pos) (Result, error) {
	updates := make([]persist.Update, len(positions))
	for i, p := range positions {
		updates[i] = persist.Update{Path: b.path(p.X, p.Y)}
	}
	return b.commit(ctx, updates)
}

// WriteDirty persists the current contents of dirty positions, nil tiles as
// tombstones.
func (b *Batcher) WriteDirty(ctx context.Context, dirty []tilemap.DirtyTile) (Result, error) {
	ts := b.now()
	updates := make([]persist.Update, len(dirty))
	for i, d := range dirty {
		u := persist.Update{Path: b.path(d.X, d.Y)}
		if d.Tile != nil {
			u.Record = persist.NewRecord(*d.Tile, b.Author, ts)
		}
		updates[i] = u
	}
	return b.commit(ctx, updates)
}

// FillRegion sets every tile of the inclusive rectangle, row by row.
func (b *Batcher) FillRegion(ctx context.Context, r tilemap.Rect, t tilemap.Tile) (Result, error) {
	return b.SetTiles(ctx, RegionPlacements(r, t))
}

// ClearRegion erases every tile of the inclusive rectangle, row by row.
func (b *Batcher) ClearRegion(ctx context.Context, r tilemap.Rect) (Result, error) {
	return b.EraseTiles(ctx, RegionPositions(r))
}

// RegionPositions enumerates r row-major.
func RegionPositions(r tilemap.Rect) []tilemap.Pos {
	out := make([]tilemap.Pos, 0, r.Area())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			out = append(out, tilemap.Pos{X: x, Y: y})
		}
	}
	return out
}

// RegionPlacements enumerates r row-major with tile t.
func RegionPlacements(r tilemap.Rect, t tilemap.Tile) []tilemap.Placement {
	out := make([]tilemap.Placement, 0, r.Area())
	for _, p := range RegionPositions(r) {
		pl := tilemap.Placement{X: p.X, Y: p.Y, Type: t.Type, Color: t.Color}
		if t.Variant != nil {
			v := *t.Variant
			pl.Variant = &v
		}
		out = append(out, pl)
	}
	return out
}

// Split partitions updates into batches of at most size entries, keeping order.
func Split(updates []persist.Update, size int) [][]persist.Update {
	if size <= 0 {
		size = DefaultSize
	}
	out := make([][]persist.Update, 0, (len(updates)+size-1)/size)
	for start := 0; start < len(updates); start += size {
		end := min(start+size, len(updates))
		out = append(out, updates[start:end])
	}
	return out
}

func (b *Batcher) commit(ctx context.Context, updates []persist.Update) (Result, error) {
	var res Result
	if b.Committer == nil {
		return res, fmt.Errorf("batch: no committer")
	}
	batches := Split(updates, b.size())
	for i, chunk := range batches {
		if err := b.Committer.Commit(ctx, chunk); err != nil {
			b.log().WithError(err).WithFields(logrus.Fields{
				"canvas":    b.CanvasID,
				"batch":     i,
				"batches":   len(batches),
				"committed": res.TileCount,
			}).Error("batch commit failed")
			return res, fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
		}
		res.TileCount += len(chunk)
		res.BatchCount++
	}
	return res, nil
}
