package session

import (
	"context"
	"fmt"
	"time"

	"github.com/milk9111/tilecanvas/fill"
	"github.com/milk9111/tilecanvas/tilemap"
)

// DefaultLoadTimeout bounds the chunk loads of edits that take no context.
const DefaultLoadTimeout = 10 * time.Second

func (s *Session) loadContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// keysAround returns the chunks holding ps and their eight neighbors, which
// the auto-tiler reads.
func (s *Session) keysAround(ps []tilemap.Pos) []tilemap.ChunkKey {
	size := s.store.ChunkSize()
	seen := make(map[tilemap.ChunkKey]struct{})
	var keys []tilemap.ChunkKey
	for _, p := range ps {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				k := tilemap.ChunkKeyFor(p.X+dx, p.Y+dy, size)
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// loadAroundLocked makes the chunks under ps and their neighbors resident
// before an edit reads them.
func (s *Session) loadAroundLocked(ctx context.Context, ps []tilemap.Pos) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.store.LoadChunks(ctx, s.keysAround(ps)); err != nil {
		return fmt.Errorf("session: load chunks: %w", err)
	}
	return nil
}

// loadRectLocked loads every chunk overlapping r plus a one-tile margin.
func (s *Session) loadRectLocked(ctx context.Context, r tilemap.Rect) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.store.LoadRect(ctx, r.Expand(1)); err != nil {
		return fmt.Errorf("session: load %s: %w", describe(r.MinX, r.MinY, r.MaxX, r.MaxY), err)
	}
	return nil
}

// loadFillLocked dry-runs req and loads the chunks it reaches until the fill
// no longer touches an unloaded chunk.
func (s *Session) loadFillLocked(ctx context.Context, req fill.Request) error {
	for {
		res := fill.FloodFill(s.store, nil, req)
		ps := make([]tilemap.Pos, len(res.Changes))
		for i, c := range res.Changes {
			ps[i] = tilemap.Pos{X: c.X, Y: c.Y}
		}
		n, err := s.store.LoadChunks(ctx, s.keysAround(ps))
		if err != nil {
			return fmt.Errorf("session: load fill area: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

// loadCanvasLocked loads every chunk the backend holds for this canvas, so
// whole-canvas operations see tiles that were never in a viewport.
func (s *Session) loadCanvasLocked(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	keys, err := s.backend.Chunks(ctx, s.canvasID)
	if err != nil {
		return fmt.Errorf("session: list chunks: %w", err)
	}
	if _, err := s.store.LoadChunks(ctx, keys); err != nil {
		return fmt.Errorf("session: load canvas: %w", err)
	}
	return nil
}
