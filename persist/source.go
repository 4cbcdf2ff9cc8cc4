package persist

import (
	"context"

	"github.com/milk9111/tilecanvas/tilemap"
)

// Source adapts a Loader to tilemap.ChunkSource for one canvas.
type Source struct {
	Loader   Loader
	CanvasID string
}

func (s Source) FetchChunk(ctx context.Context, key tilemap.ChunkKey) ([]tilemap.ChunkTile, error) {
	return s.Loader.LoadChunk(ctx, s.CanvasID, key.X, key.Y)
}
