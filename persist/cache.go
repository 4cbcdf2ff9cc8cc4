package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/milk9111/tilecanvas/tilemap"
)

const DefaultCacheTTL = 5 * time.Minute

// CacheConfig sizes the chunk cache. Cost is counted in tiles.
type CacheConfig struct {
	MaxTiles int64
	TTL      time.Duration
}

// Cached puts a ristretto cache of chunk contents in front of a Backend.
// Commits go straight through and evict the chunks they touch. The cache may
// drop or refuse any entry, so a miss always falls back to the backend.
type Cached struct {
	Backend
	cache *ristretto.Cache[string, []tilemap.ChunkTile]
	ttl   time.Duration
}

// NewCached wraps b.
func NewCached(b Backend, cfg CacheConfig) (*Cached, error) {
	if cfg.MaxTiles <= 0 {
		cfg.MaxTiles = 1 << 20
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, []tilemap.ChunkTile]{
		NumCounters: max(100, 10*(cfg.MaxTiles/64)),
		MaxCost:     cfg.MaxTiles,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("persist: chunk cache: %w", err)
	}
	return &Cached{Backend: b, cache: cache, ttl: cfg.TTL}, nil
}

func (c *Cached) LoadChunk(ctx context.Context, canvasID string, cx, cy int) ([]tilemap.ChunkTile, error) {
	key := ChunkPath(canvasID, cx, cy)
	if tiles, ok := c.cache.Get(key); ok {
		return cloneChunkTiles(tiles), nil
	}
	tiles, err := c.Backend.LoadChunk(ctx, canvasID, cx, cy)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(key, cloneChunkTiles(tiles), int64(len(tiles))+1, c.ttl)
	return tiles, nil
}

func (c *Cached) Commit(ctx context.Context, updates []Update) error {
	err := c.Backend.Commit(ctx, updates)
	// drop touched chunks even on failure; the backend state is unknown
	seen := make(map[string]struct{})
	for _, u := range updates {
		key := chunkOf(u.Path)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		c.cache.Del(key)
	}
	return err
}

// Wait blocks until buffered cache writes are applied.
func (c *Cached) Wait() { c.cache.Wait() }

func (c *Cached) Close() error {
	c.cache.Close()
	return c.Backend.Close()
}

func cloneChunkTiles(in []tilemap.ChunkTile) []tilemap.ChunkTile {
	out := make([]tilemap.ChunkTile, len(in))
	for i, t := range in {
		out[i] = tilemap.ChunkTile{LocalX: t.LocalX, LocalY: t.LocalY, Tile: t.Tile.Clone()}
	}
	return out
}
