package persist

import (
	"context"

	"github.com/milk9111/tilecanvas/tilemap"
)

// Record is the stored form of one tile.
type Record struct {
	T  string `json:"t"`
	C  string `json:"c,omitempty"`
	V  *int   `json:"v,omitempty"`
	By string `json:"by"`
	TS int64  `json:"ts"`
}

// NewRecord converts a tile written by author at ts (unix milliseconds).
func NewRecord(t tilemap.Tile, author string, ts int64) *Record {
	r := &Record{T: t.Type, C: t.Color, By: author, TS: ts}
	if t.Variant != nil {
		v := tilemap.ClampVariant(*t.Variant)
		r.V = &v
	}
	return r
}

// Tile converts the record back.
func (r Record) Tile() tilemap.Tile {
	t := tilemap.Tile{Type: r.T, Color: r.C}
	if r.V != nil {
		t = t.WithVariant(*r.V)
	}
	return t
}

// Update writes Record at Path. A nil Record is a tombstone.
type Update struct {
	Path   string
	Record *Record
}

// Committer applies a set of updates atomically.
type Committer interface {
	Commit(ctx context.Context, updates []Update) error
}

// Loader reads the tiles of one chunk.
type Loader interface {
	LoadChunk(ctx context.Context, canvasID string, cx, cy int) ([]tilemap.ChunkTile, error)
}

// Lister reports which chunks of a canvas hold at least one tile.
type Lister interface {
	Chunks(ctx context.Context, canvasID string) ([]tilemap.ChunkKey, error)
}

// Backend is a complete store.
type Backend interface {
	Committer
	Loader
	Lister
	Close() error
}
