package persist

import (
	"context"
	"sort"
	"sync"

	"github.com/milk9111/tilecanvas/tilemap"
)

// MemoryBackend keeps records in process. Commits are atomic under one lock.
type MemoryBackend struct {
	mu      sync.RWMutex
	chunks  map[string]map[string]Record
	commits int
	failAt  map[int]error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{chunks: make(map[string]map[string]Record)}
}

// FailCommit makes the n-th commit from now (1-based) fail with err without
// applying anything.
func (m *MemoryBackend) FailCommit(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAt == nil {
		m.failAt = make(map[int]error)
	}
	m.failAt[m.commits+n] = err
}

func (m *MemoryBackend) Commit(ctx context.Context, updates []Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, u := range updates {
		if _, _, err := ParseTilePath(u.Path); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if err, ok := m.failAt[m.commits]; ok {
		delete(m.failAt, m.commits)
		return err
	}
	for _, u := range updates {
		chunk := chunkOf(u.Path)
		if u.Record == nil {
			if tiles := m.chunks[chunk]; tiles != nil {
				delete(tiles, u.Path)
				if len(tiles) == 0 {
					delete(m.chunks, chunk)
				}
			}
			continue
		}
		tiles := m.chunks[chunk]
		if tiles == nil {
			tiles = make(map[string]Record)
			m.chunks[chunk] = tiles
		}
		r := *u.Record
		if r.V != nil {
			v := *r.V
			r.V = &v
		}
		tiles[u.Path] = r
	}
	return nil
}

func (m *MemoryBackend) LoadChunk(ctx context.Context, canvasID string, cx, cy int) ([]tilemap.ChunkTile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tiles := m.chunks[ChunkPath(canvasID, cx, cy)]
	out := make([]tilemap.ChunkTile, 0, len(tiles))
	for path, r := range tiles {
		_, cc, err := ParseTilePath(path)
		if err != nil {
			continue
		}
		out = append(out, tilemap.ChunkTile{LocalX: cc.LocalX, LocalY: cc.LocalY, Tile: r.Tile()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocalY != out[j].LocalY {
			return out[i].LocalY < out[j].LocalY
		}
		return out[i].LocalX < out[j].LocalX
	})
	return out, nil
}

func (m *MemoryBackend) Chunks(ctx context.Context, canvasID string) ([]tilemap.ChunkKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []tilemap.ChunkKey
	for _, tiles := range m.chunks {
		for path := range tiles {
			id, cc, err := ParseTilePath(path)
			if err == nil && id == canvasID {
				keys = append(keys, cc.Key())
			}
			break
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys, nil
}

// Get returns the record stored at path.
func (m *MemoryBackend) Get(path string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.chunks[chunkOf(path)][path]
	return r, ok
}

// Len returns the number of stored records.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, tiles := range m.chunks {
		n += len(tiles)
	}
	return n
}

// Commits returns how many commits were attempted.
func (m *MemoryBackend) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

func (m *MemoryBackend) Close() error { return nil }
