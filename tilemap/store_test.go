package tilemap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStoreSetGetDelete(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	if _, ok := s.Get(0, 0); ok {
		t.Fatalf("empty store returned a tile")
	}
	if err := s.Set(-3, 4, NewTile("grass").WithVariant(12)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := s.Get(-3, 4)
	if !ok || got.Type != "grass" || got.VariantOr(-1) != MaxVariant {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	// mutating the returned copy must not reach the store
	*got.Variant = 1
	again, _ := s.Get(-3, 4)
	if again.VariantOr(-1) != MaxVariant {
		t.Fatalf("store shares memory with returned tile")
	}

	s.Delete(-3, 4)
	if _, state := s.Lookup(-3, 4); state != Absent {
		t.Fatalf("Lookup after delete = %v, want absent", state)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d", s.Len())
	}
}

func TestStoreRejects(t *testing.T) {
	m := DefaultMeta()
	m.Width, m.Height = 4, 4
	s := NewStore(&m)
	defer s.Close()

	cases := []struct {
		name string
		x, y int
		tile Tile
		want error
	}{
		{"empty_type", 0, 0, NewTile(TypeEmpty), ErrInvalidTile},
		{"blank_type", 0, 0, Tile{}, ErrInvalidTile},
		{"out_of_bounds", 4, 0, NewTile("grass"), ErrOutOfBounds},
		{"negative", 0, -1, NewTile("grass"), ErrOutOfBounds},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := s.Set(c.x, c.y, c.tile); !errors.Is(err, c.want) {
				t.Fatalf("Set error = %v, want %v", err, c.want)
			}
			if s.Len() != 0 || s.DirtyCount() != 0 {
				t.Fatalf("rejected write changed state")
			}
		})
	}
}

func TestStoreDirtyOrder(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	_ = s.Set(5, 5, NewTile("a"))
	_ = s.Set(-20, 1, NewTile("b"))
	_ = s.Set(5, 5, NewTile("c"))
	_ = s.Set(-20, 1, NewTile("b")) // no-op
	s.Delete(-20, 1)
	s.Delete(100, 100) // nothing there

	dirty := s.TakeDirty()
	if len(dirty) != 2 {
		t.Fatalf("dirty = %+v", dirty)
	}
	if dirty[0].Pos != (Pos{5, 5}) || dirty[0].Tile == nil || dirty[0].Tile.Type != "c" {
		t.Fatalf("dirty[0] = %+v", dirty[0])
	}
	if dirty[1].Pos != (Pos{-20, 1}) || dirty[1].Tile != nil {
		t.Fatalf("dirty[1] = %+v, want tombstone", dirty[1])
	}
	if s.DirtyCount() != 0 {
		t.Fatalf("TakeDirty did not clear")
	}
	for _, key := range s.ChunkKeys() {
		if s.Chunk(key).Dirty() {
			t.Fatalf("chunk %v still dirty", key)
		}
	}
}

func TestStoreApplyRemoteNotDirty(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	s.ApplyRemote(1, 1, &Tile{Type: "water"})
	if got, ok := s.Get(1, 1); !ok || got.Type != "water" {
		t.Fatalf("remote write missing: %+v", got)
	}
	s.ApplyRemote(1, 1, &Tile{Type: "sand"})
	if got, _ := s.Get(1, 1); got.Type != "sand" {
		t.Fatalf("last write did not win: %+v", got)
	}
	s.ApplyRemote(1, 1, nil)
	if _, ok := s.Get(1, 1); ok {
		t.Fatalf("remote delete ignored")
	}
	if s.DirtyCount() != 0 {
		t.Fatalf("remote writes marked dirty")
	}
}

func TestStoreEachOrderAndBounds(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	pts := []Pos{{17, 0}, {0, 0}, {-1, -1}, {1, 0}, {0, 1}}
	for _, p := range pts {
		_ = s.Set(p.X, p.Y, NewTile("x"))
	}
	var seen []Pos
	s.Each(func(x, y int, _ Tile) { seen = append(seen, Pos{x, y}) })
	want := []Pos{{-1, -1}, {0, 0}, {1, 0}, {0, 1}, {17, 0}}
	if len(seen) != len(want) {
		t.Fatalf("Each = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("Each order = %v, want %v", seen, want)
		}
	}

	r, ok := s.Bounds()
	if !ok || r != (Rect{MinX: -1, MinY: -1, MaxX: 17, MaxY: 1}) {
		t.Fatalf("Bounds = %+v, %v", r, ok)
	}

	var inRect int
	s.EachInRect(Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}, func(int, int, Tile) { inRect++ })
	if inRect != 3 {
		t.Fatalf("EachInRect visited %d", inRect)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Clear left %d tiles", s.Len())
	}
	if _, ok := s.Bounds(); ok {
		t.Fatalf("Bounds of empty store should be false")
	}
}

type fakeSource struct {
	mu      sync.Mutex
	tiles   map[ChunkKey][]ChunkTile
	fail    map[ChunkKey]bool
	release chan struct{}
	calls   map[ChunkKey]int
}

func (f *fakeSource) FetchChunk(ctx context.Context, key ChunkKey) ([]ChunkTile, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[ChunkKey]int)
	}
	f.calls[key]++
	if f.fail[key] {
		return nil, errors.New("unavailable")
	}
	return f.tiles[key], nil
}

func awaitStore(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.AwaitPending(ctx); err != nil {
		t.Fatalf("AwaitPending: %v", err)
	}
}

func TestStoreWindowedLoading(t *testing.T) {
	src := &fakeSource{tiles: map[ChunkKey][]ChunkTile{
		{0, 0}:  {{LocalX: 1, LocalY: 2, Tile: NewTile("stone")}},
		{-1, 0}: {{LocalX: 15, LocalY: 0, Tile: NewTile("water")}},
	}}
	m := DefaultMeta()
	s := NewStore(&m, WithSource(src), WithViewportPadding(0))
	defer s.Close()

	if _, state := s.Lookup(1, 2); state != NotLoaded {
		t.Fatalf("before loading state = %v", state)
	}
	if s.InBounds(1, 2) {
		t.Fatalf("unloaded chunk reported in bounds")
	}

	keys := s.LoadVisibleChunks(Rect{MinX: -1, MinY: 0, MaxX: 3, MaxY: 3})
	if len(keys) != 2 {
		t.Fatalf("keys = %v", keys)
	}
	awaitStore(t, s)

	if got, state := s.Lookup(1, 2); state != Present || got.Type != "stone" {
		t.Fatalf("Lookup(1,2) = %+v, %v", got, state)
	}
	if got, ok := s.Get(-1, 0); !ok || got.Type != "water" {
		t.Fatalf("Get(-1,0) = %+v", got)
	}
	if _, state := s.Lookup(5, 5); state != Absent {
		t.Fatalf("Lookup(5,5) = %v", state)
	}
	if s.DirtyCount() != 0 {
		t.Fatalf("loaded tiles marked dirty")
	}
}

func TestStoreLocalWriteWinsOverLateFetch(t *testing.T) {
	src := &fakeSource{
		tiles: map[ChunkKey][]ChunkTile{
			{0, 0}: {
				{LocalX: 0, LocalY: 0, Tile: NewTile("remote")},
				{LocalX: 1, LocalY: 0, Tile: NewTile("remote")},
				{LocalX: 2, LocalY: 0, Tile: NewTile("remote")},
			},
		},
		release: make(chan struct{}),
	}
	s := NewStore(nil, WithSource(src), WithViewportPadding(0))
	defer s.Close()

	s.LoadVisibleChunks(Rect{MaxX: 0, MaxY: 0})
	_ = s.Set(0, 0, NewTile("local"))
	s.Delete(1, 0)
	close(src.release)
	awaitStore(t, s)

	if got, _ := s.Get(0, 0); got.Type != "local" {
		t.Fatalf("fetch overwrote local write: %+v", got)
	}
	if _, ok := s.Get(1, 0); ok {
		t.Fatalf("fetch resurrected a locally deleted tile")
	}
	if got, _ := s.Get(2, 0); got.Type != "remote" {
		t.Fatalf("untouched tile not merged: %+v", got)
	}
}

func TestStoreFetchErrorStaysNotLoaded(t *testing.T) {
	src := &fakeSource{fail: map[ChunkKey]bool{{0, 0}: true}}
	s := NewStore(nil, WithSource(src), WithViewportPadding(0))
	defer s.Close()

	s.LoadVisibleChunks(Rect{MaxX: 0, MaxY: 0})
	awaitStore(t, s)
	if _, state := s.Lookup(0, 0); state != NotLoaded {
		t.Fatalf("state after failed fetch = %v", state)
	}

	src.mu.Lock()
	src.fail = nil
	src.mu.Unlock()
	s.LoadVisibleChunks(Rect{MaxX: 0, MaxY: 0})
	awaitStore(t, s)
	if !s.InBounds(0, 0) {
		t.Fatalf("chunk not loaded on retry")
	}
}

func TestStoreEviction(t *testing.T) {
	src := &fakeSource{}
	s := NewStore(nil, WithSource(src), WithViewportPadding(0), WithEvictAfter(2))
	defer s.Close()

	s.LoadVisibleChunks(Rect{MaxX: 0, MaxY: 0})
	awaitStore(t, s)
	s.LoadVisibleChunks(Rect{MinX: 32, MaxX: 32, MaxY: 0})
	awaitStore(t, s)
	_ = s.Set(33, 0, NewTile("dirty"))

	far := Rect{MinX: 160, MaxX: 160, MaxY: 0}
	for i := 0; i < 3; i++ {
		s.LoadVisibleChunks(far)
		awaitStore(t, s)
	}
	if s.Chunk(ChunkKey{0, 0}) != nil {
		t.Fatalf("stale clean chunk not evicted")
	}
	if s.Chunk(ChunkKey{2, 0}) == nil {
		t.Fatalf("dirty chunk evicted")
	}
	if s.Chunk(ChunkKey{10, 0}) == nil {
		t.Fatalf("visible chunk evicted")
	}
}

func TestStoreLoadRect(t *testing.T) {
	src := &fakeSource{
		tiles: map[ChunkKey][]ChunkTile{{1, 0}: {{LocalX: 0, LocalY: 0, Tile: NewTile("stone")}}},
		fail:  map[ChunkKey]bool{{5, 5}: true},
	}
	s := NewStore(nil, WithSource(src))
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := s.LoadRect(ctx, Rect{MinX: 0, MinY: 0, MaxX: 20, MaxY: 3})
	if err != nil || n != 2 {
		t.Fatalf("LoadRect = %d, %v", n, err)
	}
	if got, ok := s.Get(16, 0); !ok || got.Type != "stone" {
		t.Fatalf("Get(16,0) = %+v", got)
	}
	if !s.InBounds(20, 3) {
		t.Fatalf("loaded chunk reported not in bounds")
	}
	if n, err := s.LoadRect(ctx, Rect{MaxX: 20, MaxY: 3}); err != nil || n != 0 {
		t.Fatalf("second LoadRect = %d, %v", n, err)
	}

	_, err = s.LoadChunks(ctx, []ChunkKey{{5, 5}})
	if !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestStoreMarkDirty(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()
	_ = s.Set(1, 1, NewTile("grass"))
	_ = s.Set(2, 1, NewTile("grass"))
	taken := s.TakeDirty()
	if len(taken) != 2 || s.DirtyCount() != 0 {
		t.Fatalf("TakeDirty = %v", taken)
	}
	s.MarkDirty(taken[1].Pos, taken[0].Pos)
	again := s.TakeDirty()
	if len(again) != 2 || again[0].Pos != (Pos{2, 1}) || again[1].Tile == nil {
		t.Fatalf("re-marked dirty = %+v", again)
	}
}
