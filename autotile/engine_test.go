package autotile

import (
	"testing"

	"github.com/milk9111/tilecanvas/tilemap"
)

func newStore(t *testing.T, width, height int) *tilemap.Store {
	t.Helper()
	m := tilemap.DefaultMeta()
	m.Width, m.Height = width, height
	s := tilemap.NewStore(&m)
	t.Cleanup(s.Close)
	return s
}

func applyChanges(t *testing.T, g tilemap.MutableGrid, changes []tilemap.Change) {
	t.Helper()
	for _, c := range changes {
		if err := tilemap.ApplyTile(g, c.X, c.Y, c.New); err != nil {
			t.Fatalf("apply %d,%d: %v", c.X, c.Y, err)
		}
	}
}

func paint(t *testing.T, e *Engine, s *tilemap.Store, x, y int, typ string) {
	t.Helper()
	tile := tilemap.NewTile(typ)
	changes, err := e.PaintChanges(s, x, y, &tile)
	if err != nil {
		t.Fatalf("PaintChanges: %v", err)
	}
	applyChanges(t, s, changes)
}

func variantAt(t *testing.T, s *tilemap.Store, x, y int) int {
	t.Helper()
	tile, ok := s.Get(x, y)
	if !ok {
		t.Fatalf("no tile at %d,%d", x, y)
	}
	if tile.Variant == nil {
		t.Fatalf("tile at %d,%d has no variant", x, y)
	}
	return *tile.Variant
}

func TestVariantTable(t *testing.T) {
	cases := []struct {
		name  string
		edges EdgeMask
		want  int
	}{
		{"isolated", 0, VariantIsolated},
		{"all", EdgeN | EdgeE | EdgeS | EdgeW, VariantCenter},
		{"top_left", EdgeE | EdgeS, VariantTopLeft},
		{"top", EdgeE | EdgeS | EdgeW, VariantTop},
		{"top_right", EdgeS | EdgeW, VariantTopRight},
		{"left", EdgeN | EdgeE | EdgeS, VariantLeft},
		{"right", EdgeN | EdgeS | EdgeW, VariantRight},
		{"bottom_left", EdgeN | EdgeE, VariantBottomLeft},
		{"bottom", EdgeN | EdgeE | EdgeW, VariantBottom},
		{"bottom_right", EdgeN | EdgeW, VariantBottomRight},
		{"vertical_run", EdgeN | EdgeS, VariantCenter},
		{"horizontal_run", EdgeE | EdgeW, VariantCenter},
		{"south_only", EdgeS, VariantTop},
		{"east_only", EdgeE, VariantLeft},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := VariantForEdges(c.edges); got != c.want {
				t.Fatalf("VariantForEdges(%04b) = %d, want %d", c.edges, got, c.want)
			}
		})
	}
	for i := 0; i < 16; i++ {
		v := VariantForEdges(EdgeMask(i))
		if v < tilemap.MinVariant || v > tilemap.MaxVariant {
			t.Fatalf("variant %d for mask %d out of range", v, i)
		}
	}
}

func TestComputeMaskCorners(t *testing.T) {
	s := newStore(t, 0, 0)
	// NE corner present but N missing: corner bit must stay clear
	_ = s.Set(1, -1, tilemap.NewTile("grass"))
	_ = s.Set(1, 0, tilemap.NewTile("grass"))
	if m := ComputeMask(s, 0, 0, "grass"); m != MaskE {
		t.Fatalf("mask = %08b, want %08b", m, MaskE)
	}
	_ = s.Set(0, -1, tilemap.NewTile("grass"))
	if m := ComputeMask(s, 0, 0, "grass"); m != MaskN|MaskE|MaskNE {
		t.Fatalf("mask = %08b", m)
	}
	if m := ComputeMask(s, 0, 0, "water"); m != 0 {
		t.Fatalf("other type mask = %08b", m)
	}
}

func TestSolidBlock(t *testing.T) {
	s := newStore(t, 0, 0)
	e := New()
	order := []tilemap.Pos{{1, 1}, {0, 0}, {2, 2}, {1, 0}, {0, 2}, {2, 0}, {0, 1}, {2, 1}, {1, 2}}
	for _, p := range order {
		paint(t, e, s, p.X, p.Y, "grass")
	}

	want := [3][3]int{
		{VariantTopLeft, VariantTop, VariantTopRight},
		{VariantLeft, VariantCenter, VariantRight},
		{VariantBottomLeft, VariantBottom, VariantBottomRight},
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if got := variantAt(t, s, x, y); got != want[y][x] {
				t.Errorf("variant at %d,%d = %d, want %d", x, y, got, want[y][x])
			}
		}
	}
}

func TestVariantPure(t *testing.T) {
	s := newStore(t, 0, 0)
	e := New()
	for _, p := range []tilemap.Pos{{0, 0}, {1, 0}, {0, 1}} {
		_ = s.Set(p.X, p.Y, tilemap.NewTile("grass"))
	}
	before := s.Snapshot()
	a := e.Variant(s, 0, 0, "grass")
	b := e.Variant(s, 0, 0, "grass")
	if a != b {
		t.Fatalf("Variant not stable: %d then %d", a, b)
	}
	if len(s.Snapshot()) != len(before) || s.DirtyCount() != 3 {
		t.Fatalf("Variant mutated the store")
	}
}

func TestIsolatedAndSurrounded(t *testing.T) {
	s := newStore(t, 0, 0)
	e := New()
	if v := e.Variant(s, 5, 5, "grass"); v != VariantIsolated {
		t.Fatalf("isolated = %d", v)
	}
	for y := 4; y <= 6; y++ {
		for x := 4; x <= 6; x++ {
			if x == 5 && y == 5 {
				continue
			}
			_ = s.Set(x, y, tilemap.NewTile("grass"))
		}
	}
	if m := ComputeMask(s, 5, 5, "grass"); m != 0xff {
		t.Fatalf("surrounded mask = %08b", m)
	}
	if v := e.Variant(s, 5, 5, "grass"); v != VariantCenter {
		t.Fatalf("surrounded = %d", v)
	}
}

func TestMapEdgeCountsAsNoNeighbor(t *testing.T) {
	s := newStore(t, 2, 1)
	e := New()
	paint(t, e, s, 0, 0, "grass")
	paint(t, e, s, 1, 0, "grass")
	if got := variantAt(t, s, 1, 0); got != VariantRight {
		t.Fatalf("edge tile = %d, want %d", got, VariantRight)
	}
}

func TestUpdatesOnlyChangedNeighbors(t *testing.T) {
	s := newStore(t, 0, 0)
	e := New()
	paint(t, e, s, 0, 0, "grass")
	paint(t, e, s, 0, 2, "water")

	_ = s.Set(1, 0, tilemap.NewTile("grass").WithVariant(VariantRight))
	ups := e.Updates(s, 1, 0)
	if len(ups) != 1 || ups[0] != (Update{X: 0, Y: 0, Variant: VariantLeft}) {
		t.Fatalf("Updates = %+v", ups)
	}
	if err := Apply(s, ups); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ups := e.Updates(s, 1, 0); len(ups) != 0 {
		t.Fatalf("second Updates = %+v", ups)
	}
}

func TestEraseCascade(t *testing.T) {
	s := newStore(t, 0, 0)
	e := New()
	for x := 0; x < 3; x++ {
		paint(t, e, s, x, 0, "grass")
	}
	before := s.Snapshot()

	changes, err := e.PaintChanges(s, 1, 0, nil)
	if err != nil {
		t.Fatalf("PaintChanges: %v", err)
	}
	if len(s.Snapshot()) != len(before) {
		t.Fatalf("PaintChanges mutated the store")
	}
	if len(changes) != 3 {
		t.Fatalf("changes = %+v", changes)
	}
	if changes[0].X != 1 || changes[0].New != nil || changes[0].Old == nil {
		t.Fatalf("first change = %+v", changes[0])
	}
	applyChanges(t, s, changes)
	for _, x := range []int{0, 2} {
		if got := variantAt(t, s, x, 0); got != VariantIsolated {
			t.Fatalf("variant at %d = %d", x, got)
		}
	}
}

func TestSpriteTypes(t *testing.T) {
	s := newStore(t, 0, 0)
	e := New(WithSpriteTypes(func(typ string) bool { return typ == "grass" }))

	plain := tilemap.NewTile("plain").WithVariant(3)
	if got := e.Resolve(s, 0, 0, plain); got.Variant != nil {
		t.Fatalf("plain kept variant %v", *got.Variant)
	}
	if got := e.Resolve(s, 0, 0, tilemap.NewTile("grass")); got.VariantOr(-1) != VariantIsolated {
		t.Fatalf("grass variant = %v", got.Variant)
	}

	e.SetEnabled(false)
	if got := e.Resolve(s, 0, 0, plain); got.VariantOr(-1) != 3 {
		t.Fatalf("disabled engine changed the variant")
	}
	paint(t, e, s, 0, 0, "grass")
	paint(t, e, s, 1, 0, "grass")
	if ups := e.Updates(s, 1, 0); ups != nil {
		t.Fatalf("disabled engine produced updates")
	}
}

func TestPlaceChanges(t *testing.T) {
	s := newStore(t, 0, 0)
	e := New()
	var writes []Write
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			tile := tilemap.NewTile("grass")
			writes = append(writes, Write{X: x, Y: y, Tile: &tile})
		}
	}
	changes, err := e.PlaceChanges(s, writes)
	if err != nil {
		t.Fatalf("PlaceChanges: %v", err)
	}
	if len(changes) != 9 {
		t.Fatalf("len = %d", len(changes))
	}
	applyChanges(t, s, changes)
	if got := variantAt(t, s, 1, 1); got != VariantCenter {
		t.Fatalf("center = %d", got)
	}
	if got := variantAt(t, s, 2, 2); got != VariantBottomRight {
		t.Fatalf("corner = %d", got)
	}
}
