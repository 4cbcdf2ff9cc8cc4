package autotile

import (
	"github.com/milk9111/tilecanvas/tilemap"
)

// neighborOffsets lists the 8 neighbors clockwise from north.
var neighborOffsets = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// Update is a neighbor whose variant must change.
type Update struct {
	X, Y    int
	Variant int
}

// Engine computes variants for types that have a sprite sheet.
type Engine struct {
	hasSprite func(typ string) bool
	enabled   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSpriteTypes restricts variants to types for which fn returns true.
// By default every type carries a variant.
func WithSpriteTypes(fn func(typ string) bool) Option {
	return func(e *Engine) { e.hasSprite = fn }
}

// WithPalette uses the palette behind p to decide which types have sprites.
// p is read on every call so palette changes apply immediately.
func WithPalette(p func() tilemap.Palette) Option {
	return WithSpriteTypes(func(typ string) bool {
		return p().HasSprite(typ)
	})
}

// New returns an enabled engine.
func New(opts ...Option) *Engine {
	e := &Engine{enabled: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enabled reports whether auto-tiling is on.
func (e *Engine) Enabled() bool { return e.enabled }

// SetEnabled toggles auto-tiling. While disabled tiles keep the variant
// they were painted with and no neighbor cascade happens.
func (e *Engine) SetEnabled(v bool) { e.enabled = v }

// Tracks reports whether typ carries a variant.
func (e *Engine) Tracks(typ string) bool {
	if tilemap.IsEmptyType(typ) {
		return false
	}
	return e.hasSprite == nil || e.hasSprite(typ)
}

// Variant computes the variant of a tile of type typ placed at (x, y). It only
// reads g.
func (e *Engine) Variant(g tilemap.Grid, x, y int, typ string) int {
	return VariantForMask(ComputeMask(g, x, y, typ))
}

// Resolve returns t with the variant it should have at (x, y).
func (e *Engine) Resolve(g tilemap.Grid, x, y int, t tilemap.Tile) tilemap.Tile {
	t = t.Clone()
	if !e.enabled {
		return t
	}
	if !e.Tracks(t.Type) {
		return t.WithoutVariant()
	}
	return t.WithVariant(e.Variant(g, x, y, t.Type))
}

// Updates returns the neighbors of (x, y) whose variant no longer matches g.
// It must be called after the change at (x, y) has been applied to g.
func (e *Engine) Updates(g tilemap.Grid, x, y int) []Update {
	if !e.enabled {
		return nil
	}
	var out []Update
	for _, off := range neighborOffsets {
		nx, ny := x+off[0], y+off[1]
		if u, ok := e.stale(g, nx, ny); ok {
			out = append(out, u)
		}
	}
	return out
}

func (e *Engine) stale(g tilemap.Grid, x, y int) (Update, bool) {
	if !g.InBounds(x, y) {
		return Update{}, false
	}
	t, ok := g.Get(x, y)
	if !ok || !e.Tracks(t.Type) {
		return Update{}, false
	}
	v := e.Variant(g, x, y, t.Type)
	if t.Variant != nil && *t.Variant == v {
		return Update{}, false
	}
	return Update{X: x, Y: y, Variant: v}, true
}

// Apply writes updates to g, keeping each tile's type and color.
func Apply(g tilemap.MutableGrid, updates []Update) error {
	for _, u := range updates {
		t, ok := g.Get(u.X, u.Y)
		if !ok {
			continue
		}
		if err := g.Set(u.X, u.Y, t.WithVariant(u.Variant)); err != nil {
			return err
		}
	}
	return nil
}

// Cascade recomputes the variants of every changed position and its
// neighbors, writing the ones that differ. Variants depend only on neighbor
// types, so one pass is enough.
func (e *Engine) Cascade(g tilemap.MutableGrid, changed []tilemap.Pos) error {
	if !e.enabled || len(changed) == 0 {
		return nil
	}
	seen := make(map[tilemap.Pos]struct{}, len(changed)*3)
	var updates []Update
	visit := func(x, y int) {
		p := tilemap.Pos{X: x, Y: y}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		if u, ok := e.stale(g, x, y); ok {
			updates = append(updates, u)
		}
	}
	for _, p := range changed {
		visit(p.X, p.Y)
		for _, off := range neighborOffsets {
			visit(p.X+off[0], p.Y+off[1])
		}
	}
	return Apply(g, updates)
}

// PaintChanges computes the change set for writing t at (x, y), or erasing
// when t is nil, including the neighbor cascade. g is not modified.
func (e *Engine) PaintChanges(g tilemap.Grid, x, y int, t *tilemap.Tile) ([]tilemap.Change, error) {
	ov := tilemap.NewOverlay(g)
	if t == nil {
		ov.Delete(x, y)
	} else if err := ov.Set(x, y, e.Resolve(g, x, y, *t)); err != nil {
		return nil, err
	}
	if err := e.Cascade(ov, []tilemap.Pos{{X: x, Y: y}}); err != nil {
		return nil, err
	}
	return ov.Changes(), nil
}

// PlaceChanges computes the change set for writing many placements at once
// (nil tiles erase), followed by a single cascade. g is not modified.
func (e *Engine) PlaceChanges(g tilemap.Grid, writes []Write) ([]tilemap.Change, error) {
	ov := tilemap.NewOverlay(g)
	changed := make([]tilemap.Pos, 0, len(writes))
	for _, w := range writes {
		if w.Tile == nil {
			ov.Delete(w.X, w.Y)
		} else {
			t := w.Tile.Clone()
			if e.enabled && !e.Tracks(t.Type) {
				t = t.WithoutVariant()
			}
			if err := ov.Set(w.X, w.Y, t); err != nil {
				return nil, err
			}
		}
		changed = append(changed, tilemap.Pos{X: w.X, Y: w.Y})
	}
	if err := e.Cascade(ov, changed); err != nil {
		return nil, err
	}
	return ov.Changes(), nil
}

// Write is one pending write for PlaceChanges.
type Write struct {
	X, Y int
	Tile *tilemap.Tile
}
