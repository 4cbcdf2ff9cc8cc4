package tilemap

// Grid is read access to tile contents. InBounds is false for coordinates the
// grid cannot answer for (outside the map or in a chunk that is not loaded).
type Grid interface {
	Get(x, y int) (Tile, bool)
	InBounds(x, y int) bool
}

// MutableGrid is a Grid that accepts writes.
type MutableGrid interface {
	Grid
	Set(x, y int, t Tile) error
	Delete(x, y int)
}

// ApplyTile writes t at (x, y), deleting the tile when t is nil.
func ApplyTile(g MutableGrid, x, y int, t *Tile) error {
	if t == nil {
		g.Delete(x, y)
		return nil
	}
	return g.Set(x, y, *t)
}

// GetPtr returns the tile at (x, y) or nil.
func GetPtr(g Grid, x, y int) *Tile {
	t, ok := g.Get(x, y)
	if !ok {
		return nil
	}
	return &t
}

// Overlay buffers writes over a base grid without touching it. It is used to
// compute the result of an edit before the edit is committed.
type Overlay struct {
	base   Grid
	writes map[Pos]*Tile
	order  []Pos
}

// NewOverlay wraps base.
func NewOverlay(base Grid) *Overlay {
	return &Overlay{base: base, writes: make(map[Pos]*Tile)}
}

func (o *Overlay) Get(x, y int) (Tile, bool) {
	if t, ok := o.writes[Pos{x, y}]; ok {
		if t == nil {
			return Tile{}, false
		}
		return t.Clone(), true
	}
	return o.base.Get(x, y)
}

func (o *Overlay) InBounds(x, y int) bool {
	return o.base.InBounds(x, y)
}

func (o *Overlay) Set(x, y int, t Tile) error {
	if IsEmptyType(t.Type) {
		return ErrInvalidTile
	}
	if !o.base.InBounds(x, y) {
		return ErrOutOfBounds
	}
	o.record(x, y, ClonePtr(&t))
	return nil
}

func (o *Overlay) Delete(x, y int) {
	o.record(x, y, nil)
}

func (o *Overlay) record(x, y int, t *Tile) {
	p := Pos{x, y}
	if _, ok := o.writes[p]; !ok {
		o.order = append(o.order, p)
	}
	o.writes[p] = t
}

// Changes returns base-to-overlay transitions in first-write order, skipping
// positions that ended up unchanged.
func (o *Overlay) Changes() []Change {
	out := make([]Change, 0, len(o.order))
	for _, p := range o.order {
		c := Change{X: p.X, Y: p.Y, Old: GetPtr(o.base, p.X, p.Y), New: ClonePtr(o.writes[p])}
		if c.NoOp() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Len returns the number of buffered positions.
func (o *Overlay) Len() int { return len(o.order) }
