package tilemap

import "strings"

// TypeEmpty names the absence of a tile. The store never holds a tile of this type.
const TypeEmpty = "empty"

const (
	// MinVariant and MaxVariant bound the index into a 3x3 autotile sprite sheet.
	MinVariant = 0
	MaxVariant = 8
)

// Tile is the data stored for one painted cell.
type Tile struct {
	Type    string `json:"type"`
	Color   string `json:"color,omitempty"`
	Variant *int   `json:"variant,omitempty"`
}

// NewTile returns a tile of the given type with no color and no variant.
func NewTile(typ string) Tile {
	return Tile{Type: typ}
}

// ClampVariant clamps v into [MinVariant, MaxVariant].
func ClampVariant(v int) int {
	if v < MinVariant {
		return MinVariant
	}
	if v > MaxVariant {
		return MaxVariant
	}
	return v
}

// WithVariant returns a copy of t with its variant set to v (clamped).
func (t Tile) WithVariant(v int) Tile {
	v = ClampVariant(v)
	t.Variant = &v
	return t
}

// WithoutVariant returns a copy of t with no variant.
func (t Tile) WithoutVariant() Tile {
	t.Variant = nil
	return t
}

// VariantOr returns the variant or def when none is set.
func (t Tile) VariantOr(def int) int {
	if t.Variant == nil {
		return def
	}
	return *t.Variant
}

// HasVariant reports whether a variant is set.
func (t Tile) HasVariant() bool {
	return t.Variant != nil
}

// Clone deep-copies t so the result shares no memory with it.
func (t Tile) Clone() Tile {
	if t.Variant != nil {
		v := ClampVariant(*t.Variant)
		t.Variant = &v
	}
	return t
}

// Equal compares type, color and variant.
func (t Tile) Equal(o Tile) bool {
	if t.Type != o.Type || t.Color != o.Color {
		return false
	}
	if t.Variant == nil || o.Variant == nil {
		return t.Variant == nil && o.Variant == nil
	}
	return *t.Variant == *o.Variant
}

// IsEmptyType reports whether typ denotes "no tile".
func IsEmptyType(typ string) bool {
	typ = strings.TrimSpace(typ)
	return typ == "" || typ == TypeEmpty
}

// ClonePtr deep-copies an optional tile.
func ClonePtr(t *Tile) *Tile {
	if t == nil {
		return nil
	}
	c := t.Clone()
	return &c
}

// EqualPtr compares two optional tiles; nil only equals nil.
func EqualPtr(a, b *Tile) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// TypeOf returns the type of an optional tile, TypeEmpty for nil.
func TypeOf(t *Tile) string {
	if t == nil {
		return TypeEmpty
	}
	return t.Type
}

// Pos is a global tile coordinate.
type Pos struct {
	X, Y int
}

// Key returns the "{x}_{y}" tile key.
func (p Pos) Key() string {
	return CoordToKey(p.X, p.Y)
}

// Placement is an intended write of a tile type to a position, as produced by the
// generators and region operations.
type Placement struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Type    string `json:"type"`
	Color   string `json:"color,omitempty"`
	Variant *int   `json:"variant,omitempty"`
}

// Tile converts the placement into tile data.
func (p Placement) Tile() Tile {
	t := Tile{Type: p.Type, Color: p.Color}
	if p.Variant != nil {
		t = t.WithVariant(*p.Variant)
	}
	return t
}

// Change describes one tile transition. A nil Old or New means the tile is absent.
type Change struct {
	X   int   `json:"x"`
	Y   int   `json:"y"`
	Old *Tile `json:"old,omitempty"`
	New *Tile `json:"new,omitempty"`
}

// Clone deep-copies both sides of the change.
func (c Change) Clone() Change {
	return Change{X: c.X, Y: c.Y, Old: ClonePtr(c.Old), New: ClonePtr(c.New)}
}

// NoOp reports whether the change leaves the tile untouched.
func (c Change) NoOp() bool {
	return EqualPtr(c.Old, c.New)
}
