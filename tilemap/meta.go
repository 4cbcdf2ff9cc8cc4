package tilemap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOutOfBounds    = errors.New("tilemap: coordinate out of bounds")
	ErrInvalidTile    = errors.New("tilemap: invalid tile")
	ErrInvalidMeta    = errors.New("tilemap: invalid meta")
	ErrDenseUnbounded = errors.New("tilemap: dense format requires a bounded map")
)

// PaletteColor is one paintable tile type. Color is used when the type has no
// sprite sheet; types with a Sprite get an autotile variant.
type PaletteColor struct {
	Type   string `json:"type" yaml:"type"`
	Color  string `json:"color" yaml:"color"`
	Name   string `json:"name" yaml:"name"`
	Sprite string `json:"sprite,omitempty" yaml:"sprite,omitempty"`
}

// Palette is an ordered list of paintable types.
type Palette []PaletteColor

// Lookup finds the palette entry for typ.
func (p Palette) Lookup(typ string) (PaletteColor, bool) {
	for _, c := range p {
		if c.Type == typ {
			return c, true
		}
	}
	return PaletteColor{}, false
}

// Has reports whether typ is a palette type.
func (p Palette) Has(typ string) bool {
	_, ok := p.Lookup(typ)
	return ok
}

// HasSprite reports whether typ has a 3x3 sprite sheet and therefore a variant.
func (p Palette) HasSprite(typ string) bool {
	c, ok := p.Lookup(typ)
	return ok && c.Sprite != ""
}

// ColorOf returns the fallback color for typ, or "" when unknown.
func (p Palette) ColorOf(typ string) string {
	c, _ := p.Lookup(typ)
	return c.Color
}

// Validate rejects empty and duplicate types.
func (p Palette) Validate() error {
	seen := make(map[string]struct{}, len(p))
	for i, c := range p {
		if IsEmptyType(c.Type) {
			return fmt.Errorf("%w: palette entry %d has no type", ErrInvalidMeta, i)
		}
		if _, dup := seen[c.Type]; dup {
			return fmt.Errorf("%w: duplicate palette type %q", ErrInvalidMeta, c.Type)
		}
		seen[c.Type] = struct{}{}
	}
	return nil
}

// Clone copies the palette.
func (p Palette) Clone() Palette {
	if p == nil {
		return nil
	}
	out := make(Palette, len(p))
	copy(out, p)
	return out
}

// Meta is the global configuration of one tilemap. Width and Height of 0 mean
// the map is unbounded on that axis.
type Meta struct {
	TileSize  int     `json:"tileSize"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	ChunkSize int     `json:"chunkSize"`
	Palette   Palette `json:"palette"`
	Version   int     `json:"version"`
}

// DefaultMeta returns an unbounded 32px map with 16x16 chunks.
func DefaultMeta() Meta {
	return Meta{TileSize: 32, ChunkSize: DefaultChunkSize, Version: 1}
}

// Validate checks sizes and the palette.
func (m Meta) Validate() error {
	if m.TileSize <= 0 {
		return fmt.Errorf("%w: tileSize must be positive", ErrInvalidMeta)
	}
	if m.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunkSize must be positive", ErrInvalidMeta)
	}
	if m.Width < 0 || m.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidMeta, m.Width, m.Height)
	}
	return m.Palette.Validate()
}

// Bounded reports whether both dimensions are fixed.
func (m Meta) Bounded() bool {
	return m.Width > 0 && m.Height > 0
}

// InBounds reports whether (x, y) lies inside the map. Unbounded axes accept
// any coordinate.
func (m Meta) InBounds(x, y int) bool {
	if m.Width > 0 && (x < 0 || x >= m.Width) {
		return false
	}
	if m.Height > 0 && (y < 0 || y >= m.Height) {
		return false
	}
	return true
}

// Resize changes the map dimensions and bumps the version.
func (m *Meta) Resize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidMeta, width, height)
	}
	m.Width, m.Height = width, height
	m.Version++
	return nil
}

// SetPalette replaces the palette and bumps the version.
func (m *Meta) SetPalette(p Palette) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.Palette = p.Clone()
	m.Version++
	return nil
}

// Clone deep-copies the meta.
func (m Meta) Clone() Meta {
	m.Palette = m.Palette.Clone()
	return m
}

// NormalizeColor lower-cases a "#rrggbb" color and adds the leading '#'.
func NormalizeColor(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s != "" && !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	return s
}
