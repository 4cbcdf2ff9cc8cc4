package autotile

import "github.com/milk9111/tilecanvas/tilemap"

// Mask records which of the 8 neighbors share a tile's type.
type Mask uint8

const (
	MaskN Mask = 1 << iota
	MaskNE
	MaskE
	MaskSE
	MaskS
	MaskSW
	MaskW
	MaskNW
)

// EdgeMask is the 4-bit edge part of a Mask: N=1, E=2, S=4, W=8.
type EdgeMask uint8

const (
	EdgeN EdgeMask = 1 << iota
	EdgeE
	EdgeS
	EdgeW
)

// Edges drops the corner bits.
func (m Mask) Edges() EdgeMask {
	var e EdgeMask
	if m&MaskN != 0 {
		e |= EdgeN
	}
	if m&MaskE != 0 {
		e |= EdgeE
	}
	if m&MaskS != 0 {
		e |= EdgeS
	}
	if m&MaskW != 0 {
		e |= EdgeW
	}
	return e
}

// Sprite sheet cells, row-major over a 3x3 sheet.
const (
	VariantTopLeft = iota
	VariantTop
	VariantTopRight
	VariantLeft
	VariantCenter
	VariantRight
	VariantBottomLeft
	VariantBottom
	VariantBottomRight
)

// VariantIsolated is the cell used for a tile with no same-type edges. A 3x3
// sheet has no dedicated isolated cell, so it shares the center.
const VariantIsolated = VariantCenter

var variantTable = buildVariantTable()

// buildVariantTable picks the sheet row from the vertical edges and the column
// from the horizontal edges. A tile open on one side only sits on that border;
// tiles open on both or neither sides use the middle.
func buildVariantTable() [16]int {
	var table [16]int
	for i := range table {
		e := EdgeMask(i)
		n, s := e&EdgeN != 0, e&EdgeS != 0
		east, w := e&EdgeE != 0, e&EdgeW != 0

		row := 1
		switch {
		case s && !n:
			row = 0
		case n && !s:
			row = 2
		}
		col := 1
		switch {
		case east && !w:
			col = 0
		case w && !east:
			col = 2
		}
		table[i] = row*3 + col
	}
	return table
}

// VariantForEdges maps a 4-bit edge mask to a sheet cell.
func VariantForEdges(e EdgeMask) int {
	return variantTable[e&0xf]
}

// VariantForMask maps a full neighbor mask to a sheet cell.
func VariantForMask(m Mask) int {
	return VariantForEdges(m.Edges())
}

func sameType(g tilemap.Grid, x, y int, typ string) bool {
	if !g.InBounds(x, y) {
		return false
	}
	t, ok := g.Get(x, y)
	return ok && t.Type == typ
}

// ComputeMask examines the 8 neighbors of (x, y). Corner bits are only set
// when both adjacent edges are present.
func ComputeMask(g tilemap.Grid, x, y int, typ string) Mask {
	var mask Mask
	n := sameType(g, x, y-1, typ)
	e := sameType(g, x+1, y, typ)
	s := sameType(g, x, y+1, typ)
	w := sameType(g, x-1, y, typ)
	if n {
		mask |= MaskN
	}
	if e {
		mask |= MaskE
	}
	if s {
		mask |= MaskS
	}
	if w {
		mask |= MaskW
	}
	if n && e && sameType(g, x+1, y-1, typ) {
		mask |= MaskNE
	}
	if s && e && sameType(g, x+1, y+1, typ) {
		mask |= MaskSE
	}
	if s && w && sameType(g, x-1, y+1, typ) {
		mask |= MaskSW
	}
	if n && w && sameType(g, x-1, y-1, typ) {
		mask |= MaskNW
	}
	return mask
}
