// Package gen produces tile layouts procedurally. Every generator is a pure
// function of its dimensions and parameters, including an explicit seed.
package gen

import (
	"errors"
	"fmt"

	"github.com/milk9111/tilecanvas/tilemap"
)

var (
	ErrUnknownAlgorithm = errors.New("gen: unknown algorithm")
	ErrInvalidSize      = errors.New("gen: width and height must be positive")
)

func checkSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	return nil
}

// grid is a dense scratch layout; "" means no tile.
type grid struct {
	w, h  int
	cells []string
}

func newGrid(w, h int) *grid {
	return &grid{w: w, h: h, cells: make([]string, w*h)}
}

func (g *grid) in(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.w && y < g.h
}

func (g *grid) set(x, y int, typ string) {
	if g.in(x, y) {
		g.cells[y*g.w+x] = typ
	}
}

func (g *grid) get(x, y int) string {
	if !g.in(x, y) {
		return ""
	}
	return g.cells[y*g.w+x]
}

// placements lists the non-empty cells row-major.
func (g *grid) placements() []tilemap.Placement {
	out := make([]tilemap.Placement, 0, len(g.cells))
	for i, typ := range g.cells {
		if tilemap.IsEmptyType(typ) {
			continue
		}
		out = append(out, tilemap.Placement{X: i % g.w, Y: i / g.w, Type: typ})
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
