// Package fill implements bounded 4-connected flood fill over a tile grid.
package fill

import (
	"github.com/milk9111/tilecanvas/autotile"
	"github.com/milk9111/tilecanvas/tilemap"
)

// DefaultMaxTiles bounds a fill when the request does not set MaxTiles.
const DefaultMaxTiles = 10000

// Request describes one fill. Target and Replacement are tile types;
// tilemap.TypeEmpty matches absent tiles and, as a replacement, erases.
type Request struct {
	SeedX       int    `json:"x"`
	SeedY       int    `json:"y"`
	Target      string `json:"target"`
	Replacement string `json:"replacement"`
	Color       string `json:"color,omitempty"`
	MaxTiles    int    `json:"maxTiles,omitempty"`
}

// Result is the complete change set of a fill: the filled tiles followed by
// the neighbors whose variants changed. Each position appears once.
type Result struct {
	Changes   []tilemap.Change
	Filled    int
	Truncated bool
}

func normType(typ string) string {
	if tilemap.IsEmptyType(typ) {
		return tilemap.TypeEmpty
	}
	return typ
}

func eligible(g tilemap.Grid, x, y int, target string) bool {
	if !g.InBounds(x, y) {
		return false
	}
	t, ok := g.Get(x, y)
	if !ok {
		return target == tilemap.TypeEmpty
	}
	return t.Type == target
}

// FloodFill runs a breadth-first fill from the seed and returns what it would
// change. g is never modified; eng may be nil to skip variant computation.
func FloodFill(g tilemap.Grid, eng *autotile.Engine, req Request) Result {
	target := normType(req.Target)
	replacement := normType(req.Replacement)
	maxTiles := req.MaxTiles
	if maxTiles <= 0 {
		maxTiles = DefaultMaxTiles
	}

	var res Result
	if target == replacement || !eligible(g, req.SeedX, req.SeedY, target) {
		return res
	}

	var newTile *tilemap.Tile
	if replacement != tilemap.TypeEmpty {
		t := tilemap.Tile{Type: replacement, Color: tilemap.NormalizeColor(req.Color)}
		newTile = &t
	}

	ov := tilemap.NewOverlay(g)
	seed := tilemap.Pos{X: req.SeedX, Y: req.SeedY}
	visited := map[tilemap.Pos]struct{}{seed: {}}
	queue := []tilemap.Pos{seed}
	var filled []tilemap.Pos

	for len(queue) > 0 {
		if len(filled) >= maxTiles {
			res.Truncated = true
			break
		}
		p := queue[0]
		queue = queue[1:]

		if newTile == nil {
			ov.Delete(p.X, p.Y)
		} else if err := ov.Set(p.X, p.Y, *newTile); err != nil {
			continue
		}
		filled = append(filled, p)

		for _, n := range [4]tilemap.Pos{{X: p.X + 1, Y: p.Y}, {X: p.X - 1, Y: p.Y}, {X: p.X, Y: p.Y + 1}, {X: p.X, Y: p.Y - 1}} {
			if _, seen := visited[n]; seen {
				continue
			}
			if !eligible(g, n.X, n.Y, target) {
				continue
			}
			visited[n] = struct{}{}
			queue = append(queue, n)
		}
	}

	if eng != nil {
		// the overlay accepts any in-bounds write, so the cascade cannot fail
		_ = eng.Cascade(ov, filled)
	}
	res.Changes = ov.Changes()
	res.Filled = len(filled)
	return res
}
