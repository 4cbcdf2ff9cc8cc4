package gen

import "github.com/milk9111/tilecanvas/tilemap"

// WalkParams configure a random walk. StartX/StartY default to the center;
// Background, when set, fills every cell the path does not cover.
type WalkParams struct {
	Seed       int64   `json:"seed"`
	Steps      int     `json:"steps"`
	PathWidth  int     `json:"pathWidth"`
	TurnChance float64 `json:"turnChance"`
	PathType   string  `json:"pathType"`
	Background string  `json:"background"`
	StartX     *int    `json:"startX"`
	StartY     *int    `json:"startY"`
}

func DefaultWalkParams() WalkParams {
	return WalkParams{PathWidth: 1, TurnChance: 0.2, PathType: "dirt"}
}

func (p WalkParams) withDefaults(w, h int) WalkParams {
	d := DefaultWalkParams()
	if p.Steps <= 0 {
		p.Steps = w * h / 2
	}
	if p.PathWidth <= 0 {
		p.PathWidth = d.PathWidth
	}
	if p.TurnChance <= 0 {
		p.TurnChance = d.TurnChance
	}
	p.PathType = orDefault(p.PathType, d.PathType)
	return p
}

var walkDirs = [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

// RandomWalk paints the path of a walker that occasionally turns and bounces
// off the map edges.
func RandomWalk(w, h int, p WalkParams) ([]tilemap.Placement, error) {
	if err := checkSize(w, h); err != nil {
		return nil, err
	}
	p = p.withDefaults(w, h)
	rng := newRand(p.Seed)

	g := newGrid(w, h)
	if p.Background != "" {
		for i := range g.cells {
			g.cells[i] = p.Background
		}
	}

	x, y := w/2, h/2
	if p.StartX != nil {
		x = min(max(*p.StartX, 0), w-1)
	}
	if p.StartY != nil {
		y = min(max(*p.StartY, 0), h-1)
	}
	dir := rng.IntN(4)
	brush := func(cx, cy int) {
		off := (p.PathWidth - 1) / 2
		for dy := 0; dy < p.PathWidth; dy++ {
			for dx := 0; dx < p.PathWidth; dx++ {
				g.set(cx-off+dx, cy-off+dy, p.PathType)
			}
		}
	}

	brush(x, y)
	for step := 0; step < p.Steps; step++ {
		if rng.Float64() < p.TurnChance {
			dir = rng.IntN(4)
		}
		nx, ny := x+walkDirs[dir][0], y+walkDirs[dir][1]
		if !g.in(nx, ny) {
			dir = (dir + 2) % 4
			nx, ny = x+walkDirs[dir][0], y+walkDirs[dir][1]
			if !g.in(nx, ny) {
				continue
			}
		}
		x, y = nx, ny
		brush(x, y)
	}
	return g.placements(), nil
}
