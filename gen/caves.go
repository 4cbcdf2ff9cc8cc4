package gen

import "github.com/milk9111/tilecanvas/tilemap"

// CaveParams configure the cellular automaton. A live cell dies when it has
// fewer than DeathLimit live neighbors; a dead cell is born when it has at
// least BirthLimit. Cells outside the map count as live.
type CaveParams struct {
	Seed            int64   `json:"seed"`
	FillProbability float64 `json:"fillProbability"`
	Iterations      int     `json:"iterations"`
	BirthLimit      int     `json:"birthLimit"`
	DeathLimit      int     `json:"deathLimit"`
	WallType        string  `json:"wallType"`
	// FloorType is painted on open cells; empty leaves them without tiles.
	FloorType string `json:"floorType"`
}

func DefaultCaveParams() CaveParams {
	return CaveParams{
		FillProbability: 0.45,
		Iterations:      5,
		BirthLimit:      5,
		DeathLimit:      4,
		WallType:        "stone",
	}
}

func (p CaveParams) withDefaults() CaveParams {
	d := DefaultCaveParams()
	if p.FillProbability <= 0 {
		p.FillProbability = d.FillProbability
	}
	if p.Iterations < 0 {
		p.Iterations = 0
	} else if p.Iterations == 0 {
		p.Iterations = d.Iterations
	}
	if p.BirthLimit <= 0 {
		p.BirthLimit = d.BirthLimit
	}
	if p.DeathLimit <= 0 {
		p.DeathLimit = d.DeathLimit
	}
	p.WallType = orDefault(p.WallType, d.WallType)
	return p
}

// Caves runs a birth/death automaton over random noise.
func Caves(w, h int, p CaveParams) ([]tilemap.Placement, error) {
	if err := checkSize(w, h); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	rng := newRand(p.Seed)

	live := make([]bool, w*h)
	for i := range live {
		live[i] = rng.Float64() < p.FillProbability
	}
	next := make([]bool, w*h)
	for iter := 0; iter < p.Iterations; iter++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				n := liveNeighbors(live, w, h, x, y)
				i := y*w + x
				if live[i] {
					next[i] = n >= p.DeathLimit
				} else {
					next[i] = n >= p.BirthLimit
				}
			}
		}
		live, next = next, live
	}

	g := newGrid(w, h)
	for i, alive := range live {
		if alive {
			g.cells[i] = p.WallType
		} else {
			g.cells[i] = p.FloorType
		}
	}
	return g.placements(), nil
}

func liveNeighbors(live []bool, w, h, x, y int) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h || live[ny*w+nx] {
				n++
			}
		}
	}
	return n
}
