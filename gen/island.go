package gen

import (
	"math"

	"github.com/milk9111/tilecanvas/tilemap"
)

// IslandParams combine noise with a radial falloff so land gathers in the
// center. Falloff is the exponent of the distance term; higher values make
// the coast steeper.
type IslandParams struct {
	Seed    int64   `json:"seed"`
	Scale   float64 `json:"scale"`
	Octaves int     `json:"octaves"`
	Falloff float64 `json:"falloff"`

	WaterLevel    float64 `json:"waterLevel"`
	SandLevel     float64 `json:"sandLevel"`
	MountainLevel float64 `json:"mountainLevel"`

	WaterType    string `json:"waterType"`
	SandType     string `json:"sandType"`
	GrassType    string `json:"grassType"`
	MountainType string `json:"mountainType"`
}

func DefaultIslandParams() IslandParams {
	return IslandParams{
		Scale:         0.1,
		Octaves:       4,
		Falloff:       2,
		WaterLevel:    0.3,
		SandLevel:     0.36,
		MountainLevel: 0.62,
		WaterType:     "water",
		SandType:      "sand",
		GrassType:     "grass",
		MountainType:  "stone",
	}
}

func (p IslandParams) withDefaults() IslandParams {
	d := DefaultIslandParams()
	if p.Scale <= 0 {
		p.Scale = d.Scale
	}
	if p.Octaves <= 0 {
		p.Octaves = d.Octaves
	}
	if p.Falloff <= 0 {
		p.Falloff = d.Falloff
	}
	if p.WaterLevel <= 0 {
		p.WaterLevel = d.WaterLevel
	}
	if p.SandLevel <= 0 {
		p.SandLevel = d.SandLevel
	}
	if p.MountainLevel <= 0 {
		p.MountainLevel = d.MountainLevel
	}
	p.WaterType = orDefault(p.WaterType, d.WaterType)
	p.SandType = orDefault(p.SandType, d.SandType)
	p.GrassType = orDefault(p.GrassType, d.GrassType)
	p.MountainType = orDefault(p.MountainType, d.MountainType)
	return p
}

// Island shapes noise with a radial falloff. Cells on the map border are
// always water.
func Island(w, h int, p IslandParams) ([]tilemap.Placement, error) {
	if err := checkSize(w, h); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	f := newFractal(p.Seed, p.Octaves, 0.5, 2)

	cx, cy := float64(w-1)/2, float64(h-1)/2
	g := newGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// normalized distance: 0 in the center, 1 on the nearest edge
			dx, dy := 0.0, 0.0
			if cx > 0 {
				dx = math.Abs(float64(x)-cx) / cx
			}
			if cy > 0 {
				dy = math.Abs(float64(y)-cy) / cy
			}
			d := math.Max(dx, dy)
			n := f.at(float64(x)*p.Scale, float64(y)*p.Scale)
			e := lerp(n, 0, math.Pow(d, p.Falloff))
			if d >= 1 {
				e = 0
			}
			switch {
			case e < p.WaterLevel:
				g.set(x, y, p.WaterType)
			case e < p.SandLevel:
				g.set(x, y, p.SandType)
			case e < p.MountainLevel:
				g.set(x, y, p.GrassType)
			default:
				g.set(x, y, p.MountainType)
			}
		}
	}
	return g.placements(), nil
}
