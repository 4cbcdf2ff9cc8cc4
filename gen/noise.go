package gen

import "github.com/milk9111/tilecanvas/tilemap"

// NoiseParams configure banded terrain. Levels are thresholds on the
// normalized noise value.
type NoiseParams struct {
	Seed        int64   `json:"seed"`
	Scale       float64 `json:"scale"`
	Octaves     int     `json:"octaves"`
	Persistence float64 `json:"persistence"`
	Lacunarity  float64 `json:"lacunarity"`

	WaterLevel float64 `json:"waterLevel"`
	SandLevel  float64 `json:"sandLevel"`

	WaterType string `json:"waterType"`
	SandType  string `json:"sandType"`
	GrassType string `json:"grassType"`

	// DecorationChance scatters DecorationType over grass.
	DecorationChance float64 `json:"decorationChance"`
	DecorationType   string  `json:"decorationType"`
}

// DefaultNoiseParams returns the parameters used when a field is zero.
func DefaultNoiseParams() NoiseParams {
	return NoiseParams{
		Scale:          0.08,
		Octaves:        4,
		Persistence:    0.5,
		Lacunarity:     2,
		WaterLevel:     0.38,
		SandLevel:      0.46,
		WaterType:      "water",
		SandType:       "sand",
		GrassType:      "grass",
		DecorationType: "flower",
	}
}

func (p NoiseParams) withDefaults() NoiseParams {
	d := DefaultNoiseParams()
	if p.Scale <= 0 {
		p.Scale = d.Scale
	}
	if p.Octaves <= 0 {
		p.Octaves = d.Octaves
	}
	if p.WaterLevel <= 0 {
		p.WaterLevel = d.WaterLevel
	}
	if p.SandLevel <= 0 {
		p.SandLevel = d.SandLevel
	}
	p.WaterType = orDefault(p.WaterType, d.WaterType)
	p.SandType = orDefault(p.SandType, d.SandType)
	p.GrassType = orDefault(p.GrassType, d.GrassType)
	p.DecorationType = orDefault(p.DecorationType, d.DecorationType)
	return p
}

// Noise samples coherent noise and bands it into water, sand and grass.
func Noise(w, h int, p NoiseParams) ([]tilemap.Placement, error) {
	if err := checkSize(w, h); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	f := newFractal(p.Seed, p.Octaves, p.Persistence, p.Lacunarity)
	rng := newRand(p.Seed)

	g := newGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := f.at(float64(x)*p.Scale, float64(y)*p.Scale)
			// draw for every cell so the decoration layout does not depend
			// on the band thresholds
			roll := rng.Float64()
			switch {
			case v < p.WaterLevel:
				g.set(x, y, p.WaterType)
			case v < p.SandLevel:
				g.set(x, y, p.SandType)
			case p.DecorationChance > 0 && roll < p.DecorationChance:
				g.set(x, y, p.DecorationType)
			default:
				g.set(x, y, p.GrassType)
			}
		}
	}
	return g.placements(), nil
}
