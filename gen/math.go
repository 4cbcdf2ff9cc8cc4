package gen

import (
	"math"
	"math/rand/v2"

	"github.com/ojrac/opensimplex-go"
)

// newRand returns a PCG generator derived only from seed.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// fractal sums octaves of simplex noise and normalizes the result to [0, 1].
type fractal struct {
	noise       opensimplex.Noise
	octaves     int
	persistence float64
	lacunarity  float64
}

func newFractal(seed int64, octaves int, persistence, lacunarity float64) fractal {
	if octaves <= 0 {
		octaves = 1
	}
	if persistence <= 0 {
		persistence = 0.5
	}
	if lacunarity <= 0 {
		lacunarity = 2
	}
	return fractal{
		noise:       opensimplex.NewNormalized(seed),
		octaves:     octaves,
		persistence: persistence,
		lacunarity:  lacunarity,
	}
}

func (f fractal) at(x, y float64) float64 {
	var sum, norm float64
	amp, freq := 1.0, 1.0
	for i := 0; i < f.octaves; i++ {
		sum += f.noise.Eval2(x*freq, y*freq) * amp
		norm += amp
		amp *= f.persistence
		freq *= f.lacunarity
	}
	return clamp01(sum / norm)
}
