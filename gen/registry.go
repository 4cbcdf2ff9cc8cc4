package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/milk9111/tilecanvas/tilemap"
)

// Algorithm names accepted by Run.
const (
	AlgorithmNoise  = "noise"
	AlgorithmCaves  = "caves"
	AlgorithmWalk   = "walk"
	AlgorithmIsland = "island"
	AlgorithmScript = "script"
)

type generator func(ctx context.Context, w, h int, params map[string]any) ([]tilemap.Placement, error)

var registry = map[string]generator{
	AlgorithmNoise: func(_ context.Context, w, h int, params map[string]any) ([]tilemap.Placement, error) {
		var p NoiseParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return Noise(w, h, p)
	},
	AlgorithmCaves: func(_ context.Context, w, h int, params map[string]any) ([]tilemap.Placement, error) {
		var p CaveParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return Caves(w, h, p)
	},
	AlgorithmWalk: func(_ context.Context, w, h int, params map[string]any) ([]tilemap.Placement, error) {
		var p WalkParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return RandomWalk(w, h, p)
	},
	AlgorithmIsland: func(_ context.Context, w, h int, params map[string]any) ([]tilemap.Placement, error) {
		var p IslandParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return Island(w, h, p)
	},
	AlgorithmScript: func(ctx context.Context, w, h int, params map[string]any) ([]tilemap.Placement, error) {
		var p ScriptParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return Script(ctx, w, h, p)
	},
}

// Algorithms lists the registered algorithm names in sorted order.
func Algorithms() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run dispatches to the named generator. params uses the JSON field names of
// the algorithm's parameter struct; unknown keys are ignored.
func Run(ctx context.Context, algorithm string, w, h int, params map[string]any) ([]tilemap.Placement, error) {
	fn, ok := registry[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	return fn(ctx, w, h, params)
}

func decodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("gen: params: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gen: params: %w", err)
	}
	return nil
}
