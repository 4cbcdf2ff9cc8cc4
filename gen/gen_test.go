package gen

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/milk9111/tilecanvas/tilemap"
)

func checkPlacements(t *testing.T, w, h int, got []tilemap.Placement) {
	t.Helper()
	prev := -1
	for _, p := range got {
		if p.X < 0 || p.Y < 0 || p.X >= w || p.Y >= h {
			t.Fatalf("placement (%d,%d) outside %dx%d", p.X, p.Y, w, h)
		}
		if tilemap.IsEmptyType(p.Type) {
			t.Fatalf("placement (%d,%d) has empty type", p.X, p.Y)
		}
		idx := p.Y*w + p.X
		if idx <= prev {
			t.Fatalf("placements not row-major at (%d,%d)", p.X, p.Y)
		}
		prev = idx
	}
}

func TestGeneratorsDeterministic(t *testing.T) {
	const w, h = 32, 24
	cases := []struct {
		name string
		run  func(seed int64) ([]tilemap.Placement, error)
	}{
		{"noise", func(seed int64) ([]tilemap.Placement, error) {
			return Noise(w, h, NoiseParams{Seed: seed, DecorationChance: 0.1})
		}},
		{"caves", func(seed int64) ([]tilemap.Placement, error) {
			return Caves(w, h, CaveParams{Seed: seed})
		}},
		{"walk", func(seed int64) ([]tilemap.Placement, error) {
			return RandomWalk(w, h, WalkParams{Seed: seed, Steps: 200, PathWidth: 2})
		}},
		{"island", func(seed int64) ([]tilemap.Placement, error) {
			return Island(w, h, IslandParams{Seed: seed})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := tc.run(7)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			b, err := tc.run(7)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if !reflect.DeepEqual(a, b) {
				t.Fatalf("same seed produced different layouts")
			}
			checkPlacements(t, w, h, a)

			c, err := tc.run(8)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if reflect.DeepEqual(a, c) {
				t.Fatalf("different seeds produced identical layouts")
			}
		})
	}
}

func TestNoiseCoversEveryCell(t *testing.T) {
	got, err := Noise(10, 10, NoiseParams{Seed: 1})
	if err != nil {
		t.Fatalf("noise: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 placements, got %d", len(got))
	}
	allowed := map[string]bool{"water": true, "sand": true, "grass": true}
	for _, p := range got {
		if !allowed[p.Type] {
			t.Fatalf("unexpected type %q without decoration", p.Type)
		}
	}
}

func TestCavesWithoutIterations(t *testing.T) {
	// a probability of 1 fills everything and the automaton keeps it full
	got, err := Caves(8, 6, CaveParams{Seed: 3, FillProbability: 1, WallType: "rock"})
	if err != nil {
		t.Fatalf("caves: %v", err)
	}
	if len(got) != 48 {
		t.Fatalf("expected solid map, got %d walls", len(got))
	}
	for _, p := range got {
		if p.Type != "rock" {
			t.Fatalf("unexpected type %q", p.Type)
		}
	}
}

func TestCavesFloorType(t *testing.T) {
	got, err := Caves(20, 20, CaveParams{Seed: 5, FloorType: "dirt"})
	if err != nil {
		t.Fatalf("caves: %v", err)
	}
	if len(got) != 400 {
		t.Fatalf("floor type should fill open cells, got %d", len(got))
	}
}

func TestRandomWalkStartsAtStart(t *testing.T) {
	x, y := 0, 0
	got, err := RandomWalk(9, 9, WalkParams{Seed: 2, Steps: 0, StartX: &x, StartY: &y})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(got) == 0 || got[0].X != 0 || got[0].Y != 0 || got[0].Type != "dirt" {
		t.Fatalf("expected path to include start, got %+v", got)
	}
}

func TestRandomWalkBackground(t *testing.T) {
	got, err := RandomWalk(6, 4, WalkParams{Seed: 9, Steps: 5, Background: "stone"})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(got) != 24 {
		t.Fatalf("background should cover the map, got %d", len(got))
	}
}

func TestIslandBorderIsWater(t *testing.T) {
	const w, h = 16, 12
	got, err := Island(w, h, IslandParams{Seed: 11})
	if err != nil {
		t.Fatalf("island: %v", err)
	}
	for _, p := range got {
		if p.X == 0 || p.Y == 0 || p.X == w-1 || p.Y == h-1 {
			if p.Type != "water" {
				t.Fatalf("border cell (%d,%d) is %q", p.X, p.Y, p.Type)
			}
		}
	}
}

func TestInvalidSize(t *testing.T) {
	if _, err := Noise(0, 5, NoiseParams{}); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := Caves(5, -1, CaveParams{}); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	t.Run("unknown algorithm", func(t *testing.T) {
		if _, err := Run(ctx, "voronoi", 4, 4, nil); !errors.Is(err, ErrUnknownAlgorithm) {
			t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
		}
	})
	t.Run("params decode", func(t *testing.T) {
		got, err := Run(ctx, AlgorithmCaves, 6, 6, map[string]any{
			"seed":            float64(4),
			"fillProbability": 1.0,
			"wallType":        "brick",
			"ignored":         true,
		})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(got) != 36 || got[0].Type != "brick" {
			t.Fatalf("params not applied: %d placements", len(got))
		}
	})
	t.Run("bad params", func(t *testing.T) {
		if _, err := Run(ctx, AlgorithmNoise, 4, 4, map[string]any{"seed": "abc"}); err == nil {
			t.Fatalf("expected decode error")
		}
	})
	t.Run("algorithms listed", func(t *testing.T) {
		want := []string{"caves", "island", "noise", "script", "walk"}
		if got := Algorithms(); !reflect.DeepEqual(got, want) {
			t.Fatalf("Algorithms() = %v", got)
		}
	})
}

func TestScript(t *testing.T) {
	ctx := context.Background()
	src := `
for y := 0; y < height; y++ {
	for x := 0; x < width; x++ {
		if x == y {
			canvas.set(x, y, "stone")
		} else if canvas.rand() < 0.5 {
			canvas.set(x, y, "grass")
		}
	}
}
canvas.set(-1, 0, "water")
`
	a, err := Script(ctx, 8, 8, ScriptParams{Seed: 3, Source: src})
	if err != nil {
		t.Fatalf("script: %v", err)
	}
	b, err := Script(ctx, 8, 8, ScriptParams{Seed: 3, Source: src})
	if err != nil {
		t.Fatalf("script: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("script not deterministic")
	}
	checkPlacements(t, 8, 8, a)

	diag := 0
	for _, p := range a {
		if p.X == p.Y {
			if p.Type != "stone" {
				t.Fatalf("diagonal (%d,%d) is %q", p.X, p.Y, p.Type)
			}
			diag++
		}
	}
	if diag != 8 {
		t.Fatalf("expected 8 diagonal tiles, got %d", diag)
	}
}

func TestScriptErrors(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		p    ScriptParams
	}{
		{"empty", ScriptParams{Source: "  "}},
		{"compile", ScriptParams{Source: "x := "}},
		{"no os", ScriptParams{Source: `os := import("os")`}},
		{"timeout", ScriptParams{Source: "for { }", Timeout: 50 * time.Millisecond}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Script(ctx, 4, 4, tc.p); !errors.Is(err, ErrScript) {
				t.Fatalf("expected ErrScript, got %v", err)
			}
		})
	}
}
