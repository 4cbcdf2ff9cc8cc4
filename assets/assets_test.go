package assets

import (
	"context"
	"slices"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/tilecanvas/gen"
)

func TestScripts(t *testing.T) {
	got := Scripts()
	for _, want := range []string{"rings", "scatter"} {
		if !slices.Contains(got, want) {
			t.Fatalf("Scripts() = %v, missing %q", got, want)
		}
	}
}

func TestBundledScriptsRun(t *testing.T) {
	for _, name := range Scripts() {
		t.Run(name, func(t *testing.T) {
			src, err := LoadScript(name)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			first, err := gen.Script(context.Background(), 24, 16, gen.ScriptParams{Seed: 5, Source: string(src)})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(first) != 24*16 {
				t.Fatalf("got %d placements, want a full map", len(first))
			}
			again, err := gen.Script(context.Background(), 24, 16, gen.ScriptParams{Seed: 5, Source: string(src)})
			if err != nil {
				t.Fatalf("rerun: %v", err)
			}
			if !slices.Equal(first, again) {
				t.Fatalf("script %s is not deterministic", name)
			}
		})
	}
}

func TestPaletteSprites(t *testing.T) {
	data, err := LoadFile(DefaultPalettePath)
	if err != nil {
		t.Fatalf("load palette: %v", err)
	}
	var doc struct {
		Types []struct {
			Type   string `yaml:"type"`
			Sprite string `yaml:"sprite"`
		} `yaml:"types"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse palette: %v", err)
	}
	for _, pt := range doc.Types {
		if pt.Sprite == "" {
			continue
		}
		t.Run(pt.Type, func(t *testing.T) {
			img, err := LoadImage(pt.Sprite)
			if err != nil {
				t.Fatalf("load sprite: %v", err)
			}
			if b := img.Bounds(); b.Dx()%3 != 0 || b.Dy()%3 != 0 {
				t.Fatalf("sheet %v is not a 3x3 grid", b)
			}
		})
	}
}

func TestScriptPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"rings", "scripts/rings.tengo"},
		{"rings.tengo", "scripts/rings.tengo"},
		{"scripts/scatter", "scripts/scatter.tengo"},
		{"assets/scripts/scatter.tengo", "scripts/scatter.tengo"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := scriptPath(tt.in); got != tt.want {
				t.Fatalf("scriptPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
