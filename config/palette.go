package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/tilecanvas/assets"
	"github.com/milk9111/tilecanvas/tilemap"
)

// PaletteFile is the YAML layout of a palette.
type PaletteFile struct {
	Types []tilemap.PaletteColor `yaml:"types"`
}

// ParsePalette decodes and validates a YAML palette. Colors are normalized.
func ParsePalette(data []byte) (tilemap.Palette, error) {
	var f PaletteFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: palette: %w", err)
	}
	p := make(tilemap.Palette, 0, len(f.Types))
	for _, c := range f.Types {
		c.Color = tilemap.NormalizeColor(c.Color)
		if c.Name == "" {
			c.Name = c.Type
		}
		p = append(p, c)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("config: palette: %w", err)
	}
	return p, nil
}

// LoadPalette reads a palette file, or the bundled default when path is
// empty.
func LoadPalette(path string) (tilemap.Palette, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = assets.LoadFile(assets.DefaultPalettePath)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: load palette %s: %w", path, err)
	}
	return ParsePalette(data)
}

// MarshalPalette encodes p in the PaletteFile layout.
func MarshalPalette(p tilemap.Palette) ([]byte, error) {
	return yaml.Marshal(PaletteFile{Types: p})
}
