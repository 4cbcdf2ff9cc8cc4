// Package assets holds the files shipped inside the binaries: the default
// palette and the bundled generator scripts. Files on disk under assets/
// take precedence so they can be edited without rebuilding.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPalettePath is the name of the bundled palette.
const DefaultPalettePath = "palette.yaml"

//go:embed palette.yaml scripts/*.tengo tiles/*.png
var assetsFS embed.FS

// LoadFile loads an asset by assets-relative path, preferring the disk copy.
func LoadFile(path string) ([]byte, error) {
	clean := cleanAssetPath(path)
	if data, err := os.ReadFile(filepath.Join("assets", filepath.FromSlash(clean))); err == nil {
		return data, nil
	}
	return assetsFS.ReadFile(clean)
}

// LoadScript loads a generator script by name; the .tengo extension is
// optional.
func LoadScript(name string) ([]byte, error) {
	return LoadFile(scriptPath(name))
}

// Scripts lists the bundled script names without extension.
func Scripts() []string {
	entries, err := fs.ReadDir(assetsFS, "scripts")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".tengo"))
	}
	sort.Strings(out)
	return out
}

// LoadImage decodes a PNG asset, such as a palette sprite sheet.
func LoadImage(path string) (image.Image, error) {
	b, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return img, nil
}

func scriptPath(name string) string {
	s := cleanAssetPath(name)
	s = strings.TrimPrefix(s, "scripts/")
	if !strings.HasSuffix(s, ".tengo") {
		s += ".tengo"
	}
	return "scripts/" + s
}

func cleanAssetPath(path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		s := filepath.ToSlash(path)
		if idx := strings.LastIndex(s, "/assets/"); idx >= 0 {
			return s[idx+len("/assets/"):]
		}
		return filepath.Base(path)
	}
	s := filepath.ToSlash(path)
	if strings.HasPrefix(s, "assets/") {
		return strings.TrimPrefix(s, "assets/")
	}
	return s
}
