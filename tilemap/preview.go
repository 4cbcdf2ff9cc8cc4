package tilemap

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
)

// MaxPreviewSide caps the longer side of a rendered preview in pixels.
const MaxPreviewSide = 1024

// PreviewOptions control RenderPreview. Region defaults to the store bounds;
// Width is the target width in pixels (height keeps the aspect ratio).
type PreviewOptions struct {
	Region     *Rect
	Width      int
	Background color.Color
}

// ParseHexColor parses "#rrggbb". ok is false when s is not a valid color.
func ParseHexColor(s string) (c color.RGBA, ok bool) {
	s = NormalizeColor(s)
	if len(s) != 7 {
		return color.RGBA{}, false
	}
	var r, g, b uint32
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}, true
}

// TileColor resolves the fill color of t: its own color, then the palette
// fallback, then a stable color derived from the type name.
func TileColor(p Palette, t Tile) color.RGBA {
	if c, ok := ParseHexColor(t.Color); ok {
		return c
	}
	if c, ok := ParseHexColor(p.ColorOf(t.Type)); ok {
		return c
	}
	h := fnv.New32a()
	h.Write([]byte(t.Type))
	sum := h.Sum32()
	return color.RGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 0xff}
}

// RenderPreview draws one pixel per tile and scales the result to the
// requested width with nearest-neighbor sampling.
func RenderPreview(s *Store, opts PreviewOptions) (*image.RGBA, error) {
	region := opts.Region
	if region == nil {
		r, ok := s.Bounds()
		if !ok {
			m := s.Meta()
			if !m.Bounded() {
				return nil, fmt.Errorf("tilemap: preview of an empty unbounded map")
			}
			r = Rect{MaxX: m.Width - 1, MaxY: m.Height - 1}
		}
		region = &r
	}
	if region.Area() > MaxPreviewSide*MaxPreviewSide {
		return nil, fmt.Errorf("tilemap: preview region %dx%d too large", region.Width(), region.Height())
	}

	bg := opts.Background
	if bg == nil {
		bg = colornames.Black
	}
	src := image.NewRGBA(image.Rect(0, 0, region.Width(), region.Height()))
	draw.Draw(src, src.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	palette := s.Meta().Palette
	s.EachInRect(*region, func(x, y int, t Tile) {
		src.SetRGBA(x-region.MinX, y-region.MinY, TileColor(palette, t))
	})

	w := opts.Width
	if w <= 0 {
		w = region.Width()
	}
	w = min(w, MaxPreviewSide)
	h := max(1, w*region.Height()/region.Width())
	if h > MaxPreviewSide {
		h = MaxPreviewSide
		w = max(1, h*region.Width()/region.Height())
	}
	if w == src.Bounds().Dx() && h == src.Bounds().Dy() {
		return src, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// WritePreviewPNG renders the preview and encodes it as PNG.
func WritePreviewPNG(w io.Writer, s *Store, opts PreviewOptions) error {
	img, err := RenderPreview(s, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
