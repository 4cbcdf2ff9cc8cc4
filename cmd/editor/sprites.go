package main

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/assets"
	"github.com/milk9111/tilecanvas/tilemap"
)

// spriteCache holds the decoded sheets of the current palette. Types
// without a sheet are drawn as a flat palette color.
type spriteCache struct {
	sheets  map[string]*ebiten.Image
	missing map[string]bool
	pixel   *ebiten.Image
	log     logrus.FieldLogger
}

func newSpriteCache(log logrus.FieldLogger) *spriteCache {
	pixel := ebiten.NewImage(1, 1)
	pixel.Fill(color.White)
	return &spriteCache{
		sheets:  make(map[string]*ebiten.Image),
		missing: make(map[string]bool),
		pixel:   pixel,
		log:     log,
	}
}

func (c *spriteCache) reset() {
	for k, img := range c.sheets {
		img.Deallocate()
		delete(c.sheets, k)
	}
	clear(c.missing)
}

func (c *spriteCache) sheet(path string) *ebiten.Image {
	if img, ok := c.sheets[path]; ok {
		return img
	}
	if c.missing[path] {
		return nil
	}
	src, err := assets.LoadImage(path)
	if err != nil {
		c.log.WithError(err).WithField("sprite", path).Warn("sprite sheet unavailable, using palette color")
		c.missing[path] = true
		return nil
	}
	img := ebiten.NewImageFromImage(src)
	c.sheets[path] = img
	return img
}

// variantRect returns the cell of variant v in a 3x3 sheet of the given size.
func variantRect(bounds image.Rectangle, v int) image.Rectangle {
	cw, ch := bounds.Dx()/3, bounds.Dy()/3
	v = tilemap.ClampVariant(v)
	x := bounds.Min.X + (v%3)*cw
	y := bounds.Min.Y + (v/3)*ch
	return image.Rect(x, y, x+cw, y+ch)
}

// draw renders t with its top-left corner at (sx, sy) and side px pixels.
func (c *spriteCache) draw(dst *ebiten.Image, p tilemap.Palette, t tilemap.Tile, sx, sy, px float64) {
	if pc, ok := p.Lookup(t.Type); ok && pc.Sprite != "" && t.Color == "" {
		if sheet := c.sheet(pc.Sprite); sheet != nil {
			r := variantRect(sheet.Bounds(), t.VariantOr(4))
			cell := sheet.SubImage(r).(*ebiten.Image)
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Scale(px/float64(r.Dx()), px/float64(r.Dy()))
			op.GeoM.Translate(sx, sy)
			dst.DrawImage(cell, op)
			return
		}
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(px, px)
	op.GeoM.Translate(sx, sy)
	op.ColorScale.ScaleWithColor(tilemap.TileColor(p, t))
	dst.DrawImage(c.pixel, op)
}
