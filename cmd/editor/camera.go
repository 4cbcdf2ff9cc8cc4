package main

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/milk9111/tilecanvas/tilemap"
)

// camera owns the canvas view. Zoom changes ease towards their target
// around a fixed screen anchor.
type camera struct {
	view   tilemap.View
	target float64

	zoomTween        *gween.Tween
	anchorX, anchorY float64
}

func newCamera(tileSize int) *camera {
	return &camera{
		view:   tilemap.View{OffsetX: leftPanelWidth + 16, OffsetY: 64, Zoom: 1, TileSize: tileSize},
		target: 1,
	}
}

func (c *camera) zoomBy(factor, sx, sy float64) {
	c.target *= factor
	if c.target < minZoom {
		c.target = minZoom
	}
	if c.target > maxZoom {
		c.target = maxZoom
	}
	c.anchorX, c.anchorY = sx, sy
	c.zoomTween = gween.New(float32(c.view.Zoom), float32(c.target), zoomSeconds, ease.OutQuad)
}

func (c *camera) pan(dx, dy float64) {
	c.view.OffsetX += dx
	c.view.OffsetY += dy
}

// centerOn moves the view so tile (x, y) sits at screen point (sx, sy).
func (c *camera) centerOn(x, y int, sx, sy float64) {
	wx, wy := c.view.TileToWorld(x, y)
	c.view.OffsetX = sx - wx*c.view.Zoom
	c.view.OffsetY = sy - wy*c.view.Zoom
}

func (c *camera) update(dt float32) {
	if c.zoomTween == nil {
		return
	}
	z, done := c.zoomTween.Update(dt)
	c.view = c.view.ZoomAt(c.anchorX, c.anchorY, float64(z))
	if done {
		c.zoomTween = nil
	}
}

// tilePixels is the on-screen size of one tile.
func (c *camera) tilePixels() float64 {
	return float64(c.view.TileSize) * c.view.Zoom
}
