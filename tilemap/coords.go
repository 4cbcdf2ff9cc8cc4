package tilemap

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultChunkSize is the edge length of a chunk in tiles.
const DefaultChunkSize = 16

// ChunkKey identifies a chunk by its chunk coordinates.
type ChunkKey struct {
	X, Y int
}

func (k ChunkKey) String() string {
	return CoordToKey(k.X, k.Y)
}

// ChunkCoords is a global tile coordinate split into chunk and local parts.
type ChunkCoords struct {
	ChunkX int
	ChunkY int
	LocalX int
	LocalY int
}

// Key returns the chunk key part.
func (c ChunkCoords) Key() ChunkKey {
	return ChunkKey{X: c.ChunkX, Y: c.ChunkY}
}

// CoordToKey formats a tile coordinate as "{x}_{y}".
func CoordToKey(x, y int) string {
	return strconv.Itoa(x) + "_" + strconv.Itoa(y)
}

// ParseKey is the inverse of CoordToKey.
func ParseKey(key string) (x, y int, err error) {
	xs, ys, ok := strings.Cut(key, "_")
	if !ok {
		return 0, 0, fmt.Errorf("tilemap: malformed tile key %q", key)
	}
	if x, err = strconv.Atoi(xs); err != nil {
		return 0, 0, fmt.Errorf("tilemap: malformed tile key %q: %w", key, err)
	}
	if y, err = strconv.Atoi(ys); err != nil {
		return 0, 0, fmt.Errorf("tilemap: malformed tile key %q: %w", key, err)
	}
	return x, y, nil
}

// FloorDiv divides rounding toward negative infinity. n must be positive.
func FloorDiv(a, n int) int {
	q := a / n
	if a%n != 0 && a < 0 {
		q--
	}
	return q
}

// FloorMod returns the non-negative remainder of a / n. n must be positive.
func FloorMod(a, n int) int {
	return ((a % n) + n) % n
}

// ToChunkCoords splits a global coordinate into chunk and local coordinates.
// Negative coordinates use floor semantics: -1 lives in chunk -1 at local chunkSize-1.
func ToChunkCoords(x, y, chunkSize int) ChunkCoords {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return ChunkCoords{
		ChunkX: FloorDiv(x, chunkSize),
		ChunkY: FloorDiv(y, chunkSize),
		LocalX: FloorMod(x, chunkSize),
		LocalY: FloorMod(y, chunkSize),
	}
}

// FromChunkCoords rebuilds the global coordinate.
func FromChunkCoords(c ChunkCoords, chunkSize int) (x, y int) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return c.ChunkX*chunkSize + c.LocalX, c.ChunkY*chunkSize + c.LocalY
}

// ChunkKeyFor returns the chunk owning (x, y).
func ChunkKeyFor(x, y, chunkSize int) ChunkKey {
	return ToChunkCoords(x, y, chunkSize).Key()
}

// Rect is an inclusive rectangle in tile coordinates.
type Rect struct {
	MinX, MinY int
	MaxX, MaxY int
}

// NewRect builds a rect from two corners in any order.
func NewRect(x0, y0, x1, y1 int) Rect {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{MinX: x0, MinY: y0, MaxX: x1, MaxY: y1}
}

// Width returns the number of columns.
func (r Rect) Width() int { return r.MaxX - r.MinX + 1 }

// Height returns the number of rows.
func (r Rect) Height() int { return r.MaxY - r.MinY + 1 }

// Area returns Width*Height, 0 for inverted rects.
func (r Rect) Area() int {
	if r.MaxX < r.MinX || r.MaxY < r.MinY {
		return 0
	}
	return r.Width() * r.Height()
}

// Contains reports whether (x, y) is inside the rect.
func (r Rect) Contains(x, y int) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Expand grows the rect by n on every side.
func (r Rect) Expand(n int) Rect {
	return Rect{MinX: r.MinX - n, MinY: r.MinY - n, MaxX: r.MaxX + n, MaxY: r.MaxY + n}
}

// ChunkRange returns the inclusive range of chunks overlapping r.
func (r Rect) ChunkRange(chunkSize int) (min, max ChunkKey) {
	return ChunkKeyFor(r.MinX, r.MinY, chunkSize), ChunkKeyFor(r.MaxX, r.MaxY, chunkSize)
}

// View maps between screen pixels, world pixels and tiles for a panned and
// zoomed canvas.
type View struct {
	OffsetX  float64
	OffsetY  float64
	Zoom     float64
	TileSize int
}

func (v View) zoom() float64 {
	if v.Zoom == 0 {
		return 1
	}
	return v.Zoom
}

func (v View) tileSize() float64 {
	if v.TileSize <= 0 {
		return 1
	}
	return float64(v.TileSize)
}

// ScreenToWorld converts a screen pixel into world pixels.
func (v View) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	z := v.zoom()
	return (sx - v.OffsetX) / z, (sy - v.OffsetY) / z
}

// WorldToScreen converts world pixels into a screen pixel.
func (v View) WorldToScreen(wx, wy float64) (sx, sy float64) {
	z := v.zoom()
	return wx*z + v.OffsetX, wy*z + v.OffsetY
}

// WorldToTile returns the tile containing a world pixel.
func (v View) WorldToTile(wx, wy float64) (x, y int) {
	ts := v.tileSize()
	return int(math.Floor(wx / ts)), int(math.Floor(wy / ts))
}

// TileToWorld returns the world pixel of a tile's top-left corner.
func (v View) TileToWorld(x, y int) (wx, wy float64) {
	ts := v.tileSize()
	return float64(x) * ts, float64(y) * ts
}

// ScreenToTile composes ScreenToWorld and WorldToTile.
func (v View) ScreenToTile(sx, sy float64) (x, y int) {
	return v.WorldToTile(v.ScreenToWorld(sx, sy))
}

// ZoomAt changes the zoom while keeping the world point under (sx, sy) fixed.
func (v View) ZoomAt(sx, sy, zoom float64) View {
	wx, wy := v.ScreenToWorld(sx, sy)
	v.Zoom = zoom
	v.OffsetX = sx - wx*zoom
	v.OffsetY = sy - wy*zoom
	return v
}

// VisibleTiles returns the tiles covered by a screen of the given size.
func (v View) VisibleTiles(screenW, screenH int) Rect {
	x0, y0 := v.ScreenToTile(0, 0)
	x1, y1 := v.ScreenToTile(float64(screenW-1), float64(screenH-1))
	return NewRect(x0, y0, x1, y1)
}
