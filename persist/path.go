// Package persist stores tiles under chunk-addressed paths and loads them
// back a chunk at a time.
package persist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/milk9111/tilecanvas/tilemap"
)

const pathRoot = "tilemaps"

// ChunkPath returns "tilemaps/{canvasId}/chunks/{cx}_{cy}".
func ChunkPath(canvasID string, cx, cy int) string {
	return pathRoot + "/" + canvasID + "/chunks/" + strconv.Itoa(cx) + "_" + strconv.Itoa(cy)
}

// TilePath returns "tilemaps/{canvasId}/chunks/{cx}_{cy}/tiles/{lx}_{ly}".
func TilePath(canvasID string, cx, cy, lx, ly int) string {
	return ChunkPath(canvasID, cx, cy) + "/tiles/" + strconv.Itoa(lx) + "_" + strconv.Itoa(ly)
}

// TilePathFor addresses the global tile (x, y).
func TilePathFor(canvasID string, x, y, chunkSize int) string {
	cc := tilemap.ToChunkCoords(x, y, chunkSize)
	return TilePath(canvasID, cc.ChunkX, cc.ChunkY, cc.LocalX, cc.LocalY)
}

// ParseTilePath splits a tile path into its canvas id and chunk coordinates.
func ParseTilePath(path string) (canvasID string, cc tilemap.ChunkCoords, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 6 || parts[0] != pathRoot || parts[2] != "chunks" || parts[4] != "tiles" || parts[1] == "" {
		return "", cc, fmt.Errorf("persist: malformed tile path %q", path)
	}
	cc.ChunkX, cc.ChunkY, err = tilemap.ParseKey(parts[3])
	if err != nil {
		return "", cc, fmt.Errorf("persist: malformed tile path %q: %w", path, err)
	}
	cc.LocalX, cc.LocalY, err = tilemap.ParseKey(parts[5])
	if err != nil {
		return "", cc, fmt.Errorf("persist: malformed tile path %q: %w", path, err)
	}
	return parts[1], cc, nil
}

// chunkOf returns the chunk path prefix of a tile path.
func chunkOf(tilePath string) string {
	if i := strings.LastIndex(tilePath, "/tiles/"); i >= 0 {
		return tilePath[:i]
	}
	return tilePath
}
