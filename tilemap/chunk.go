package tilemap

// Chunk holds the tiles of one chunkSize x chunkSize partition. Tiles are kept
// in a sparse set: dense slices for iteration and a sparse index array with one
// slot per local cell.
type Chunk struct {
	key  ChunkKey
	size int

	dense  []int
	tiles  []Tile
	sparse []int32

	// touched marks local cells written since the chunk was requested so a late
	// fetch result does not overwrite them.
	touched []bool

	loaded   bool
	dirty    bool
	lastSeen int
}

func newChunk(key ChunkKey, size int) *Chunk {
	return &Chunk{key: key, size: size}
}

// Key returns the chunk coordinates.
func (c *Chunk) Key() ChunkKey { return c.key }

// Size returns the edge length in tiles.
func (c *Chunk) Size() int { return c.size }

// Loaded reports whether the chunk's persisted contents have been merged.
func (c *Chunk) Loaded() bool { return c.loaded }

// Dirty reports whether the chunk has unflushed local writes.
func (c *Chunk) Dirty() bool { return c.dirty }

func (c *Chunk) index(lx, ly int) int {
	return ly*c.size + lx
}

func (c *Chunk) has(i int) bool {
	if c == nil || i < 0 || i >= len(c.sparse) {
		return false
	}
	d := c.sparse[i]
	return d >= 0 && int(d) < len(c.dense) && c.dense[d] == i
}

// Get returns the tile at local (lx, ly).
func (c *Chunk) Get(lx, ly int) (Tile, bool) {
	i := c.index(lx, ly)
	if !c.has(i) {
		return Tile{}, false
	}
	return c.tiles[c.sparse[i]], true
}

func (c *Chunk) set(i int, t Tile) {
	if c.sparse == nil {
		c.sparse = make([]int32, c.size*c.size)
		for j := range c.sparse {
			c.sparse[j] = -1
		}
	}
	if c.has(i) {
		c.tiles[c.sparse[i]] = t
		return
	}
	c.dense = append(c.dense, i)
	c.tiles = append(c.tiles, t)
	c.sparse[i] = int32(len(c.dense) - 1)
}

func (c *Chunk) remove(i int) bool {
	if !c.has(i) {
		return false
	}
	d := c.sparse[i]
	last := len(c.dense) - 1
	lastIdx := c.dense[last]

	c.dense[d] = lastIdx
	c.tiles[d] = c.tiles[last]
	c.sparse[lastIdx] = d

	c.dense = c.dense[:last]
	c.tiles = c.tiles[:last]
	c.sparse[i] = -1
	return true
}

func (c *Chunk) touch(i int) {
	if c.loaded {
		return
	}
	if c.touched == nil {
		c.touched = make([]bool, c.size*c.size)
	}
	c.touched[i] = true
}

func (c *Chunk) wasTouched(i int) bool {
	return c.touched != nil && c.touched[i]
}

// Len returns the number of tiles in the chunk.
func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	return len(c.dense)
}

// Each calls fn for every tile with its local coordinates. Order is unspecified.
func (c *Chunk) Each(fn func(lx, ly int, t Tile)) {
	if c == nil {
		return
	}
	for d, i := range c.dense {
		fn(i%c.size, i/c.size, c.tiles[d])
	}
}
