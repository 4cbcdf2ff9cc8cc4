package tilemap

import "testing"

func TestKeyRoundTrip(t *testing.T) {
	cases := []struct {
		x, y int
		key  string
	}{
		{0, 0, "0_0"},
		{2, 3, "2_3"},
		{-1, 0, "-1_0"},
		{-17, -33, "-17_-33"},
		{1 << 30, -(1 << 30), "1073741824_-1073741824"},
	}
	for _, c := range cases {
		t.Run(c.key, func(t *testing.T) {
			if got := CoordToKey(c.x, c.y); got != c.key {
				t.Fatalf("CoordToKey(%d, %d) = %q, want %q", c.x, c.y, got, c.key)
			}
			x, y, err := ParseKey(c.key)
			if err != nil {
				t.Fatalf("ParseKey(%q): %v", c.key, err)
			}
			if x != c.x || y != c.y {
				t.Fatalf("ParseKey(%q) = (%d, %d), want (%d, %d)", c.key, x, y, c.x, c.y)
			}
		})
	}
}

func TestParseKeyMalformed(t *testing.T) {
	for _, key := range []string{"", "1", "a_1", "1_b", "1_2_3", "_"} {
		t.Run(key, func(t *testing.T) {
			if _, _, err := ParseKey(key); err == nil {
				t.Fatalf("expected error for %q", key)
			}
		})
	}
}

func TestToChunkCoords(t *testing.T) {
	cases := []struct {
		name string
		x, y int
		size int
		want ChunkCoords
	}{
		{"origin", 0, 0, 16, ChunkCoords{0, 0, 0, 0}},
		{"inside_first", 15, 7, 16, ChunkCoords{0, 0, 15, 7}},
		{"second_chunk", 16, 33, 16, ChunkCoords{1, 2, 0, 1}},
		{"negative_one", -1, -1, 16, ChunkCoords{-1, -1, 15, 15}},
		{"negative_boundary", -16, -17, 16, ChunkCoords{-1, -2, 0, 15}},
		{"size_one", -5, 9, 1, ChunkCoords{-5, 9, 0, 0}},
		{"odd_size", -7, 7, 3, ChunkCoords{-3, 2, 2, 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ToChunkCoords(c.x, c.y, c.size)
			if got != c.want {
				t.Fatalf("ToChunkCoords(%d, %d, %d) = %+v, want %+v", c.x, c.y, c.size, got, c.want)
			}
			x, y := FromChunkCoords(got, c.size)
			if x != c.x || y != c.y {
				t.Fatalf("FromChunkCoords = (%d, %d), want (%d, %d)", x, y, c.x, c.y)
			}
		})
	}
}

func TestChunkCoordsRoundTripGrid(t *testing.T) {
	for _, size := range []int{1, 2, 5, 16, 32} {
		for x := -40; x <= 40; x += 3 {
			for y := -40; y <= 40; y += 7 {
				cc := ToChunkCoords(x, y, size)
				if cc.LocalX < 0 || cc.LocalX >= size || cc.LocalY < 0 || cc.LocalY >= size {
					t.Fatalf("local out of range for (%d, %d) size %d: %+v", x, y, size, cc)
				}
				gx, gy := FromChunkCoords(cc, size)
				if gx != x || gy != y {
					t.Fatalf("round trip (%d, %d) size %d = (%d, %d)", x, y, size, gx, gy)
				}
			}
		}
	}
}

func TestRectChunkRange(t *testing.T) {
	r := NewRect(20, 5, -3, -20)
	if r.MinX != -3 || r.MaxX != 20 || r.MinY != -20 || r.MaxY != 5 {
		t.Fatalf("NewRect did not normalize: %+v", r)
	}
	lo, hi := r.ChunkRange(16)
	if lo != (ChunkKey{-1, -2}) || hi != (ChunkKey{1, 0}) {
		t.Fatalf("ChunkRange = %v..%v", lo, hi)
	}
	if r.Area() != 24*26 {
		t.Fatalf("Area = %d", r.Area())
	}
}

func TestViewTransforms(t *testing.T) {
	v := View{OffsetX: 100, OffsetY: -50, Zoom: 2, TileSize: 32}

	cases := []struct {
		name   string
		sx, sy float64
		tx, ty int
	}{
		{"origin_tile", 100, -50, 0, 0},
		{"last_pixel_of_origin", 163, 13, 0, 0},
		{"next_tile", 164, 14, 1, 1},
		{"negative", 99, -51, -1, -1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			x, y := v.ScreenToTile(c.sx, c.sy)
			if x != c.tx || y != c.ty {
				t.Fatalf("ScreenToTile(%v, %v) = (%d, %d), want (%d, %d)", c.sx, c.sy, x, y, c.tx, c.ty)
			}
		})
	}

	wx, wy := v.ScreenToWorld(321, 77)
	sx, sy := v.WorldToScreen(wx, wy)
	if sx != 321 || sy != 77 {
		t.Fatalf("screen/world round trip = (%v, %v)", sx, sy)
	}

	z := v.ZoomAt(200, 200, 4)
	bx, by := v.ScreenToWorld(200, 200)
	ax, ay := z.ScreenToWorld(200, 200)
	if ax != bx || ay != by {
		t.Fatalf("ZoomAt moved the anchored point: (%v, %v) -> (%v, %v)", bx, by, ax, ay)
	}
}
