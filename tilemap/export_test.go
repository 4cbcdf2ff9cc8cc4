package tilemap

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
	"time"
)

var exportTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSparseExportImportRoundTrip(t *testing.T) {
	m := DefaultMeta()
	m.Palette = Palette{{Type: "water", Color: "#3366ff", Name: "Water"}}
	s := NewStore(&m)
	defer s.Close()
	_ = s.Set(2, 3, NewTile("water"))
	_ = s.Set(-4, 0, NewTile("water").WithVariant(5))

	doc, err := Export(s, FormatSparse, "tester", exportTime)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.TileCount != 2 || doc.ExportedAt != "2025-03-01T12:00:00Z" {
		t.Fatalf("header = %+v", doc)
	}
	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	imported, err := Import(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	defer imported.Close()
	if imported.DirtyCount() != 0 {
		t.Fatalf("imported tiles should not be dirty")
	}

	doc2, err := Export(imported, FormatSparse, "tester", exportTime)
	if err != nil {
		t.Fatalf("re-Export: %v", err)
	}
	if !bytes.Equal(doc.Tiles, doc2.Tiles) {
		t.Fatalf("tiles differ:\n%s\n%s", doc.Tiles, doc2.Tiles)
	}
	if imported.Meta().Palette.ColorOf("water") != "#3366ff" {
		t.Fatalf("palette not imported")
	}
}

func TestDenseExport(t *testing.T) {
	m := DefaultMeta()
	m.Width, m.Height = 3, 2
	s := NewStore(&m)
	defer s.Close()
	_ = s.Set(1, 0, NewTile("grass"))
	_ = s.Set(2, 1, NewTile("sand"))

	doc, err := Export(s, FormatDense, "", exportTime)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := `[[null,{"type":"grass"},null],[null,null,{"type":"sand"}]]`
	if string(doc.Tiles) != want {
		t.Fatalf("dense tiles = %s", doc.Tiles)
	}
	ps, err := doc.Placements()
	if err != nil {
		t.Fatalf("Placements: %v", err)
	}
	if len(ps) != 2 || ps[0].X != 1 || ps[1].Type != "sand" {
		t.Fatalf("placements = %+v", ps)
	}
}

func TestDenseExportUnbounded(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()
	if _, err := Export(s, FormatDense, "", exportTime); !errors.Is(err, ErrDenseUnbounded) {
		t.Fatalf("err = %v", err)
	}
}

func TestImportRejects(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not_json", `{`},
		{"bad_version", `{"version":2,"meta":{"tileSize":32,"chunkSize":16},"format":"sparse","tiles":{}}`},
		{"bad_format", `{"version":1,"meta":{"tileSize":32,"chunkSize":16},"format":"hex","tiles":{}}`},
		{"bad_key", `{"version":1,"meta":{"tileSize":32,"chunkSize":16},"format":"sparse","tiles":{"x":{"type":"a"}}}`},
		{"bad_meta", `{"version":1,"meta":{"tileSize":0,"chunkSize":16},"format":"sparse","tiles":{}}`},
		{"out_of_bounds", `{"version":1,"meta":{"tileSize":32,"chunkSize":16,"width":2,"height":2},"format":"sparse","tiles":{"5_5":{"type":"a"}}}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Import([]byte(c.data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRenderPreview(t *testing.T) {
	m := DefaultMeta()
	m.Palette = Palette{{Type: "grass", Color: "#00ff00"}}
	s := NewStore(&m)
	defer s.Close()
	_ = s.Set(0, 0, NewTile("grass"))
	_ = s.Set(1, 1, Tile{Type: "lava", Color: "#ff0000"})

	img, err := RenderPreview(s, PreviewOptions{Width: 20})
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 20 {
		t.Fatalf("size = %v", img.Bounds())
	}
	if c := img.RGBAAt(2, 2); c.G != 0xff || c.R != 0 {
		t.Fatalf("grass pixel = %v", c)
	}
	if c := img.RGBAAt(15, 15); c.R != 0xff || c.G != 0 {
		t.Fatalf("lava pixel = %v", c)
	}

	var buf bytes.Buffer
	if err := WritePreviewPNG(&buf, s, PreviewOptions{}); err != nil {
		t.Fatalf("WritePreviewPNG: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
