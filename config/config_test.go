package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/milk9111/tilecanvas/logging"
	"github.com/milk9111/tilecanvas/tilemap"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Store.Driver != "memory" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Limits.MaxRegionTiles != 10000 || cfg.Limits.MaxGenerateDim != 256 {
		t.Fatalf("unexpected limits %+v", cfg.Limits)
	}
	if cfg.Server.FlushEvery != 2*time.Second {
		t.Fatalf("flush_every = %v", cfg.Server.FlushEvery)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilecanvas.yaml")
	data := []byte(`
canvas:
  id: demo
  width: 64
  height: 32
  chunk_size: 8
  persist_remote: true
store:
  cache_ttl: 30s
limits:
  max_region_tiles: 500
log:
  format: json
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TILECANVAS_SERVER_ADDR", ":9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Canvas.ID != "demo" || cfg.Canvas.Width != 64 || cfg.Canvas.ChunkSize != 8 {
		t.Fatalf("canvas not read: %+v", cfg.Canvas)
	}
	if cfg.Store.CacheTTL != 30*time.Second {
		t.Fatalf("cache_ttl = %v", cfg.Store.CacheTTL)
	}
	if cfg.Limits.MaxRegionTiles != 500 || cfg.Limits.MaxFillTiles != 10000 {
		t.Fatalf("limits = %+v", cfg.Limits)
	}
	if cfg.Log.Format != logging.FormatJSON {
		t.Fatalf("log format = %q", cfg.Log.Format)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("env override ignored: %q", cfg.Server.Addr)
	}

	meta, err := cfg.Meta(nil)
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.Width != 64 || meta.Height != 32 || meta.ChunkSize != 8 || meta.TileSize != 32 {
		t.Fatalf("unexpected meta %+v", meta)
	}
	opts := cfg.SessionOptions()
	if opts.CanvasID != "demo" || opts.Limits.MaxRegionTiles != 500 || !opts.PersistRemote {
		t.Fatalf("unexpected session options %+v", opts)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
}

func TestParsePalette(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		wantLen int
		wantErr bool
	}{
		{name: "ok", data: "types:\n  - type: grass\n    color: 4CAF50\n  - type: water\n    sprite: w.png\n", wantLen: 2},
		{name: "duplicate", data: "types:\n  - type: grass\n  - type: grass\n", wantErr: true},
		{name: "blank type", data: "types:\n  - color: '#fff'\n", wantErr: true},
		{name: "bad yaml", data: "types: [", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParsePalette([]byte(tc.data))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(p) != tc.wantLen {
				t.Fatalf("len = %d", len(p))
			}
			if p[0].Color != "#4caf50" || p[0].Name != "grass" {
				t.Fatalf("entry not normalized: %+v", p[0])
			}
			if !p.HasSprite("water") || p.HasSprite("grass") {
				t.Fatalf("sprite flags wrong")
			}
		})
	}
}

func TestDefaultPalette(t *testing.T) {
	p, err := LoadPalette("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	for _, typ := range []string{"grass", "water", "sand", "stone", "dirt", "flower"} {
		if !p.Has(typ) {
			t.Fatalf("default palette missing %q", typ)
		}
	}
	data, err := MarshalPalette(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := ParsePalette(data)
	if err != nil || len(again) != len(p) {
		t.Fatalf("palette did not survive marshal: %v", err)
	}
}

func TestWatchPalette(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "palette.yaml")
	if err := os.WriteFile(path, []byte("types:\n  - type: grass\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := make(chan tilemap.Palette, 4)
	w, err := WatchPalette(path, func(p tilemap.Palette) { got <- p }, logging.Discard())
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	tmp := filepath.Join(dir, "palette.tmp")
	if err := os.WriteFile(tmp, []byte("types:\n  - type: grass\n  - type: lava\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
	select {
	case p := <-got:
		if !p.Has("lava") {
			t.Fatalf("reloaded palette missing new type: %+v", p)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("palette change not observed")
	}
}
