package tilemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

const DocumentVersion = 1

const (
	FormatSparse = "sparse"
	FormatDense  = "dense"
)

var ErrInvalidDocument = errors.New("tilemap: invalid document")

// Document is the export/import file format.
type Document struct {
	Version    int             `json:"version"`
	Meta       Meta            `json:"meta"`
	Format     string          `json:"format"`
	Tiles      json.RawMessage `json:"tiles"`
	ExportedAt string          `json:"exported_at"`
	ExportedBy string          `json:"exported_by"`
	TileCount  int             `json:"tile_count"`
}

// Export builds a document from the store. Dense export requires a bounded map.
func Export(s *Store, format, exportedBy string, now time.Time) (*Document, error) {
	meta := s.Meta().Clone()
	doc := &Document{
		Version:    DocumentVersion,
		Meta:       meta,
		Format:     format,
		ExportedAt: now.UTC().Format(time.RFC3339),
		ExportedBy: exportedBy,
		TileCount:  s.Len(),
	}

	var (
		raw []byte
		err error
	)
	switch format {
	case FormatSparse, "":
		doc.Format = FormatSparse
		raw, err = json.Marshal(s.Snapshot())
	case FormatDense:
		if !meta.Bounded() {
			return nil, ErrDenseUnbounded
		}
		rows := make([][]*Tile, meta.Height)
		for y := range rows {
			rows[y] = make([]*Tile, meta.Width)
		}
		s.EachInRect(Rect{MaxX: meta.Width - 1, MaxY: meta.Height - 1}, func(x, y int, t Tile) {
			rows[y][x] = &t
		})
		raw, err = json.Marshal(rows)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidDocument, format)
	}
	if err != nil {
		return nil, fmt.Errorf("tilemap: encode tiles: %w", err)
	}
	doc.Tiles = raw
	return doc, nil
}

// Marshal encodes the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ParseDocument decodes and validates the document header.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Version != DocumentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, doc.Version)
	}
	if err := doc.Meta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// Placements decodes the document tiles in row-major order. Empty entries are
// skipped and variants are clamped.
func (d *Document) Placements() ([]Placement, error) {
	var out []Placement
	switch d.Format {
	case FormatSparse:
		var tiles map[string]Tile
		if len(d.Tiles) > 0 {
			if err := json.Unmarshal(d.Tiles, &tiles); err != nil {
				return nil, fmt.Errorf("%w: sparse tiles: %v", ErrInvalidDocument, err)
			}
		}
		out = make([]Placement, 0, len(tiles))
		for key, t := range tiles {
			x, y, err := ParseKey(key)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
			}
			if IsEmptyType(t.Type) {
				continue
			}
			out = append(out, placementOf(x, y, t))
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Y != out[j].Y {
				return out[i].Y < out[j].Y
			}
			return out[i].X < out[j].X
		})
	case FormatDense:
		var rows [][]*Tile
		if len(d.Tiles) > 0 {
			if err := json.Unmarshal(d.Tiles, &rows); err != nil {
				return nil, fmt.Errorf("%w: dense tiles: %v", ErrInvalidDocument, err)
			}
		}
		for y, row := range rows {
			for x, t := range row {
				if t == nil || IsEmptyType(t.Type) {
					continue
				}
				out = append(out, placementOf(x, y, *t))
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidDocument, d.Format)
	}
	return out, nil
}

func placementOf(x, y int, t Tile) Placement {
	p := Placement{X: x, Y: y, Type: t.Type, Color: t.Color}
	if t.Variant != nil {
		v := ClampVariant(*t.Variant)
		p.Variant = &v
	}
	return p
}

// Import parses data and loads it into a fresh store built from the document
// meta. Tiles outside the meta bounds are rejected.
func Import(data []byte, opts ...Option) (*Store, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	placements, err := doc.Placements()
	if err != nil {
		return nil, err
	}
	meta := doc.Meta.Clone()
	s := NewStore(&meta, opts...)
	for _, p := range placements {
		if err := s.Set(p.X, p.Y, p.Tile()); err != nil {
			s.Close()
			return nil, fmt.Errorf("tilemap: import %s: %w", CoordToKey(p.X, p.Y), err)
		}
	}
	s.TakeDirty()
	return s, nil
}
