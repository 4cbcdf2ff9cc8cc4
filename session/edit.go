package session

import (
	"fmt"

	"github.com/milk9111/tilecanvas/autotile"
	"github.com/milk9111/tilecanvas/fill"
	"github.com/milk9111/tilecanvas/history"
	"github.com/milk9111/tilecanvas/tilemap"
)

// checkType validates a tile type for painting.
func (s *Session) checkType(typ string) error {
	if tilemap.IsEmptyType(typ) {
		return invalid("type", ErrUnknownTileType, "tile type is required")
	}
	if s.strict && len(s.meta.Palette) > 0 && !s.meta.Palette.Has(typ) {
		return invalid("type", ErrUnknownTileType, "unknown tile type %q", typ)
	}
	return nil
}

func (s *Session) checkPos(x, y int) error {
	if !s.meta.InBounds(x, y) {
		return invalid("position", tilemap.ErrOutOfBounds, "(%d, %d) is outside the map", x, y)
	}
	return nil
}

func (s *Session) newTile(typ, color string) tilemap.Tile {
	t := tilemap.NewTile(typ)
	t.Color = tilemap.NormalizeColor(color)
	if t.Color == "" {
		t.Color = s.meta.Palette.ColorOf(typ)
	}
	return t
}

func (s *Session) execute(cmd *history.Command) error {
	if s.closed {
		return ErrClosed
	}
	s.settleStrokeLocked()
	return s.history.Execute(cmd)
}

// settleStrokeLocked records an active stroke so that a command issued in the
// middle of it lands after the stroke on the undo stack.
func (s *Session) settleStrokeLocked() {
	if s.stroke.Active() {
		s.endStrokeLocked()
	}
}

// PaintTile places one tile and recomputes the variants around it as a
// single undoable command.
func (s *Session) PaintTile(x, y int, typ, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkType(typ); err != nil {
		return err
	}
	if err := s.checkPos(x, y); err != nil {
		return err
	}
	if err := s.loadOne(x, y); err != nil {
		return err
	}
	t := s.newTile(typ, color)
	return s.writeOne(x, y, &t)
}

// EraseTile removes one tile. Erasing an empty cell does nothing.
func (s *Session) EraseTile(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPos(x, y); err != nil {
		return err
	}
	if err := s.loadOne(x, y); err != nil {
		return err
	}
	return s.writeOne(x, y, nil)
}

func (s *Session) loadOne(x, y int) error {
	ctx, cancel := s.loadContext()
	defer cancel()
	return s.loadAroundLocked(ctx, []tilemap.Pos{{X: x, Y: y}})
}

func (s *Session) writeOne(x, y int, t *tilemap.Tile) error {
	changes, err := s.engine.PaintChanges(s.store, x, y, t)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	if len(changes) == 1 {
		c := changes[0]
		return s.execute(history.NewTileSet(c.X, c.Y, c.Old, c.New))
	}
	return s.execute(history.NewBulk(changes))
}

// SetBrushSize sets the side of the square brush used by strokes.
func (s *Session) SetBrushSize(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || n > s.limits.MaxBrushSize {
		return invalid("brush", nil, "brush size must be between 1 and %d", s.limits.MaxBrushSize)
	}
	s.brush = n
	return nil
}

func (s *Session) BrushSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brush
}

// BeginStroke starts a drag that paints typ, or erases when typ is empty.
// The first cell is painted immediately. A stroke already in progress is
// finished first.
func (s *Session) BeginStroke(x, y int, typ, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	var t *tilemap.Tile
	if !tilemap.IsEmptyType(typ) {
		if err := s.checkType(typ); err != nil {
			return err
		}
		nt := s.newTile(typ, color)
		t = &nt
	}
	if s.stroke.Active() {
		s.endStrokeLocked()
	}
	s.stroke.Begin(history.KindStroke)
	s.pending = t
	s.last = nil
	return s.strokeToLocked(x, y)
}

// StrokeTo extends the active stroke to (x, y), painting every cell on the
// line from the previous point. It does nothing without an active stroke.
func (s *Session) StrokeTo(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stroke.Active() {
		return nil
	}
	return s.strokeToLocked(x, y)
}

func (s *Session) strokeToLocked(x, y int) error {
	from := tilemap.Pos{X: x, Y: y}
	if s.last != nil {
		from = *s.last
	}
	var cells []tilemap.Pos
	seen := make(map[tilemap.Pos]struct{})
	off := (s.brush - 1) / 2
	for _, p := range line(from, tilemap.Pos{X: x, Y: y}) {
		for dy := 0; dy < s.brush; dy++ {
			for dx := 0; dx < s.brush; dx++ {
				q := tilemap.Pos{X: p.X - off + dx, Y: p.Y - off + dy}
				if _, dup := seen[q]; dup || !s.meta.InBounds(q.X, q.Y) {
					continue
				}
				seen[q] = struct{}{}
				cells = append(cells, q)
			}
		}
	}
	s.last = &tilemap.Pos{X: x, Y: y}
	if len(cells) == 0 {
		return nil
	}
	ctx, cancel := s.loadContext()
	defer cancel()
	if err := s.loadAroundLocked(ctx, cells); err != nil {
		return err
	}
	writes := make([]autotile.Write, len(cells))
	for i, q := range cells {
		writes[i] = autotile.Write{X: q.X, Y: q.Y, Tile: tilemap.ClonePtr(s.pending)}
	}
	changes, err := s.engine.PlaceChanges(s.store, writes)
	if err != nil {
		return err
	}
	if err := history.ApplyChanges(s.store, changes); err != nil {
		return err
	}
	s.stroke.Accumulate(changes...)
	s.publish(OriginLocal, s.author, changes)
	return nil
}

// EndStroke records the stroke as one command. It reports whether anything
// changed.
func (s *Session) EndStroke() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endStrokeLocked()
}

func (s *Session) endStrokeLocked() bool {
	s.last = nil
	s.pending = nil
	cmd, ok := s.stroke.Finalize()
	if !ok {
		return false
	}
	if err := s.history.Record(cmd); err != nil {
		s.log.WithError(err).Error("record stroke")
		return false
	}
	return true
}

// CancelStroke reverts everything painted since BeginStroke.
func (s *Session) CancelStroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stroke.Active() {
		return
	}
	changes := s.stroke.Cancel()
	s.last = nil
	s.pending = nil
	if err := history.RevertChanges(s.store, changes); err != nil {
		s.log.WithError(err).Error("cancel stroke")
	}
	inv := make([]tilemap.Change, len(changes))
	for i, c := range changes {
		inv[len(changes)-1-i] = tilemap.Change{X: c.X, Y: c.Y, Old: c.New, New: c.Old}
	}
	s.publish(OriginLocal, s.author, inv)
}

// Fill flood-fills the region of same-type tiles around (x, y) with typ; an
// empty typ erases the region.
func (s *Session) Fill(x, y int, typ, color string) (fill.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPos(x, y); err != nil {
		return fill.Result{}, err
	}
	ctx, cancel := s.loadContext()
	defer cancel()
	if err := s.loadAroundLocked(ctx, []tilemap.Pos{{X: x, Y: y}}); err != nil {
		return fill.Result{}, err
	}
	replacement := tilemap.TypeEmpty
	if !tilemap.IsEmptyType(typ) {
		if err := s.checkType(typ); err != nil {
			return fill.Result{}, err
		}
		replacement = typ
		color = tilemap.NormalizeColor(color)
		if color == "" {
			color = s.meta.Palette.ColorOf(typ)
		}
	}
	target := tilemap.TypeEmpty
	if cur, ok := s.store.Get(x, y); ok {
		target = cur.Type
	}
	if target == replacement {
		return fill.Result{}, nil
	}
	req := fill.Request{
		SeedX:       x,
		SeedY:       y,
		Target:      target,
		Replacement: replacement,
		Color:       color,
		MaxTiles:    s.limits.MaxFillTiles,
	}
	if err := s.loadFillLocked(ctx, req); err != nil {
		return fill.Result{}, err
	}
	cmd := history.NewFill(req)
	if err := s.execute(cmd); err != nil {
		return fill.Result{}, err
	}
	res, _ := cmd.FillResult()
	res.Changes = cmd.Changes()
	return res, nil
}

// Undo reverts the last command. It is a no-op on an empty stack.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleStrokeLocked()
	return s.history.Undo()
}

// Redo re-applies the last undone command. An active stroke is recorded
// first, which clears the redo stack.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleStrokeLocked()
	return s.history.Redo()
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// SetAutoTile toggles variant computation for later edits.
func (s *Session) SetAutoTile(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetEnabled(on)
}

// line returns the cells from a to b inclusive (Bresenham).
func line(a, b tilemap.Pos) []tilemap.Pos {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	err := dx + dy
	out := make([]tilemap.Pos, 0, max(dx, -dy)+1)
	x, y := a.X, a.Y
	for {
		out = append(out, tilemap.Pos{X: x, Y: y})
		if x == b.X && y == b.Y {
			return out
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

func describe(x0, y0, x1, y1 int) string {
	return fmt.Sprintf("(%d, %d)-(%d, %d)", x0, y0, x1, y1)
}
