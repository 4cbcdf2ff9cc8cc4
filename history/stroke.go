package history

import "github.com/milk9111/tilecanvas/tilemap"

// Stroke accumulates the changes of an interactive drag so the whole drag
// becomes one command. The caller applies each motion's changes to the grid
// itself and feeds them here; Finalize produces a command for Manager.Record.
type Stroke struct {
	kind    Kind
	active  bool
	order   []tilemap.Pos
	pending map[tilemap.Pos]*tilemap.Change
}

// Begin starts a new accumulation, discarding any previous one. kind is
// KindStroke for drags and KindBulk for single clicks.
func (s *Stroke) Begin(kind Kind) {
	if kind != KindBulk {
		kind = KindStroke
	}
	s.kind = kind
	s.active = true
	s.order = s.order[:0]
	s.pending = make(map[tilemap.Pos]*tilemap.Change)
}

// Active reports whether a stroke is in progress.
func (s *Stroke) Active() bool { return s.active }

// Len returns the number of distinct positions touched so far.
func (s *Stroke) Len() int { return len(s.order) }

// Accumulate adds changes, keeping the first Old and the last New per
// position. It is a no-op when no stroke is active.
func (s *Stroke) Accumulate(changes ...tilemap.Change) {
	if !s.active {
		return
	}
	for _, c := range changes {
		p := tilemap.Pos{X: c.X, Y: c.Y}
		if prev, ok := s.pending[p]; ok {
			prev.New = tilemap.ClonePtr(c.New)
			continue
		}
		cc := c.Clone()
		s.pending[p] = &cc
		s.order = append(s.order, p)
	}
}

// Pending returns the accumulated changes without ending the stroke.
func (s *Stroke) Pending() []tilemap.Change {
	out := make([]tilemap.Change, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, s.pending[p].Clone())
	}
	return out
}

// Finalize ends the stroke. ok is false when nothing changed in net.
func (s *Stroke) Finalize() (cmd *Command, ok bool) {
	if !s.active {
		return nil, false
	}
	changes := make([]tilemap.Change, 0, len(s.order))
	for _, p := range s.order {
		c := s.pending[p]
		if c.NoOp() {
			continue
		}
		changes = append(changes, *c)
	}
	kind := s.kind
	s.reset()
	if len(changes) == 0 {
		return nil, false
	}
	return &Command{kind: kind, changes: changes}, true
}

// Cancel ends the stroke and returns the accumulated changes so the caller
// can revert them.
func (s *Stroke) Cancel() []tilemap.Change {
	out := s.Pending()
	s.reset()
	return out
}

func (s *Stroke) reset() {
	s.active = false
	s.order = s.order[:0]
	s.pending = nil
}
