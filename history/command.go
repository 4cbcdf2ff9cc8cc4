// Package history records tile edits as reversible commands on a bounded
// linear undo/redo stack.
package history

import (
	"fmt"

	"github.com/milk9111/tilecanvas/fill"
	"github.com/milk9111/tilecanvas/tilemap"
)

// Kind is the closed set of command variants.
type Kind int

const (
	KindTileSet Kind = iota
	KindBulk
	KindStroke
	KindFill
)

func (k Kind) String() string {
	switch k {
	case KindTileSet:
		return "tile_set"
	case KindBulk:
		return "bulk"
	case KindStroke:
		return "stroke"
	case KindFill:
		return "fill"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is one reversible edit. It is immutable once executed apart from
// the fill change set captured on first execution.
type Command struct {
	kind    Kind
	changes []tilemap.Change

	fillReq  fill.Request
	fillRes  fill.Result
	captured bool
}

// NewTileSet records a single tile going from old to new. A nil old means the
// tile was absent and undo deletes it.
func NewTileSet(x, y int, old, new *tilemap.Tile) *Command {
	return &Command{
		kind:    KindTileSet,
		changes: []tilemap.Change{{X: x, Y: y, Old: tilemap.ClonePtr(old), New: tilemap.ClonePtr(new)}},
	}
}

// NewBulk records many tile changes applied as one step.
func NewBulk(changes []tilemap.Change) *Command {
	return &Command{kind: KindBulk, changes: coalesce(changes)}
}

// NewStroke records the accumulated changes of one paint or erase drag.
func NewStroke(changes []tilemap.Change) *Command {
	return &Command{kind: KindStroke, changes: coalesce(changes)}
}

// NewFill wraps a flood fill. The affected tiles are captured when the command
// first executes.
func NewFill(req fill.Request) *Command {
	return &Command{kind: KindFill, fillReq: req}
}

// coalesce deep-copies changes and merges repeated positions into one entry
// holding the first Old and the last New, in first-seen order. This keeps
// array-order undo correct when a position was touched more than once.
func coalesce(changes []tilemap.Change) []tilemap.Change {
	out := make([]tilemap.Change, 0, len(changes))
	index := make(map[tilemap.Pos]int, len(changes))
	for _, c := range changes {
		p := tilemap.Pos{X: c.X, Y: c.Y}
		if i, ok := index[p]; ok {
			out[i].New = tilemap.ClonePtr(c.New)
			continue
		}
		index[p] = len(out)
		out = append(out, c.Clone())
	}
	return out
}

// Kind returns the variant.
func (c *Command) Kind() Kind { return c.kind }

// Len returns the number of recorded tile changes.
func (c *Command) Len() int { return len(c.changes) }

// Changes returns a copy of the recorded changes.
func (c *Command) Changes() []tilemap.Change {
	out := make([]tilemap.Change, len(c.changes))
	for i, ch := range c.changes {
		out[i] = ch.Clone()
	}
	return out
}

// FillResult returns the captured fill result. ok is false for non-fill
// commands and for fills that have not executed yet.
func (c *Command) FillResult() (res fill.Result, ok bool) {
	if c.kind != KindFill || !c.captured {
		return fill.Result{}, false
	}
	res = c.fillRes
	res.Changes = c.Changes()
	return res, true
}

func (c *Command) String() string {
	return fmt.Sprintf("%s(%d tiles)", c.kind, len(c.changes))
}
