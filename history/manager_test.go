package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/milk9111/tilecanvas/autotile"
	"github.com/milk9111/tilecanvas/fill"
	"github.com/milk9111/tilecanvas/tilemap"
)

func newStore(t *testing.T) *tilemap.Store {
	t.Helper()
	s := tilemap.NewStore(nil)
	t.Cleanup(s.Close)
	return s
}

func tilePtr(typ string) *tilemap.Tile {
	t := tilemap.NewTile(typ)
	return &t
}

func snapshotEqual(a, b map[string]tilemap.Tile) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

func TestTileSetUndoRedo(t *testing.T) {
	s := newStore(t)
	m := NewManager(s, nil)

	if err := m.Execute(NewTileSet(0, 0, nil, tilePtr("grass"))); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got, ok := s.Get(0, 0); !ok || got.Type != "grass" {
		t.Fatalf("after execute = %+v, %v", got, ok)
	}
	if !m.Undo() {
		t.Fatalf("Undo returned false")
	}
	if _, ok := s.Get(0, 0); ok {
		t.Fatalf("undo left a tile behind")
	}
	if !m.Redo() {
		t.Fatalf("Redo returned false")
	}
	if got, ok := s.Get(0, 0); !ok || !got.Equal(tilemap.NewTile("grass")) {
		t.Fatalf("after redo = %+v, %v", got, ok)
	}
}

func TestBulkUndoRedo(t *testing.T) {
	s := newStore(t)
	m := NewManager(s, nil)

	cmd := NewBulk([]tilemap.Change{
		{X: 0, Y: 0, New: tilePtr("A")},
		{X: 1, Y: 0, New: tilePtr("B")},
	})
	if err := m.Execute(cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	m.Undo()
	if s.Len() != 0 {
		t.Fatalf("undo left %d tiles", s.Len())
	}
	m.Redo()
	a, _ := s.Get(0, 0)
	b, _ := s.Get(1, 0)
	if a.Type != "A" || b.Type != "B" {
		t.Fatalf("after redo = %+v, %+v", a, b)
	}
}

func TestBulkCoalescesRepeatedPositions(t *testing.T) {
	s := newStore(t)
	_ = s.Set(0, 0, tilemap.NewTile("A"))
	m := NewManager(s, nil)

	cmd := NewBulk([]tilemap.Change{
		{X: 0, Y: 0, Old: tilePtr("A"), New: tilePtr("B")},
		{X: 1, Y: 1, New: tilePtr("X")},
		{X: 0, Y: 0, Old: tilePtr("B"), New: tilePtr("C")},
	})
	if cmd.Len() != 2 {
		t.Fatalf("Len = %d", cmd.Len())
	}
	if err := m.Execute(cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got, _ := s.Get(0, 0); got.Type != "C" {
		t.Fatalf("after execute = %+v", got)
	}
	m.Undo()
	if got, _ := s.Get(0, 0); got.Type != "A" {
		t.Fatalf("after undo = %+v", got)
	}
}

func TestCapacityEviction(t *testing.T) {
	s := newStore(t)
	m := NewManager(s, nil)

	for i := 0; i < 51; i++ {
		if err := m.Execute(NewTileSet(i, 0, nil, tilePtr("grass"))); err != nil {
			t.Fatalf("Execute %d: %v", i, err)
		}
	}
	if m.UndoLen() != DefaultCapacity {
		t.Fatalf("UndoLen = %d", m.UndoLen())
	}
	for i := 0; i < 50; i++ {
		if !m.Undo() {
			t.Fatalf("Undo %d returned false", i)
		}
	}
	if m.CanUndo() {
		t.Fatalf("CanUndo after evicting the oldest command")
	}
	if m.Undo() {
		t.Fatalf("Undo on empty stack reported work")
	}
	// the evicted first command stays applied
	if _, ok := s.Get(0, 0); !ok {
		t.Fatalf("evicted command was reverted")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d", s.Len())
	}
}

func TestExecuteClearsRedo(t *testing.T) {
	s := newStore(t)
	m := NewManager(s, nil)

	_ = m.Execute(NewTileSet(0, 0, nil, tilePtr("a")))
	_ = m.Execute(NewTileSet(1, 0, nil, tilePtr("b")))
	m.Undo()
	if !m.CanRedo() {
		t.Fatalf("CanRedo false after undo")
	}
	_ = m.Execute(NewTileSet(2, 0, nil, tilePtr("c")))
	if m.CanRedo() {
		t.Fatalf("redo survived a new command")
	}
	if m.Redo() {
		t.Fatalf("Redo on empty stack reported work")
	}
}

func TestClear(t *testing.T) {
	s := newStore(t)
	m := NewManager(s, nil)
	_ = m.Execute(NewTileSet(0, 0, nil, tilePtr("a")))
	_ = m.Execute(NewTileSet(1, 0, nil, tilePtr("b")))
	m.Undo()
	m.Clear()
	if m.CanUndo() || m.CanRedo() {
		t.Fatalf("Clear left entries")
	}
	if s.Len() != 1 {
		t.Fatalf("Clear touched the store")
	}
}

func TestFullSequenceRoundTrip(t *testing.T) {
	s := newStore(t)
	eng := autotile.New()
	for x := 0; x < 4; x++ {
		_ = s.Set(x, 2, tilemap.NewTile("stone").WithVariant(4))
	}
	initial := s.Snapshot()
	m := NewManager(s, eng)

	cmds := []*Command{
		NewTileSet(0, 0, nil, tilePtr("grass")),
		NewTileSet(0, 0, tilePtr("grass"), tilePtr("water")),
		NewBulk([]tilemap.Change{
			{X: 1, Y: 0, New: tilePtr("grass")},
			{X: 2, Y: 2, Old: &tilemap.Tile{Type: "stone", Variant: intPtr(4)}, New: nil},
		}),
		NewStroke([]tilemap.Change{
			{X: 5, Y: 5, New: tilePtr("sand")},
			{X: 6, Y: 5, New: tilePtr("sand")},
		}),
		NewFill(fill.Request{SeedX: 0, SeedY: 2, Target: "stone", Replacement: "lava"}),
		NewFill(fill.Request{SeedX: 10, SeedY: 10, Target: "empty", Replacement: "water", MaxTiles: 30}),
	}
	for i, c := range cmds {
		if err := m.Execute(c); err != nil {
			t.Fatalf("Execute %d (%s): %v", i, c, err)
		}
	}
	if snapshotEqual(initial, s.Snapshot()) {
		t.Fatalf("commands had no effect")
	}
	for m.CanUndo() {
		m.Undo()
	}
	if !snapshotEqual(initial, s.Snapshot()) {
		t.Fatalf("undo all did not restore the initial state:\n%v\n%v", initial, s.Snapshot())
	}
	for m.CanRedo() {
		m.Redo()
	}
	for m.CanUndo() {
		m.Undo()
	}
	if !snapshotEqual(initial, s.Snapshot()) {
		t.Fatalf("second undo pass diverged")
	}
}

func intPtr(v int) *int { return &v }

func TestFillCapturesChangeSet(t *testing.T) {
	s := newStore(t)
	eng := autotile.New()
	for x := 0; x < 3; x++ {
		_ = s.Set(x, 0, tilemap.NewTile("grass"))
		_ = s.Set(x, 1, tilemap.NewTile("dirt"))
	}
	before := s.Snapshot()
	m := NewManager(s, eng)

	cmd := NewFill(fill.Request{SeedX: 0, SeedY: 0, Target: "grass", Replacement: "dirt"})
	if _, ok := cmd.FillResult(); ok {
		t.Fatalf("FillResult before execute")
	}
	if err := m.Execute(cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res, ok := cmd.FillResult()
	if !ok || res.Filled != 3 || res.Truncated {
		t.Fatalf("FillResult = %+v, %v", res, ok)
	}
	// filled row and the dirt row whose variants changed
	if cmd.Len() != 6 {
		t.Fatalf("captured %d changes", cmd.Len())
	}
	after := s.Snapshot()

	m.Undo()
	if !snapshotEqual(before, s.Snapshot()) {
		t.Fatalf("fill undo incomplete")
	}
	m.Redo()
	if !snapshotEqual(after, s.Snapshot()) {
		t.Fatalf("fill redo diverged")
	}
}

func TestFillTruncated(t *testing.T) {
	s := newStore(t)
	m := NewManager(s, nil)
	cmd := NewFill(fill.Request{Target: "empty", Replacement: "water", MaxTiles: 7})
	if err := m.Execute(cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res, _ := cmd.FillResult()
	if !res.Truncated || res.Filled != 7 || s.Len() != 7 {
		t.Fatalf("result = %+v, len %d", res, s.Len())
	}
}

func TestReentrantExecute(t *testing.T) {
	s := newStore(t)
	var nested error
	var m *Manager
	m = NewManager(s, nil, WithObserver(func(ev Event) {
		if ev.Op == OpExecute {
			nested = m.Execute(NewTileSet(9, 9, nil, tilePtr("x")))
		}
	}))
	if err := m.Execute(NewTileSet(0, 0, nil, tilePtr("a"))); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !errors.Is(nested, ErrReentrant) {
		t.Fatalf("nested Execute error = %v", nested)
	}
	if _, ok := s.Get(9, 9); ok {
		t.Fatalf("nested command mutated the store")
	}
	if m.UndoLen() != 1 {
		t.Fatalf("UndoLen = %d", m.UndoLen())
	}
}

func TestFailedExecuteRollsBack(t *testing.T) {
	meta := tilemap.DefaultMeta()
	meta.Width, meta.Height = 2, 2
	s := tilemap.NewStore(&meta)
	defer s.Close()
	m := NewManager(s, nil)

	cmd := NewBulk([]tilemap.Change{
		{X: 0, Y: 0, New: tilePtr("a")},
		{X: 5, Y: 5, New: tilePtr("b")},
	})
	if err := m.Execute(cmd); !errors.Is(err, tilemap.ErrOutOfBounds) {
		t.Fatalf("err = %v", err)
	}
	if s.Len() != 0 || m.CanUndo() {
		t.Fatalf("failed command left state: len %d canUndo %v", s.Len(), m.CanUndo())
	}
}

func TestFailedUndoRedoKeepStacks(t *testing.T) {
	meta := tilemap.DefaultMeta()
	meta.Width, meta.Height = 2, 2
	s := tilemap.NewStore(&meta)
	defer s.Close()
	m := NewManager(s, nil)

	// a stroke whose second cell lies outside the map can be undone but not redone
	_ = s.Set(0, 0, tilemap.NewTile("a"))
	if err := m.Record(NewStroke([]tilemap.Change{
		{X: 0, Y: 0, New: tilePtr("a")},
		{X: 5, Y: 5, New: tilePtr("b")},
	})); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !m.Undo() {
		t.Fatalf("undo should succeed")
	}
	if m.Redo() {
		t.Fatalf("redo should report the failure")
	}
	if m.RedoLen() != 1 || m.UndoLen() != 0 || s.Len() != 0 {
		t.Fatalf("failed redo moved state: redo %d undo %d len %d", m.RedoLen(), m.UndoLen(), s.Len())
	}

	// an old tile outside the map makes the revert fail
	_ = s.Set(1, 1, tilemap.NewTile("c"))
	if err := m.Record(NewStroke([]tilemap.Change{
		{X: 1, Y: 1, New: tilePtr("c")},
		{X: 7, Y: 7, Old: tilePtr("d")},
	})); err != nil {
		t.Fatalf("record: %v", err)
	}
	if m.Undo() {
		t.Fatalf("undo should report the failure")
	}
	if m.UndoLen() != 1 || m.RedoLen() != 0 {
		t.Fatalf("failed undo moved stacks: undo %d redo %d", m.UndoLen(), m.RedoLen())
	}
	if got, ok := s.Get(1, 1); !ok || got.Type != "c" {
		t.Fatalf("failed undo changed the grid: %+v", got)
	}
}

func TestConstructorsDeepCopy(t *testing.T) {
	old := tilemap.NewTile("a").WithVariant(2)
	cmd := NewTileSet(0, 0, &old, tilePtr("b"))
	*old.Variant = 7
	old.Type = "changed"
	got := cmd.Changes()[0].Old
	if got.Type != "a" || *got.Variant != 2 {
		t.Fatalf("command shares memory with caller: %+v", got)
	}
}

func TestObserverEvents(t *testing.T) {
	s := newStore(t)
	var ops []string
	m := NewManager(s, nil, WithObserver(func(ev Event) {
		ops = append(ops, fmt.Sprintf("%s:%s:%d", ev.Op, ev.Kind, len(ev.Changes)))
		if ev.Op == OpUndo && ev.Changes[0].New != nil {
			t.Errorf("undo event not inverted")
		}
	}))
	_ = m.Execute(NewTileSet(0, 0, nil, tilePtr("a")))
	m.Undo()
	m.Redo()
	_ = m.Record(NewStroke([]tilemap.Change{{X: 1, Y: 1, New: tilePtr("b")}}))

	want := []string{"execute:tile_set:1", "undo:tile_set:1", "redo:tile_set:1", "record:stroke:1"}
	if fmt.Sprint(ops) != fmt.Sprint(want) {
		t.Fatalf("ops = %v", ops)
	}
}
