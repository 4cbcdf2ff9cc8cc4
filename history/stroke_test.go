package history

import (
	"testing"

	"github.com/milk9111/tilecanvas/tilemap"
)

func TestStrokeAccumulate(t *testing.T) {
	s := newStore(t)
	m := NewManager(s, nil)
	var st Stroke

	st.Accumulate(tilemap.Change{X: 9, Y: 9, New: tilePtr("ignored")})
	if st.Active() || st.Len() != 0 {
		t.Fatalf("inactive stroke accumulated")
	}

	st.Begin(KindStroke)
	motions := [][]tilemap.Change{
		{{X: 0, Y: 0, New: tilePtr("a")}},
		{{X: 1, Y: 0, New: tilePtr("a")}, {X: 0, Y: 0, Old: tilePtr("a"), New: tilePtr("b")}},
		{{X: 2, Y: 0, New: tilePtr("a")}},
		{{X: 2, Y: 0, Old: tilePtr("a"), New: nil}},
	}
	for _, changes := range motions {
		if err := ApplyChanges(s, changes); err != nil {
			t.Fatalf("ApplyChanges: %v", err)
		}
		st.Accumulate(changes...)
	}
	if st.Len() != 3 {
		t.Fatalf("Len = %d", st.Len())
	}

	cmd, ok := st.Finalize()
	if !ok {
		t.Fatalf("Finalize returned nothing")
	}
	if st.Active() {
		t.Fatalf("stroke still active")
	}
	if cmd.Kind() != KindStroke || cmd.Len() != 2 {
		t.Fatalf("cmd = %s", cmd)
	}
	first := cmd.Changes()[0]
	if first.Old != nil || first.New.Type != "b" {
		t.Fatalf("first change = %+v", first)
	}

	if err := m.Record(cmd); err != nil {
		t.Fatalf("Record: %v", err)
	}
	m.Undo()
	if s.Len() != 0 {
		t.Fatalf("stroke undo left %d tiles", s.Len())
	}
	m.Redo()
	if s.Len() != 2 {
		t.Fatalf("stroke redo len = %d", s.Len())
	}
}

func TestStrokeEmptyAndCancel(t *testing.T) {
	var st Stroke
	if _, ok := st.Finalize(); ok {
		t.Fatalf("Finalize without Begin")
	}

	st.Begin(KindBulk)
	st.Accumulate(tilemap.Change{X: 0, Y: 0, New: tilePtr("a")}, tilemap.Change{X: 0, Y: 0, Old: tilePtr("a")})
	if _, ok := st.Finalize(); ok {
		t.Fatalf("net no-op stroke produced a command")
	}

	st.Begin(KindBulk)
	st.Accumulate(tilemap.Change{X: 3, Y: 3, New: tilePtr("a")})
	pending := st.Cancel()
	if len(pending) != 1 || st.Active() {
		t.Fatalf("Cancel = %+v active %v", pending, st.Active())
	}

	st.Begin(KindBulk)
	st.Accumulate(tilemap.Change{X: 3, Y: 3, New: tilePtr("a")})
	cmd, ok := st.Finalize()
	if !ok || cmd.Kind() != KindBulk {
		t.Fatalf("bulk finalize = %v, %v", cmd, ok)
	}
}
