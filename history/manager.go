package history

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/autotile"
	"github.com/milk9111/tilecanvas/fill"
	"github.com/milk9111/tilecanvas/tilemap"
)

// DefaultCapacity is the size of each stack.
const DefaultCapacity = 50

var (
	// ErrReentrant is returned when a command is executed while another one
	// is running.
	ErrReentrant  = errors.New("history: command executed while another is running")
	ErrNilCommand = errors.New("history: nil command")
)

// Op says how a command was applied.
type Op int

const (
	OpExecute Op = iota
	OpUndo
	OpRedo
	OpRecord
)

func (o Op) String() string {
	switch o {
	case OpExecute:
		return "execute"
	case OpUndo:
		return "undo"
	case OpRedo:
		return "redo"
	case OpRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Event is delivered to observers after a command was applied. Changes are
// in the direction they were applied, so for undo Old and New are swapped.
type Event struct {
	Op      Op
	Kind    Kind
	Changes []tilemap.Change
}

// Option configures a Manager.
type Option func(*Manager)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithObserver registers fn to be called after every applied command.
func WithObserver(fn func(Event)) Option {
	return func(m *Manager) { m.observers = append(m.observers, fn) }
}

// Manager owns the undo and redo stacks of one canvas session. It is not
// safe for concurrent use.
type Manager struct {
	grid     tilemap.MutableGrid
	engine   *autotile.Engine
	capacity int

	undo []*Command
	redo []*Command

	running   bool
	observers []func(Event)
	log       logrus.FieldLogger
}

// NewManager builds a manager that applies commands to grid. engine may be
// nil, in which case fills do not compute variants.
func NewManager(grid tilemap.MutableGrid, engine *autotile.Engine, opts ...Option) *Manager {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	m := &Manager{
		grid:     grid,
		engine:   engine,
		capacity: DefaultCapacity,
		log:      discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute runs cmd, pushes it onto the undo stack and clears redo. A failed
// command leaves the grid and both stacks untouched.
func (m *Manager) Execute(cmd *Command) error {
	if cmd == nil {
		return ErrNilCommand
	}
	if m.running {
		return ErrReentrant
	}
	m.running = true
	defer func() { m.running = false }()

	if cmd.kind == KindFill && !cmd.captured {
		res := fill.FloodFill(m.grid, m.engine, cmd.fillReq)
		cmd.changes = res.Changes
		cmd.fillRes = fill.Result{Filled: res.Filled, Truncated: res.Truncated}
		cmd.captured = true
		if res.Truncated {
			m.log.WithFields(logrus.Fields{"filled": res.Filled}).Warn("fill stopped at tile limit")
		}
	}
	if err := applyForward(m.grid, cmd.changes); err != nil {
		return err
	}
	m.push(cmd)
	m.redo = m.redo[:0]
	m.notify(OpExecute, cmd, cmd.changes)
	return nil
}

// Record pushes a command whose changes are already applied to the grid, as
// for a finished stroke. It clears redo like Execute.
func (m *Manager) Record(cmd *Command) error {
	if cmd == nil {
		return ErrNilCommand
	}
	if m.running {
		return ErrReentrant
	}
	m.push(cmd)
	m.redo = m.redo[:0]
	m.notify(OpRecord, cmd, cmd.changes)
	return nil
}

// Undo reverts the most recent command. It reports false when there was
// nothing to undo or the revert failed; a failed revert leaves the grid and
// both stacks untouched.
func (m *Manager) Undo() bool {
	if m.running || len(m.undo) == 0 {
		return false
	}
	m.running = true
	defer func() { m.running = false }()

	cmd := m.undo[len(m.undo)-1]
	if err := applyBackward(m.grid, cmd.changes); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{"kind": cmd.kind.String()}).Error("undo failed")
		return false
	}
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = appendBounded(m.redo, cmd, m.capacity)
	m.notify(OpUndo, cmd, invert(cmd.changes))
	return true
}

// Redo re-applies the most recently undone command. Like Undo, a failure
// leaves everything as it was and reports false.
func (m *Manager) Redo() bool {
	if m.running || len(m.redo) == 0 {
		return false
	}
	m.running = true
	defer func() { m.running = false }()

	cmd := m.redo[len(m.redo)-1]
	if err := applyForward(m.grid, cmd.changes); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{"kind": cmd.kind.String()}).Error("redo failed")
		return false
	}
	m.redo = m.redo[:len(m.redo)-1]
	m.push(cmd)
	m.notify(OpRedo, cmd, cmd.changes)
	return true
}

func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }
func (m *Manager) UndoLen() int  { return len(m.undo) }
func (m *Manager) RedoLen() int  { return len(m.redo) }
func (m *Manager) Capacity() int { return m.capacity }

// Peek returns the command Undo would revert, or nil.
func (m *Manager) Peek() *Command {
	if len(m.undo) == 0 {
		return nil
	}
	return m.undo[len(m.undo)-1]
}

// Clear empties both stacks without touching the grid.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}

func (m *Manager) push(cmd *Command) {
	m.undo = appendBounded(m.undo, cmd, m.capacity)
}

func appendBounded(stack []*Command, cmd *Command, capacity int) []*Command {
	stack = append(stack, cmd)
	if len(stack) > capacity {
		drop := len(stack) - capacity
		for i := 0; i < drop; i++ {
			stack[i] = nil
		}
		stack = stack[drop:]
	}
	return stack
}

func (m *Manager) notify(op Op, cmd *Command, changes []tilemap.Change) {
	if len(m.observers) == 0 {
		return
	}
	ev := Event{Op: op, Kind: cmd.kind, Changes: changes}
	for _, fn := range m.observers {
		fn(ev)
	}
}

func invert(changes []tilemap.Change) []tilemap.Change {
	out := make([]tilemap.Change, len(changes))
	for i, c := range changes {
		out[i] = tilemap.Change{X: c.X, Y: c.Y, Old: c.New, New: c.Old}
	}
	return out
}

// ApplyChanges writes the New side of changes to g in order. On error the
// already written prefix is rolled back.
func ApplyChanges(g tilemap.MutableGrid, changes []tilemap.Change) error {
	return applyForward(g, changes)
}

// RevertChanges writes the Old side of changes to g in order.
func RevertChanges(g tilemap.MutableGrid, changes []tilemap.Change) error {
	return applyBackward(g, changes)
}

func applyForward(g tilemap.MutableGrid, changes []tilemap.Change) error {
	for i, c := range changes {
		if err := tilemap.ApplyTile(g, c.X, c.Y, c.New); err != nil {
			rollback(g, changes[:i], false)
			return err
		}
	}
	return nil
}

func applyBackward(g tilemap.MutableGrid, changes []tilemap.Change) error {
	for i, c := range changes {
		if err := tilemap.ApplyTile(g, c.X, c.Y, c.Old); err != nil {
			rollback(g, changes[:i], true)
			return err
		}
	}
	return nil
}

func rollback(g tilemap.MutableGrid, applied []tilemap.Change, backward bool) {
	for i := len(applied) - 1; i >= 0; i-- {
		c := applied[i]
		t := c.Old
		if backward {
			t = c.New
		}
		_ = tilemap.ApplyTile(g, c.X, c.Y, t)
	}
}
