// Package history keeps bounded undo/redo stacks of graph snapshots.
//
// The manager is fed by graph store change notifications. Undo and Redo hand
// a snapshot back to the store, which notifies again; the manager swallows
// exactly that one echo so replaying a state never records it.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/apiflow/internal/ctxlog"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

// DefaultLimit is the number of past states kept when no limit is configured.
const DefaultLimit = 100

// Adopter receives the snapshot chosen by Undo or Redo.
type Adopter interface {
	Replace(nodes []workflow.Node, edges []workflow.Edge) error
}

// Phase is the replay state of a Manager.
type Phase int

const (
	// Idle records every incoming snapshot.
	Idle Phase = iota
	// Replaying ignores the next incoming snapshot, which is the echo of an
	// undo or redo.
	Replaying
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Replaying:
		return "replaying"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Manager holds past, present and future snapshots.
type Manager struct {
	mu      sync.Mutex
	target  Adopter
	past    *ring
	future  *ring
	present workflow.Snapshot
	phase   Phase
}

// New creates a manager that replays into target and keeps at most limit
// entries per stack. A limit below one uses DefaultLimit.
func New(target Adopter, limit int) *Manager {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Manager{
		target: target,
		past:   newRing(limit),
		future: newRing(limit),
	}
}

// Reset drops both stacks and makes s the present state.
func (m *Manager) Reset(s workflow.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past.clear()
	m.future.clear()
	m.present = s.Clone()
	m.phase = Idle
}

// Record stores a new present state. While replaying, the call consumes the
// replay echo instead.
func (m *Manager) Record(s workflow.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == Replaying {
		m.phase = Idle
		return
	}
	m.past.push(m.present)
	m.present = s.Clone()
	m.future.clear()
}

// Undo restores the previous state. It reports false when there is nothing
// to undo.
func (m *Manager) Undo(ctx context.Context) (bool, error) {
	return m.step(ctx, "undo", m.past, m.future)
}

// Redo re-applies the most recently undone state.
func (m *Manager) Redo(ctx context.Context) (bool, error) {
	return m.step(ctx, "redo", m.future, m.past)
}

func (m *Manager) step(ctx context.Context, name string, from, to *ring) (bool, error) {
	m.mu.Lock()
	next, ok := from.pop()
	if !ok {
		m.mu.Unlock()
		return false, nil
	}
	prev := m.present
	// past and future together never exceed the limit, so this push cannot
	// evict and the rollback below restores both stacks exactly.
	to.push(prev)
	m.present = next
	m.phase = Replaying
	m.mu.Unlock()

	// Replace notifies observers synchronously, which lands in Record.
	if err := m.target.Replace(next.Nodes, next.Edges); err != nil {
		m.mu.Lock()
		to.pop()
		from.push(next)
		m.present = prev
		m.phase = Idle
		m.mu.Unlock()
		return false, fmt.Errorf("%s: %w", name, err)
	}

	m.mu.Lock()
	// The echo is consumed by now unless the manager is not subscribed to target.
	m.phase = Idle
	m.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("History step applied.", "op", name, "nodes", len(next.Nodes), "edges", len(next.Edges))
	return true, nil
}

// CanUndo reports whether Undo would change anything.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.past.len() > 0
}

// CanRedo reports whether Redo would change anything.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.future.len() > 0
}

// Present returns a copy of the current state.
func (m *Manager) Present() workflow.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present.Clone()
}

// Depth returns the sizes of the past and future stacks.
func (m *Manager) Depth() (past, future int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.past.len(), m.future.len()
}

// Phase returns the current replay state.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}
