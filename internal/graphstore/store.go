package graphstore

import (
	"slices"
	"sync"

	"github.com/specialistvlad/apiflow/internal/workflow"
)

// Op identifies the mutation that produced a Change.
type Op string

const (
	OpAddNode       Op = "add_node"
	OpRemoveNode    Op = "remove_node"
	OpUpdateNode    Op = "update_node"
	OpMoveNode      Op = "move_node"
	OpDuplicateNode Op = "duplicate_node"
	OpAddEdge       Op = "add_edge"
	OpRemoveEdges   Op = "remove_edges"
	OpReplace       Op = "replace"
)

// Change is emitted once per applied mutation.
type Change struct {
	Op       Op
	Snapshot workflow.Snapshot
}

// Observer receives changes in the order they were applied.
type Observer func(Change)

// Store is the Graph Store. The zero value is not usable; call New.
type Store struct {
	// wmu serializes mutations together with their notifications so that
	// observers see changes in application order.
	wmu sync.Mutex

	mu    sync.RWMutex
	order []string
	nodes map[string]workflow.Node
	edges []workflow.Edge

	obsMu     sync.Mutex
	nextObsID int
	observers map[int]Observer
}

// New creates an empty store.
func New() *Store {
	return &Store{
		nodes:     make(map[string]workflow.Node),
		observers: make(map[int]Observer),
	}
}

// Subscribe registers obs and returns a function that removes it.
func (s *Store) Subscribe(obs Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = obs
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// mutate runs fn under the write lock and, when fn reports a change,
// notifies observers with a snapshot taken before the lock is released.
func (s *Store) mutate(op Op, fn func() (bool, error)) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	changed, err := fn()
	var snap workflow.Snapshot
	if changed {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if err != nil || !changed {
		return err
	}

	s.obsMu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, obs := range observers {
		obs(Change{Op: op, Snapshot: snap.Clone()})
	}
	return nil
}

// AddNode inserts a new node.
func (s *Store) AddNode(n workflow.Node) error {
	return s.mutate(OpAddNode, func() (bool, error) {
		if _, exists := s.nodes[n.ID]; exists {
			return false, &DuplicateIDError{Kind: "node", ID: n.ID}
		}
		n = n.Clone()
		if n.Data == nil {
			n.Data = workflow.Data{}
		}
		s.nodes[n.ID] = n
		s.order = append(s.order, n.ID)
		return true, nil
	})
}

// RemoveNode deletes a node and every edge touching it. Removing an absent
// node is a no-op.
func (s *Store) RemoveNode(id string) error {
	return s.mutate(OpRemoveNode, func() (bool, error) {
		if _, exists := s.nodes[id]; !exists {
			return false, nil
		}
		delete(s.nodes, id)
		s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
		s.removeEdgesLocked(func(e workflow.Edge) bool { return e.Touches(id) })
		return true, nil
	})
}

// UpdateNodeData shallow-merges partial into the node's data. Binding keys
// in partial are ignored; only edges set them.
func (s *Store) UpdateNodeData(id string, partial workflow.Data) error {
	partial = partial.Without(workflow.KeyTrueEdgeID, workflow.KeyFalseEdgeID)
	return s.mutate(OpUpdateNode, func() (bool, error) {
		n, ok := s.nodes[id]
		if !ok {
			return false, &NotFoundError{Kind: "node", ID: id}
		}
		n.Data = n.Data.Merge(partial)
		s.nodes[id] = n
		return true, nil
	})
}

// UpdateNodePosition moves a node on the canvas.
func (s *Store) UpdateNodePosition(id string, pos workflow.Position) error {
	return s.mutate(OpMoveNode, func() (bool, error) {
		n, ok := s.nodes[id]
		if !ok {
			return false, &NotFoundError{Kind: "node", ID: id}
		}
		if n.Position == pos {
			return false, nil
		}
		n.Position = pos
		s.nodes[id] = n
		return true, nil
	})
}

// DuplicateNode copies node id under newID at pos. The copy starts without
// edges, so branch bindings are not carried over.
func (s *Store) DuplicateNode(id, newID string, pos workflow.Position) error {
	return s.mutate(OpDuplicateNode, func() (bool, error) {
		n, ok := s.nodes[id]
		if !ok {
			return false, &NotFoundError{Kind: "node", ID: id}
		}
		if _, exists := s.nodes[newID]; exists {
			return false, &DuplicateIDError{Kind: "node", ID: newID}
		}
		cp := workflow.Node{
			ID:       newID,
			Type:     n.Type,
			Position: pos,
			Data:     n.Data.Without(workflow.KeyTrueEdgeID, workflow.KeyFalseEdgeID),
		}
		if cp.Data == nil {
			cp.Data = workflow.Data{}
		}
		s.nodes[newID] = cp
		s.order = append(s.order, newID)
		return true, nil
	})
}

// AddEdge connects two existing nodes and returns the stored edge. The id is
// derived from the endpoints unless e.ID is set.
func (s *Store) AddEdge(e workflow.Edge) (workflow.Edge, error) {
	if e.ID == "" {
		e.ID = workflow.EdgeID(e.Source, e.SourceHandle, e.Target)
	}
	err := s.mutate(OpAddEdge, func() (bool, error) {
		if _, ok := s.nodes[e.Source]; !ok {
			return false, &NotFoundError{Kind: "node", ID: e.Source}
		}
		if _, ok := s.nodes[e.Target]; !ok {
			return false, &NotFoundError{Kind: "node", ID: e.Target}
		}
		if s.edgeIndexLocked(e.ID) >= 0 {
			return false, &DuplicateIDError{Kind: "edge", ID: e.ID}
		}
		s.edges = append(s.edges, e)
		s.bindLocked(e)
		return true, nil
	})
	if err != nil {
		return workflow.Edge{}, err
	}
	return e, nil
}

// RemoveEdge deletes one edge. Removing an absent edge is a no-op.
func (s *Store) RemoveEdge(id string) error {
	return s.RemoveEdges(id)
}

// RemoveEdges deletes every listed edge that exists as a single change.
func (s *Store) RemoveEdges(ids ...string) error {
	return s.mutate(OpRemoveEdges, func() (bool, error) {
		return s.removeEdgesLocked(func(e workflow.Edge) bool {
			return slices.Contains(ids, e.ID)
		}), nil
	})
}

// RemoveEdgesByNodeID deletes every edge touching nodeID.
func (s *Store) RemoveEdgesByNodeID(nodeID string) error {
	return s.mutate(OpRemoveEdges, func() (bool, error) {
		return s.removeEdgesLocked(func(e workflow.Edge) bool { return e.Touches(nodeID) }), nil
	})
}

// Replace swaps the whole graph. It is the bulk path used for loading a
// document and for applying history snapshots.
func (s *Store) Replace(nodes []workflow.Node, edges []workflow.Edge) error {
	return s.mutate(OpReplace, func() (bool, error) {
		next := make(map[string]workflow.Node, len(nodes))
		order := make([]string, 0, len(nodes))
		for _, n := range nodes {
			if _, dup := next[n.ID]; dup {
				return false, &DuplicateIDError{Kind: "node", ID: n.ID}
			}
			n = n.Clone()
			if n.Data == nil {
				n.Data = workflow.Data{}
			}
			next[n.ID] = n
			order = append(order, n.ID)
		}
		seen := make(map[string]struct{}, len(edges))
		for _, e := range edges {
			if _, ok := next[e.Source]; !ok {
				return false, &NotFoundError{Kind: "node", ID: e.Source}
			}
			if _, ok := next[e.Target]; !ok {
				return false, &NotFoundError{Kind: "node", ID: e.Target}
			}
			if _, dup := seen[e.ID]; dup {
				return false, &DuplicateIDError{Kind: "edge", ID: e.ID}
			}
			seen[e.ID] = struct{}{}
		}
		s.nodes = next
		s.order = order
		s.edges = slices.Clone(edges)
		return true, nil
	})
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (workflow.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return workflow.Node{}, false
	}
	return n.Clone(), true
}

// HasNode reports whether a node with the given id exists.
func (s *Store) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// Edge returns the edge with the given id.
func (s *Store) Edge(id string) (workflow.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.edgeIndexLocked(id); i >= 0 {
		return s.edges[i], true
	}
	return workflow.Edge{}, false
}

// Nodes returns copies of all nodes in insertion order.
func (s *Store) Nodes() []workflow.Node {
	return s.Snapshot().Nodes
}

// Edges returns all edges in insertion order.
func (s *Store) Edges() []workflow.Edge {
	return s.Snapshot().Edges
}

// Snapshot returns a deep copy of the current graph.
func (s *Store) Snapshot() workflow.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() workflow.Snapshot {
	nodes := make([]workflow.Node, 0, len(s.order))
	for _, id := range s.order {
		nodes = append(nodes, s.nodes[id].Clone())
	}
	return workflow.Snapshot{Nodes: nodes, Edges: slices.Clone(s.edges)}
}

func (s *Store) edgeIndexLocked(id string) int {
	return slices.IndexFunc(s.edges, func(e workflow.Edge) bool { return e.ID == id })
}

// removeEdgesLocked drops matching edges, clears the bindings that named
// them, and reports whether anything was removed.
func (s *Store) removeEdgesLocked(match func(workflow.Edge) bool) bool {
	kept := s.edges[:0:0]
	removed := false
	for _, e := range s.edges {
		if match(e) {
			s.unbindLocked(e)
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	return removed
}
