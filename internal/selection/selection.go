// Package selection tracks what is selected on the canvas and implements
// clipboard operations against the graph store.
package selection

import (
	"slices"
	"sync"
)

// Selection holds at most one node id and any number of edge ids. The two
// are independent of each other.
type Selection struct {
	mu    sync.RWMutex
	node  string
	edges map[string]struct{}
}

// New returns an empty selection.
func New() *Selection {
	return &Selection{edges: make(map[string]struct{})}
}

// SelectNode replaces the selected node.
func (s *Selection) SelectNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.node = id
}

// ClearNode deselects the node, if any.
func (s *Selection) ClearNode() {
	s.SelectNode("")
}

// NodeID returns the selected node id.
func (s *Selection) NodeID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.node, s.node != ""
}

// SelectEdge adds an edge to the selection.
func (s *Selection) SelectEdge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[id] = struct{}{}
}

// ToggleEdge flips the selection state of an edge.
func (s *Selection) ToggleEdge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[id]; ok {
		delete(s.edges, id)
		return
	}
	s.edges[id] = struct{}{}
}

// DeselectEdge removes an edge from the selection.
func (s *Selection) DeselectEdge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges, id)
}

// EdgeIDs returns the selected edge ids in sorted order.
func (s *Selection) EdgeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.edges))
	for id := range s.edges {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Empty reports whether nothing is selected.
func (s *Selection) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.node == "" && len(s.edges) == 0
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.node = ""
	clear(s.edges)
}

// Prune drops ids that no longer exist in g.
func (s *Selection) Prune(g Reader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.node != "" && !g.HasNode(s.node) {
		s.node = ""
	}
	for id := range s.edges {
		if _, ok := g.Edge(id); !ok {
			delete(s.edges, id)
		}
	}
}
