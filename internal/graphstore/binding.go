package graphstore

import "github.com/specialistvlad/apiflow/internal/workflow"

// bindLocked records e in its source node when e leaves a branch handle of
// a condition or loop node.
func (s *Store) bindLocked(e workflow.Edge) {
	key := workflow.BindingKey(e.SourceHandle)
	if key == "" {
		return
	}
	src, ok := s.nodes[e.Source]
	if !ok || !src.Type.IsBranching() {
		return
	}
	src.Data = src.Data.Merge(workflow.Data{key: e.ID})
	s.nodes[e.Source] = src
}

// unbindLocked clears any binding on e's source node that names e.
func (s *Store) unbindLocked(e workflow.Edge) {
	src, ok := s.nodes[e.Source]
	if !ok || !src.Type.IsBranching() {
		return
	}
	var stale []string
	for _, key := range []string{workflow.KeyTrueEdgeID, workflow.KeyFalseEdgeID} {
		if src.Data.String(key) == e.ID {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return
	}
	src.Data = src.Data.Without(stale...)
	s.nodes[e.Source] = src
}

// Bindings returns the edges currently bound to a branching node's handles,
// keyed by handle name.
func (s *Store) Bindings(nodeID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, &NotFoundError{Kind: "node", ID: nodeID}
	}
	out := map[string]string{}
	for _, handle := range []string{workflow.HandleTrue, workflow.HandleFalse} {
		if ref := n.Data.String(workflow.BindingKey(handle)); ref != "" {
			out[handle] = ref
		}
	}
	return out, nil
}
