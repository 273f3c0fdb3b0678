// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file repairs persisted documents before they are adopted by an editor.
// Edges to missing nodes and branch bindings to missing edges are dropped and
// reported. Duplicate node ids fail the load.
package workflow

import (
	"errors"
	"fmt"
)

var ErrDuplicateNode = errors.New("duplicate node id in document")

// Repair describes one change Normalize made to a document.
type Repair struct {
	Kind   string // "dangling_edge", "stale_binding" or "duplicate_edge"
	ID     string
	Detail string
}

// Normalize returns a cleaned copy of doc's graph and the repairs applied.
func Normalize(nodes []Node, edges []Edge) ([]Node, []Edge, []Repair, error) {
	seen := make(map[string]struct{}, len(nodes))
	outNodes := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n.ID]; dup {
			return nil, nil, nil, fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = struct{}{}
		outNodes = append(outNodes, n.Clone())
	}

	var repairs []Repair
	edgeIDs := make(map[string]Edge, len(edges))
	outEdges := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.ID == "" {
			e.ID = EdgeID(e.Source, e.SourceHandle, e.Target)
		}
		_, srcOK := seen[e.Source]
		_, tgtOK := seen[e.Target]
		if !srcOK || !tgtOK {
			repairs = append(repairs, Repair{
				Kind:   "dangling_edge",
				ID:     e.ID,
				Detail: fmt.Sprintf("%s -> %s", e.Source, e.Target),
			})
			continue
		}
		if _, dup := edgeIDs[e.ID]; dup {
			repairs = append(repairs, Repair{Kind: "duplicate_edge", ID: e.ID})
			continue
		}
		edgeIDs[e.ID] = e
		outEdges = append(outEdges, e)
	}

	for i, n := range outNodes {
		if !n.Type.IsBranching() {
			continue
		}
		for _, handle := range []string{HandleTrue, HandleFalse} {
			key := BindingKey(handle)
			ref := n.Data.String(key)
			if ref == "" {
				continue
			}
			e, ok := edgeIDs[ref]
			if ok && e.Source == n.ID && e.SourceHandle == handle {
				continue
			}
			delete(outNodes[i].Data, key)
			repairs = append(repairs, Repair{
				Kind:   "stale_binding",
				ID:     n.ID,
				Detail: fmt.Sprintf("%s=%s", key, ref),
			})
		}
	}
	return outNodes, outEdges, repairs, nil
}
