// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the canonical shape of a workflow as it is persisted and
// exchanged with the execution engine.
//
// Why keep node payloads as maps?
//
// Every node type carries a different configuration payload, and the config
// panel edits it with a shallow top-level merge. A map keeps that merge exact
// and lets unknown fields written by newer editors survive a round trip.
package workflow

import "slices"

// NodeType names the kind of unit a node represents on the canvas.
type NodeType string

const (
	TypeAPIStart    NodeType = "apiStart"
	TypeParameters  NodeType = "parameters"
	TypeLogic       NodeType = "logic"
	TypeResponse    NodeType = "response"
	TypeJWTGenerate NodeType = "jwtGenerate"
	TypeJWTVerify   NodeType = "jwtVerify"
	TypeDatabase    NodeType = "database"
	TypeCondition   NodeType = "condition"
	TypeLoop        NodeType = "loop"
)

// NodeTypes lists every node type the editor knows, in palette order.
var NodeTypes = []NodeType{
	TypeAPIStart, TypeParameters, TypeLogic, TypeResponse,
	TypeJWTGenerate, TypeJWTVerify, TypeDatabase, TypeCondition, TypeLoop,
}

// Known reports whether t is one of the supported node types.
func (t NodeType) Known() bool {
	return slices.Contains(NodeTypes, t)
}

// IsBranching reports whether nodes of this type expose "true"/"false"
// output handles whose edges are mirrored into the node data.
func (t NodeType) IsBranching() bool {
	return t == TypeCondition || t == TypeLoop
}

// Handle names used by branching nodes.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Well-known data keys.
const (
	KeyLabel       = "label"
	KeyDescription = "description"
	KeyTrueEdgeID  = "trueEdgeId"
	KeyFalseEdgeID = "falseEdgeId"
)

// BindingKey returns the data key that mirrors an edge leaving the given
// handle of a branching node, or "" when the handle is not a branch handle.
func BindingKey(handle string) string {
	switch handle {
	case HandleTrue:
		return KeyTrueEdgeID
	case HandleFalse:
		return KeyFalseEdgeID
	default:
		return ""
	}
}

// IsDerivedKey reports whether key is written only by edge binding.
func IsDerivedKey(key string) bool {
	return key == KeyTrueEdgeID || key == KeyFalseEdgeID
}

// Position is a point in graph coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Offset returns p moved by dx and dy.
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Node is a typed unit of workflow behavior.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     Data     `json:"data"`
}

// Clone returns a copy of n whose data is independently owned.
func (n Node) Clone() Node {
	n.Data = n.Data.Clone()
	return n
}

// Label returns the node's display label, falling back to its id.
func (n Node) Label() string {
	if l := n.Data.String(KeyLabel); l != "" {
		return l
	}
	return n.ID
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Touches reports whether the edge starts or ends at nodeID.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// EdgeID derives an edge id from its endpoints. Edges leaving a named handle
// include the handle so that two edges between the same pair of nodes on
// different handles do not collide.
func EdgeID(source, sourceHandle, target string) string {
	if sourceHandle == "" {
		return "e" + source + "-" + target
	}
	return "e" + source + ":" + sourceHandle + "-" + target
}

// Workflow is the persisted aggregate owned by a project.
type Workflow struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Project     string `json:"project,omitempty"`
	Tenant      string `json:"tenant,omitempty"`
	IsDeployed  bool   `json:"isDeployed"`
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
}

// Clone returns a deep copy of the workflow document.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	out := *w
	out.Nodes = CloneNodes(w.Nodes)
	out.Edges = slices.Clone(w.Edges)
	return &out
}

// CloneNodes deep-copies a node list.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// Snapshot is an immutable (nodes, edges) pair captured for history.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Nodes: CloneNodes(s.Nodes), Edges: slices.Clone(s.Edges)}
}
