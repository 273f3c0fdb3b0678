// Package graphstore holds the canonical nodes and edges of the workflow open
// in an editor.
//
// # Single source of truth
//
// The canvas, the config panel and the undo history all read from and write
// to one Store. None of them keeps its own copy of the graph; they observe
// changes through Subscribe and read fresh snapshots when they need them.
//
// # Changes
//
// Every structural mutation produces exactly one Change, delivered to each
// observer after the mutation is applied. Compound effects belong to the
// mutation that caused them: removing a node also removes its edges, and
// adding an edge from a branching handle also writes the binding into the
// source node, each as a single Change. Observers must not mutate the store.
//
// # Edge bindings
//
// Condition and loop nodes mirror the edges leaving their "true" and "false"
// handles into trueEdgeId and falseEdgeId. Only this package writes those
// fields; UpdateNodeData refuses them. A second edge on an already bound
// handle takes over the binding (last write wins) and the earlier edge stays
// in the graph unbound.
package graphstore
