package selection

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/specialistvlad/apiflow/internal/graphstore"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

const (
	// DuplicateOffset is added to both axes of a duplicated node.
	DuplicateOffset = 50
	// PasteNudge is added to both axes while a pasted node would sit exactly
	// on top of an existing one.
	PasteNudge = 20
)

// ErrNothingSelected is returned by operations that need a selected node.
var ErrNothingSelected = errors.New("no node selected")

// Reader is the read side of the graph store.
type Reader interface {
	Node(id string) (workflow.Node, bool)
	HasNode(id string) bool
	Edge(id string) (workflow.Edge, bool)
	Nodes() []workflow.Node
}

// Graph is the subset of the graph store used by clipboard operations.
type Graph interface {
	Reader
	AddNode(n workflow.Node) error
	RemoveNode(id string) error
	RemoveEdges(ids ...string) error
	DuplicateNode(id, newID string, pos workflow.Position) error
}

// IDSource returns a fresh suffix for generated node ids.
type IDSource func() string

// UUIDSource is the default IDSource.
func UUIDSource() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Clipboard holds detached copies of nodes.
type Clipboard struct {
	mu      sync.RWMutex
	entries []workflow.Node
}

// Set replaces the clipboard contents with deep copies of nodes.
func (c *Clipboard) Set(nodes ...workflow.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = workflow.CloneNodes(nodes)
}

// Entries returns copies of the clipboard contents.
func (c *Clipboard) Entries() []workflow.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return workflow.CloneNodes(c.entries)
}

// Empty reports whether there is anything to paste.
func (c *Clipboard) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries) == 0
}

// Copy places the selected node on the clipboard.
func Copy(g Reader, sel *Selection, cb *Clipboard) error {
	id, ok := sel.NodeID()
	if !ok {
		return ErrNothingSelected
	}
	n, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("copy: %w", &graphstore.NotFoundError{Kind: "node", ID: id})
	}
	cb.Set(n)
	return nil
}

// Cut copies the selected node, then removes it along with its edges.
func Cut(g Graph, sel *Selection, cb *Clipboard) error {
	if err := Copy(g, sel, cb); err != nil {
		return err
	}
	id, _ := sel.NodeID()
	if err := g.RemoveNode(id); err != nil {
		return fmt.Errorf("cut %q: %w", id, err)
	}
	sel.ClearNode()
	sel.Prune(g)
	return nil
}

// Paste inserts every clipboard entry around target under a fresh id and
// returns the new ids. The first entry lands on target and the rest keep
// their layout relative to it.
func Paste(g Graph, cb *Clipboard, target workflow.Position, ids IDSource) ([]string, error) {
	entries := cb.Entries()
	if len(entries) == 0 {
		return nil, nil
	}
	if ids == nil {
		ids = UUIDSource
	}

	occupied := make(map[workflow.Position]struct{})
	for _, n := range g.Nodes() {
		occupied[n.Position] = struct{}{}
	}

	anchor := entries[0].Position
	suffix := ids()
	created := make([]string, 0, len(entries))
	for _, n := range entries {
		pos := target.Offset(n.Position.X-anchor.X, n.Position.Y-anchor.Y)
		for {
			if _, taken := occupied[pos]; !taken {
				break
			}
			pos = pos.Offset(PasteNudge, PasteNudge)
		}
		occupied[pos] = struct{}{}

		n.ID = fmt.Sprintf("%s-pasted-%s", n.ID, suffix)
		n.Position = pos
		n.Data = n.Data.Without(workflow.KeyTrueEdgeID, workflow.KeyFalseEdgeID)
		if err := g.AddNode(n); err != nil {
			return created, fmt.Errorf("paste: %w", err)
		}
		created = append(created, n.ID)
	}
	return created, nil
}

// Duplicate copies the selected node to a new id offset by DuplicateOffset,
// then selects the copy. The clipboard is not involved.
func Duplicate(g Graph, sel *Selection, ids IDSource) (string, error) {
	id, ok := sel.NodeID()
	if !ok {
		return "", ErrNothingSelected
	}
	n, ok := g.Node(id)
	if !ok {
		return "", fmt.Errorf("duplicate: %w", &graphstore.NotFoundError{Kind: "node", ID: id})
	}
	if ids == nil {
		ids = UUIDSource
	}
	newID := fmt.Sprintf("%s-copy-%s", id, ids())
	if err := g.DuplicateNode(id, newID, n.Position.Offset(DuplicateOffset, DuplicateOffset)); err != nil {
		return "", fmt.Errorf("duplicate %q: %w", id, err)
	}
	sel.SelectNode(newID)
	return newID, nil
}

// Delete removes the selected edges and the selected node, then clears the
// selection. An empty selection is a no-op.
func Delete(g Graph, sel *Selection) error {
	if edges := sel.EdgeIDs(); len(edges) > 0 {
		if err := g.RemoveEdges(edges...); err != nil {
			return fmt.Errorf("delete edges: %w", err)
		}
	}
	if id, ok := sel.NodeID(); ok {
		if err := g.RemoveNode(id); err != nil {
			return fmt.Errorf("delete node %q: %w", id, err)
		}
	}
	sel.Clear()
	return nil
}
