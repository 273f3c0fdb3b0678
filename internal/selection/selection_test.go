package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/apiflow/internal/graphstore"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

func fixedID(id string) IDSource {
	return func() string { return id }
}

// newGraph builds a store with a condition node "c" at (100,100) bound to a
// response node "r" through its true handle.
func newGraph(t *testing.T) *graphstore.Store {
	t.Helper()
	s := graphstore.New()
	require.NoError(t, s.AddNode(workflow.Node{
		ID: "c", Type: workflow.TypeCondition, Position: workflow.Position{X: 100, Y: 100},
		Data: workflow.Data{workflow.KeyLabel: "Check", "condition": "x > 1", "meta": map[string]any{"k": "v"}},
	}))
	require.NoError(t, s.AddNode(workflow.Node{
		ID: "r", Type: workflow.TypeResponse, Position: workflow.Position{X: 300, Y: 100},
		Data: workflow.Data{workflow.KeyLabel: "Reply"},
	}))
	_, err := s.AddEdge(workflow.Edge{Source: "c", Target: "r", SourceHandle: workflow.HandleTrue})
	require.NoError(t, err)
	return s
}

func TestSelection_NodeExclusiveEdgesIndependent(t *testing.T) {
	sel := New()

	sel.SelectNode("a")
	sel.SelectNode("b")
	sel.SelectEdge("e2")
	sel.SelectEdge("e1")

	id, ok := sel.NodeID()
	assert.True(t, ok)
	assert.Equal(t, "b", id)
	assert.Equal(t, []string{"e1", "e2"}, sel.EdgeIDs())

	sel.ClearNode()
	assert.Equal(t, []string{"e1", "e2"}, sel.EdgeIDs())
	assert.False(t, sel.Empty())

	sel.ToggleEdge("e1")
	sel.ToggleEdge("e3")
	assert.Equal(t, []string{"e2", "e3"}, sel.EdgeIDs())

	sel.Clear()
	assert.True(t, sel.Empty())
}

func TestCopy_IsDetached(t *testing.T) {
	g := newGraph(t)
	sel := New()
	cb := &Clipboard{}
	sel.SelectNode("c")

	require.NoError(t, Copy(g, sel, cb))
	require.NoError(t, g.UpdateNodeData("c", workflow.Data{"condition": "changed"}))

	entries := cb.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "x > 1", entries[0].Data["condition"])
	assert.Equal(t, workflow.TypeCondition, entries[0].Type)
}

func TestCopy_NothingSelected(t *testing.T) {
	assert.ErrorIs(t, Copy(newGraph(t), New(), &Clipboard{}), ErrNothingSelected)
}

func TestCut_RemovesNodeAndEdges(t *testing.T) {
	g := newGraph(t)
	sel := New()
	cb := &Clipboard{}
	sel.SelectNode("r")
	sel.SelectEdge("ec:true-r")

	require.NoError(t, Cut(g, sel, cb))

	assert.False(t, g.HasNode("r"))
	assert.Empty(t, g.Edges())
	assert.True(t, sel.Empty())
	assert.False(t, cb.Empty())
	c, _ := g.Node("c")
	assert.NotContains(t, c.Data, workflow.KeyTrueEdgeID)
}

func TestPaste_FreshIDsAtTarget(t *testing.T) {
	g := newGraph(t)
	cb := &Clipboard{}
	c, _ := g.Node("c")
	r, _ := g.Node("r")
	cb.Set(c, r)

	ids, err := Paste(g, cb, workflow.Position{X: 500, Y: 500}, fixedID("x1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"c-pasted-x1", "r-pasted-x1"}, ids)
	pc, _ := g.Node("c-pasted-x1")
	pr, _ := g.Node("r-pasted-x1")
	assert.Equal(t, workflow.Position{X: 500, Y: 500}, pc.Position)
	assert.Equal(t, workflow.Position{X: 700, Y: 500}, pr.Position)
	assert.NotContains(t, pc.Data, workflow.KeyTrueEdgeID, "bindings belong to edges that were not pasted")
	assert.Equal(t, "x > 1", pc.Data["condition"])
}

func TestPaste_NudgesOffExactOverlap(t *testing.T) {
	g := newGraph(t)
	cb := &Clipboard{}
	c, _ := g.Node("c")
	cb.Set(c)

	first, err := Paste(g, cb, c.Position, fixedID("a"))
	require.NoError(t, err)
	second, err := Paste(g, cb, c.Position, fixedID("b"))
	require.NoError(t, err)

	p1, _ := g.Node(first[0])
	p2, _ := g.Node(second[0])
	assert.Equal(t, workflow.Position{X: 120, Y: 120}, p1.Position)
	assert.Equal(t, workflow.Position{X: 140, Y: 140}, p2.Position)
}

func TestPaste_EmptyClipboard(t *testing.T) {
	ids, err := Paste(newGraph(t), &Clipboard{}, workflow.Position{}, nil)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestDuplicate(t *testing.T) {
	g := newGraph(t)
	sel := New()
	sel.SelectNode("c")

	id, err := Duplicate(g, sel, fixedID("7"))

	require.NoError(t, err)
	assert.Equal(t, "c-copy-7", id)
	n, ok := g.Node(id)
	require.True(t, ok)
	assert.Equal(t, workflow.Position{X: 150, Y: 150}, n.Position)
	assert.NotContains(t, n.Data, workflow.KeyTrueEdgeID)
	got, _ := sel.NodeID()
	assert.Equal(t, id, got)

	sel.SelectNode("gone")
	_, err = Duplicate(g, sel, fixedID("8"))
	assert.ErrorIs(t, err, graphstore.ErrNotFound)
}

func TestDelete(t *testing.T) {
	g := newGraph(t)
	sel := New()
	sel.SelectEdge("ec:true-r")

	require.NoError(t, Delete(g, sel))

	assert.Empty(t, g.Edges())
	assert.Len(t, g.Nodes(), 2)
	assert.True(t, sel.Empty())

	require.NoError(t, Delete(g, sel))
}

func TestUUIDSource(t *testing.T) {
	a, b := UUIDSource(), UUIDSource()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}
