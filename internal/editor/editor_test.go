package editor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/apiflow/internal/editor"
	"github.com/specialistvlad/apiflow/internal/engineapi"
	"github.com/specialistvlad/apiflow/internal/execution"
	"github.com/specialistvlad/apiflow/internal/template"
	"github.com/specialistvlad/apiflow/internal/testutil"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

func twoNodeDoc() *workflow.Workflow {
	return &workflow.Workflow{
		ID: "w1", Name: "demo", Method: "POST", Path: "demo", Project: "p", Tenant: "t",
		Nodes: []workflow.Node{
			{ID: "1", Type: workflow.TypeAPIStart, Data: workflow.Data{workflow.KeyLabel: "Start"}},
			{ID: "2", Type: workflow.TypeResponse, Data: workflow.Data{workflow.KeyLabel: "Reply"}},
		},
		Edges: []workflow.Edge{{ID: "e1-2", Source: "1", Target: "2"}},
	}
}

func counter() func() string {
	n := 0
	return func() string {
		n++
		return string(rune('a' + n - 1))
	}
}

// setupEditor loads twoNodeDoc into a fresh editor.
func setupEditor(t *testing.T, opts editor.Options) *editor.Editor {
	t.Helper()
	if opts.IDs == nil {
		opts.IDs = counter()
	}
	e := editor.New(opts)
	_, err := e.Load(context.Background(), twoNodeDoc())
	require.NoError(t, err)
	return e
}

func TestRemoveNodeThenUndo(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	e := setupEditor(t, editor.Options{})
	original := e.Store().Snapshot()

	// --- Act ---
	require.NoError(t, e.Store().RemoveNode("1"))

	// --- Assert ---
	nodes := e.Store().Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "2", nodes[0].ID)
	assert.Empty(t, e.Store().Edges())

	undone, err := e.Undo(ctx)
	require.NoError(t, err)
	require.True(t, undone)
	if diff := cmp.Diff(original, e.Store().Snapshot(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("undo mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ResetsState(t *testing.T) {
	ctx := context.Background()
	e := setupEditor(t, editor.Options{})
	require.NoError(t, e.MoveNode("1", workflow.Position{X: 10}))
	e.Selection().SelectNode("1")
	require.True(t, e.Dirty())

	_, err := e.Load(ctx, twoNodeDoc())
	require.NoError(t, err)

	assert.False(t, e.Dirty())
	assert.False(t, e.History().CanUndo())
	assert.True(t, e.Selection().Empty())
}

func TestLoad_RepairsDocument(t *testing.T) {
	doc := twoNodeDoc()
	doc.Edges = append(doc.Edges, workflow.Edge{ID: "ghost", Source: "1", Target: "404"})

	e := editor.New(editor.Options{})
	repairs, err := e.Load(context.Background(), doc)

	require.NoError(t, err)
	require.Len(t, repairs, 1)
	assert.Equal(t, "ghost", repairs[0].ID)
	assert.Len(t, e.Store().Edges(), 1)
}

func TestLoad_Nil(t *testing.T) {
	_, err := editor.New(editor.Options{}).Load(context.Background(), nil)
	assert.ErrorIs(t, err, execution.ErrNoWorkflow)
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemoryPersistence{}
	e := setupEditor(t, editor.Options{Persistence: store})
	_, err := e.AddNodeOfType(workflow.TypeLogic, workflow.Position{X: 5, Y: 5})
	require.NoError(t, err)
	require.True(t, e.Dirty())

	require.NoError(t, e.Save(ctx))

	assert.False(t, e.Dirty())
	require.Len(t, store.Saved, 1)
	assert.Len(t, store.Saved[0].Nodes, 3)
	assert.Equal(t, "demo", store.Saved[0].Name)
}

func TestSave_FailureKeepsEdits(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemoryPersistence{Err: errors.New("offline")}
	e := setupEditor(t, editor.Options{Persistence: store})
	require.NoError(t, e.MoveNode("2", workflow.Position{X: 99}))

	err := e.Save(ctx)

	require.Error(t, err)
	assert.True(t, e.Dirty())
	n, _ := e.Store().Node("2")
	assert.Equal(t, 99.0, n.Position.X)
}

func TestAddNodeOfType(t *testing.T) {
	e := setupEditor(t, editor.Options{})

	id, err := e.AddNodeOfType(workflow.TypeDatabase, workflow.Position{X: 1, Y: 2})

	require.NoError(t, err)
	assert.Equal(t, "database-a", id)
	n, _ := e.Store().Node(id)
	assert.Equal(t, "mongodb", n.Data["provider"])
	sel, _ := e.Selection().NodeID()
	assert.Equal(t, id, sel)

	_, err = e.AddNodeOfType("bogus", workflow.Position{})
	assert.ErrorIs(t, err, workflow.ErrUnknownNodeType)
}

func TestConnect_BindsBranch(t *testing.T) {
	e := setupEditor(t, editor.Options{})
	id, err := e.AddNodeOfType(workflow.TypeCondition, workflow.Position{})
	require.NoError(t, err)

	edge, err := e.Connect(id, workflow.HandleFalse, "2", "")

	require.NoError(t, err)
	n, _ := e.Store().Node(id)
	assert.Equal(t, edge.ID, n.Data.String(workflow.KeyFalseEdgeID))
}

func TestValidateReferences(t *testing.T) {
	e := setupEditor(t, editor.Options{})
	require.NoError(t, e.UpdateNodeData("2", workflow.Data{
		"body": map[string]any{"user": "{{1.result.user}}", "extra": []any{"{{ghost.result.x}}"}},
	}))

	err := e.ValidateReferences()

	var unknown *template.UnknownReferenceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"ghost"}, unknown.IDs)

	require.NoError(t, e.UpdateNodeData("2", workflow.Data{"body": map[string]any{}}))
	assert.NoError(t, e.ValidateReferences())
}

func TestRun_UsesLiveGraph(t *testing.T) {
	// --- Arrange ---
	starter := &testutil.FakeStarter{Response: engineapi.StartResponse{ExecutionID: "x1"}}
	ch := testutil.NewFakeChannel()
	orch := execution.NewOrchestrator(starter, ch, execution.Options{})
	e := setupEditor(t, editor.Options{Runner: orch})
	require.NoError(t, e.UpdateNodeData("2", workflow.Data{"statusCode": 201.0}))

	done := make(chan execution.Session, 1)
	go func() {
		s, _ := e.Run(context.Background(), nil)
		done <- s
	}()
	ch.WaitSubscribed(t)

	// --- Act ---
	ch.Emit(
		execution.NodeStarted{NodeInfo: execution.NodeInfo{NodeID: "1"}},
		execution.NodeCompleted{NodeInfo: execution.NodeInfo{NodeID: "1"}, Output: map[string]any{"ok": true}},
		execution.ExecutionCompleted{Output: map[string]any{"status": 200}},
	)
	s := <-done

	// --- Assert ---
	l, _ := s.Log("1")
	assert.Equal(t, execution.StatusCompleted, l.Status)
	assert.Equal(t, map[string]any{"ok": true}, l.Output)
	assert.False(t, s.IsRunning)
	assert.Equal(t, map[string]any{"status": 200}, s.FinalResponse)

	sent := starter.LastRequest(t).Workflow
	assert.Equal(t, 201.0, sent.Nodes[1].Data["statusCode"])
}

func TestRun_NothingLoaded(t *testing.T) {
	orch := execution.NewOrchestrator(&testutil.FakeStarter{}, testutil.NewFakeChannel(), execution.Options{})
	e := editor.New(editor.Options{Runner: orch})

	_, err := e.Run(context.Background(), nil)

	assert.ErrorIs(t, err, execution.ErrNoWorkflow)
}
