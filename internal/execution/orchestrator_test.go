package execution_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/apiflow/internal/engineapi"
	"github.com/specialistvlad/apiflow/internal/execution"
	"github.com/specialistvlad/apiflow/internal/testutil"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

type result struct {
	session execution.Session
	err     error
}

func doc() *workflow.Workflow {
	return &workflow.Workflow{
		ID: "w1", Project: "p", Tenant: "t", Path: "run",
		Nodes: []workflow.Node{
			{ID: "1", Type: workflow.TypeAPIStart, Data: workflow.Data{workflow.KeyLabel: "Start"}},
			{ID: "2", Type: workflow.TypeResponse, Data: workflow.Data{}},
		},
		Edges: []workflow.Edge{{ID: "e1-2", Source: "1", Target: "2"}},
	}
}

// startRun launches Run in the background and waits for its subscription.
func startRun(t *testing.T, o *execution.Orchestrator, ch *testutil.FakeChannel) <-chan result {
	t.Helper()
	done := make(chan result, 1)
	go func() {
		s, err := o.Run(context.Background(), doc(), map[string]any{"q": 1})
		done <- result{s, err}
	}()
	ch.WaitSubscribed(t)
	return done
}

func wait(t *testing.T, done <-chan result) result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
		return result{}
	}
}

func TestRun_CompletesFromEvents(t *testing.T) {
	// --- Arrange ---
	starter := &testutil.FakeStarter{Response: engineapi.StartResponse{ExecutionID: "x1"}}
	ch := testutil.NewFakeChannel()
	o := execution.NewOrchestrator(starter, ch, execution.Options{})
	done := startRun(t, o, ch)

	// --- Act ---
	ch.Emit(
		execution.NodeStarted{NodeInfo: execution.NodeInfo{ExecutionID: "x1", NodeID: "1"}},
		execution.NodeCompleted{NodeInfo: execution.NodeInfo{ExecutionID: "x1", NodeID: "1"}, Output: map[string]any{"ok": true}},
		execution.ExecutionCompleted{ExecutionID: "x1", Output: map[string]any{"status": 200}},
	)
	r := wait(t, done)

	// --- Assert ---
	require.NoError(t, r.err)
	l, ok := r.session.Log("1")
	require.True(t, ok)
	assert.Equal(t, execution.StatusCompleted, l.Status)
	assert.Equal(t, map[string]any{"ok": true}, l.Output)
	assert.False(t, r.session.IsRunning)
	assert.Equal(t, map[string]any{"status": 200}, r.session.FinalResponse)
	assert.Equal(t, execution.PhaseCompleted, r.session.Phase)

	pending, _ := r.session.Log("2")
	assert.Equal(t, execution.StatusPending, pending.Status)
	assert.Equal(t, "Node 2", pending.NodeName)

	assert.Equal(t, 1, ch.Unsubscribed())
	assert.Equal(t, map[string]any{"q": 1}, starter.LastRequest(t).Input)
}

func TestRun_FailedExecution(t *testing.T) {
	starter := &testutil.FakeStarter{Response: engineapi.StartResponse{ExecutionID: "x1"}}
	ch := testutil.NewFakeChannel()
	o := execution.NewOrchestrator(starter, ch, execution.Options{})
	done := startRun(t, o, ch)

	ch.Emit(
		execution.NodeFailed{NodeInfo: execution.NodeInfo{NodeID: "2"}, Error: "bad"},
		execution.ExecutionFailed{ExecutionID: "x1", Error: "bad"},
	)
	r := wait(t, done)

	var failed *execution.ExecutionFailedError
	require.ErrorAs(t, r.err, &failed)
	assert.Equal(t, execution.PhaseFailed, r.session.Phase)
	assert.Nil(t, r.session.FinalResponse)
	l, _ := r.session.Log("2")
	assert.Equal(t, "bad", l.Error)
	assert.Equal(t, 1, ch.Unsubscribed())
}

func TestRun_StartFailure(t *testing.T) {
	starter := &testutil.FakeStarter{Err: errors.New("connection refused")}
	ch := testutil.NewFakeChannel()
	o := execution.NewOrchestrator(starter, ch, execution.Options{})

	s, err := o.Run(context.Background(), doc(), nil)

	var startErr *execution.StartRequestError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, execution.PhaseFailed, s.Phase)
	assert.False(t, s.IsRunning)
	assert.Empty(t, s.ExecutionID)
	sys, ok := s.Log("system")
	require.True(t, ok)
	assert.Equal(t, "connection refused", sys.Error)
	assert.Zero(t, ch.Unsubscribed())
}

func TestRun_NoExecutionIDCompletesImmediately(t *testing.T) {
	body := map[string]any{"status": 200.0}
	starter := &testutil.FakeStarter{Response: engineapi.StartResponse{Body: body}}
	o := execution.NewOrchestrator(starter, testutil.NewFakeChannel(), execution.Options{})

	s, err := o.Run(context.Background(), doc(), nil)

	require.NoError(t, err)
	assert.Equal(t, execution.PhaseCompleted, s.Phase)
	assert.Equal(t, body, s.FinalResponse)
}

func TestRun_NoWorkflow(t *testing.T) {
	o := execution.NewOrchestrator(&testutil.FakeStarter{}, testutil.NewFakeChannel(), execution.Options{})

	_, err := o.Run(context.Background(), nil, nil)

	assert.ErrorIs(t, err, execution.ErrNoWorkflow)
}

func TestRun_TimesOut(t *testing.T) {
	starter := &testutil.FakeStarter{Response: engineapi.StartResponse{ExecutionID: "x1"}}
	ch := testutil.NewFakeChannel()
	o := execution.NewOrchestrator(starter, ch, execution.Options{Timeout: 30 * time.Millisecond})
	done := startRun(t, o, ch)

	r := wait(t, done)

	assert.ErrorIs(t, r.err, execution.ErrExecutionTimedOut)
	assert.Equal(t, execution.PhaseTimedOut, r.session.Phase)
	assert.False(t, r.session.IsRunning)
	assert.Equal(t, 1, ch.Unsubscribed())
}

func TestClose_DetachesAndIgnoresLateEvents(t *testing.T) {
	starter := &testutil.FakeStarter{Response: engineapi.StartResponse{ExecutionID: "x1"}}
	ch := testutil.NewFakeChannel()
	o := execution.NewOrchestrator(starter, ch, execution.Options{})
	done := startRun(t, o, ch)

	o.Close()
	r := wait(t, done)
	ch.Emit(execution.NodeStarted{NodeInfo: execution.NodeInfo{NodeID: "1"}})

	assert.ErrorIs(t, r.err, execution.ErrDetached)
	assert.Equal(t, execution.PhaseDetached, r.session.Phase)
	assert.Equal(t, 1, ch.Unsubscribed())
	l, _ := o.Session().Log("1")
	assert.Equal(t, execution.StatusPending, l.Status)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	starter := &testutil.FakeStarter{Response: engineapi.StartResponse{ExecutionID: "x1"}}
	ch := testutil.NewFakeChannel()
	o := execution.NewOrchestrator(starter, ch, execution.Options{})
	done := startRun(t, o, ch)

	_, err := o.Run(context.Background(), doc(), nil)
	assert.ErrorIs(t, err, execution.ErrRunInProgress)

	o.Close()
	wait(t, done)
}

func TestWatch_SeesEveryUpdate(t *testing.T) {
	starter := &testutil.FakeStarter{Response: engineapi.StartResponse{ExecutionID: "x1"}}
	ch := testutil.NewFakeChannel()
	o := execution.NewOrchestrator(starter, ch, execution.Options{})
	updates := make(chan execution.Phase, 16)
	stop := o.Watch(func(s execution.Session) { updates <- s.Phase })
	defer stop()

	done := startRun(t, o, ch)
	ch.Emit(execution.ExecutionCompleted{ExecutionID: "x1"})
	wait(t, done)

	var phases []execution.Phase
	for len(updates) > 0 {
		phases = append(phases, <-updates)
	}
	assert.Equal(t, []execution.Phase{
		execution.PhaseStarting,
		execution.PhaseRunning,
		execution.PhaseCompleted,
	}, phases)
}
