package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/specialistvlad/apiflow/internal/ctxlog"
	"github.com/specialistvlad/apiflow/internal/engineapi"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

// DefaultTimeout bounds how long a run waits for its terminal event.
const DefaultTimeout = 5 * time.Minute

const unsubscribeTimeout = 5 * time.Second

// Starter launches a run on the execution engine.
type Starter interface {
	StartExecution(ctx context.Context, req engineapi.StartRequest) (engineapi.StartResponse, error)
}

// Channel delivers engine events for one execution id.
type Channel interface {
	Subscribe(ctx context.Context, executionID string, deliver func(Event)) (Subscription, error)
}

// Subscription is an active Channel registration.
type Subscription interface {
	Unsubscribe(ctx context.Context) error
}

// Options tune an Orchestrator.
type Options struct {
	// Timeout bounds the wait for a terminal event. Zero uses DefaultTimeout;
	// a negative value waits forever.
	Timeout time.Duration
	// Buffer is the number of events queued between the channel and the fold.
	Buffer int
	Now    func() time.Time
}

// Orchestrator runs workflows one at a time and publishes session updates.
type Orchestrator struct {
	starter Starter
	channel Channel
	opts    Options

	mu       sync.Mutex
	session  Session
	cancel   context.CancelCauseFunc
	watchers map[int]func(Session)
	nextID   int
}

// NewOrchestrator creates an orchestrator in the idle phase.
func NewOrchestrator(starter Starter, channel Channel, opts Options) *Orchestrator {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		starter:  starter,
		channel:  channel,
		opts:     opts,
		session:  Session{Phase: PhaseIdle},
		watchers: make(map[int]func(Session)),
	}
}

// Session returns the latest session state.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Clone()
}

// Watch registers fn for every session update and returns a function that
// removes it.
func (o *Orchestrator) Watch(fn func(Session)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextID
	o.nextID++
	o.watchers[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.watchers, id)
	}
}

// Reset returns an idle orchestrator to a clean session.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.cancel != nil {
		o.mu.Unlock()
		return
	}
	o.session = Session{Phase: PhaseIdle}
	o.mu.Unlock()
	o.publish(Session{Phase: PhaseIdle})
}

// Close detaches from an in-flight run. The remote execution keeps going.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel(ErrDetached)
	}
}

// Run executes doc with input and blocks until the run reaches a terminal
// phase. The returned error is the session's error.
func (o *Orchestrator) Run(ctx context.Context, doc *workflow.Workflow, input map[string]any) (Session, error) {
	if doc == nil {
		return o.Session(), ErrNoWorkflow
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	o.mu.Lock()
	if o.cancel != nil {
		o.mu.Unlock()
		return o.Session(), ErrRunInProgress
	}
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()

	logger := ctxlog.FromContext(ctx).With("workflow_id", doc.ID)
	s := o.update(seed(doc))

	if input == nil {
		input = map[string]any{}
	}
	resp, err := o.starter.StartExecution(runCtx, engineapi.StartRequest{Workflow: doc, Input: input})
	if err != nil {
		logger.Error("Failed to start execution.", "error", err)
		s.Phase = PhaseFailed
		s.IsRunning = false
		s.Err = &StartRequestError{Err: err}
		s.Logs = append(s.Logs, Log{
			NodeID:    "system",
			NodeName:  "System",
			NodeType:  "system",
			Status:    StatusError,
			Timestamp: o.opts.Now(),
			Error:     err.Error(),
		})
		s = o.update(s)
		return s, s.Err
	}

	if resp.ExecutionID == "" {
		logger.Info("Engine answered without an execution id, treating response as final.")
		s.Phase = PhaseCompleted
		s.IsRunning = false
		s.FinalResponse = resp.Body
		return o.update(s), nil
	}

	logger = logger.With("execution_id", resp.ExecutionID)
	s.ExecutionID = resp.ExecutionID
	s.StartResponse = resp.Body
	s.Phase = PhaseRunning
	s = o.update(s)
	logger.Info("Execution started.")

	return o.follow(runCtx, logger, s)
}

func (o *Orchestrator) follow(ctx context.Context, logger *slog.Logger, s Session) (Session, error) {
	events := make(chan Event, o.opts.Buffer)
	done := make(chan struct{})
	defer close(done)

	// The id is only known once the start call returns; anything the engine
	// emitted before this join is not replayed.
	sub, err := o.channel.Subscribe(ctx, s.ExecutionID, func(ev Event) {
		select {
		case events <- ev:
		case <-done:
		}
	})
	if err != nil {
		logger.Error("Failed to subscribe to execution events.", "error", err)
		s.Phase = PhaseFailed
		s.IsRunning = false
		s.Err = fmt.Errorf("subscribe to execution %s: %w", s.ExecutionID, err)
		s = o.update(s)
		return s, s.Err
	}
	defer func() {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unsubscribeTimeout)
		defer cancel()
		if err := sub.Unsubscribe(uctx); err != nil {
			logger.Warn("Failed to unsubscribe from execution events.", "error", err)
		}
	}()

	var timeout <-chan time.Time
	if o.opts.Timeout > 0 {
		timer := time.NewTimer(o.opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for !s.Phase.Terminal() {
		select {
		case ev := <-events:
			logger.Debug("Execution event received.", "kind", ev.Kind())
			s = o.update(Apply(s, ev, o.opts.Now()))
		case <-timeout:
			logger.Warn("No terminal event before timeout.", "timeout", o.opts.Timeout)
			s.Phase = PhaseTimedOut
			s.IsRunning = false
			s.Err = ErrExecutionTimedOut
			s = o.update(s)
		case <-ctx.Done():
			cause := context.Cause(ctx)
			if !errors.Is(cause, ErrDetached) {
				cause = fmt.Errorf("%w: %w", ErrDetached, cause)
			}
			logger.Info("Detached from execution.", "cause", cause)
			s.Phase = PhaseDetached
			s.IsRunning = false
			s.Err = cause
			s = o.update(s)
		}
	}

	switch s.Phase {
	case PhaseCompleted:
		logger.Info("Execution completed.")
	case PhaseFailed:
		logger.Error("Execution failed.", "error", s.Err)
	}
	return s, s.Err
}

func seed(doc *workflow.Workflow) Session {
	s := Session{Phase: PhaseStarting, IsRunning: true, Logs: make([]Log, 0, len(doc.Nodes))}
	for _, n := range doc.Nodes {
		name := n.Data.String(workflow.KeyLabel)
		if name == "" {
			name = fmt.Sprintf("Node %s", n.ID)
		}
		s.Logs = append(s.Logs, Log{
			NodeID:   n.ID,
			NodeName: name,
			NodeType: string(n.Type),
			Status:   StatusPending,
		})
	}
	return s
}

// update stores s and notifies watchers outside the lock.
func (o *Orchestrator) update(s Session) Session {
	o.mu.Lock()
	o.session = s.Clone()
	o.mu.Unlock()
	o.publish(s)
	return s
}

func (o *Orchestrator) publish(s Session) {
	o.mu.Lock()
	ids := make([]int, 0, len(o.watchers))
	for id := range o.watchers {
		ids = append(ids, id)
	}
	fns := make([]func(Session), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, o.watchers[id])
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(s.Clone())
	}
}
