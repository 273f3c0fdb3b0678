package realtime

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/specialistvlad/apiflow/internal/execution"
)

const (
	eventJoin          = "joinWorkflow"
	eventLeave         = "leaveWorkflow"
	eventWorkflowNodes = "workflow_nodes"
)

// EmitFunc sends a message to the server.
type EmitFunc func(event string, args ...any)

type subscriber struct {
	id          int
	executionID string
	deliver     func(execution.Event)
}

// Router fans incoming engine events out to subscriptions. Events carrying
// an executionId go to that execution's subscribers only; events without
// one go to every active subscriber.
type Router struct {
	emit   EmitFunc
	logger *slog.Logger

	mu     sync.Mutex
	subs   []subscriber
	nextID int
}

// NewRouter creates a router that announces joins and leaves through emit.
func NewRouter(emit EmitFunc, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{emit: emit, logger: logger}
}

// Subscribe joins executionID and routes its events to deliver.
func (r *Router) Subscribe(_ context.Context, executionID string, deliver func(execution.Event)) (execution.Subscription, error) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs = append(r.subs, subscriber{id: id, executionID: executionID, deliver: deliver})
	r.mu.Unlock()

	r.logger.Debug("Joining execution.", "execution_id", executionID)
	r.emit(eventJoin, executionID)
	return &subscription{router: r, id: id, executionID: executionID}, nil
}

// Active returns the number of live subscriptions.
func (r *Router) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Router) remove(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.subs, func(s subscriber) bool { return s.id == id })
	if i < 0 {
		return false
	}
	r.subs = slices.Delete(r.subs, i, i+1)
	return true
}

// Dispatch decodes one incoming message and delivers it.
func (r *Router) Dispatch(kind execution.Kind, args ...any) {
	var payload any
	if len(args) > 0 {
		payload = args[0]
	}
	ev, err := Decode(kind, payload)
	if err != nil {
		r.logger.Warn("Dropping undecodable execution event.", "kind", kind, "error", err)
		return
	}

	r.mu.Lock()
	targets := make([]func(execution.Event), 0, len(r.subs))
	for _, s := range r.subs {
		if id := ev.Execution(); id == "" || id == s.executionID {
			targets = append(targets, s.deliver)
		}
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		r.logger.Debug("No subscriber for execution event.", "kind", kind, "execution_id", ev.Execution())
	}
	for _, deliver := range targets {
		deliver(ev)
	}
}

type subscription struct {
	router      *Router
	id          int
	executionID string
	once        sync.Once
}

// Unsubscribe stops delivery and leaves the execution room. Calling it again
// is a no-op.
func (s *subscription) Unsubscribe(context.Context) error {
	s.once.Do(func() {
		if s.router.remove(s.id) {
			s.router.logger.Debug("Leaving execution.", "execution_id", s.executionID)
			s.router.emit(eventLeave, s.executionID)
		}
	})
	return nil
}
