// Package testutil holds fakes and helpers shared by tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/apiflow/internal/engineapi"
	"github.com/specialistvlad/apiflow/internal/execution"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

// FakeStarter answers StartExecution with a canned response.
type FakeStarter struct {
	mu       sync.Mutex
	Response engineapi.StartResponse
	Err      error
	Requests []engineapi.StartRequest
}

// StartExecution records req and returns the configured response.
func (f *FakeStarter) StartExecution(_ context.Context, req engineapi.StartRequest) (engineapi.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.Workflow = req.Workflow.Clone()
	f.Requests = append(f.Requests, req)
	return f.Response, f.Err
}

// LastRequest returns the most recent request.
func (f *FakeStarter) LastRequest(t *testing.T) engineapi.StartRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.Requests, "no start request was made")
	return f.Requests[len(f.Requests)-1]
}

// FakeChannel is an in-memory execution event channel.
type FakeChannel struct {
	mu           sync.Mutex
	deliver      func(execution.Event)
	subscribed   chan string
	unsubscribed int
	closed       int
	SubscribeErr error
}

// NewFakeChannel creates an empty channel.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{subscribed: make(chan string, 16)}
}

type fakeSubscription struct{ ch *FakeChannel }

func (s fakeSubscription) Unsubscribe(context.Context) error {
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	s.ch.unsubscribed++
	s.ch.deliver = nil
	return nil
}

// Subscribe stores deliver as the current receiver.
func (c *FakeChannel) Subscribe(_ context.Context, executionID string, deliver func(execution.Event)) (execution.Subscription, error) {
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}
	c.mu.Lock()
	c.deliver = deliver
	c.mu.Unlock()
	c.subscribed <- executionID
	return fakeSubscription{ch: c}, nil
}

// WaitSubscribed blocks until a subscription is made and returns its id.
func (c *FakeChannel) WaitSubscribed(t *testing.T) string {
	t.Helper()
	select {
	case id := <-c.subscribed:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscription")
		return ""
	}
}

// Emit hands events to the current subscriber, in order. Events emitted
// with no active subscription are dropped.
func (c *FakeChannel) Emit(events ...execution.Event) {
	for _, ev := range events {
		c.mu.Lock()
		deliver := c.deliver
		c.mu.Unlock()
		if deliver != nil {
			deliver(ev)
		}
	}
}

// Unsubscribed returns how many subscriptions were released.
func (c *FakeChannel) Unsubscribed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsubscribed
}

// MemoryPersistence stores saved documents in memory.
type MemoryPersistence struct {
	mu    sync.Mutex
	Saved []*workflow.Workflow
	Err   error
}

// SaveWorkflow records doc, assigning an id to new documents.
func (p *MemoryPersistence) SaveWorkflow(_ context.Context, doc *workflow.Workflow) (*workflow.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	out := doc.Clone()
	if out.ID == "" {
		out.ID = "saved-1"
	}
	p.Saved = append(p.Saved, out)
	return out.Clone(), nil
}

// Close counts channel shutdowns.
func (c *FakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// Closed returns how many times Close was called.
func (c *FakeChannel) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FakeEngine combines the fake starter and persistence with a canned
// workflow listing.
type FakeEngine struct {
	*FakeStarter
	*MemoryPersistence
	Workflows []workflow.Workflow
	ListErr   error
}

// NewFakeEngine returns an engine whose every part is ready to use.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{FakeStarter: &FakeStarter{}, MemoryPersistence: &MemoryPersistence{}}
}

// ListWorkflows returns the configured listing.
func (e *FakeEngine) ListWorkflows(context.Context, string) ([]workflow.Workflow, error) {
	return e.Workflows, e.ListErr
}
