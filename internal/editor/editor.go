// Package editor is the composition root for one open workflow. It owns the
// graph store and its undo history together with the canvas selection state.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/apiflow/internal/ctxlog"
	"github.com/specialistvlad/apiflow/internal/execution"
	"github.com/specialistvlad/apiflow/internal/graphstore"
	"github.com/specialistvlad/apiflow/internal/history"
	"github.com/specialistvlad/apiflow/internal/selection"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

// Persistence stores workflow documents.
type Persistence interface {
	SaveWorkflow(ctx context.Context, doc *workflow.Workflow) (*workflow.Workflow, error)
}

// Runner executes a workflow document. *execution.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, doc *workflow.Workflow, input map[string]any) (execution.Session, error)
	Reset()
}

// Options configure an Editor.
type Options struct {
	HistoryLimit int
	IDs          selection.IDSource
	Persistence  Persistence
	Runner       Runner
}

// Editor is one open workflow.
type Editor struct {
	store   *graphstore.Store
	history *history.Manager
	sel     *selection.Selection
	clip    *selection.Clipboard
	ids     selection.IDSource
	persist Persistence
	runner  Runner

	mu       sync.Mutex
	doc      *workflow.Workflow
	revision uint64
	saved    uint64
}

// New creates an editor with nothing loaded.
func New(opts Options) *Editor {
	ids := opts.IDs
	if ids == nil {
		ids = selection.UUIDSource
	}
	store := graphstore.New()
	e := &Editor{
		store:   store,
		history: history.New(store, opts.HistoryLimit),
		sel:     selection.New(),
		clip:    &selection.Clipboard{},
		ids:     ids,
		persist: opts.Persistence,
		runner:  opts.Runner,
	}
	store.Subscribe(func(c graphstore.Change) {
		e.history.Record(c.Snapshot)
		e.mu.Lock()
		e.revision++
		e.mu.Unlock()
	})
	return e
}

// Store returns the graph store backing the canvas.
func (e *Editor) Store() *graphstore.Store { return e.store }

// History returns the undo manager.
func (e *Editor) History() *history.Manager { return e.history }

// Selection returns the canvas selection.
func (e *Editor) Selection() *selection.Selection { return e.sel }

// Clipboard returns the clipboard.
func (e *Editor) Clipboard() *selection.Clipboard { return e.clip }

// Load adopts doc as the open workflow. Dangling edges and stale bindings
// are repaired and reported; history, selection and execution state start
// over.
func (e *Editor) Load(ctx context.Context, doc *workflow.Workflow) ([]workflow.Repair, error) {
	if doc == nil {
		return nil, execution.ErrNoWorkflow
	}
	logger := ctxlog.FromContext(ctx).With("workflow_id", doc.ID)

	nodes, edges, repairs, err := workflow.Normalize(doc.Nodes, doc.Edges)
	if err != nil {
		return nil, fmt.Errorf("load workflow %q: %w", doc.ID, err)
	}
	for _, n := range nodes {
		if err := workflow.ValidateNode(n); err != nil {
			logger.Warn("Loaded node does not validate.", "node_id", n.ID, "error", err)
		}
	}
	if err := e.store.Replace(nodes, edges); err != nil {
		return nil, fmt.Errorf("load workflow %q: %w", doc.ID, err)
	}
	for _, r := range repairs {
		logger.Warn("Repaired workflow on load.", "kind", r.Kind, "id", r.ID, "detail", r.Detail)
	}

	e.history.Reset(e.store.Snapshot())
	e.sel.Clear()
	if e.runner != nil {
		e.runner.Reset()
	}

	meta := doc.Clone()
	meta.Nodes, meta.Edges = nil, nil
	e.mu.Lock()
	e.doc = meta
	e.saved = e.revision
	e.mu.Unlock()

	logger.Info("Workflow loaded.", "nodes", len(nodes), "edges", len(edges))
	return repairs, nil
}

// Loaded reports whether a workflow is open.
func (e *Editor) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc != nil
}

// Dirty reports whether the graph changed since it was loaded or saved.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc != nil && e.revision != e.saved
}

// Document returns the open workflow with the current graph, or nil.
func (e *Editor) Document() *workflow.Workflow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.documentLocked()
}

func (e *Editor) documentLocked() *workflow.Workflow {
	if e.doc == nil {
		return nil
	}
	snap := e.store.Snapshot()
	doc := e.doc.Clone()
	doc.Nodes = snap.Nodes
	doc.Edges = snap.Edges
	return doc
}

// Save hands the current document to the persistence collaborator. A failed
// save keeps the edits and the dirty flag.
func (e *Editor) Save(ctx context.Context) error {
	if e.persist == nil {
		return errors.New("save: no persistence configured")
	}
	e.mu.Lock()
	doc := e.documentLocked()
	rev := e.revision
	e.mu.Unlock()
	if doc == nil {
		return execution.ErrNoWorkflow
	}

	logger := ctxlog.FromContext(ctx).With("workflow_id", doc.ID)
	saved, err := e.persist.SaveWorkflow(ctx, doc)
	if err != nil {
		logger.Error("Failed to save workflow.", "error", err)
		return fmt.Errorf("save workflow: %w", err)
	}

	e.mu.Lock()
	if saved != nil && saved.ID != "" {
		e.doc.ID = saved.ID
	}
	e.saved = rev
	e.mu.Unlock()
	logger.Info("Workflow saved.", "nodes", len(doc.Nodes), "edges", len(doc.Edges))
	return nil
}

// Run executes the current graph. Edits made since the last save are
// included.
func (e *Editor) Run(ctx context.Context, input map[string]any) (execution.Session, error) {
	if e.runner == nil {
		return execution.Session{}, errors.New("run: no runner configured")
	}
	doc := e.Document()
	if doc == nil {
		return execution.Session{Phase: execution.PhaseIdle}, execution.ErrNoWorkflow
	}
	ctx = ctxlog.With(ctx, "workflow_id", doc.ID)
	return e.runner.Run(ctx, doc, input)
}

func (e *Editor) logger(ctx context.Context) *slog.Logger {
	return ctxlog.FromContext(ctx).With("component", "editor")
}
