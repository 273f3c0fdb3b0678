package editor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/specialistvlad/apiflow/internal/selection"
	"github.com/specialistvlad/apiflow/internal/template"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

// AddNodeOfType drops a palette node at pos and selects it.
func (e *Editor) AddNodeOfType(t workflow.NodeType, pos workflow.Position) (string, error) {
	id := fmt.Sprintf("%s-%s", workflow.IDPrefix(t), e.ids())
	n, err := workflow.NewNode(t, id, pos)
	if err != nil {
		return "", err
	}
	if err := e.store.AddNode(n); err != nil {
		return "", err
	}
	e.sel.SelectNode(id)
	return id, nil
}

// Connect draws an edge between two node handles.
func (e *Editor) Connect(source, sourceHandle, target, targetHandle string) (workflow.Edge, error) {
	return e.store.AddEdge(workflow.Edge{
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	})
}

// UpdateNodeData merges partial into a node's configuration.
func (e *Editor) UpdateNodeData(id string, partial workflow.Data) error {
	return e.store.UpdateNodeData(id, partial)
}

// MoveNode places a node at pos.
func (e *Editor) MoveNode(id string, pos workflow.Position) error {
	return e.store.UpdateNodePosition(id, pos)
}

// DeleteSelection removes the selected edges and node.
func (e *Editor) DeleteSelection() error {
	return selection.Delete(e.store, e.sel)
}

// Copy places the selected node on the clipboard.
func (e *Editor) Copy() error {
	return selection.Copy(e.store, e.sel, e.clip)
}

// Cut copies the selected node and removes it.
func (e *Editor) Cut() error {
	return selection.Cut(e.store, e.sel, e.clip)
}

// Paste inserts the clipboard at target, given in graph coordinates.
func (e *Editor) Paste(target workflow.Position) ([]string, error) {
	return selection.Paste(e.store, e.clip, target, e.ids)
}

// Duplicate copies the selected node next to itself.
func (e *Editor) Duplicate() (string, error) {
	return selection.Duplicate(e.store, e.sel, e.ids)
}

// Undo restores the previous graph state.
func (e *Editor) Undo(ctx context.Context) (bool, error) {
	ok, err := e.history.Undo(ctx)
	e.sel.Prune(e.store)
	return ok, err
}

// Redo re-applies an undone change.
func (e *Editor) Redo(ctx context.Context) (bool, error) {
	ok, err := e.history.Redo(ctx)
	e.sel.Prune(e.store)
	return ok, err
}

// ValidateReferences checks every {{id.path}} reference in node data
// against the live node ids.
func (e *Editor) ValidateReferences() error {
	var errs []error
	for _, n := range e.store.Nodes() {
		for _, text := range collectStrings(n.Data, nil) {
			if err := template.Validate(text, e.store.HasNode); err != nil {
				errs = append(errs, fmt.Errorf("node %q: %w", n.ID, err))
				break
			}
		}
	}
	return errors.Join(errs...)
}

func collectStrings(v any, out []string) []string {
	switch t := v.(type) {
	case string:
		out = append(out, t)
	case workflow.Data:
		for _, k := range sortedKeys(t) {
			out = collectStrings(t[k], out)
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			out = collectStrings(t[k], out)
		}
	case map[string]string:
		for _, s := range t {
			out = append(out, s)
		}
	case []any:
		for _, x := range t {
			out = collectStrings(x, out)
		}
	case []string:
		out = append(out, t...)
	}
	return out
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	return slices.Sorted(maps.Keys(m))
}
