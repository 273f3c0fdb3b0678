package editor

import (
	"context"
	"errors"
	"strings"

	"github.com/specialistvlad/apiflow/internal/selection"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

// Action is an editor command bound to a key chord.
type Action int

const (
	ActionNone Action = iota
	ActionDelete
	ActionCopy
	ActionCut
	ActionPaste
	ActionDuplicate
	ActionUndo
	ActionRedo
)

func (a Action) String() string {
	switch a {
	case ActionDelete:
		return "delete"
	case ActionCopy:
		return "copy"
	case ActionCut:
		return "cut"
	case ActionPaste:
		return "paste"
	case ActionDuplicate:
		return "duplicate"
	case ActionUndo:
		return "undo"
	case ActionRedo:
		return "redo"
	default:
		return "none"
	}
}

// Key is one key press. Ctrl and Meta are interchangeable.
type Key struct {
	Name        string
	Ctrl        bool
	Meta        bool
	Shift       bool
	InTextField bool
}

// Shortcut documents one binding.
type Shortcut struct {
	Keys   string
	Action Action
}

// Shortcuts lists the bindings in display order.
func Shortcuts() []Shortcut {
	return []Shortcut{
		{"Delete / Backspace", ActionDelete},
		{"Ctrl/Cmd+C", ActionCopy},
		{"Ctrl/Cmd+X", ActionCut},
		{"Ctrl/Cmd+V", ActionPaste},
		{"Ctrl/Cmd+D", ActionDuplicate},
		{"Ctrl/Cmd+Z", ActionUndo},
		{"Ctrl/Cmd+Y", ActionRedo},
		{"Ctrl/Cmd+Shift+Z", ActionRedo},
	}
}

// Resolve maps a key press to an action. Presses inside a text field never
// resolve.
func Resolve(k Key) Action {
	if k.InTextField {
		return ActionNone
	}
	name := strings.ToLower(k.Name)
	mod := k.Ctrl || k.Meta
	if !mod {
		if name == "delete" || name == "backspace" {
			return ActionDelete
		}
		return ActionNone
	}
	switch name {
	case "c":
		return ActionCopy
	case "x":
		return ActionCut
	case "v":
		return ActionPaste
	case "d":
		return ActionDuplicate
	case "y":
		return ActionRedo
	case "z":
		if k.Shift {
			return ActionRedo
		}
		return ActionUndo
	}
	return ActionNone
}

// HandleKey performs the action bound to k. viewport is the paste target in
// graph coordinates.
func (e *Editor) HandleKey(ctx context.Context, k Key, viewport workflow.Position) (Action, error) {
	action := Resolve(k)
	var err error
	switch action {
	case ActionNone:
		return action, nil
	case ActionDelete:
		err = e.DeleteSelection()
	case ActionCopy:
		err = e.Copy()
	case ActionCut:
		err = e.Cut()
	case ActionPaste:
		_, err = e.Paste(viewport)
	case ActionDuplicate:
		_, err = e.Duplicate()
	case ActionUndo:
		_, err = e.Undo(ctx)
	case ActionRedo:
		_, err = e.Redo(ctx)
	}
	if errors.Is(err, selection.ErrNothingSelected) {
		return action, nil
	}
	if err != nil {
		e.logger(ctx).Debug("Shortcut failed.", "action", action, "error", err)
	}
	return action, err
}
