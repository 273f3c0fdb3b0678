// Package template assists authoring of {{nodeId.result.path}} references
// inside free-text node fields. It never evaluates a template; resolution
// happens in the execution engine.
package template

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/apiflow/internal/workflow"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
	resultPath = ".result."
)

// Suggestion is one completion candidate.
type Suggestion struct {
	ID    string
	Label string
}

// Field is the editing state of one text input with completion support.
// Caret is a byte offset into Text.
type Field struct {
	text        string
	caret       int
	open        bool
	bracket     int
	query       string
	suggestions []Suggestion
}

// NewField returns a field holding text with the caret at the end.
func NewField(text string) *Field {
	return &Field{text: text, caret: len(text)}
}

// Text returns the current field value.
func (f *Field) Text() string { return f.text }

// Caret returns the caret offset.
func (f *Field) Caret() int { return f.caret }

// Open reports whether the completion popup is showing.
func (f *Field) Open() bool { return f.open }

// Query returns the text typed after the unterminated {{.
func (f *Field) Query() string { return f.query }

// Suggestions returns the current completion candidates.
func (f *Field) Suggestions() []Suggestion {
	out := make([]Suggestion, len(f.suggestions))
	copy(out, f.suggestions)
	return out
}

// Change records an edit and recomputes completions against nodes.
func (f *Field) Change(text string, caret int, nodes []workflow.Node) {
	f.text = text
	f.caret = clamp(caret, len(text))

	before := text[:f.caret]
	i := strings.LastIndex(before, openDelim)
	if i < 0 || strings.Contains(before[i+len(openDelim):], closeDelim) {
		f.Close()
		return
	}
	f.open = true
	f.bracket = i
	f.query = before[i+len(openDelim):]
	f.suggestions = Suggest(f.query, nodes)
}

// Select inserts the reference for nodeID at the open {{ and moves the caret
// after ".result.". It reports false when no popup is open.
func (f *Field) Select(nodeID string) bool {
	if !f.open {
		return false
	}
	f.text, f.caret = Insert(f.text, f.bracket, f.caret, nodeID)
	f.Close()
	return true
}

// Close hides the popup. The text is left untouched.
func (f *Field) Close() {
	f.open = false
	f.bracket = 0
	f.query = ""
	f.suggestions = nil
}

// Suggest filters nodes whose id contains query, ignoring case. An empty
// query matches every node.
func Suggest(query string, nodes []workflow.Node) []Suggestion {
	q := strings.ToLower(query)
	out := make([]Suggestion, 0, len(nodes))
	for _, n := range nodes {
		if q != "" && !strings.Contains(strings.ToLower(n.ID), q) {
			continue
		}
		out = append(out, Suggestion{ID: n.ID, Label: suggestionLabel(n)})
	}
	return out
}

func suggestionLabel(n workflow.Node) string {
	name := n.Data.String(workflow.KeyLabel)
	if name == "" {
		name = string(n.Type)
	}
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s (%s)", n.ID, name)
}

// Insert replaces text[bracket:caret] with {{nodeID.result.}} and returns the
// new text and caret.
func Insert(text string, bracket, caret int, nodeID string) (string, int) {
	caret = clamp(caret, len(text))
	bracket = clamp(bracket, caret)
	head := text[:bracket] + openDelim + nodeID + resultPath
	return head + closeDelim + text[caret:], len(head)
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
