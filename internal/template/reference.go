package template

import (
	"fmt"
	"regexp"
	"strings"
)

var referencePattern = regexp.MustCompile(`\{\{\s*([^{}.\s]+)((?:\.[^{}]*?)?)\s*\}\}`)

// Reference is a closed {{id.path}} span found in text.
type Reference struct {
	NodeID string
	Path   string
	Start  int
	End    int
}

// References returns every closed reference in text, in order.
func References(text string) []Reference {
	matches := referencePattern.FindAllStringSubmatchIndex(text, -1)
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, Reference{
			NodeID: text[m[2]:m[3]],
			Path:   strings.TrimPrefix(text[m[4]:m[5]], "."),
			Start:  m[0],
			End:    m[1],
		})
	}
	return refs
}

// UnknownReferenceError lists node ids referenced but not present.
type UnknownReferenceError struct {
	IDs []string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown node reference(s): %s", strings.Join(e.IDs, ", "))
}

// Validate checks every reference in text against exists.
func Validate(text string, exists func(id string) bool) error {
	var missing []string
	seen := map[string]bool{}
	for _, r := range References(text) {
		if exists(r.NodeID) || seen[r.NodeID] {
			continue
		}
		seen[r.NodeID] = true
		missing = append(missing, r.NodeID)
	}
	if len(missing) > 0 {
		return &UnknownReferenceError{IDs: missing}
	}
	return nil
}
