// Package change defines the semantic-change data model shared by the
// conflict detector, merge strategies, and orchestrator. A SemanticChange is a
// typed, named code edit ("added function foo") rather than a line-level diff
// hunk. Changes are produced by an evolution tracker and consumed read-only
// here; nothing in this package mutates them after construction.
package change

import (
	"strings"
	"time"
)

// Type identifies the kind of semantic change a task made to a file.
type Type string

const (
	AddFunction   Type = "add_function"
	AddMethod     Type = "add_method"
	AddVariable   Type = "add_variable"
	AddConstant   Type = "add_constant"
	AddImport     Type = "add_import"
	AddClass      Type = "add_class"
	AddProperty   Type = "add_property"
	AddType       Type = "add_type"
	AddInterface  Type = "add_interface"
	AddDecorator  Type = "add_decorator"
	AddJSXElement Type = "add_jsx_element"
	AddComment    Type = "add_comment"
	AddHookCall   Type = "add_hook_call"

	ModifyFunction Type = "modify_function"
	ModifyMethod   Type = "modify_method"
	ModifyVariable Type = "modify_variable"
	ModifyClass    Type = "modify_class"

	RemoveFunction Type = "remove_function"
	RemoveVariable Type = "remove_variable"
	RemoveImport   Type = "remove_import"
)

// IsAdditive reports whether the change only introduces new code.
func (t Type) IsAdditive() bool {
	return strings.HasPrefix(string(t), "add_")
}

// IsModify reports whether the change alters existing code.
func (t Type) IsModify() bool {
	return strings.HasPrefix(string(t), "modify_")
}

// IsRemove reports whether the change deletes existing code.
func (t Type) IsRemove() bool {
	return strings.HasPrefix(string(t), "remove_")
}

// LocationFileTop is the location for changes made at the top level of a file
// (imports, module-scope declarations).
const LocationFileTop = "file_top"

// ClassLocation returns the location string for changes scoped to a class body.
func ClassLocation(className string) string {
	return "class:" + className
}

// SemanticChange describes one typed edit to one file by one task.
// ContentBefore and ContentAfter are nil when the change has no corresponding
// old or new text (pure additions have no before; removals have no after).
type SemanticChange struct {
	ChangeType    Type    `json:"change_type"`
	Target        string  `json:"target"` // symbol name, may embed "Class.method"
	Location      string  `json:"location"`
	LineStart     int     `json:"line_start"`
	LineEnd       int     `json:"line_end"`
	ContentBefore *string `json:"content_before,omitempty"`
	ContentAfter  *string `json:"content_after,omitempty"`
}

// ClassName returns the class portion of a "Class.method" target, or "" when
// the target does not name a class member.
func (c SemanticChange) ClassName() string {
	if i := strings.Index(c.Target, "."); i > 0 {
		return c.Target[:i]
	}
	return ""
}

// TaskSnapshot is one task's ordered semantic changes to one file, as recorded
// by the evolution tracker. The merge engine borrows snapshots and never
// mutates them.
type TaskSnapshot struct {
	TaskID     string           `json:"task_id"`
	TaskIntent string           `json:"task_intent"`
	StartedAt  time.Time        `json:"started_at"`
	Changes    []SemanticChange `json:"changes"`
}

// ChangesOfType returns the snapshot's changes matching t, in recorded order.
func (s TaskSnapshot) ChangesOfType(t Type) []SemanticChange {
	var out []SemanticChange
	for _, c := range s.Changes {
		if c.ChangeType == t {
			out = append(out, c)
		}
	}
	return out
}

// Str returns a pointer to s, for building SemanticChange literals.
func Str(s string) *string { return &s }
