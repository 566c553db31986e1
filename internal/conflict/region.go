// Package conflict classifies the overlap between concurrent task edits to a
// file. The Detector works from semantic-change snapshots recorded per task;
// the Watcher provides a live filesystem-level view across registered
// worktrees so conflicts surface before a merge is attempted.
package conflict

import "github.com/loomctl/loom/internal/change"

// Severity grades how risky a conflict region is to merge automatically.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so severities serialize as
// their names in JSON reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MergeStrategy is the recommended way to resolve a file's conflicts.
type MergeStrategy string

const (
	// StrategyUnset means no recommendation has been made. Single-task files
	// never reach the detector and resolve as a direct copy.
	StrategyUnset MergeStrategy = ""
	// StrategyDirectCopy copies the single touching task's file verbatim.
	StrategyDirectCopy MergeStrategy = "direct_copy"
	// StrategyAppendFunctions appends newly added functions to the baseline.
	StrategyAppendFunctions MergeStrategy = "append_functions"
	// StrategyAppendMethods inserts newly added methods into their classes.
	StrategyAppendMethods MergeStrategy = "append_methods"
	// StrategyAppendStatements appends additive statements at end of file.
	StrategyAppendStatements MergeStrategy = "append_statements"
	// StrategyAIRequired escalates to the AI conflict resolver.
	StrategyAIRequired MergeStrategy = "ai_required"
)

// Region is one location in a file touched by more than one task, with a
// computed severity and a recommended strategy. Regions are produced fresh on
// every detection call and are never persisted standalone.
type Region struct {
	FilePath      string        `json:"file_path"`
	Location      string        `json:"location"`
	TasksInvolved []string      `json:"tasks_involved"`
	ChangeTypes   []change.Type `json:"change_types"`
	Severity      Severity      `json:"severity"`
	CanAutoMerge  bool          `json:"can_auto_merge"`
	MergeStrategy MergeStrategy `json:"merge_strategy,omitempty"`
	Reason        string        `json:"reason"`
}
