// Package merge resolves a single file's concurrent task edits into one
// merged content. It contains the deterministic append strategies, the
// per-file decision pipeline, and the pluggable AI conflict resolver used as
// a last resort when edits overlap destructively.
package merge

import (
	"github.com/loomctl/loom/internal/change"
	"github.com/loomctl/loom/internal/conflict"
)

// Decision is the terminal outcome for one file in one merge attempt.
type Decision string

const (
	DecisionAutoMerged       Decision = "auto_merged"
	DecisionAIMerged         Decision = "ai_merged"
	DecisionDirectCopy       Decision = "direct_copy"
	DecisionNeedsHumanReview Decision = "needs_human_review"
	DecisionFailed           Decision = "failed"
)

// Context carries everything a strategy or resolver needs to merge one file.
// It is constructed once per file per merge attempt and discarded afterwards.
type Context struct {
	FilePath        string
	BaselineContent string
	TaskSnapshots   []change.TaskSnapshot
	Conflict        conflict.Region
}

// Result is the terminal record for one file in one merge attempt.
// MergedContent is nil when no content was produced (direct copies before the
// orchestrator reads the worktree, review escalations, failures).
type Result struct {
	Decision           Decision          `json:"decision"`
	FilePath           string            `json:"file_path"`
	MergedContent      *string           `json:"merged_content,omitempty"`
	ConflictsResolved  []conflict.Region `json:"conflicts_resolved"`
	ConflictsRemaining []conflict.Region `json:"conflicts_remaining"`
	AICallsMade        int               `json:"ai_calls_made"`
	TokensUsed         int               `json:"tokens_used"`
	Explanation        string            `json:"explanation,omitempty"`
	Error              string            `json:"error,omitempty"`
}

// Success reports whether the file merge produced a usable outcome.
// Every decision other than a failure counts as success, including review
// escalations: those are resolved, just not by this engine.
func (r *Result) Success() bool {
	return r.Decision != DecisionFailed
}
