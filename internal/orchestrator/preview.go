package orchestrator

import "github.com/loomctl/loom/internal/conflict"

// PreviewSummary is the read-only answer to "what would merging these tasks
// do". It is a plain serializable struct; JSON rendering happens only at the
// CLI boundary.
type PreviewSummary struct {
	TaskIDs          []string          `json:"task_ids"`
	FilesToMerge     []string          `json:"files_to_merge"`
	FilesInConflict  []string          `json:"files_in_conflict"`
	Conflicts        []PreviewConflict `json:"conflicts"`
	AutoMergeable    int               `json:"auto_mergeable"`
	NeedsAIOrHuman   int               `json:"needs_ai_or_human"`
	TasksWithChanges []string          `json:"tasks_with_changes"`
}

// PreviewConflict is one detected conflict region plus the strategy that
// would resolve it.
type PreviewConflict struct {
	FilePath      string                 `json:"file_path"`
	Location      string                 `json:"location"`
	Tasks         []string               `json:"tasks"`
	Severity      conflict.Severity      `json:"severity"`
	CanAutoMerge  bool                   `json:"can_auto_merge"`
	MergeStrategy conflict.MergeStrategy `json:"merge_strategy,omitempty"`
	Reason        string                 `json:"reason"`
}
