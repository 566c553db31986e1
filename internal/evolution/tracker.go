// Package evolution tracks how files evolve across concurrent task
// worktrees. The Tracker interface is the merge engine's view of the
// change-tracking layer; GitTracker is a concrete implementation that
// reconstructs semantic changes by diffing each task's worktree against the
// target branch.
package evolution

import "github.com/loomctl/loom/internal/change"

// FileModification pairs a file path with one task's snapshot of it.
type FileModification struct {
	FilePath string
	Snapshot change.TaskSnapshot
}

// Timeline is the full evolution of one file: every task snapshot that
// touched it, in registration order.
type Timeline struct {
	FilePath      string
	TaskSnapshots []change.TaskSnapshot
}

// TaskSnapshot returns the snapshot recorded by the given task, if any.
func (t *Timeline) TaskSnapshot(taskID string) (change.TaskSnapshot, bool) {
	for _, s := range t.TaskSnapshots {
		if s.TaskID == taskID {
			return s, true
		}
	}
	return change.TaskSnapshot{}, false
}

// Tracker is the evolution-tracking boundary consumed by the orchestrator.
// Implementations own all snapshot state; the merge engine borrows references
// and never mutates them.
type Tracker interface {
	// RefreshFromGit rebuilds snapshot state from the current worktrees.
	RefreshFromGit() error

	// TaskModifications returns every file the task touched with its snapshot.
	TaskModifications(taskID string) ([]FileModification, error)

	// FilesModifiedByTasks maps each touched file to the subset of taskIDs
	// that modified it.
	FilesModifiedByTasks(taskIDs []string) (map[string][]string, error)

	// BaselineContent returns the file's content before any task began, or
	// nil when unknown.
	BaselineContent(filePath string) *string

	// FileEvolution returns the file's timeline; ok is false when the file
	// has no evolution data.
	FileEvolution(filePath string) (*Timeline, bool)

	// ConflictingFiles returns files modified by more than one of taskIDs.
	ConflictingFiles(taskIDs []string) []string

	// ActiveTasks returns every task currently tracked.
	ActiveTasks() []string
}
