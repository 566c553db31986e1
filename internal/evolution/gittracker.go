package evolution

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/loomctl/loom/internal/change"
	"github.com/loomctl/loom/internal/logging"
	"github.com/loomctl/loom/internal/worktree"
)

// Compile-time check that GitTracker implements Tracker.
var _ Tracker = (*GitTracker)(nil)

// GitTracker reconstructs semantic-change snapshots by diffing each
// registered task worktree against the target branch. Snapshot state is
// rebuilt wholesale on RefreshFromGit; reads are served from the cached
// state. Safe for concurrent use.
type GitTracker struct {
	registry     *worktree.Registry
	git          *worktree.Git
	targetBranch string
	logger       *logging.Logger

	mu        sync.RWMutex
	baselines map[string]*string   // file -> content on target branch, nil entry = new file
	timelines map[string]*Timeline // file -> snapshots in task registration order
	taskFiles map[string][]string  // task -> files it modified
}

// NewGitTracker creates a tracker over the given registry and git plumbing.
func NewGitTracker(registry *worktree.Registry, git *worktree.Git, targetBranch string, logger *logging.Logger) *GitTracker {
	return &GitTracker{
		registry:     registry,
		git:          git,
		targetBranch: targetBranch,
		logger:       logger.WithComponent("tracker"),
		baselines:    make(map[string]*string),
		timelines:    make(map[string]*Timeline),
		taskFiles:    make(map[string][]string),
	}
}

// RefreshFromGit rebuilds all snapshot state from the current worktrees.
func (t *GitTracker) RefreshFromGit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.baselines = make(map[string]*string)
	t.timelines = make(map[string]*Timeline)
	t.taskFiles = make(map[string][]string)

	taskIDs := t.registry.TaskIDs()
	sort.Strings(taskIDs)

	for _, taskID := range taskIDs {
		worktreePath, err := t.registry.Lookup(taskID)
		if err != nil {
			continue
		}

		files, err := t.git.ChangedFiles(worktreePath, t.targetBranch)
		if err != nil {
			return err
		}

		for _, file := range files {
			if _, ok := t.baselines[file]; !ok {
				baseline, err := t.git.FileFromBranch(file, t.targetBranch)
				if err != nil {
					t.logger.Warn("failed to read baseline", "file", file, "error", err.Error())
				}
				t.baselines[file] = baseline
			}

			diff, err := t.git.Diff(worktreePath, t.targetBranch, file)
			if err != nil {
				return err
			}

			snapshot := change.TaskSnapshot{
				TaskID:    taskID,
				StartedAt: time.Now(),
				Changes:   parseDiff(diff),
			}

			tl, ok := t.timelines[file]
			if !ok {
				tl = &Timeline{FilePath: file}
				t.timelines[file] = tl
			}
			tl.TaskSnapshots = append(tl.TaskSnapshots, snapshot)
			t.taskFiles[taskID] = append(t.taskFiles[taskID], file)
		}

		t.logger.Debug("refreshed task snapshots", "task_id", taskID, "files", len(files))
	}

	return nil
}

// TaskModifications returns every file the task touched with its snapshot.
func (t *GitTracker) TaskModifications(taskID string) ([]FileModification, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var mods []FileModification
	for _, file := range t.taskFiles[taskID] {
		tl, ok := t.timelines[file]
		if !ok {
			continue
		}
		snap, ok := tl.TaskSnapshot(taskID)
		if !ok {
			continue
		}
		mods = append(mods, FileModification{FilePath: file, Snapshot: snap})
	}
	return mods, nil
}

// FilesModifiedByTasks maps each touched file to the subset of taskIDs that
// modified it.
func (t *GitTracker) FilesModifiedByTasks(taskIDs []string) (map[string][]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]string)
	for _, taskID := range taskIDs {
		for _, file := range t.taskFiles[taskID] {
			out[file] = append(out[file], taskID)
		}
	}
	return out, nil
}

// BaselineContent returns the file's content on the target branch, or nil
// when the file is new or untracked.
func (t *GitTracker) BaselineContent(filePath string) *string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.baselines[filePath]
}

// FileEvolution returns the file's timeline.
func (t *GitTracker) FileEvolution(filePath string) (*Timeline, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tl, ok := t.timelines[filePath]
	return tl, ok
}

// ConflictingFiles returns files modified by more than one of taskIDs.
func (t *GitTracker) ConflictingFiles(taskIDs []string) []string {
	byFile, _ := t.FilesModifiedByTasks(taskIDs)

	var files []string
	for file, tasks := range byFile {
		if len(tasks) > 1 {
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files
}

// ActiveTasks returns every task with recorded modifications.
func (t *GitTracker) ActiveTasks() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.taskFiles))
	for id := range t.taskFiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// hunkHeaderRe captures the new-file start line from "@@ -a,b +c,d @@".
var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)`)

type hunk struct {
	newStart int
	added    []string
	removed  []string
}

// parseDiff converts a unified diff into semantic changes, one or more per
// hunk. Pure additions are split into blank-line-separated blocks so each
// declaration classifies independently; mixed hunks become modifications,
// pure deletions become removals.
func parseDiff(diff string) []change.SemanticChange {
	var changes []change.SemanticChange
	for _, h := range splitHunks(diff) {
		changes = append(changes, classifyHunk(h)...)
	}
	return changes
}

func splitHunks(diff string) []hunk {
	var hunks []hunk
	var current *hunk

	for _, line := range strings.Split(diff, "\n") {
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			start, _ := strconv.Atoi(m[1])
			hunks = append(hunks, hunk{newStart: start})
			current = &hunks[len(hunks)-1]
			continue
		}
		if current == nil {
			continue // file headers before the first hunk
		}
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			current.added = append(current.added, line[1:])
		case strings.HasPrefix(line, "-"):
			current.removed = append(current.removed, line[1:])
		}
	}
	return hunks
}

func classifyHunk(h hunk) []change.SemanticChange {
	switch {
	case len(h.added) > 0 && len(h.removed) > 0:
		before := strings.Join(h.removed, "\n")
		after := strings.Join(h.added, "\n")
		changeType, target := classifyModification(before, after)
		return []change.SemanticChange{{
			ChangeType:    changeType,
			Target:        target,
			Location:      locationFor(changeType, target),
			LineStart:     h.newStart,
			LineEnd:       h.newStart + len(h.added) - 1,
			ContentBefore: change.Str(before),
			ContentAfter:  change.Str(after),
		}}

	case len(h.added) > 0:
		var changes []change.SemanticChange
		lineNo := h.newStart
		for _, block := range splitBlocks(h.added) {
			content := strings.Join(block, "\n")
			if strings.TrimSpace(content) == "" {
				lineNo += len(block) + 1
				continue
			}
			changeType, target := classifyAddition(content)
			changes = append(changes, change.SemanticChange{
				ChangeType:   changeType,
				Target:       target,
				Location:     locationFor(changeType, target),
				LineStart:    lineNo,
				LineEnd:      lineNo + len(block) - 1,
				ContentAfter: change.Str(content),
			})
			lineNo += len(block) + 1
		}
		return changes

	case len(h.removed) > 0:
		before := strings.Join(h.removed, "\n")
		changeType, target := classifyRemoval(before)
		return []change.SemanticChange{{
			ChangeType:    changeType,
			Target:        target,
			Location:      locationFor(changeType, target),
			LineStart:     h.newStart,
			LineEnd:       h.newStart,
			ContentBefore: change.Str(before),
		}}
	}
	return nil
}

// splitBlocks groups added lines into blank-line-separated blocks.
func splitBlocks(lines []string) [][]string {
	var blocks [][]string
	var current []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func locationFor(t change.Type, target string) string {
	if (t == change.AddMethod || t == change.ModifyMethod) && strings.Contains(target, ".") {
		return change.ClassLocation(strings.SplitN(target, ".", 2)[0])
	}
	return change.LocationFileTop
}
