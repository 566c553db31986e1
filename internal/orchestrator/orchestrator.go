// Package orchestrator drives the semantic merge engine across one or many
// tasks: it asks the evolution tracker what changed, routes every file
// through the merge pipeline, aggregates statistics, persists reports, and
// optionally materializes merged content into the project tree.
//
// The orchestrator is synchronous and single-threaded per call. Concurrency
// lives outside it: many agent sessions run in parallel worktrees, and their
// edits are only reconciled when a merge call is invoked. ApplyToProject and
// WriteMergedFiles must be externally serialized per project tree.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/loomctl/loom/internal/change"
	"github.com/loomctl/loom/internal/conflict"
	"github.com/loomctl/loom/internal/evolution"
	"github.com/loomctl/loom/internal/logging"
	"github.com/loomctl/loom/internal/merge"
	"github.com/loomctl/loom/internal/worktree"
)

// TaskMergeRequest asks for one task's edits to be merged. Higher priority
// requests are processed first.
type TaskMergeRequest struct {
	TaskID       string `json:"task_id"`
	WorktreePath string `json:"worktree_path,omitempty"`
	Priority     int    `json:"priority"`
}

// Options configures an Orchestrator. Zero-value fields fall back to
// defaults: a git-backed tracker, a no-op AI resolver, a nop logger.
type Options struct {
	// ProjectDir is the live project tree ApplyToProject targets.
	ProjectDir string
	// TargetBranch is the branch baselines are read from.
	TargetBranch string
	// ReportsDir is where merge reports are persisted.
	ReportsDir string
	// DryRun disables report persistence and all file writes.
	DryRun bool

	// Registry maps task IDs to worktree roots. A fresh one is created when nil.
	Registry *worktree.Registry
	// Tracker overrides the evolution tracker. A GitTracker over Registry is
	// built when nil.
	Tracker evolution.Tracker
	// Resolver overrides the AI conflict resolver. NoopResolver when nil.
	Resolver merge.Resolver
	// Logger receives structured merge logs. Discarded when nil.
	Logger *logging.Logger
}

// Orchestrator is the top-level merge API. All collaborators are constructed
// eagerly in New and cached for the orchestrator's lifetime.
type Orchestrator struct {
	tracker  evolution.Tracker
	registry *worktree.Registry
	git      *worktree.Git
	detector *conflict.Detector
	pipeline *merge.Pipeline
	logger   *logging.Logger

	projectDir   string
	targetBranch string
	reportsDir   string
	dryRun       bool
}

// New creates an Orchestrator from options.
func New(opts Options) *Orchestrator {
	if opts.TargetBranch == "" {
		opts.TargetBranch = "main"
	}
	if opts.ReportsDir == "" {
		opts.ReportsDir = "reports"
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}
	if opts.Registry == nil {
		opts.Registry = worktree.NewRegistry()
	}

	git := worktree.NewGit(opts.ProjectDir)
	if opts.Tracker == nil {
		opts.Tracker = evolution.NewGitTracker(opts.Registry, git, opts.TargetBranch, opts.Logger)
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = merge.NoopResolver{}
	}

	logger := opts.Logger.WithComponent("orchestrator")

	return &Orchestrator{
		tracker:      opts.Tracker,
		registry:     opts.Registry,
		git:          git,
		detector:     conflict.NewDetector(),
		pipeline:     merge.NewPipeline(merge.NewRegistry(), resolver, opts.Logger.WithComponent("pipeline")),
		logger:       logger,
		projectDir:   opts.ProjectDir,
		targetBranch: opts.TargetBranch,
		reportsDir:   opts.ReportsDir,
		dryRun:       opts.DryRun,
	}
}

// RegisterWorktree records a task's worktree root for later lookups.
func (o *Orchestrator) RegisterWorktree(taskID, path string) {
	o.registry.Register(taskID, path)
}

// MergeTask merges every file one task modified. The worktree is resolved
// from the explicit argument, then the registry; when neither resolves, the
// whole report fails fast. Per-file failures stay localized and the batch
// continues.
func (o *Orchestrator) MergeTask(ctx context.Context, taskID, worktreePath string, progress ProgressFunc) *Report {
	report := newReport()
	defer o.finalize(report, taskID, progress)

	if worktreePath == "" {
		var err error
		worktreePath, err = o.registry.Lookup(taskID)
		if err != nil {
			report.fail(fmt.Errorf("Could not find worktree for task %s", taskID))
			return report
		}
	}

	emit(progress, StageAnalyzing, 5, fmt.Sprintf("Analyzing changes for task %s", taskID), nil)

	if err := o.tracker.RefreshFromGit(); err != nil {
		report.fail(err)
		return report
	}

	mods, err := o.tracker.TaskModifications(taskID)
	if err != nil {
		report.fail(err)
		return report
	}
	report.TasksMerged = []string{taskID}

	for i, mod := range mods {
		percent := 10 + (i*85)/max(len(mods), 1)
		emit(progress, StageResolving, percent, fmt.Sprintf("Resolving %s", mod.FilePath),
			map[string]any{"file": mod.FilePath})

		result := o.resolveFile(ctx, mod.FilePath, o.snapshotsFor(mod))
		if result.Decision == merge.DecisionDirectCopy {
			o.materializeDirectCopy(result, worktreePath, mod.FilePath)
		}

		updateStats(&report.Stats, result)
		report.FileResults[mod.FilePath] = result
	}

	return report
}

// MergeTasks merges a batch of tasks, highest priority first. Files modified
// by several requested tasks are reconciled once, from the union of their
// snapshots; direct copies are read from the touching task's worktree.
func (o *Orchestrator) MergeTasks(ctx context.Context, requests []TaskMergeRequest, progress ProgressFunc) *Report {
	report := newReport()
	defer o.finalize(report, "batch", progress)

	if len(requests) == 0 {
		return report
	}

	// Sort a copy; the caller's slice stays in its original order.
	requests = append([]TaskMergeRequest(nil), requests...)
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].Priority > requests[j].Priority
	})

	taskIDs := make([]string, 0, len(requests))
	worktreeByTask := make(map[string]string, len(requests))
	for _, req := range requests {
		taskIDs = append(taskIDs, req.TaskID)
		path := req.WorktreePath
		if path == "" {
			path, _ = o.registry.Lookup(req.TaskID)
		}
		worktreeByTask[req.TaskID] = path
	}
	report.TasksMerged = taskIDs

	emit(progress, StageAnalyzing, 5, fmt.Sprintf("Analyzing changes for %d tasks", len(taskIDs)), nil)

	if err := o.tracker.RefreshFromGit(); err != nil {
		report.fail(err)
		return report
	}

	byFile, err := o.tracker.FilesModifiedByTasks(taskIDs)
	if err != nil {
		report.fail(err)
		return report
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for i, file := range files {
		percent := 10 + (i*85)/len(files)
		emit(progress, StageResolving, percent, fmt.Sprintf("Resolving %s", file),
			map[string]any{"file": file})

		snapshots := o.requestedSnapshots(file, taskIDs)
		result := o.resolveFile(ctx, file, snapshots)

		if result.Decision == merge.DecisionDirectCopy {
			touching := byFile[file]
			path := ""
			if len(touching) > 0 {
				path = worktreeByTask[touching[0]]
			}
			o.materializeDirectCopy(result, path, file)
		}

		updateStats(&report.Stats, result)
		report.FileResults[file] = result
	}

	return report
}

// finalize stamps the report, persists it outside dry-run mode, and emits the
// terminal progress event. Panics anywhere in the run are recorded on the
// report instead of propagating.
func (o *Orchestrator) finalize(report *Report, label string, progress ProgressFunc) {
	if r := recover(); r != nil {
		report.fail(fmt.Errorf("merge run panicked: %v", r))
		o.logger.Error("merge run panicked", "label", label, "panic", fmt.Sprint(r))
	}

	report.CompletedAt = nowFunc()

	if !o.dryRun {
		if path, err := saveReport(report, o.reportsDir, label); err != nil {
			o.logger.Warn("failed to persist merge report", "error", err.Error())
		} else {
			o.logger.Info("merge report written", "path", path)
		}
	}

	emit(progress, StageComplete, 100,
		fmt.Sprintf("Merged %d files (%d auto, %d ai, %d review, %d failed)",
			report.Stats.FilesProcessed, report.Stats.FilesAutoMerged,
			report.Stats.FilesAIMerged, report.Stats.FilesNeedReview,
			report.Stats.FilesFailed),
		nil)
}

// snapshotsFor returns every snapshot touching the file, falling back to the
// task's own snapshot when the timeline is unavailable.
func (o *Orchestrator) snapshotsFor(mod evolution.FileModification) []change.TaskSnapshot {
	if tl, ok := o.tracker.FileEvolution(mod.FilePath); ok && len(tl.TaskSnapshots) > 0 {
		return tl.TaskSnapshots
	}
	return []change.TaskSnapshot{mod.Snapshot}
}

// requestedSnapshots reconstructs the file's snapshots limited to the
// requested tasks, in request order.
func (o *Orchestrator) requestedSnapshots(file string, taskIDs []string) []change.TaskSnapshot {
	tl, ok := o.tracker.FileEvolution(file)
	if !ok {
		return nil
	}
	var snapshots []change.TaskSnapshot
	for _, taskID := range taskIDs {
		if snap, ok := tl.TaskSnapshot(taskID); ok {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots
}

// resolveFile builds the baseline, classifies the conflict, and routes the
// file through the pipeline.
func (o *Orchestrator) resolveFile(ctx context.Context, filePath string, snapshots []change.TaskSnapshot) *merge.Result {
	baseline := o.baselineFor(filePath)

	regions := o.detector.Detect(filePath, snapshots)
	region := pickRegion(filePath, regions)

	result := o.pipeline.MergeFile(ctx, filePath, baseline, snapshots, region, o.targetBranch)

	o.logger.Debug("file resolved",
		"file", filePath,
		"decision", string(result.Decision),
		"strategy", string(region.MergeStrategy),
	)
	return result
}

// baselineFor builds baseline content via the fallback chain: tracker
// baseline, last committed content on the target branch, empty string for
// brand-new files.
func (o *Orchestrator) baselineFor(filePath string) string {
	if baseline := o.tracker.BaselineContent(filePath); baseline != nil {
		return *baseline
	}
	if committed, err := o.git.FileFromBranch(filePath, o.targetBranch); err == nil && committed != nil {
		return *committed
	}
	return ""
}

// pickRegion selects the region the pipeline acts on: the most severe one.
// No regions means a single-task file, left as the zero region so the
// pipeline resolves it as a direct copy.
func pickRegion(filePath string, regions []conflict.Region) conflict.Region {
	if len(regions) == 0 {
		return conflict.Region{FilePath: filePath}
	}
	best := regions[0]
	for _, r := range regions[1:] {
		if r.Severity > best.Severity {
			best = r
		}
	}
	return best
}

// materializeDirectCopy reads the file's bytes from the task worktree and
// sets them as the merged content. A missing worktree file downgrades the
// result to a failure.
func (o *Orchestrator) materializeDirectCopy(result *merge.Result, worktreePath, filePath string) {
	full := filepath.Join(worktreePath, filePath)
	data, err := os.ReadFile(full)
	if err != nil {
		result.Decision = merge.DecisionFailed
		result.MergedContent = nil
		result.Error = fmt.Sprintf("Worktree file not found: %s", full)
		return
	}

	content := decodeUTF8(data)
	result.MergedContent = &content
}

// decodeUTF8 decodes strictly, falling back to lossy replacement so binary
// garbage never aborts a merge.
func decodeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

// PendingConflicts is the cross-task query over all active tasks: every
// detected conflict that cannot be auto-merged. Files without evolution data
// are skipped, not errored.
func (o *Orchestrator) PendingConflicts() []conflict.Region {
	active := o.tracker.ActiveTasks()
	files := o.tracker.ConflictingFiles(active)

	var pending []conflict.Region
	for _, file := range files {
		tl, ok := o.tracker.FileEvolution(file)
		if !ok {
			continue
		}
		for _, region := range o.detector.Detect(file, tl.TaskSnapshots) {
			if region.CanAutoMerge {
				continue
			}
			pending = append(pending, region)
		}
	}
	return pending
}

// PreviewMerge reports what merging the given tasks would do. It never
// writes files or reports.
func (o *Orchestrator) PreviewMerge(taskIDs []string) (*PreviewSummary, error) {
	if err := o.tracker.RefreshFromGit(); err != nil {
		return nil, err
	}

	byFile, err := o.tracker.FilesModifiedByTasks(taskIDs)
	if err != nil {
		return nil, err
	}

	summary := &PreviewSummary{
		TaskIDs:         taskIDs,
		FilesToMerge:    make([]string, 0, len(byFile)),
		FilesInConflict: []string{},
		Conflicts:       []PreviewConflict{},
	}

	tasksWithChanges := make(map[string]struct{})

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		summary.FilesToMerge = append(summary.FilesToMerge, file)
		for _, taskID := range byFile[file] {
			tasksWithChanges[taskID] = struct{}{}
		}

		tl, ok := o.tracker.FileEvolution(file)
		if !ok {
			continue
		}

		regions := o.detector.Detect(file, tl.TaskSnapshots)
		if len(regions) == 0 {
			summary.AutoMergeable++
			continue
		}

		inConflict := false
		for _, region := range regions {
			if region.CanAutoMerge {
				summary.AutoMergeable++
			} else {
				summary.NeedsAIOrHuman++
				inConflict = true
			}
			summary.Conflicts = append(summary.Conflicts, PreviewConflict{
				FilePath:      region.FilePath,
				Location:      region.Location,
				Tasks:         region.TasksInvolved,
				Severity:      region.Severity,
				CanAutoMerge:  region.CanAutoMerge,
				MergeStrategy: region.MergeStrategy,
				Reason:        region.Reason,
			})
		}
		if inConflict {
			summary.FilesInConflict = append(summary.FilesInConflict, file)
		}
	}

	for taskID := range tasksWithChanges {
		summary.TasksWithChanges = append(summary.TasksWithChanges, taskID)
	}
	sort.Strings(summary.TasksWithChanges)

	return summary, nil
}

// WriteMergedFiles writes every result with merged content under outputDir,
// creating parent directories. Returns the paths written. In dry-run mode it
// writes nothing and returns an empty slice.
func (o *Orchestrator) WriteMergedFiles(report *Report, outputDir string) ([]string, error) {
	written := []string{}
	if o.dryRun {
		return written, nil
	}
	if outputDir == "" {
		outputDir = o.projectDir
	}

	files := make([]string, 0, len(report.FileResults))
	for file := range report.FileResults {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		result := report.FileResults[file]
		if result.MergedContent == nil {
			continue
		}

		target := filepath.Join(outputDir, file)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", file, err)
		}
		if err := os.WriteFile(target, []byte(*result.MergedContent), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", file, err)
		}
		written = append(written, target)
	}
	return written, nil
}

// ApplyToProject writes merged content into the live project tree,
// best-effort: individual write failures are logged and skipped, and the
// function keeps attempting remaining files. Returns false if any write
// failed. In dry-run mode nothing is written.
func (o *Orchestrator) ApplyToProject(report *Report) bool {
	if o.dryRun {
		o.logger.Info("dry run: skipping apply to project")
		return true
	}

	ok := true
	files := make([]string, 0, len(report.FileResults))
	for file := range report.FileResults {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		result := report.FileResults[file]
		if result.MergedContent == nil {
			continue
		}

		target := filepath.Join(o.projectDir, file)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			o.logger.Error("failed to create directory", "file", file, "error", err.Error())
			ok = false
			continue
		}
		if err := os.WriteFile(target, []byte(*result.MergedContent), 0644); err != nil {
			o.logger.Error("failed to apply merged file", "file", file, "error", err.Error())
			ok = false
			continue
		}
		o.logger.Info("applied merged file", "file", file)
	}
	return ok
}
