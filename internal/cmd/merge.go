package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/loomctl/loom/internal/orchestrator"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <task-id> [task-id...]",
	Short: "Merge one or more tasks' edits back into the codebase",
	Long: `Merge reconciles each task's semantic changes against the target branch.
Files touched by a single task are copied directly; additive overlaps are
merged deterministically; destructive overlaps go to the AI resolver or are
flagged for human review.

Worktrees are given as repeated --worktree task=path flags. Earlier task
arguments are merged with higher priority.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

var (
	mergeWorktrees []string // task=path pairs
	mergeJSON      bool     // output the report as JSON
	mergeApply     bool     // apply merged content to the project tree
	mergeOutput    string   // write merged content under this directory
)

func init() {
	mergeCmd.Flags().StringArrayVar(&mergeWorktrees, "worktree", nil, "task=path worktree mapping (repeatable)")
	mergeCmd.Flags().BoolVar(&mergeJSON, "json", false, "Output the merge report as JSON")
	mergeCmd.Flags().BoolVar(&mergeApply, "apply", false, "Apply merged content to the project tree")
	mergeCmd.Flags().StringVar(&mergeOutput, "output", "", "Write merged files under this directory instead of applying")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	worktrees, err := parseWorktreeFlags(mergeWorktrees)
	if err != nil {
		return err
	}

	orch, logger, err := buildOrchestrator(cmd.Context(), worktrees)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	progress := func(stage orchestrator.Stage, percent int, message string, _ map[string]any) {
		if !mergeJSON {
			fmt.Printf("%s [%3d%%] %s\n", dimStyle.Render(string(stage)), percent, message)
		}
	}

	var report *orchestrator.Report
	if len(args) == 1 {
		report = orch.MergeTask(cmd.Context(), args[0], worktrees[args[0]], progress)
	} else {
		requests := make([]orchestrator.TaskMergeRequest, 0, len(args))
		for i, taskID := range args {
			requests = append(requests, orchestrator.TaskMergeRequest{
				TaskID:       taskID,
				WorktreePath: worktrees[taskID],
				Priority:     len(args) - i,
			})
		}
		report = orch.MergeTasks(cmd.Context(), requests, progress)
	}

	if mergeJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		printReport(report)
	}

	if report.Success && mergeOutput != "" {
		written, err := orch.WriteMergedFiles(report, mergeOutput)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d merged files under %s\n", len(written), mergeOutput)
	}
	if report.Success && mergeApply {
		if !orch.ApplyToProject(report) {
			return fmt.Errorf("some merged files could not be applied")
		}
	}

	if !report.Success {
		os.Exit(1)
	}
	return nil
}

func printReport(report *orchestrator.Report) {
	fmt.Println()
	fmt.Println(headerStyle.Render("Merge report"))

	if !report.Success {
		fmt.Printf("%s %s\n", errorStyle.Render("failed:"), report.Error)
		return
	}

	files := make([]string, 0, len(report.FileResults))
	for file := range report.FileResults {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		result := report.FileResults[file]
		label := decisionStyle(result.Decision).Render(string(result.Decision))
		fmt.Printf("  %-60s %s", file, label)
		if result.Explanation != "" {
			fmt.Printf("  %s", dimStyle.Render(result.Explanation))
		}
		if result.Error != "" {
			fmt.Printf("  %s", errorStyle.Render(result.Error))
		}
		fmt.Println()
	}

	s := report.Stats
	fmt.Println()
	fmt.Printf("%d files: %d auto, %d ai, %d review, %d failed",
		s.FilesProcessed, s.FilesAutoMerged, s.FilesAIMerged, s.FilesNeedReview, s.FilesFailed)
	if s.AICallsMade > 0 {
		fmt.Printf("  (%d AI calls, ~%d tokens)", s.AICallsMade, s.EstimatedTokensUsed)
	}
	fmt.Println()
}
