package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <task-id> [task-id...]",
	Short: "Show what merging the given tasks would do, without writing anything",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPreview,
}

var (
	previewWorktrees []string
	previewJSON      bool
)

func init() {
	previewCmd.Flags().StringArrayVar(&previewWorktrees, "worktree", nil, "task=path worktree mapping (repeatable)")
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "Output the preview as JSON")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	worktrees, err := parseWorktreeFlags(previewWorktrees)
	if err != nil {
		return err
	}

	orch, logger, err := buildOrchestrator(cmd.Context(), worktrees)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	summary, err := orch.PreviewMerge(args)
	if err != nil {
		return err
	}

	if previewJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(headerStyle.Render("Merge preview"))
	fmt.Printf("Files to merge: %d  (auto-mergeable %s, needs AI/human %s)\n",
		len(summary.FilesToMerge),
		successStyle.Render(fmt.Sprint(summary.AutoMergeable)),
		warnStyle.Render(fmt.Sprint(summary.NeedsAIOrHuman)),
	)

	if len(summary.Conflicts) == 0 {
		fmt.Println(successStyle.Render("No conflicts detected"))
		return nil
	}

	fmt.Println()
	for _, c := range summary.Conflicts {
		fmt.Printf("  %s %s at %s\n",
			severityStyle(c.Severity).Render(fmt.Sprintf("[%s]", c.Severity)),
			c.FilePath, c.Location)
		fmt.Printf("      tasks: %v", c.Tasks)
		if c.MergeStrategy != "" {
			fmt.Printf("  strategy: %s", accentStyle.Render(string(c.MergeStrategy)))
		}
		fmt.Printf("\n      %s\n", dimStyle.Render(c.Reason))
	}
	return nil
}
