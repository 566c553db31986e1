package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomctl/loom/internal/config"
	"github.com/loomctl/loom/internal/orchestrator"
)

var applyCmd = &cobra.Command{
	Use:   "apply <report.json>",
	Short: "Apply a persisted merge report's content to the project tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	report, err := orchestrator.LoadReport(args[0])
	if err != nil {
		return err
	}

	orch, logger, err := buildOrchestrator(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	if !orch.ApplyToProject(report) {
		return fmt.Errorf("some merged files could not be applied")
	}

	fmt.Println(applySummary(report, config.Get().Merge.DryRun))
	return nil
}

// applySummary reports what ApplyToProject did with the report's merged
// content. Under merge.dry_run the orchestrator writes nothing, so the
// summary must say so instead of claiming files were applied.
func applySummary(report *orchestrator.Report, dryRun bool) string {
	applied := 0
	for _, result := range report.FileResults {
		if result.MergedContent != nil {
			applied++
		}
	}
	if dryRun {
		return fmt.Sprintf("%s %d files would be applied, nothing written", warnStyle.Render("dry run:"), applied)
	}
	return fmt.Sprintf("%s %d files applied", successStyle.Render("done:"), applied)
}
