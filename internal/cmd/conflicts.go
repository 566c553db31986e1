package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loomctl/loom/internal/conflict"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List pending conflicts across all active tasks",
	Long: `Conflicts lists every detected conflict region that cannot be merged
automatically. With --watch, registered worktrees are observed live and
collisions are reported as they happen, before any snapshots exist.`,
	RunE: runConflicts,
}

var (
	conflictsWorktrees []string
	conflictsJSON      bool
	conflictsWatch     bool
)

func init() {
	conflictsCmd.Flags().StringArrayVar(&conflictsWorktrees, "worktree", nil, "task=path worktree mapping (repeatable)")
	conflictsCmd.Flags().BoolVar(&conflictsJSON, "json", false, "Output conflicts as JSON")
	conflictsCmd.Flags().BoolVar(&conflictsWatch, "watch", false, "Watch worktrees and report collisions live")
	rootCmd.AddCommand(conflictsCmd)
}

func runConflicts(cmd *cobra.Command, args []string) error {
	worktrees, err := parseWorktreeFlags(conflictsWorktrees)
	if err != nil {
		return err
	}

	if conflictsWatch {
		return watchConflicts(worktrees)
	}

	orch, logger, err := buildOrchestrator(cmd.Context(), worktrees)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	// Populate snapshots before querying.
	if _, err := orch.PreviewMerge(taskIDs(worktrees)); err != nil {
		return err
	}

	pending := orch.PendingConflicts()

	if conflictsJSON {
		data, err := json.MarshalIndent(pending, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(pending) == 0 {
		fmt.Println(successStyle.Render("No pending conflicts"))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%d pending conflicts", len(pending))))
	for _, region := range pending {
		fmt.Printf("  %s %s at %s  tasks: %v\n",
			severityStyle(region.Severity).Render(fmt.Sprintf("[%s]", region.Severity)),
			region.FilePath, region.Location, region.TasksInvolved)
		fmt.Printf("      %s\n", dimStyle.Render(region.Reason))
	}
	return nil
}

func watchConflicts(worktrees map[string]string) error {
	watcher, err := conflict.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	watcher.SetConflictCallback(func(conflicts []conflict.LiveConflict) {
		for _, c := range conflicts {
			fmt.Printf("%s %s touched by %v\n",
				warnStyle.Render("[collision]"), c.RelativePath, c.Tasks)
		}
	})

	for taskID, path := range worktrees {
		if err := watcher.AddTask(taskID, path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	watcher.Start()
	fmt.Printf("Watching %d worktrees, press Ctrl-C to stop\n", len(worktrees))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

func taskIDs(worktrees map[string]string) []string {
	ids := make([]string, 0, len(worktrees))
	for id := range worktrees {
		ids = append(ids, id)
	}
	return ids
}
