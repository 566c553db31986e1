// Package cmd wires the loom CLI: merge, preview, conflicts, and apply
// commands over the merge orchestrator.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loomctl/loom/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Semantic merge engine for parallel AI coding agents",
	Long: `Loom reconciles the edits of multiple concurrent coding tasks, each
isolated in its own git worktree, back into one codebase. It merges at the
level of semantic changes (named functions, methods, statements, imports)
rather than diff hunks, auto-merging additive edits and escalating
overlapping ones to an AI resolver or human review.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/loom/config.yaml)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "detect and resolve but write nothing")
	rootCmd.PersistentFlags().String("target-branch", "", "branch baselines are read from")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("merge.dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("merge.target_branch", rootCmd.PersistentFlags().Lookup("target-branch"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LOOM")
	// LOOM_MERGE_TARGET_BRANCH for merge.target_branch
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// parseWorktreeFlags turns repeated "task=path" flags into a map.
func parseWorktreeFlags(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		taskID, path, ok := strings.Cut(pair, "=")
		if !ok || taskID == "" || path == "" {
			return nil, fmt.Errorf("invalid --worktree value %q, expected task=path", pair)
		}
		out[taskID] = path
	}
	return out, nil
}
