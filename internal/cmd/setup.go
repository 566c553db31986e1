package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/loomctl/loom/internal/config"
	"github.com/loomctl/loom/internal/logging"
	"github.com/loomctl/loom/internal/merge"
	"github.com/loomctl/loom/internal/orchestrator"
	"github.com/loomctl/loom/internal/worktree"
)

// buildOrchestrator assembles an orchestrator for the current directory from
// configuration and the given task->worktree mappings.
func buildOrchestrator(ctx context.Context, worktrees map[string]string) (*orchestrator.Orchestrator, *logging.Logger, error) {
	cfg := config.Get()

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	registry := worktree.NewRegistry()
	for taskID, path := range worktrees {
		registry.Register(taskID, path)
	}

	var resolver merge.Resolver
	if cfg.AI.Enabled {
		resolver, err = merge.NewGeminiResolver(ctx, cfg.AI.Model, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create AI resolver: %w", err)
		}
	}

	orch := orchestrator.New(orchestrator.Options{
		ProjectDir:   cwd,
		TargetBranch: cfg.Merge.TargetBranch,
		ReportsDir:   cfg.Merge.ReportsDir,
		DryRun:       cfg.Merge.DryRun,
		Registry:     registry,
		Resolver:     resolver,
		Logger:       logger,
	})
	return orch, logger, nil
}
