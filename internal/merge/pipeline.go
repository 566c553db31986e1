package merge

import (
	"context"
	"fmt"

	"github.com/loomctl/loom/internal/change"
	"github.com/loomctl/loom/internal/conflict"
	"github.com/loomctl/loom/internal/logging"
)

// Pipeline routes one file to its resolution: a direct copy, a deterministic
// append strategy, or the AI resolver. It contains every strategy-internal
// failure so callers always receive a structured result, never a panic.
type Pipeline struct {
	registry Registry
	resolver Resolver
	logger   *logging.Logger
}

// NewPipeline creates a pipeline over the given strategy registry and
// resolver. The resolver must not be nil; pass NoopResolver when AI
// resolution is disabled.
func NewPipeline(registry Registry, resolver Resolver, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		registry: registry,
		resolver: resolver,
		logger:   logger,
	}
}

// MergeFile resolves one file according to its conflict's recommended
// strategy. targetBranch is informational for resolvers that want to name the
// merge destination in their reasoning.
func (p *Pipeline) MergeFile(ctx context.Context, filePath, baselineContent string, snapshots []change.TaskSnapshot, region conflict.Region, targetBranch string) (result *Result) {
	mc := &Context{
		FilePath:        filePath,
		BaselineContent: baselineContent,
		TaskSnapshots:   snapshots,
		Conflict:        region,
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("merge strategy panicked",
				"file", filePath,
				"strategy", string(region.MergeStrategy),
				"panic", fmt.Sprint(r),
			)
			result = &Result{
				Decision: DecisionFailed,
				FilePath: filePath,
				Error:    fmt.Sprintf("merge strategy panic: %v", r),
			}
		}
	}()

	switch region.MergeStrategy {
	case conflict.StrategyUnset, conflict.StrategyDirectCopy:
		// Single-task file: content is read from the worktree by the caller.
		return &Result{
			Decision:    DecisionDirectCopy,
			FilePath:    filePath,
			Explanation: "single task touched this file",
		}

	case conflict.StrategyAppendFunctions,
		conflict.StrategyAppendMethods,
		conflict.StrategyAppendStatements:
		strategy, ok := p.registry[region.MergeStrategy]
		if !ok {
			return &Result{
				Decision: DecisionFailed,
				FilePath: filePath,
				Error:    fmt.Sprintf("no strategy registered for %q", region.MergeStrategy),
			}
		}
		return strategy.Execute(mc)

	case conflict.StrategyAIRequired:
		return p.resolveWithAI(ctx, mc)

	default:
		return &Result{
			Decision: DecisionFailed,
			FilePath: filePath,
			Error:    fmt.Sprintf("unknown merge strategy %q", region.MergeStrategy),
		}
	}
}

func (p *Pipeline) resolveWithAI(ctx context.Context, mc *Context) *Result {
	result, err := p.resolver.Resolve(ctx, mc)
	if err != nil {
		p.logger.Error("AI resolution failed",
			"file", mc.FilePath,
			"error", err.Error(),
		)
		failed := &Result{
			Decision:           DecisionFailed,
			FilePath:           mc.FilePath,
			ConflictsRemaining: []conflict.Region{mc.Conflict},
			Error:              err.Error(),
		}
		if result != nil {
			failed.AICallsMade = result.AICallsMade
			failed.TokensUsed = result.TokensUsed
		}
		return failed
	}
	return result
}
