package merge

import "github.com/loomctl/loom/internal/conflict"

// Strategy merges one file deterministically. Implementations must never
// panic on malformed or empty baseline content: the degenerate case of zero
// applicable changes is a successful no-op, not an error.
type Strategy interface {
	// Name returns the strategy variant this implementation handles.
	Name() conflict.MergeStrategy

	// Execute merges the context's snapshots into the baseline. On success
	// the result's decision is DecisionAutoMerged and ConflictsResolved
	// echoes the context's conflict.
	Execute(mc *Context) *Result
}

// Registry maps each auto-merge strategy variant to its implementation.
type Registry map[conflict.MergeStrategy]Strategy

// NewRegistry builds the default registry covering every append strategy.
func NewRegistry() Registry {
	r := make(Registry)
	for _, s := range []Strategy{
		&AppendFunctions{},
		&AppendMethods{},
		&AppendStatements{},
	} {
		r[s.Name()] = s
	}
	return r
}

// autoMerged builds the shared success result for a strategy execution.
func autoMerged(mc *Context, content, explanation string) *Result {
	return &Result{
		Decision:          DecisionAutoMerged,
		FilePath:          mc.FilePath,
		MergedContent:     &content,
		ConflictsResolved: []conflict.Region{mc.Conflict},
		Explanation:       explanation,
	}
}
