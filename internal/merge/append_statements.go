package merge

import (
	"fmt"
	"strings"

	"github.com/loomctl/loom/internal/conflict"
)

// Compile-time check that AppendStatements implements Strategy.
var _ Strategy = (*AppendStatements)(nil)

// AppendStatements is the catch-all additive merger: every additive change
// with content is appended at end of file, one per line, preserving snapshot
// and change order. It handles imports, variables, constants, classes,
// properties, types, interfaces, decorators, JSX elements, comments, hook
// calls, and functions alike.
type AppendStatements struct{}

// Name returns the strategy variant this implementation handles.
func (s *AppendStatements) Name() conflict.MergeStrategy {
	return conflict.StrategyAppendStatements
}

// Execute appends every additive change's content to the baseline.
func (s *AppendStatements) Execute(mc *Context) *Result {
	var stmts []string
	for _, snap := range mc.TaskSnapshots {
		for _, c := range snap.Changes {
			if c.ChangeType.IsAdditive() && c.ContentAfter != nil {
				stmts = append(stmts, strings.TrimRight(*c.ContentAfter, "\n"))
			}
		}
	}

	explanation := fmt.Sprintf("Appended %d statements", len(stmts))
	if len(stmts) == 0 {
		return autoMerged(mc, mc.BaselineContent, explanation)
	}

	content := mc.BaselineContent
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(stmts, "\n") + "\n"

	return autoMerged(mc, content, explanation)
}
