package merge

import (
	"fmt"
	"strings"

	"github.com/loomctl/loom/internal/change"
	"github.com/loomctl/loom/internal/conflict"
)

// Compile-time check that AppendFunctions implements Strategy.
var _ Strategy = (*AppendFunctions)(nil)

// AppendFunctions merges purely additive function definitions. New functions
// are inserted immediately before the file's first export boundary when one
// exists (module.exports, export default), otherwise appended at end of file.
type AppendFunctions struct{}

// Name returns the strategy variant this implementation handles.
func (s *AppendFunctions) Name() conflict.MergeStrategy {
	return conflict.StrategyAppendFunctions
}

// exportBoundaries mark where CommonJS/ESM files hand their symbols out; new
// functions must land above them to be visible to the export statement.
var exportBoundaries = []string{
	"module.exports",
	"export default",
	"exports.",
}

// Execute appends every ADD_FUNCTION change with content across all
// snapshots, in encounter order.
func (s *AppendFunctions) Execute(mc *Context) *Result {
	var funcs []string
	for _, snap := range mc.TaskSnapshots {
		for _, c := range snap.Changes {
			if c.ChangeType == change.AddFunction && c.ContentAfter != nil {
				funcs = append(funcs, strings.TrimRight(*c.ContentAfter, "\n"))
			}
		}
	}

	explanation := fmt.Sprintf("Appended %d new functions", len(funcs))
	if len(funcs) == 0 {
		return autoMerged(mc, mc.BaselineContent, explanation)
	}

	block := strings.Join(funcs, "\n\n") + "\n"

	baseline := mc.BaselineContent
	if strings.TrimSpace(baseline) == "" {
		return autoMerged(mc, block, explanation)
	}

	lines := strings.Split(baseline, "\n")
	if idx, ok := exportBoundaryLine(lines); ok {
		merged := make([]string, 0, len(lines)+len(funcs)*2)
		merged = append(merged, lines[:idx]...)
		merged = append(merged, strings.Split(strings.TrimRight(block, "\n"), "\n")...)
		merged = append(merged, "")
		merged = append(merged, lines[idx:]...)
		return autoMerged(mc, strings.Join(merged, "\n"), explanation)
	}

	if !strings.HasSuffix(baseline, "\n") {
		baseline += "\n"
	}
	return autoMerged(mc, baseline+"\n"+block, explanation)
}

// exportBoundaryLine returns the index of the first export boundary line.
func exportBoundaryLine(lines []string) (int, bool) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, boundary := range exportBoundaries {
			if strings.HasPrefix(trimmed, boundary) {
				return i, true
			}
		}
	}
	return 0, false
}
