package orchestrator

// Stage identifies where a merge run currently is.
type Stage string

const (
	// StageAnalyzing covers snapshot refresh and conflict detection.
	StageAnalyzing Stage = "analyzing"
	// StageResolving is emitted once per file as it resolves.
	StageResolving Stage = "resolving"
	// StageComplete is the terminal stage of a run.
	StageComplete Stage = "complete"
)

// ProgressFunc receives merge-run progress. Percent is 0-100; details carries
// stage-specific values such as the current file path.
type ProgressFunc func(stage Stage, percent int, message string, details map[string]any)

// emit invokes the callback if one is set.
func emit(cb ProgressFunc, stage Stage, percent int, message string, details map[string]any) {
	if cb != nil {
		cb(stage, percent, message, details)
	}
}
