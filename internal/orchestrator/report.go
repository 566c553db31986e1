package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/loomctl/loom/internal/merge"
)

// nowFunc is swapped in tests to pin report timestamps.
var nowFunc = time.Now

// Stats are the running counters for one merge run. One instance lives on
// each report and is mutated in place as files resolve.
type Stats struct {
	FilesProcessed      int `json:"files_processed"`
	FilesAutoMerged     int `json:"files_auto_merged"`
	FilesAIMerged       int `json:"files_ai_merged"`
	FilesNeedReview     int `json:"files_need_review"`
	FilesFailed         int `json:"files_failed"`
	ConflictsDetected   int `json:"conflicts_detected"`
	ConflictsAutoFixed  int `json:"conflicts_auto_resolved"`
	ConflictsAIResolved int `json:"conflicts_ai_resolved"`
	AICallsMade         int `json:"ai_calls_made"`
	EstimatedTokensUsed int `json:"estimated_tokens_used"`
}

// Report is the full record of one merge run. It is created when the run
// starts and finalized (CompletedAt set) when it ends; outside dry-run mode
// it is persisted as JSON under the reports directory.
type Report struct {
	RunID       string                   `json:"run_id"`
	StartedAt   time.Time                `json:"started_at"`
	CompletedAt time.Time                `json:"completed_at"`
	TasksMerged []string                 `json:"tasks_merged"`
	FileResults map[string]*merge.Result `json:"file_results"`
	Stats       Stats                    `json:"stats"`
	Success     bool                     `json:"success"`
	Error       string                   `json:"error,omitempty"`
}

// newReport creates a report at the start of a merge run.
func newReport() *Report {
	return &Report{
		RunID:       uuid.NewString(),
		StartedAt:   nowFunc(),
		TasksMerged: []string{},
		FileResults: make(map[string]*merge.Result),
		Success:     true,
	}
}

// fail marks the whole report as failed. Per-file failures do not use this;
// they stay localized in FileResults.
func (r *Report) fail(err error) {
	r.Success = false
	r.Error = err.Error()
}

// saveReport persists the report as JSON under dir using the pattern
// {label}_{timestamp}.json.
func saveReport(report *Report, dir, label string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", label, report.StartedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// LoadReport reads a previously persisted report from disk.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// updateStats folds one file result into the running counters.
func updateStats(stats *Stats, result *merge.Result) {
	stats.FilesProcessed++

	switch result.Decision {
	case merge.DecisionAutoMerged, merge.DecisionDirectCopy:
		stats.FilesAutoMerged++
		stats.ConflictsAutoFixed += len(result.ConflictsResolved)
	case merge.DecisionAIMerged:
		stats.FilesAIMerged++
		stats.ConflictsAIResolved += len(result.ConflictsResolved)
	case merge.DecisionNeedsHumanReview:
		stats.FilesNeedReview++
	case merge.DecisionFailed:
		stats.FilesFailed++
	}

	stats.ConflictsDetected += len(result.ConflictsResolved) + len(result.ConflictsRemaining)
	stats.AICallsMade += result.AICallsMade
	stats.EstimatedTokensUsed += result.TokensUsed
}
