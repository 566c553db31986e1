package merge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loomctl/loom/internal/change"
	"github.com/loomctl/loom/internal/conflict"
	"github.com/loomctl/loom/internal/logging"
)

func newTestPipeline(resolver Resolver) *Pipeline {
	if resolver == nil {
		resolver = NoopResolver{}
	}
	return NewPipeline(NewRegistry(), resolver, logging.NopLogger())
}

func TestMergeFile_UnsetStrategyIsDirectCopy(t *testing.T) {
	p := newTestPipeline(nil)

	result := p.MergeFile(context.Background(), "a.js", "content", nil, conflict.Region{FilePath: "a.js"}, "main")

	if result.Decision != DecisionDirectCopy {
		t.Fatalf("decision = %s, want direct_copy", result.Decision)
	}
	if result.MergedContent != nil {
		t.Error("direct copy content is resolved by the orchestrator, not the pipeline")
	}
	if !result.Success() {
		t.Error("direct copy should be a success")
	}
}

func TestMergeFile_DispatchesToStrategies(t *testing.T) {
	p := newTestPipeline(nil)
	snapshots := []change.TaskSnapshot{{TaskID: "t1", Changes: []change.SemanticChange{
		{ChangeType: change.AddFunction, Target: "f", ContentAfter: change.Str("function f() {}")},
	}}}

	tests := []struct {
		strategy        conflict.MergeStrategy
		wantExplanation string
	}{
		{conflict.StrategyAppendFunctions, "Appended 1 new functions"},
		{conflict.StrategyAppendStatements, "Appended 1 statements"},
		{conflict.StrategyAppendMethods, "Added 0 methods to 0 classes"},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			region := conflict.Region{FilePath: "a.js", MergeStrategy: tt.strategy, CanAutoMerge: true}
			result := p.MergeFile(context.Background(), "a.js", "", snapshots, region, "main")

			if result.Decision != DecisionAutoMerged {
				t.Fatalf("decision = %s, want auto_merged", result.Decision)
			}
			if result.Explanation != tt.wantExplanation {
				t.Errorf("explanation = %q, want %q", result.Explanation, tt.wantExplanation)
			}
		})
	}
}

func TestMergeFile_AIRequiredWithNoopResolver(t *testing.T) {
	p := newTestPipeline(nil)
	region := conflict.Region{
		FilePath:      "a.js",
		MergeStrategy: conflict.StrategyAIRequired,
		Severity:      conflict.SeverityHigh,
	}

	result := p.MergeFile(context.Background(), "a.js", "x", nil, region, "main")

	if result.Decision != DecisionNeedsHumanReview {
		t.Fatalf("decision = %s, want needs_human_review", result.Decision)
	}
	if len(result.ConflictsRemaining) != 1 {
		t.Fatalf("conflicts remaining = %d, want 1", len(result.ConflictsRemaining))
	}
	if result.ConflictsRemaining[0].FilePath != "a.js" {
		t.Errorf("remaining conflict = %+v", result.ConflictsRemaining[0])
	}
	if result.MergedContent != nil {
		t.Error("review escalation must not carry merged content")
	}
	if result.AICallsMade != 0 || result.TokensUsed != 0 {
		t.Error("noop resolver must not account AI usage")
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, *Context) (*Result, error) {
	return &Result{AICallsMade: 2, TokensUsed: 100}, errors.New("model unavailable")
}

func TestMergeFile_ResolverErrorBecomesFailed(t *testing.T) {
	p := newTestPipeline(failingResolver{})
	region := conflict.Region{FilePath: "a.js", MergeStrategy: conflict.StrategyAIRequired}

	result := p.MergeFile(context.Background(), "a.js", "x", nil, region, "main")

	if result.Decision != DecisionFailed {
		t.Fatalf("decision = %s, want failed", result.Decision)
	}
	if !strings.Contains(result.Error, "model unavailable") {
		t.Errorf("error = %q", result.Error)
	}
	if result.Success() {
		t.Error("failed result must not report success")
	}
	if result.AICallsMade != 2 || result.TokensUsed != 100 {
		t.Error("usage from the failed attempt must be preserved")
	}
}

type panickingStrategy struct{}

func (panickingStrategy) Name() conflict.MergeStrategy { return conflict.StrategyAppendFunctions }
func (panickingStrategy) Execute(*Context) *Result     { panic("boom") }

func TestMergeFile_PanicContained(t *testing.T) {
	registry := Registry{conflict.StrategyAppendFunctions: panickingStrategy{}}
	p := NewPipeline(registry, NoopResolver{}, logging.NopLogger())
	region := conflict.Region{FilePath: "a.js", MergeStrategy: conflict.StrategyAppendFunctions}

	result := p.MergeFile(context.Background(), "a.js", "x", nil, region, "main")

	if result.Decision != DecisionFailed {
		t.Fatalf("decision = %s, want failed", result.Decision)
	}
	if !strings.Contains(result.Error, "boom") {
		t.Errorf("error = %q", result.Error)
	}
}

func TestNewRegistry_CoversAllAppendStrategies(t *testing.T) {
	r := NewRegistry()
	for _, s := range []conflict.MergeStrategy{
		conflict.StrategyAppendFunctions,
		conflict.StrategyAppendMethods,
		conflict.StrategyAppendStatements,
	} {
		impl, ok := r[s]
		if !ok {
			t.Fatalf("no strategy registered for %s", s)
		}
		if impl.Name() != s {
			t.Errorf("strategy %s reports name %s", s, impl.Name())
		}
	}
}
