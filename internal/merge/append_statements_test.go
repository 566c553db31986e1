package merge

import (
	"strings"
	"testing"

	"github.com/loomctl/loom/internal/change"
	"github.com/loomctl/loom/internal/conflict"
)

func stmtContext(baseline string, snapshots ...change.TaskSnapshot) *Context {
	return &Context{
		FilePath:        "src/config.py",
		BaselineContent: baseline,
		TaskSnapshots:   snapshots,
		Conflict: conflict.Region{
			FilePath:      "src/config.py",
			MergeStrategy: conflict.StrategyAppendStatements,
		},
	}
}

func TestAppendStatements_TwoSnapshotsInOrder(t *testing.T) {
	s := &AppendStatements{}
	mc := stmtContext("a = 1\n",
		change.TaskSnapshot{TaskID: "t1", Changes: []change.SemanticChange{
			{ChangeType: change.AddVariable, Target: "b", ContentAfter: change.Str("b = 2")},
		}},
		change.TaskSnapshot{TaskID: "t2", Changes: []change.SemanticChange{
			{ChangeType: change.AddVariable, Target: "c", ContentAfter: change.Str("c = 3")},
		}},
	)

	result := s.Execute(mc)

	if result.Decision != DecisionAutoMerged {
		t.Fatalf("decision = %s", result.Decision)
	}
	if result.Explanation != "Appended 2 statements" {
		t.Errorf("explanation = %q", result.Explanation)
	}
	merged := *result.MergedContent
	bIdx := strings.Index(merged, "b = 2")
	cIdx := strings.Index(merged, "c = 3")
	if bIdx < 0 || cIdx < 0 {
		t.Fatalf("statements missing:\n%s", merged)
	}
	if bIdx > cIdx {
		t.Errorf("statements out of snapshot order:\n%s", merged)
	}
	if !strings.HasPrefix(merged, "a = 1") {
		t.Errorf("baseline not preserved:\n%s", merged)
	}
}

func TestAppendStatements_AcceptsAllAdditiveTypes(t *testing.T) {
	s := &AppendStatements{}
	mc := stmtContext("", change.TaskSnapshot{TaskID: "t1", Changes: []change.SemanticChange{
		{ChangeType: change.AddImport, ContentAfter: change.Str("import os")},
		{ChangeType: change.AddConstant, ContentAfter: change.Str("MAX = 10")},
		{ChangeType: change.AddComment, ContentAfter: change.Str("# note")},
		{ChangeType: change.AddHookCall, ContentAfter: change.Str("const [x, setX] = useState(0);")},
	}})

	result := s.Execute(mc)
	if result.Explanation != "Appended 4 statements" {
		t.Errorf("explanation = %q", result.Explanation)
	}
}

func TestAppendStatements_SkipsNonAdditiveAndNilContent(t *testing.T) {
	s := &AppendStatements{}
	mc := stmtContext("a = 1\n", change.TaskSnapshot{TaskID: "t1", Changes: []change.SemanticChange{
		{ChangeType: change.ModifyFunction, ContentAfter: change.Str("def f(): pass")},
		{ChangeType: change.AddVariable}, // nil content
	}})

	result := s.Execute(mc)
	if result.Decision != DecisionAutoMerged {
		t.Fatalf("zero applicable changes must still succeed, got %s", result.Decision)
	}
	if result.Explanation != "Appended 0 statements" {
		t.Errorf("explanation = %q", result.Explanation)
	}
	if *result.MergedContent != "a = 1\n" {
		t.Errorf("baseline must pass through unchanged, got %q", *result.MergedContent)
	}
}

func TestAppendStatements_BaselineWithoutTrailingNewline(t *testing.T) {
	s := &AppendStatements{}
	mc := stmtContext("a = 1", change.TaskSnapshot{TaskID: "t1", Changes: []change.SemanticChange{
		{ChangeType: change.AddVariable, ContentAfter: change.Str("b = 2")},
	}})

	result := s.Execute(mc)
	if *result.MergedContent != "a = 1\nb = 2\n" {
		t.Errorf("merged = %q", *result.MergedContent)
	}
}
