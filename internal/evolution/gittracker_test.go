package evolution

import (
	"strings"
	"testing"

	"github.com/loomctl/loom/internal/change"
	"github.com/loomctl/loom/internal/logging"
	"github.com/loomctl/loom/internal/testutil"
	"github.com/loomctl/loom/internal/worktree"
)

func newTestTracker(t *testing.T) (*GitTracker, *worktree.Registry, string) {
	t.Helper()

	repo := testutil.SetupTestRepoWithContent(t, map[string]string{
		"calc.js": "function add(a, b) {\n  return a + b;\n}\n",
	})
	registry := worktree.NewRegistry()
	tracker := NewGitTracker(registry, worktree.NewGit(repo), "main", logging.NopLogger())
	return tracker, registry, repo
}

func TestRefreshFromGit_SingleTask(t *testing.T) {
	tracker, registry, repo := newTestTracker(t)

	wt := testutil.AddWorktree(t, repo, "task-1")
	testutil.CommitFile(t, wt, "calc.js",
		"function add(a, b) {\n  return a + b;\n}\n\nfunction subtract(a, b) {\n  return a - b;\n}\n",
		"add subtract")
	registry.Register("task-1", wt)

	if err := tracker.RefreshFromGit(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	mods, err := tracker.TaskModifications("task-1")
	if err != nil {
		t.Fatalf("modifications: %v", err)
	}
	if len(mods) != 1 {
		t.Fatalf("modifications = %d, want 1", len(mods))
	}
	if mods[0].FilePath != "calc.js" {
		t.Errorf("file = %q", mods[0].FilePath)
	}

	changes := mods[0].Snapshot.Changes
	if len(changes) == 0 {
		t.Fatal("no changes extracted from diff")
	}
	var found bool
	for _, c := range changes {
		if c.ChangeType == change.AddFunction && c.Target == "subtract" {
			found = true
			if c.ContentAfter == nil || !strings.Contains(*c.ContentAfter, "return a - b") {
				t.Errorf("content after = %v", c.ContentAfter)
			}
			if c.Location != change.LocationFileTop {
				t.Errorf("location = %q", c.Location)
			}
		}
	}
	if !found {
		t.Errorf("no add_function change for subtract in %+v", changes)
	}
}

func TestRefreshFromGit_BaselineContent(t *testing.T) {
	tracker, registry, repo := newTestTracker(t)

	wt := testutil.AddWorktree(t, repo, "task-1")
	testutil.CommitFile(t, wt, "calc.js", "function add(a, b) { return a + b; }\n", "reformat")
	testutil.CommitFile(t, wt, "util.js", "const EPSILON = 0.001;\n", "add util")
	registry.Register("task-1", wt)

	if err := tracker.RefreshFromGit(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	baseline := tracker.BaselineContent("calc.js")
	if baseline == nil {
		t.Fatal("baseline for existing file is nil")
	}
	if !strings.Contains(*baseline, "return a + b") {
		t.Errorf("baseline = %q", *baseline)
	}

	// util.js does not exist on main.
	if got := tracker.BaselineContent("util.js"); got != nil {
		t.Errorf("baseline for new file = %q, want nil", *got)
	}
}

func TestRefreshFromGit_ConflictingFiles(t *testing.T) {
	tracker, registry, repo := newTestTracker(t)

	wt1 := testutil.AddWorktree(t, repo, "task-1")
	testutil.CommitFile(t, wt1, "calc.js",
		"function add(a, b) {\n  return a + b;\n}\n\nfunction multiply(a, b) {\n  return a * b;\n}\n",
		"add multiply")
	wt2 := testutil.AddWorktree(t, repo, "task-2")
	testutil.CommitFile(t, wt2, "calc.js",
		"function add(a, b) {\n  return a + b;\n}\n\nfunction divide(a, b) {\n  return a / b;\n}\n",
		"add divide")
	testutil.CommitFile(t, wt2, "other.js", "const x = 1;\n", "add other")

	registry.Register("task-1", wt1)
	registry.Register("task-2", wt2)
	if err := tracker.RefreshFromGit(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	conflicting := tracker.ConflictingFiles([]string{"task-1", "task-2"})
	if len(conflicting) != 1 || conflicting[0] != "calc.js" {
		t.Errorf("conflicting files = %v, want [calc.js]", conflicting)
	}

	byFile, err := tracker.FilesModifiedByTasks([]string{"task-1", "task-2"})
	if err != nil {
		t.Fatalf("files by tasks: %v", err)
	}
	if len(byFile["calc.js"]) != 2 {
		t.Errorf("calc.js tasks = %v", byFile["calc.js"])
	}
	if len(byFile["other.js"]) != 1 || byFile["other.js"][0] != "task-2" {
		t.Errorf("other.js tasks = %v", byFile["other.js"])
	}

	tl, ok := tracker.FileEvolution("calc.js")
	if !ok {
		t.Fatal("no timeline for calc.js")
	}
	if len(tl.TaskSnapshots) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(tl.TaskSnapshots))
	}
	// Registration order is sorted by task ID on refresh.
	if tl.TaskSnapshots[0].TaskID != "task-1" || tl.TaskSnapshots[1].TaskID != "task-2" {
		t.Errorf("snapshot order = %s, %s", tl.TaskSnapshots[0].TaskID, tl.TaskSnapshots[1].TaskID)
	}

	active := tracker.ActiveTasks()
	if len(active) != 2 {
		t.Errorf("active tasks = %v", active)
	}
}

func TestRefreshFromGit_RebuildsWholesale(t *testing.T) {
	tracker, registry, repo := newTestTracker(t)

	wt := testutil.AddWorktree(t, repo, "task-1")
	testutil.CommitFile(t, wt, "calc.js", "function add(a, b) { return a + b; }\n", "edit")
	registry.Register("task-1", wt)
	if err := tracker.RefreshFromGit(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	registry.Unregister("task-1")
	if err := tracker.RefreshFromGit(); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	if active := tracker.ActiveTasks(); len(active) != 0 {
		t.Errorf("active tasks after unregister = %v", active)
	}
	if mods, _ := tracker.TaskModifications("task-1"); len(mods) != 0 {
		t.Errorf("stale modifications survived rebuild: %v", mods)
	}
}

func TestParseDiff(t *testing.T) {
	t.Run("pure addition splits into blocks", func(t *testing.T) {
		diff := `diff --git a/calc.js b/calc.js
index 111..222 100644
--- a/calc.js
+++ b/calc.js
@@ -3,0 +4,7 @@
+
+function subtract(a, b) {
+  return a - b;
+}
+
+const PRECISION = 2;
`
		changes := parseDiff(diff)
		if len(changes) != 2 {
			t.Fatalf("changes = %d, want 2: %+v", len(changes), changes)
		}
		if changes[0].ChangeType != change.AddFunction || changes[0].Target != "subtract" {
			t.Errorf("first change = %s %q", changes[0].ChangeType, changes[0].Target)
		}
		if changes[1].ChangeType != change.AddConstant || changes[1].Target != "PRECISION" {
			t.Errorf("second change = %s %q", changes[1].ChangeType, changes[1].Target)
		}
		if changes[0].ContentBefore != nil {
			t.Error("pure addition must not carry before-content")
		}
	})

	t.Run("mixed hunk is a modification", func(t *testing.T) {
		diff := `@@ -1,3 +1,3 @@
 function add(a, b) {
-  return a + b;
+  return Number(a) + Number(b);
 }
`
		changes := parseDiff(diff)
		if len(changes) != 1 {
			t.Fatalf("changes = %d, want 1", len(changes))
		}
		c := changes[0]
		if !c.ChangeType.IsModify() {
			t.Errorf("type = %s, want a modify variant", c.ChangeType)
		}
		if c.ContentBefore == nil || c.ContentAfter == nil {
			t.Error("modification must carry both sides")
		}
	})

	t.Run("pure removal", func(t *testing.T) {
		diff := `@@ -5,3 +4,0 @@
-function legacy() {
-  return null;
-}
`
		changes := parseDiff(diff)
		if len(changes) != 1 {
			t.Fatalf("changes = %d, want 1", len(changes))
		}
		if changes[0].ChangeType != change.RemoveFunction || changes[0].Target != "legacy" {
			t.Errorf("change = %s %q", changes[0].ChangeType, changes[0].Target)
		}
		if changes[0].ContentAfter != nil {
			t.Error("removal must not carry after-content")
		}
	})

	t.Run("method addition gets class location", func(t *testing.T) {
		diff := `@@ -10,0 +11,3 @@
+func (s *Server) Shutdown(ctx context.Context) error {
+	return s.srv.Shutdown(ctx)
+}
`
		changes := parseDiff(diff)
		if len(changes) != 1 {
			t.Fatalf("changes = %d, want 1", len(changes))
		}
		if changes[0].Location != change.ClassLocation("Server") {
			t.Errorf("location = %q, want %q", changes[0].Location, change.ClassLocation("Server"))
		}
	})

	t.Run("empty diff", func(t *testing.T) {
		if changes := parseDiff(""); len(changes) != 0 {
			t.Errorf("changes = %+v, want none", changes)
		}
	})
}
