package worktree

import (
	"fmt"
	"strings"
	"testing"

	"github.com/loomctl/loom/internal/testutil"
)

// fakeExecutor replays canned outputs keyed by the joined command line.
type fakeExecutor struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeExecutor) Run(dir, name string, args ...string) ([]byte, error) {
	key := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, key)
	return []byte(f.outputs[key]), f.errs[key]
}

func (f *fakeExecutor) RunQuiet(dir, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, key)
	return f.errs[key]
}

func TestFileFromBranch(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		err         error
		wantContent *string
		wantErr     bool
	}{
		{
			name:        "existing file",
			output:      "const x = 1;\n",
			wantContent: strPtr("const x = 1;\n"),
		},
		{
			name:   "file missing on branch",
			output: "fatal: path 'new.js' does not exist in 'main'",
			err:    fmt.Errorf("exit status 128"),
		},
		{
			name:   "file only on disk",
			output: "fatal: path 'new.js' exists on disk, but not in 'main'",
			err:    fmt.Errorf("exit status 128"),
		},
		{
			name:   "unknown branch",
			output: "fatal: invalid object name 'nope'",
			err:    fmt.Errorf("exit status 128"),
		},
		{
			name:    "plumbing failure",
			output:  "fatal: not a git repository",
			err:     fmt.Errorf("exit status 128"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{
				outputs: map[string]string{"git show main:new.js": tt.output},
				errs:    map[string]error{},
			}
			if tt.err != nil {
				exec.errs["git show main:new.js"] = tt.err
			}
			g := NewGitWithExecutor("/repo", exec)

			content, err := g.FileFromBranch("new.js", "main")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantContent == nil {
				if content != nil {
					t.Errorf("content = %q, want nil", *content)
				}
			} else if content == nil || *content != *tt.wantContent {
				t.Errorf("content = %v, want %q", content, *tt.wantContent)
			}
		})
	}
}

func TestChangedFiles_ParsesOutput(t *testing.T) {
	exec := &fakeExecutor{
		outputs: map[string]string{
			"git diff --name-only main": "src/a.js\nsrc/b.js\n",
		},
		errs: map[string]error{},
	}
	g := NewGitWithExecutor("/repo", exec)

	files, err := g.ChangedFiles("/wt", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 || files[0] != "src/a.js" || files[1] != "src/b.js" {
		t.Errorf("files = %v", files)
	}
}

func TestChangedFiles_EmptyDiff(t *testing.T) {
	exec := &fakeExecutor{
		outputs: map[string]string{"git diff --name-only main": "\n"},
		errs:    map[string]error{},
	}
	g := NewGitWithExecutor("/repo", exec)

	files, err := g.ChangedFiles("/wt", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("files = %v, want empty", files)
	}
}

func TestGit_AgainstRealRepository(t *testing.T) {
	repo := testutil.SetupTestRepoWithContent(t, map[string]string{
		"app.js": "const app = 1;\n",
	})
	g := NewGit(repo)

	if !g.IsRepository() {
		t.Fatal("IsRepository = false for a real repository")
	}

	content, err := g.FileFromBranch("app.js", "main")
	if err != nil {
		t.Fatalf("FileFromBranch: %v", err)
	}
	if content == nil || *content != "const app = 1;\n" {
		t.Errorf("content = %v", content)
	}

	missing, err := g.FileFromBranch("ghost.js", "main")
	if err != nil {
		t.Fatalf("FileFromBranch missing: %v", err)
	}
	if missing != nil {
		t.Errorf("missing file content = %q, want nil", *missing)
	}

	wt := testutil.AddWorktree(t, repo, "feature")
	testutil.CommitFile(t, wt, "app.js", "const app = 2;\n", "bump")

	files, err := g.ChangedFiles(wt, "main")
	if err != nil {
		t.Fatalf("ChangedFiles: %v", err)
	}
	if len(files) != 1 || files[0] != "app.js" {
		t.Fatalf("files = %v", files)
	}

	diff, err := g.Diff(wt, "main", "app.js")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !strings.Contains(diff, "+const app = 2;") {
		t.Errorf("diff missing added line:\n%s", diff)
	}
}

func TestIsRepository_OutsideRepo(t *testing.T) {
	g := NewGit(t.TempDir())
	if g.IsRepository() {
		t.Error("IsRepository = true for a plain directory")
	}
}

func strPtr(s string) *string { return &s }
