// Package worktree provides the git plumbing and the task-to-worktree
// registry the merge engine works from. Each concurrent task owns a private
// worktree; the registry maps task IDs to worktree roots and the git helpers
// read committed content and per-worktree diffs.
package worktree

import (
	"os/exec"
	"strings"

	"github.com/loomctl/loom/internal/errors"
)

// CommandExecutor abstracts command execution for testability.
// This allows tests to mock git commands without executing them.
type CommandExecutor interface {
	// Run executes a command and returns combined output.
	Run(dir string, name string, args ...string) ([]byte, error)

	// RunQuiet executes a command and returns only the error.
	RunQuiet(dir string, name string, args ...string) error
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// NewCLICommandExecutor creates a new CLI command executor.
func NewCLICommandExecutor() *CLICommandExecutor {
	return &CLICommandExecutor{}
}

// Run executes a command and returns combined output.
func (e *CLICommandExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// RunQuiet executes a command and returns only the error.
func (e *CLICommandExecutor) RunQuiet(dir string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.Run()
}

// Git reads committed state from a repository or worktree using the git CLI.
type Git struct {
	repoDir  string
	executor CommandExecutor
}

// NewGit creates git plumbing rooted at repoDir.
func NewGit(repoDir string) *Git {
	return &Git{
		repoDir:  repoDir,
		executor: NewCLICommandExecutor(),
	}
}

// NewGitWithExecutor creates git plumbing with a custom executor.
// This is primarily useful for testing.
func NewGitWithExecutor(repoDir string, executor CommandExecutor) *Git {
	return &Git{
		repoDir:  repoDir,
		executor: executor,
	}
}

// FileFromBranch returns the committed content of filePath on branch, or nil
// when the file does not exist on that branch.
func (g *Git) FileFromBranch(filePath, branch string) (*string, error) {
	output, err := g.executor.Run(g.repoDir, "git", "show", branch+":"+filePath)
	if err != nil {
		out := string(output)
		// "exists on disk, but not in" / "does not exist" mean a brand-new
		// file rather than a plumbing failure.
		if strings.Contains(out, "does not exist") ||
			strings.Contains(out, "exists on disk") ||
			strings.Contains(out, "invalid object name") {
			return nil, nil
		}
		return nil, errors.NewTrackerError("failed to read file from branch", err).WithBranch(branch)
	}
	content := string(output)
	return &content, nil
}

// ChangedFiles returns the paths changed in worktreePath relative to branch.
// Uncommitted modifications to tracked files are included; brand-new files
// appear once committed or staged in the worktree.
func (g *Git) ChangedFiles(worktreePath, branch string) ([]string, error) {
	output, err := g.executor.Run(worktreePath, "git", "diff", "--name-only", branch)
	if err != nil {
		return nil, errors.NewTrackerError("failed to list changed files", err).WithBranch(branch)
	}

	files := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(files) == 1 && files[0] == "" {
		return []string{}, nil
	}
	return files, nil
}

// Diff returns the unified diff of filePath in worktreePath against branch.
func (g *Git) Diff(worktreePath, branch, filePath string) (string, error) {
	output, err := g.executor.Run(worktreePath, "git", "diff", branch, "--", filePath)
	if err != nil {
		return "", errors.NewTrackerError("failed to diff file", err).WithBranch(branch)
	}
	return string(output), nil
}

// IsRepository reports whether the directory is inside a git repository.
func (g *Git) IsRepository() bool {
	return g.executor.RunQuiet(g.repoDir, "git", "rev-parse", "--git-dir") == nil
}
