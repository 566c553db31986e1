// Package errors provides centralized error definitions and error handling
// utilities for the merge engine. It defines sentinel errors for the common
// failure conditions, domain error types with context wrapping, and
// classification helpers used at the orchestrator boundary.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo Severity = iota
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Merge-related sentinel errors
var (
	// ErrWorktreeNotFound indicates that no worktree could be resolved for a task.
	ErrWorktreeNotFound = New("worktree not found")
	// ErrWorktreeFileMissing indicates that a direct-copy source file is absent.
	ErrWorktreeFileMissing = New("worktree file not found")
	// ErrNoEvolutionData indicates that a file has no recorded snapshots.
	ErrNoEvolutionData = New("no evolution data for file")
	// ErrResolverDisabled indicates that AI resolution was requested while disabled.
	ErrResolverDisabled = New("AI resolver disabled")
	// ErrUnknownStrategy indicates a merge strategy with no registered implementation.
	ErrUnknownStrategy = New("unknown merge strategy")
)

// Tracker-related sentinel errors
var (
	// ErrTrackerUnavailable indicates the evolution tracker could not be reached.
	ErrTrackerUnavailable = New("evolution tracker unavailable")
	// ErrNotGitRepository indicates that the directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrBranchNotFound indicates that a branch could not be found.
	ErrBranchNotFound = New("branch not found")
)

// MergeError represents an error inside one file's merge resolution.
type MergeError struct {
	message  string
	cause    error
	severity Severity

	FilePath string
	TaskID   string
}

// NewMergeError creates a new MergeError.
func NewMergeError(message string, cause error) *MergeError {
	return &MergeError{
		message:  message,
		cause:    cause,
		severity: SeverityError,
	}
}

// WithFile adds the file path to the error context.
func (e *MergeError) WithFile(filePath string) *MergeError {
	e.FilePath = filePath
	return e
}

// WithTask adds the task ID to the error context.
func (e *MergeError) WithTask(taskID string) *MergeError {
	e.TaskID = taskID
	return e
}

// WithSeverity sets the error severity.
func (e *MergeError) WithSeverity(s Severity) *MergeError {
	e.severity = s
	return e
}

// Error returns the error message with any attached context.
func (e *MergeError) Error() string {
	msg := "merge error"
	if e.FilePath != "" {
		msg += fmt.Sprintf(" [file=%s]", e.FilePath)
	}
	if e.TaskID != "" {
		msg += fmt.Sprintf(" [task=%s]", e.TaskID)
	}
	msg += ": " + e.message
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *MergeError) Unwrap() error { return e.cause }

// Is reports whether this error matches the target error.
func (e *MergeError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *MergeError) Severity() Severity { return e.severity }

// TrackerError represents an error from the evolution tracker or git plumbing.
type TrackerError struct {
	message  string
	cause    error
	severity Severity

	Branch string
}

// NewTrackerError creates a new TrackerError.
func NewTrackerError(message string, cause error) *TrackerError {
	return &TrackerError{
		message:  message,
		cause:    cause,
		severity: SeverityError,
	}
}

// WithBranch adds the branch name to the error context.
func (e *TrackerError) WithBranch(branch string) *TrackerError {
	e.Branch = branch
	return e
}

// Error returns the error message with any attached context.
func (e *TrackerError) Error() string {
	msg := "tracker error"
	if e.Branch != "" {
		msg += fmt.Sprintf(" [branch=%s]", e.Branch)
	}
	msg += ": " + e.message
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TrackerError) Unwrap() error { return e.cause }

// Is reports whether this error matches the target error.
func (e *TrackerError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *TrackerError) Severity() Severity { return e.severity }

// IsConfiguration reports whether the error is a configuration problem that
// should fail a whole merge run rather than a single file.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrWorktreeNotFound)
}

// SeverityOf returns the severity attached to the error, defaulting to
// SeverityError for plain errors.
func SeverityOf(err error) Severity {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Severity()
	}
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Severity()
	}
	return SeverityError
}
