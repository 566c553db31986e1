package worktree

import (
	"sync"

	"github.com/loomctl/loom/internal/errors"
)

// Registry maps task IDs to their isolated worktree roots. It is the lookup
// the orchestrator falls back to when a merge call does not pass an explicit
// worktree path. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	paths map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{paths: make(map[string]string)}
}

// Register records the worktree root for a task, replacing any previous entry.
func (r *Registry) Register(taskID, worktreePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[taskID] = worktreePath
}

// Unregister removes a task's worktree entry.
func (r *Registry) Unregister(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, taskID)
}

// Lookup returns the worktree root for a task.
func (r *Registry) Lookup(taskID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, ok := r.paths[taskID]
	if !ok {
		return "", errors.ErrWorktreeNotFound
	}
	return path, nil
}

// TaskIDs returns the registered task IDs.
func (r *Registry) TaskIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.paths))
	for id := range r.paths {
		ids = append(ids, id)
	}
	return ids
}
