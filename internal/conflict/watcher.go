package conflict

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LiveConflict is a file currently modified by more than one task's worktree,
// as observed on the filesystem before any snapshots are recorded.
type LiveConflict struct {
	RelativePath string    // path relative to each worktree root
	Tasks        []string  // task IDs that touched this file
	LastModified time.Time // most recent touch across tasks
}

// Watcher observes registered task worktrees and reports files touched by
// more than one task in real time. It complements the semantic Detector: the
// Watcher says "these tasks are colliding on this path right now", the
// Detector says how bad the collision is once snapshots exist.
type Watcher struct {
	watcher *fsnotify.Watcher

	// task ID -> worktree root
	worktrees map[string]string

	// relative path -> task ID -> last modification time
	touches map[string]map[string]time.Time

	conflicts  []LiveConflict
	onConflict func([]LiveConflict)

	ignorePaths []string

	mu     sync.RWMutex
	stopCh chan struct{}
}

// NewWatcher creates a live cross-worktree conflict watcher.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fw,
		worktrees:   make(map[string]string),
		touches:     make(map[string]map[string]time.Time),
		conflicts:   make([]LiveConflict, 0),
		ignorePaths: []string{".git", ".loom", "node_modules", ".DS_Store"},
		stopCh:      make(chan struct{}),
	}, nil
}

// SetConflictCallback sets the callback invoked when live conflicts change.
func (w *Watcher) SetConflictCallback(cb func([]LiveConflict)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onConflict = cb
}

// AddTask starts watching a task's worktree.
func (w *Watcher) AddTask(taskID, worktreePath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.worktrees[taskID] = worktreePath

	if err := w.watcher.Add(worktreePath); err != nil {
		return err
	}

	// fsnotify only watches single directories, so register subdirectories too.
	return w.watchDirRecursive(worktreePath)
}

func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}

		base := filepath.Base(path)
		for _, ignore := range w.ignorePaths {
			if base == ignore {
				return filepath.SkipDir
			}
		}

		if info.IsDir() {
			_ = w.watcher.Add(path)
		}
		return nil
	})
}

// RemoveTask stops watching a task's worktree and drops its touches.
func (w *Watcher) RemoveTask(taskID string) {
	w.mu.Lock()

	worktreePath, ok := w.worktrees[taskID]
	if !ok {
		w.mu.Unlock()
		return
	}

	_ = w.watcher.Remove(worktreePath)
	delete(w.worktrees, taskID)

	for relPath, tasks := range w.touches {
		delete(tasks, taskID)
		if len(tasks) == 0 {
			delete(w.touches, relPath)
		}
	}

	conflicts, cb := w.recalculate()
	w.mu.Unlock()

	notifyConflicts(cb, conflicts)
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases its filesystem handles.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	// Editors emit several events per save; debounce before classifying.
	debounce := time.NewTimer(0)
	<-debounce.C

	pending := make(map[string]fsnotify.Event)
	var pendingMu sync.Mutex

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			pendingMu.Lock()
			pending[event.Name] = event
			pendingMu.Unlock()

			debounce.Reset(50 * time.Millisecond)

		case <-debounce.C:
			pendingMu.Lock()
			events := pending
			pending = make(map[string]fsnotify.Event)
			pendingMu.Unlock()

			for _, event := range events {
				w.handleEvent(event)
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.mu.Lock()

	path := event.Name

	for _, ignore := range w.ignorePaths {
		if strings.Contains(path, string(filepath.Separator)+ignore+string(filepath.Separator)) ||
			strings.HasSuffix(path, string(filepath.Separator)+ignore) ||
			filepath.Base(path) == ignore {
			w.mu.Unlock()
			return
		}
	}

	var taskID, relPath string
	for id, root := range w.worktrees {
		if strings.HasPrefix(path, root) {
			taskID = id
			relPath, _ = filepath.Rel(root, path)
			break
		}
	}
	if taskID == "" {
		w.mu.Unlock()
		return // not inside a registered worktree
	}

	if w.touches[relPath] == nil {
		w.touches[relPath] = make(map[string]time.Time)
	}
	w.touches[relPath][taskID] = time.Now()

	conflicts, cb := w.recalculate()
	w.mu.Unlock()

	notifyConflicts(cb, conflicts)
}

// recalculate rebuilds the conflict set from the current touches. Callers
// must hold w.mu for write; the callback is returned rather than invoked so
// it can run after the lock is released and re-enter the watcher safely.
func (w *Watcher) recalculate() ([]LiveConflict, func([]LiveConflict)) {
	conflicts := make([]LiveConflict, 0)

	for relPath, tasks := range w.touches {
		if len(tasks) < 2 {
			continue
		}

		var ids []string
		var last time.Time
		for id, at := range tasks {
			ids = append(ids, id)
			if at.After(last) {
				last = at
			}
		}

		conflicts = append(conflicts, LiveConflict{
			RelativePath: relPath,
			Tasks:        ids,
			LastModified: last,
		})
	}

	w.conflicts = conflicts

	return conflicts, w.onConflict
}

func notifyConflicts(cb func([]LiveConflict), conflicts []LiveConflict) {
	if cb != nil && len(conflicts) > 0 {
		cb(conflicts)
	}
}

// Conflicts returns a copy of the current live conflicts.
func (w *Watcher) Conflicts() []LiveConflict {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]LiveConflict, len(w.conflicts))
	copy(out, w.conflicts)
	return out
}

// FilesTouchedByTask returns the relative paths a task has modified so far.
func (w *Watcher) FilesTouchedByTask(taskID string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var files []string
	for relPath, tasks := range w.touches {
		if _, ok := tasks[taskID]; ok {
			files = append(files, relPath)
		}
	}
	return files
}

// HasConflicts reports whether any file is touched by more than one task.
func (w *Watcher) HasConflicts() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.conflicts) > 0
}
