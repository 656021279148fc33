package fsutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// SymlinkResolver tracks which real paths have already been visited during a
// single manifest walk, so a symlink cycle (or a symlink and its target both
// reachable from the scope root) is only ever counted once. One resolver is
// created per manifest walk (a Build with a VCS mode other than "all" walks
// twice) and discarded afterward; it is not safe to reuse
// across unrelated walks without calling Reset.
type SymlinkResolver struct {
	visited map[string]bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewSymlinkResolver returns a resolver with an empty visited set.
func NewSymlinkResolver() *SymlinkResolver {
	return &SymlinkResolver{
		visited: make(map[string]bool),
		logger:  slog.Default().With("component", "symlink-resolver"),
	}
}

// Resolve follows path to its real, symlink-free target. isLoop is true when
// the real path was already visited in this walk; a dangling symlink is
// reported as err satisfying os.IsNotExist, which callers should treat as a
// recoverable per-file error to log and skip.
func (r *SymlinkResolver) Resolve(path string) (realPath string, isLoop bool, err error) {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Debug("dangling symlink", "path", path)
		}
		return "", false, err
	}

	r.mu.RLock()
	already := r.visited[real]
	r.mu.RUnlock()

	return real, already, nil
}

// MarkVisited records realPath as seen, so a later Resolve call for the same
// target reports isLoop.
func (r *SymlinkResolver) MarkVisited(realPath string) {
	r.mu.Lock()
	r.visited[realPath] = true
	r.mu.Unlock()
}

// Reset clears the visited set, allowing the resolver to be reused for a
// fresh walk.
func (r *SymlinkResolver) Reset() {
	r.mu.Lock()
	r.visited = make(map[string]bool)
	r.mu.Unlock()
}

// VisitedCount returns the number of distinct real paths seen so far.
func (r *SymlinkResolver) VisitedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.visited)
}

// IsSymlink reports whether path itself (not its target) is a symlink.
func IsSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}
