// Package vcs defines the external VcsProvider collaborator: a source of
// changed-path sets for "changes" and "branch-changes" VCS modes. Per spec
// this is explicitly out of the engine's core scope -- the engine treats it
// as an injected dependency -- but a concrete Git-backed implementation is
// still provided, grounded on the teacher's git-shell-out style
// (internal/discovery/git_tracked.go).
package vcs

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
)

// Provider is the contract the manifest builder depends on for VCS-mode
// filtering. Paths are POSIX, relative to root.
type Provider interface {
	// ChangedFiles returns the set of paths with uncommitted or
	// yet-to-be-pushed changes in the working tree at root.
	ChangedFiles(root string) (map[string]bool, error)

	// BranchChangedFiles returns the set of paths that differ between the
	// current HEAD and the merge-base with targetBranch.
	BranchChangedFiles(root, targetBranch string) (map[string]bool, error)
}

// NullVcs is a Provider that reports no changes. It is the default when the
// caller provides no VcsProvider and vcs_mode never needs one (e.g. the
// section is doc-only and was forced to "all").
type NullVcs struct{}

func (NullVcs) ChangedFiles(root string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (NullVcs) BranchChangedFiles(root, targetBranch string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

// GitVcs shells out to the git CLI. It is safe to construct as a zero value.
type GitVcs struct{}

// ChangedFiles returns paths reported by `git status --porcelain` for the
// working tree: staged, unstaged, and untracked-but-not-ignored files.
func (GitVcs) ChangedFiles(root string) (map[string]bool, error) {
	out, err := runGit(root, "status", "--porcelain", "--no-renames")
	if err != nil {
		return nil, fmt.Errorf("git status failed in %s: %w (is this a git repository?)", root, err)
	}

	changed := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 {
			continue
		}
		path := line[3:]
		if path != "" {
			changed[path] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git status output: %w", err)
	}
	return changed, nil
}

// BranchChangedFiles returns paths that differ between HEAD and the
// merge-base of HEAD and targetBranch, via `git diff --name-only
// $(git merge-base HEAD target)...HEAD`.
func (g GitVcs) BranchChangedFiles(root, targetBranch string) (map[string]bool, error) {
	base, err := runGit(root, "merge-base", "HEAD", targetBranch)
	if err != nil {
		return nil, fmt.Errorf("git merge-base HEAD %s failed in %s: %w", targetBranch, root, err)
	}
	mergeBase := bytes.TrimSpace(base)

	out, err := runGit(root, "diff", "--name-only", string(mergeBase)+"...HEAD")
	if err != nil {
		return nil, fmt.Errorf("git diff against %s failed in %s: %w", targetBranch, root, err)
	}

	changed := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			changed[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git diff output: %w", err)
	}
	return changed, nil
}

// TrackedFiles runs `git ls-files` and returns the set of tracked paths.
// It is a standalone helper, not part of Provider; the manifest builder
// does not call it.
func TrackedFiles(root string) (map[string]bool, error) {
	out, err := runGit(root, "ls-files")
	if err != nil {
		return nil, fmt.Errorf("git ls-files failed in %s: %w (is this a git repository?)", root, err)
	}

	files := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			files[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git ls-files output: %w", err)
	}
	return files, nil
}

func runGit(root string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	return cmd.Output()
}
