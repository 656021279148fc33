package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Gitignore evaluates hierarchical .gitignore patterns rooted at a
// directory: every .gitignore found anywhere in the tree contributes rules
// that apply to its own subtree, with parent rules inherited by children.
// Grounded on internal/discovery/gitignore.go, generalized from a
// root-only spec (original_source/lg/filtering/fs.py's build_gitignore_spec)
// to the richer nested form the teacher already implements.
type Gitignore struct {
	root     string
	matchers map[string]*gitignore.GitIgnore
	dirs     []string
}

// NewGitignore walks root to discover every .gitignore file and compiles its
// patterns. A tree with no .gitignore files yields a Gitignore whose
// IsIgnored always returns false.
func NewGitignore(root string) (*Gitignore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	g := &Gitignore{root: absRoot, matchers: map[string]*gitignore.GitIgnore{}}
	if err := g.discover(); err != nil {
		return nil, fmt.Errorf("discovering .gitignore files in %s: %w", absRoot, err)
	}
	return g, nil
}

func (g *Gitignore) discover() error {
	return filepath.WalkDir(g.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			relDir, err := filepath.Rel(g.root, path)
			if err != nil {
				return nil
			}
			relDir = filepath.ToSlash(relDir)
			if relDir != "." && g.isIgnoredDir(relDir) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		dirRel, err := filepath.Rel(g.root, filepath.Dir(path))
		if err != nil {
			return nil
		}
		dirRel = filepath.ToSlash(dirRel)
		if dirRel == "." {
			dirRel = ""
		}
		lines := compileLines(data)
		if len(lines) == 0 {
			return nil
		}
		matcher := gitignore.CompileIgnoreLines(lines...)
		g.matchers[dirRel] = matcher
		g.dirs = append(g.dirs, dirRel)
		return nil
	})
}

func compileLines(data []byte) []string {
	var out []string
	for _, ln := range strings.Split(string(data), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}
		out = append(out, ln)
	}
	return out
}

// isIgnoredDir checks a directory path against already-discovered
// .gitignore files during the initial walk, so the discovery walk itself
// does not descend into ignored subtrees (e.g. vendor/, node_modules/).
func (g *Gitignore) isIgnoredDir(relDir string) bool {
	return g.IsIgnored(relDir, true)
}

// IsIgnored reports whether relPath (repo-root relative, POSIX) is ignored
// by any .gitignore whose directory is relPath or an ancestor of it.
func (g *Gitignore) IsIgnored(relPath string, isDir bool) bool {
	for dir, matcher := range g.matchers {
		sub := relPath
		if dir != "" {
			if relPath != dir && !strings.HasPrefix(relPath, dir+"/") {
				continue
			}
			sub = strings.TrimPrefix(relPath, dir)
			sub = strings.TrimPrefix(sub, "/")
		}
		if sub == "" {
			continue
		}
		if matcher.MatchesPath(sub) {
			return true
		}
		if isDir && matcher.MatchesPath(sub+"/") {
			return true
		}
	}
	return false
}
