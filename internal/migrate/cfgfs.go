// Package migrate implements Component O (spec.md §4.9 / SPEC_FULL.md's
// expansion): versioned, idempotent transformations of a repo's lg-cfg/
// config directory, run under an advisory filesystem lock. Grounded on
// original_source/lg/migrate/{runner,fs,registry,yaml_rt}.py and the four
// migrations/m00*.py files, re-expressed in the teacher's style.
package migrate

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// CfgFs is a narrow filesystem handle scoped to a repo's config directory.
// Migrations only ever touch paths relative to CfgRoot; RepoRoot is kept
// around for fingerprinting and git-boundary checks. Grounded on fs.py's
// CfgFs, minus its git_tracked_index/git_untracked helpers (this port's
// fingerprint walks the whole working tree directly, so the git-index view
// is never needed).
type CfgFs struct {
	RepoRoot string
	CfgRoot  string
}

// NewCfgFs constructs a CfgFs rooted at cfgRoot, within repoRoot.
func NewCfgFs(repoRoot, cfgRoot string) *CfgFs {
	return &CfgFs{RepoRoot: repoRoot, CfgRoot: cfgRoot}
}

// Exists reports whether rel (relative to CfgRoot) exists.
func (fs *CfgFs) Exists(rel string) bool {
	_, err := os.Stat(filepath.Join(fs.CfgRoot, rel))
	return err == nil
}

// ReadText reads rel's full contents as a string.
func (fs *CfgFs) ReadText(rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(fs.CfgRoot, rel))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteTextAtomic writes content to rel via a same-directory temp file and
// rename, so a reader never observes a partial write.
func (fs *CfgFs) WriteTextAtomic(rel, content string) error {
	path := filepath.Join(fs.CfgRoot, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// MoveAtomic moves srcRel to dstRel, both relative to CfgRoot. Mirrors
// fs.py's move_atomic: content is copied through a temp file at the
// destination, then the source is removed, so a crash mid-move never
// leaves dst half-written.
func (fs *CfgFs) MoveAtomic(srcRel, dstRel string) error {
	src := filepath.Join(fs.CfgRoot, srcRel)
	dst := filepath.Join(fs.CfgRoot, dstRel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	tmp := dst + ".tmp-mv"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// GlobRel returns the CfgRoot-relative paths matching a doublestar pattern
// (e.g. "**/*.sec.yaml"), sorted.
func (fs *CfgFs) GlobRel(pattern string) ([]string, error) {
	if _, err := os.Stat(fs.CfgRoot); err != nil {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(fs.CfgRoot), pattern)
	if err != nil {
		return nil, err
	}
	return matches, nil
}
