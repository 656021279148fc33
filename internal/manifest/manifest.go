// Package manifest implements Component J (spec.md §4, original_source's
// lg/filtering/manifest.py): building one section's filtered, ordered file
// list by walking its scope directory, honouring .gitignore, the section's
// extension set, its (condition-baked) filter tree, VCS mode, per-path
// target overrides, the empty-file policy, and per-file recoverable errors
// (binary content, dangling or cyclic symlinks) via internal/fsutil.
package manifest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lgctx/lgctx/internal/condition"
	"github.com/lgctx/lgctx/internal/filter"
	"github.com/lgctx/lgctx/internal/fsutil"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/lgctx/lgctx/internal/section"
	"github.com/lgctx/lgctx/internal/vcs"
)

var manifestLogger = slog.Default().With("component", "manifest")

// Options configures one section manifest build.
type Options struct {
	Ref      pipeline.SectionRef
	RepoRoot string // absolute; used for .gitignore and VCS change sets
	ScopeDir string // absolute; the section's scope directory, walked directly

	Extensions []string // lowercased, leading-dot extensions; empty means "all"
	Filters    *filter.FilterNode
	CondCtx    *condition.Context // evaluates the filter tree's `when` overlays

	Adapters  map[string]section.AdapterConfig
	ActiveAdapterConditions map[string]bool
	Targets   []section.TargetRule
	SkipEmpty bool
	PathLabels pipeline.PathLabelPolicy

	VCS          vcs.Provider
	VCSMode      pipeline.VCSMode
	TargetBranch string

	Gitignore *Gitignore // shared across sections in one render; built from RepoRoot

	// AdapterNameForPath resolves which adapter would process path, used to
	// look up a per-adapter empty_policy override. Nil falls back to the
	// section's skip_empty with no per-adapter override.
	AdapterNameForPath func(path string) string
}

// Build produces the section's manifest. A doc-only section (every selected
// file is markdown or language-less) is always rendered under vcs_mode
// "all" regardless of the requested mode, per spec.md §4 / original_source's
// _is_doc_only_section override.
func Build(opts Options) (pipeline.SectionManifest, error) {
	if opts.VCS == nil {
		opts.VCS = vcs.NullVcs{}
	}

	baked := opts.Filters
	if baked != nil && opts.CondCtx != nil {
		baked = baked.Bake(opts.CondCtx)
	}

	adaptersCfg := effectiveAdapterConfigs(opts.Adapters, opts.ActiveAdapterConditions)
	targetSpecs := prepareTargetSpecs(opts.Targets)

	preview, err := collectFiles(opts, baked, adaptersCfg, targetSpecs, nil)
	if err != nil {
		return pipeline.SectionManifest{}, err
	}

	hints := make([]string, len(preview))
	for i, f := range preview {
		hints[i] = f.LanguageHint
	}
	isDocOnly := IsDocOnly(hints)

	effectiveMode := opts.VCSMode
	if isDocOnly {
		effectiveMode = pipeline.VCSModeAll
	}

	files := preview
	if effectiveMode != pipeline.VCSModeAll {
		changed, err := changedFiles(opts, effectiveMode)
		if err != nil {
			return pipeline.SectionManifest{}, err
		}
		files, err = collectFiles(opts, baked, adaptersCfg, targetSpecs, changed)
		if err != nil {
			return pipeline.SectionManifest{}, err
		}
	}

	return pipeline.SectionManifest{
		Ref:         opts.Ref,
		Files:       files,
		PathLabels:  opts.PathLabels,
		AdaptersCfg: adaptersCfg,
		IsDocOnly:   isDocOnly,
		UsedVCSMode: effectiveMode,
	}, nil
}

func changedFiles(opts Options, mode pipeline.VCSMode) (map[string]bool, error) {
	switch mode {
	case pipeline.VCSModeChanges:
		return opts.VCS.ChangedFiles(opts.RepoRoot)
	case pipeline.VCSModeBranchChanges:
		return opts.VCS.BranchChangedFiles(opts.RepoRoot, opts.TargetBranch)
	default:
		return nil, nil
	}
}

func effectiveAdapterConfigs(adapters map[string]section.AdapterConfig, active map[string]bool) map[string]map[string]any {
	out := make(map[string]map[string]any, len(adapters))
	for name, cfg := range adapters {
		out[name] = cfg.Effective(active)
	}
	return out
}

// collectFiles walks opts.ScopeDir once, applying gitignore, extension,
// filter-tree, VCS-changed-set (when changed is non-nil), and skip_empty
// filtering, returning files sorted by repo-root-relative path.
func collectFiles(opts Options, baked *filter.FilterNode, adaptersCfg map[string]map[string]any, targetSpecs []targetSpec, changed map[string]bool) ([]pipeline.FileEntry, error) {
	extSet := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		extSet[strings.ToLower(e)] = true
	}

	var entries []pipeline.FileEntry
	symlinks := fsutil.NewSymlinkResolver()

	err := filepath.WalkDir(opts.ScopeDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if path == opts.ScopeDir {
			return nil
		}
		relToScope, err := fsutil.RelPosix(opts.ScopeDir, path)
		if err != nil {
			return nil
		}
		relToRoot, err := fsutil.RelPosix(opts.RepoRoot, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			if opts.Gitignore != nil && opts.Gitignore.IsIgnored(relToRoot, true) {
				return fs.SkipDir
			}
			if baked != nil && !baked.MayDescend(relToScope) {
				return fs.SkipDir
			}
			return nil
		}

		// WalkDir never follows symlinked directories, so a cycle can only
		// arise from a symlinked file resolving to a path already collected
		// by some other route; dangling symlinks surface as a recoverable
		// per-file error (spec.md §5's "log and skip" policy), not a walk
		// failure.
		if d.Type()&fs.ModeSymlink != 0 {
			real, isLoop, err := symlinks.Resolve(path)
			if err != nil {
				manifestLogger.Debug("skipping unresolvable symlink", "path", relToRoot, "error", err)
				return nil
			}
			if isLoop {
				manifestLogger.Debug("skipping already-visited symlink target", "path", relToRoot, "real", real)
				return nil
			}
			symlinks.MarkVisited(real)
		}

		if opts.Gitignore != nil && opts.Gitignore.IsIgnored(relToRoot, false) {
			return nil
		}

		if !matchesExtension(path, extSet) {
			return nil
		}

		if changed != nil && !changed[relToRoot] {
			return nil
		}

		if baked != nil && !baked.Includes(relToScope) {
			return nil
		}

		if shouldSkipEmpty(path, opts.SkipEmpty, adaptersCfg, opts.AdapterNameForPath) {
			return nil
		}

		if binary, err := fsutil.IsBinary(path); err != nil {
			manifestLogger.Debug("skipping unreadable file", "path", relToRoot, "error", err)
			return nil
		} else if binary {
			manifestLogger.Debug("skipping binary file", "path", relToRoot)
			return nil
		}

		entries = append(entries, pipeline.FileEntry{
			AbsPath:          path,
			RelPath:          relToRoot,
			LanguageHint:     LanguageForFile(path),
			AdapterOverrides: adapterOverridesFor(relToScope, targetSpecs),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: walking %s: %w", opts.ScopeDir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })
	return entries, nil
}

// passthroughBasenames are filenames included regardless of extension
// filtering, per original_source/lg/filtering/fs.py's iter_files.
var passthroughBasenames = map[string]bool{
	"README":         true,
	"Dockerfile":     true,
	"Makefile":       true,
	"pyproject.toml": true,
}

func matchesExtension(path string, extSet map[string]bool) bool {
	if len(extSet) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	if extSet[ext] {
		return true
	}
	return passthroughBasenames[filepath.Base(path)]
}

func shouldSkipEmpty(path string, sectionSkipEmpty bool, adaptersCfg map[string]map[string]any, adapterNameForPath func(string) string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() != 0 {
		return false
	}
	if adapterNameForPath == nil {
		return sectionSkipEmpty
	}

	effective := sectionSkipEmpty
	name := adapterNameForPath(path)
	if cfg, ok := adaptersCfg[name]; ok {
		if policy, ok := cfg["empty_policy"]; ok {
			switch pipeline.EmptyPolicy(fmt.Sprint(policy)) {
			case pipeline.EmptyPolicyInclude:
				effective = false
			case pipeline.EmptyPolicyExclude:
				effective = true
			}
		}
	}
	return effective
}
