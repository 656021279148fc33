// Package engine implements Component N (spec.md §4): the top-level render
// pipeline that turns a section or context name into rendered text plus a
// token-accounting report, wiring together every other component in the
// order original_source/lg/engine.py's _pipeline_common establishes:
// migrate -> resolve -> manifest -> adapter pipeline -> render -> compose
// -> stats.
package engine

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/lgctx/lgctx/internal/adapter"
	"github.com/lgctx/lgctx/internal/adaptive"
	"github.com/lgctx/lgctx/internal/buildinfo"
	"github.com/lgctx/lgctx/internal/cache"
	"github.com/lgctx/lgctx/internal/fsutil"
	"github.com/lgctx/lgctx/internal/manifest"
	"github.com/lgctx/lgctx/internal/migrate"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/lgctx/lgctx/internal/section"
	"github.com/lgctx/lgctx/internal/stats"
	"github.com/lgctx/lgctx/internal/tokenizer"
	"github.com/lgctx/lgctx/internal/vcs"
)

// Engine holds the collaborators that live for the lifetime of one repo
// handle: they are built once in New and reused across every render.
type Engine struct {
	RepoRoot string
	CfgRoot  string

	Cache    *cache.Cache
	Store    *section.Store
	Registry *adapter.Registry
	Pipeline *adapter.Pipeline
	Models   adaptive.ModelsConfig
	VCS      vcs.Provider

	gitignoreOnce sync.Once
	gitignore     *manifest.Gitignore
	gitignoreErr  error
}

// New constructs an Engine rooted at repoRoot, bringing its lg-cfg/ up to
// date first -- every render begins with the migration runner, per
// engine.py's _pipeline_common.
func New(repoRoot string) (*Engine, error) {
	repoRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, err
	}
	cfgRoot := filepath.Join(repoRoot, fsutil.CfgDirName)
	c := cache.New(repoRoot)

	if err := migrate.EnsureCfgActual(c, repoRoot, cfgRoot, buildinfo.Version); err != nil {
		return nil, err
	}

	models, err := adaptive.LoadModels(repoRoot)
	if err != nil {
		return nil, err
	}

	registry := adapter.NewRegistry()

	return &Engine{
		RepoRoot: repoRoot,
		CfgRoot:  cfgRoot,
		Cache:    c,
		Store:    section.NewStore(),
		Registry: registry,
		Pipeline: &adapter.Pipeline{Registry: registry, Cache: c},
		Models:   models,
		VCS:      resolveVCS(repoRoot),
	}, nil
}

// resolveVCS picks a real Git-backed provider when repoRoot is inside a Git
// working tree, else a NullVcs, which reports no changed files.
func resolveVCS(repoRoot string) vcs.Provider {
	if info, err := os.Stat(filepath.Join(repoRoot, ".git")); err == nil && info.IsDir() {
		return vcs.GitVcs{}
	}
	return vcs.NullVcs{}
}

// gitignoreFor returns the lazily built, render-shared Gitignore matcher for
// the engine's repo root (spec.md §4's manifest Gitignore is "shared across
// sections in one render").
func (e *Engine) gitignoreFor() (*manifest.Gitignore, error) {
	e.gitignoreOnce.Do(func() {
		e.gitignore, e.gitignoreErr = manifest.NewGitignore(e.RepoRoot)
	})
	return e.gitignore, e.gitignoreErr
}

// Options configures one render, covering both RenderSection and
// RenderContext.
type Options struct {
	// Provider is the full provider id (e.g. "claude.cli"); empty means no
	// provider-support validation or filtering is applied.
	Provider string

	// Tags is the set of ad hoc tags activated for this render, on top of
	// whatever a context's merged adaptive model supplies.
	Tags []string

	VCSMode      pipeline.VCSMode
	TargetBranch string

	// CodeFenceGlobal is the CLI-level code-fence toggle; a section's own
	// doc-only status can still force it off (render.Plan).
	CodeFenceGlobal bool

	// Model is a model selector string (e.g. "claude-3.5-sonnet (economy)");
	// empty disables ctx-share accounting and model-driven encoder choice.
	Model string

	// Tokenizer overrides the tokenizer implied by Model/the default
	// encoder. Nil means "derive from Model".
	Tokenizer tokenizer.Tokenizer
}

// prepareStats resolves opts.Model (if any) and builds the Collector used
// to accumulate this render's token accounting.
func (e *Engine) prepareStats(opts Options, targetName string) (*stats.Collector, error) {
	var resolved adaptive.ResolvedModel
	if opts.Model != "" {
		r, err := e.Models.ResolveModel(opts.Model)
		if err != nil {
			return nil, err
		}
		resolved = r
	}

	tok := opts.Tokenizer
	if tok == nil {
		t, err := tokenizer.NewTokenizer(resolved.Encoder)
		if err != nil {
			return nil, err
		}
		tok = t
	}

	c := stats.New(tok, e.Cache, opts.Model, resolved.CtxLimit)
	c.SetTargetName(targetName)
	return c, nil
}
