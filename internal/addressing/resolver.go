package addressing

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/lgctx/lgctx/internal/fsutil"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/lgctx/lgctx/internal/section"
)

// ResolveFile resolves a parsed file-class reference (template, context, or
// markdown include) to a concrete path on disk.
func ResolveFile(parsed ParsedPath, ctx *Context) (ResolvedFile, error) {
	scopeDir, scopeRel, err := resolveScope(parsed, ctx)
	if err != nil {
		return ResolvedFile{}, err
	}
	if !fsutil.IsScope(scopeDir) {
		return ResolvedFile{}, pipeline.NewUserError(pipeline.KindScopeNotFound,
			fmt.Sprintf("scope %q has no lg-cfg/ directory", scopeRel), nil)
	}

	root := filepath.Join(scopeDir, fsutil.CfgDirName)
	if parsed.Config.ResolveOutsideCfg {
		root = scopeDir
	}

	currentDir := ""
	if !parsed.IsAbsolute && !parsed.OriginExplicit && !parsed.Config.ResolveOutsideCfg {
		currentDir = ctx.CurrentDir()
	}

	resourcePath := filepath.Clean(filepath.Join(root, currentDir, parsed.Path))

	rootClean := filepath.Clean(root)
	if !withinRoot(rootClean, resourcePath) {
		return ResolvedFile{}, pipeline.NewUserError(pipeline.KindPathEscapesScope,
			fmt.Sprintf("%s reference %q escapes scope root %s", parsed.Config.Name, parsed.Path, rootClean), nil)
	}

	resourceRel, err := fsutil.RelPosix(rootClean, resourcePath)
	if err != nil {
		return ResolvedFile{}, pipeline.NewUserError(pipeline.KindAddressingError, "computing relative path", err)
	}

	return ResolvedFile{
		ResolvedResource: ResolvedResource{ScopeDir: scopeDir, ScopeRel: scopeRel},
		CfgRoot:          rootClean,
		ResourcePath:     resourcePath,
		ResourceRel:      resourceRel,
	}, nil
}

// ResolvedSection is the result of resolving a section-class reference: the
// scope it lives in plus its loaded SectionConfig.
type ResolvedSection struct {
	ResolvedResource
	Ref    pipeline.SectionRef
	Config *section.SectionConfig
	// Name is the reference as written in the template, kept for
	// diagnostics distinct from Ref's canonical key.
	Name string
}

// ResolveSection resolves a parsed section-class reference via store,
// trying every plausible canonical key in turn (current-directory-prefixed
// first, then scope-root) and reporting every key it tried if none hit.
func ResolveSection(parsed ParsedPath, ctx *Context, store *section.Store) (ResolvedSection, error) {
	scopeDir, scopeRel, err := resolveScope(parsed, ctx)
	if err != nil {
		return ResolvedSection{}, err
	}
	if !fsutil.IsScope(scopeDir) {
		return ResolvedSection{}, pipeline.NewUserError(pipeline.KindScopeNotFound,
			fmt.Sprintf("scope %q has no lg-cfg/ directory", scopeRel), nil)
	}

	candidates := sectionCandidates(parsed, ctx)
	for _, key := range candidates {
		cfg, ok, err := store.Load(scopeDir, key)
		if err != nil {
			return ResolvedSection{}, pipeline.NewUserError(pipeline.KindAddressingError, "loading section store", err)
		}
		if ok {
			return ResolvedSection{
				ResolvedResource: ResolvedResource{ScopeDir: scopeDir, ScopeRel: scopeRel},
				Ref:              pipeline.SectionRef{ScopeRel: scopeRel, Name: key},
				Config:           cfg,
				Name:             parsed.Path,
			}, nil
		}
	}

	return ResolvedSection{}, pipeline.NewUserError(pipeline.KindSectionNotFound,
		fmt.Sprintf("section %q not found (searched: %s)", parsed.Path, strings.Join(candidates, ", ")), nil)
}

// sectionCandidates returns the canonical keys to try, in search order: the
// current-directory-qualified key first (bare references only, matching
// the reference table's "path relative to current directory" rule), then
// the scope-root key.
func sectionCandidates(parsed ParsedPath, ctx *Context) []string {
	bare := parsed.Path
	if parsed.IsAbsolute || parsed.OriginExplicit {
		return []string{bare}
	}
	currentDir := ctx.CurrentDir()
	if currentDir == "" {
		return []string{bare}
	}
	return []string{path.Join(currentDir, bare), bare}
}

// resolveScope determines the absolute scope directory and its
// repo-root-relative label for a parsed reference.
func resolveScope(parsed ParsedPath, ctx *Context) (scopeDir, scopeRel string, err error) {
	if !parsed.OriginExplicit {
		scopeDir = filepath.Dir(ctx.CfgRoot())
		scopeRel, err = fsutil.RelPosix(ctx.RepoRoot(), scopeDir)
		if err != nil {
			return "", "", pipeline.NewUserError(pipeline.KindAddressingError, "computing scope_rel", err)
		}
		if scopeRel == "." {
			scopeRel = ""
		}
		return scopeDir, scopeRel, nil
	}

	if parsed.Origin == "/" {
		return ctx.RepoRoot(), "", nil
	}

	currentScope := filepath.Dir(ctx.CfgRoot())
	scopeDir = filepath.Clean(filepath.Join(currentScope, parsed.Origin))
	scopeRel, err = fsutil.RelPosix(ctx.RepoRoot(), scopeDir)
	if err != nil {
		return "", "", pipeline.NewUserError(pipeline.KindAddressingError, "computing scope_rel", err)
	}
	if scopeRel == "." {
		scopeRel = ""
	}
	if strings.HasPrefix(scopeRel, "..") {
		return "", "", pipeline.NewUserError(pipeline.KindPathEscapesScope,
			fmt.Sprintf("origin %q resolves outside the repository root", parsed.Origin), nil)
	}
	return scopeDir, scopeRel, nil
}

func withinRoot(root, target string) bool {
	if target == root {
		return true
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
