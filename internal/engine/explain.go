package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lgctx/lgctx/internal/adaptive"
	"github.com/lgctx/lgctx/internal/pipeline"
)

// ResolveContextModel collects every section name a context transitively
// references and resolves/merges their adaptive models, without rendering
// any section body or charging any tokenizer cost. It is RenderContext's
// first pass, lifted out so explain/listing and the MCP server can reuse it
// without duplicating collection logic, grounded on
// original_source/lg/adaptive/context_resolver.py's
// ContextResolver.resolve_for_context and lg/adaptive/listing.py's
// list_mode_sets/list_tag_sets (both resolve once, then branch on what they
// report).
func (e *Engine) ResolveContextModel(name string, opts Options) (adaptive.Model, []string, error) {
	raw, err := os.ReadFile(filepath.Join(e.CfgRoot, name+contextExt))
	if err != nil {
		return adaptive.Model{}, nil, pipeline.NewUserError(pipeline.KindScopeNotFound,
			fmt.Sprintf("context %q not found: %v", name, err), err)
	}

	fm, body, err := splitFrontmatter(string(raw))
	if err != nil {
		return adaptive.Model{}, nil, err
	}

	collector, err := e.prepareStats(opts, name)
	if err != nil {
		return adaptive.Model{}, nil, err
	}
	rc := newRenderCtx(e, opts, collector)

	bodyRefs, err := rc.collectSections(body, []string{name})
	if err != nil {
		return adaptive.Model{}, nil, err
	}
	allRefs := append(append([]string{}, fm.Include...), bodyRefs...)

	model, err := rc.mergeModelForRefs(allRefs)
	if err != nil {
		return adaptive.Model{}, nil, err
	}
	if opts.Provider != "" {
		model, err = adaptive.ValidateProviderSupport(model, opts.Provider, name)
		if err != nil {
			return adaptive.Model{}, nil, err
		}
	}

	return model, dedupSectionNames(bodyRefs, fm.Include), nil
}

// dedupSectionNames sorts and deduplicates a context's body-collected
// section references, dropping every name that is also listed as a
// frontmatter include (a meta-section contributing adaptive config, not
// rendered output) even when the body references it too, mirroring
// list_sections_for_context's exclusion of frontmatter_includes.
func dedupSectionNames(bodyRefs, frontmatterIncludes []string) []string {
	excluded := make(map[string]bool, len(frontmatterIncludes))
	for _, n := range frontmatterIncludes {
		excluded[n] = true
	}

	seen := make(map[string]bool, len(bodyRefs))
	out := make([]string, 0, len(bodyRefs))
	for _, n := range bodyRefs {
		if excluded[n] || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ExplainReport is the resolved, human/JSON-listable view of a context: the
// provider it was resolved against, the sections it renders, and the
// mode-sets/tag-sets its merged adaptive model carries. Grounded on
// original_source/lg/adaptive/listing.py, whose four list_* functions this
// method composes into one report for `lgctx explain`-equivalent CLI/MCP
// output.
type ExplainReport struct {
	Context  string                 `json:"context"`
	Provider string                 `json:"provider,omitempty"`
	Sections []string               `json:"sections"`
	ModeSets []adaptive.ModeSetView `json:"mode_sets"`
	TagSets  []adaptive.TagSetView  `json:"tag_sets"`
}

// Explain resolves name's adaptive model and section list and assembles an
// ExplainReport. ResolveContextModel already validates and provider-filters
// the model (mirroring list_mode_sets's resolve-validate-filter order), so
// Explain only needs to project the result through ListModeSets/ListTagSets.
func (e *Engine) Explain(name, provider string, tags []string) (ExplainReport, error) {
	model, sections, err := e.ResolveContextModel(name, Options{Provider: provider, Tags: tags})
	if err != nil {
		return ExplainReport{}, err
	}

	return ExplainReport{
		Context:  name,
		Provider: provider,
		Sections: sections,
		ModeSets: adaptive.ListModeSets(model),
		TagSets:  adaptive.ListTagSets(model),
	}, nil
}

// ListContexts returns every context name under CfgRoot (bare names, no
// .ctx.md suffix), sorted, grounded on
// original_source/lg/template/common.py's list_contexts, which
// list_contexts_for_provider builds on.
func (e *Engine) ListContexts() ([]string, error) {
	entries, err := os.ReadDir(e.CfgRoot)
	if err != nil {
		return nil, fmt.Errorf("engine: listing contexts in %s: %w", e.CfgRoot, err)
	}
	var names []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(ent.Name(), contextExt); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
