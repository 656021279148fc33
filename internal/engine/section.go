package engine

import (
	"context"
	"fmt"

	"github.com/lgctx/lgctx/internal/adaptive"
	"github.com/lgctx/lgctx/internal/addressing"
	"github.com/lgctx/lgctx/internal/condition"
	"github.com/lgctx/lgctx/internal/manifest"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/lgctx/lgctx/internal/render"
	"github.com/lgctx/lgctx/internal/section"
	"github.com/lgctx/lgctx/internal/stats"
)

var sectionResourceConfig = addressing.ResourceConfig{Name: "section", IsSection: true}

// renderCtx holds everything shared across every section/template render
// within one top-level RenderSection or RenderContext call: the addressing
// stack, the per-render extends-resolver cache, and the stats collector
// every processed file and rendered section is registered into.
type renderCtx struct {
	e         *Engine
	extends   *adaptive.ExtendsResolver
	addr      *addressing.Context
	opts      Options
	condBase  condition.Context
	collector *stats.Collector
}

func newRenderCtx(e *Engine, opts Options, collector *stats.Collector) *renderCtx {
	return &renderCtx{
		e:         e,
		extends:   adaptive.NewExtendsResolver(e.Store),
		addr:      addressing.NewContext(e.RepoRoot, e.CfgRoot),
		opts:      opts,
		condBase:  baseCondition(opts),
		collector: collector,
	}
}

// baseCondition seeds the parts of a condition.Context that don't vary by
// section: the active scope and the normalized provider id.
func baseCondition(opts Options) condition.Context {
	return condition.Context{
		CurrentScope: "self",
		ProviderBase: adaptive.NormalizeProviderID(opts.Provider),
	}
}

// conditionFor builds the condition.Context a single section's filter tree,
// conditional adapter options, and active-tag set are evaluated against:
// model's own tag-sets (from its extends chain) plus the render's active
// tags (opts.Tags). Each section gets its own, since different sections can
// carry different tag-sets through different extends chains.
func (r *renderCtx) conditionFor(model adaptive.Model) condition.Context {
	cond := r.condBase
	cond.TagSets = make(map[string]map[string]bool, len(model.TagSets))
	for id, ts := range model.TagSets {
		members := make(map[string]bool, len(ts.Tags))
		for tagID := range ts.Tags {
			members[tagID] = true
		}
		cond.TagSets[id] = members
	}
	active := make(map[string]bool, len(r.opts.Tags))
	for _, t := range r.opts.Tags {
		active[t] = true
	}
	cond.ActiveTags = active
	return cond
}

// activeConditionSet evaluates every `when` condition string attached to
// any of cfg's per-adapter conditional overlays against cond, returning the
// set manifest.Build needs as ActiveAdapterConditions.
func activeConditionSet(cfg map[string]section.AdapterConfig, cond *condition.Context) map[string]bool {
	out := map[string]bool{}
	for _, ac := range cfg {
		for _, c := range ac.Conditional {
			if _, done := out[c.Condition]; done {
				continue
			}
			ok, err := condition.Evaluate(c.Condition, cond)
			out[c.Condition] = err == nil && ok
		}
	}
	return out
}

// renderSection resolves, builds the manifest for, processes, and renders
// one section named by raw (a bare name, an absolute in-scope path, or an
// "@origin:name" cross-scope reference, per spec.md §4.1), returning its
// rendered text. Every processed file and the section itself are registered
// into r.collector.
func (r *renderCtx) renderSection(raw string) (string, error) {
	parsed, err := addressing.Parse(raw, sectionResourceConfig)
	if err != nil {
		return "", err
	}
	resolved, err := addressing.ResolveSection(parsed, r.addr, r.e.Store)
	if err != nil {
		return "", err
	}

	chain, err := r.extends.Resolve(resolved.Ref.Name, resolved.ScopeDir, r.addr.CurrentDir())
	if err != nil {
		return "", err
	}
	if chain.Config.IsMeta() {
		return "", pipeline.NewUserError(pipeline.KindMetaSectionRenderError,
			fmt.Sprintf("section %q has no filters (meta-section) and cannot be rendered directly", resolved.Ref.Name), nil)
	}

	cond := r.conditionFor(chain.Model)
	active := activeConditionSet(chain.Adapters, &cond)

	gitignore, err := r.e.gitignoreFor()
	if err != nil {
		return "", err
	}

	ref := pipeline.SectionRef{ScopeRel: resolved.ScopeRel, Name: resolved.Ref.Name}
	m, err := manifest.Build(manifest.Options{
		Ref:                     ref,
		RepoRoot:                r.e.RepoRoot,
		ScopeDir:                resolved.ScopeDir,
		Extensions:              chain.Extensions,
		Filters:                 chain.Config.Filters,
		CondCtx:                 &cond,
		Adapters:                chain.Adapters,
		ActiveAdapterConditions: active,
		Targets:                 chain.Config.Targets,
		SkipEmpty:               chain.SkipEmpty,
		PathLabels:              chain.PathLabels,
		VCS:                     r.e.VCS,
		VCSMode:                 r.opts.VCSMode,
		TargetBranch:            r.opts.TargetBranch,
		Gitignore:               gitignore,
		AdapterNameForPath: func(path string) string {
			return r.e.Registry.AdapterForPath(path).Name()
		},
	})
	if err != nil {
		return "", err
	}

	processed, err := r.e.Pipeline.Process(context.Background(), ref.Name, m, &cond, cond.ActiveTags)
	if err != nil {
		return "", err
	}

	origin := resolved.ScopeRel
	plan := render.Plan(m, origin, r.opts.CodeFenceGlobal, true)
	text := render.RenderSection(plan, processed)

	for _, pf := range processed {
		r.collector.RegisterProcessedFile(pf, ref)
	}
	r.collector.RegisterSectionRendered(ref, text, processed)

	return text, nil
}

// RenderSection renders the named section on its own (not through a
// context's template), returning its text and a "section"-scoped Report.
func (e *Engine) RenderSection(name string, opts Options) (string, stats.Report, error) {
	collector, err := e.prepareStats(opts, name)
	if err != nil {
		return "", stats.Report{}, err
	}

	rc := newRenderCtx(e, opts, collector)
	text, err := rc.renderSection(name)
	if err != nil {
		return "", stats.Report{}, err
	}

	collector.SetFinalText(text)
	report, err := collector.ComputeReport("section")
	return text, report, err
}
