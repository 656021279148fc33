package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lgctx/lgctx/internal/adaptive"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/lgctx/lgctx/internal/stats"
	"github.com/lgctx/lgctx/internal/template"
)

const (
	templateExt = ".tpl.md"
	contextExt  = ".ctx.md"
)

// contextFrontmatter is a context file's optional leading YAML block
// (spec.md §4.11): its `include` list seeds adaptive-model collection
// before the template body is ever walked, and is stripped from rendered
// output.
type contextFrontmatter struct {
	Include []string `yaml:"include"`
}

// splitFrontmatter splits a "---\n...\n---\n" YAML block from the front of
// text. A document with no such block returns a zero frontmatter and text
// unchanged, matching original_source/lg/context/common.py's lenient
// handling of frontmatter-less context files.
func splitFrontmatter(text string) (contextFrontmatter, string, error) {
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return contextFrontmatter{}, text, nil
	}
	nlLen := 4
	if strings.HasPrefix(text, "---\r\n") {
		nlLen = 5
	}
	rest := text[nlLen:]

	closeIdx := -1
	closeLen := 0
	for _, marker := range []string{"\n---\r\n", "\n---\n"} {
		if idx := strings.Index(rest, marker); idx >= 0 {
			closeIdx, closeLen = idx, len(marker)
			break
		}
	}
	if closeIdx < 0 {
		// an unterminated block is not frontmatter at all; treat literally.
		return contextFrontmatter{}, text, nil
	}

	raw := rest[:closeIdx]
	body := rest[closeIdx+closeLen:]

	var fm contextFrontmatter
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return contextFrontmatter{}, "", pipeline.NewUserError(pipeline.KindTemplateParseError,
			fmt.Sprintf("parsing context frontmatter: %v", err), err)
	}
	return fm, body, nil
}

var placeholderRefRe = regexp.MustCompile(`\$\{([^}]*)\}`)

// extractPlaceholderRefs returns every `${...}` reference's inner text, in
// order of first appearance (duplicates included), mirroring
// original_source/lg/context/resolver.py's _Template.placeholders regex.
func extractPlaceholderRefs(text string) []string {
	matches := placeholderRefRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// collectSections walks text's `${...}` references, recursing through
// tpl:/ctx: includes to gather the transitive set of section names a
// context would render, in traversal order. Sections gated behind
// {% if %}/{% mode %} blocks are still collected: collection scans the raw
// text and never evaluates a condition, per spec.md §4.2. stack carries the
// chain of template/context names currently being expanded, for cycle
// detection (KindTemplateCycle), mirroring
// _collect_sections_counts_from_template's explicit stack argument.
func (rc *renderCtx) collectSections(text string, stack []string) ([]string, error) {
	var out []string
	for _, ref := range extractPlaceholderRefs(text) {
		switch {
		case strings.HasPrefix(ref, "tpl:"):
			name := strings.TrimSpace(strings.TrimPrefix(ref, "tpl:"))
			sub, err := rc.loadAndCollect(name, templateExt, stack)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		case strings.HasPrefix(ref, "ctx:"):
			name := strings.TrimSpace(strings.TrimPrefix(ref, "ctx:"))
			sub, err := rc.loadAndCollect(name, contextExt, stack)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		case strings.HasPrefix(ref, "section:"):
			out = append(out, strings.TrimSpace(strings.TrimPrefix(ref, "section:")))
		default:
			out = append(out, ref)
		}
	}
	return out, nil
}

func (rc *renderCtx) loadAndCollect(name, ext string, stack []string) ([]string, error) {
	for _, s := range stack {
		if s == name {
			return nil, pipeline.NewUserError(pipeline.KindTemplateCycle,
				fmt.Sprintf("include cycle: %s -> %s", strings.Join(stack, " -> "), name), nil)
		}
	}

	// Collection only follows same-scope, root-relative includes; an
	// addressed (@origin:) include inside a collected template still
	// contributes its own placeholders once actually rendered, but a
	// cross-scope collection pass would need its own addressing.Context
	// frame per include and is left to template.Processor's render-time
	// traversal (see RenderContext's IncludeResolver).
	path := filepath.Join(rc.e.CfgRoot, name+ext)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipeline.NewUserError(pipeline.KindTemplateProcessingError,
			fmt.Sprintf("loading %q for section collection: %v", name, err), err)
	}

	body := string(data)
	if ext == contextExt {
		_, body, err = splitFrontmatter(body)
		if err != nil {
			return nil, err
		}
	}
	return rc.collectSections(body, append(append([]string{}, stack...), name))
}

// mergeModelForRefs resolves each of refs through the extends resolver and
// merges their adaptive models in order, per
// original_source/lg/adaptive/context_resolver.py's _merge_collected_sections
// (frontmatter includes first, then template sections in order of first
// appearance -- refs must already be in that combined order).
func (rc *renderCtx) mergeModelForRefs(refs []string) (adaptive.Model, error) {
	merged := adaptive.NewModel()
	for _, name := range refs {
		resolved, err := rc.extends.Resolve(name, rc.e.RepoRoot, rc.addr.CurrentDir())
		if err != nil {
			return adaptive.Model{}, err
		}
		merged = merged.MergeWith(resolved.Model)
	}
	return merged, nil
}

// engineIncludeResolver adapts Engine's root scope to template.IncludeResolver,
// loading tpl:/ctx: includes by bare name relative to lg-cfg/. Context
// includes have their frontmatter stripped before being handed back for
// processing, matching how a top-level context's own frontmatter is never
// part of its rendered body.
type engineIncludeResolver struct {
	e *Engine
}

func (r *engineIncludeResolver) LoadTemplate(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.e.CfgRoot, name+templateExt))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *engineIncludeResolver) LoadContext(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.e.CfgRoot, name+contextExt))
	if err != nil {
		return "", err
	}
	_, body, err := splitFrontmatter(string(data))
	return body, err
}

// RenderContext renders the named context file: it extracts and strips the
// leading frontmatter block, collects every section the body transitively
// references, resolves and merges their adaptive models in traversal order,
// validates the merged model against opts.Provider (if any), then runs the
// body through the template processor -- substituting `${name}` sections
// via renderSection and `${tpl:...}`/`${ctx:...}` includes recursively.
// Grounded on original_source/lg/engine.py's _pipeline_common and
// lg/adaptive/context_resolver.py's ContextResolver.resolve_for_context.
func (e *Engine) RenderContext(name string, opts Options) (string, stats.Report, error) {
	raw, err := os.ReadFile(filepath.Join(e.CfgRoot, name+contextExt))
	if err != nil {
		return "", stats.Report{}, pipeline.NewUserError(pipeline.KindScopeNotFound,
			fmt.Sprintf("context %q not found: %v", name, err), err)
	}

	fm, body, err := splitFrontmatter(string(raw))
	if err != nil {
		return "", stats.Report{}, err
	}

	collector, err := e.prepareStats(opts, name)
	if err != nil {
		return "", stats.Report{}, err
	}
	rc := newRenderCtx(e, opts, collector)

	bodyRefs, err := rc.collectSections(body, []string{name})
	if err != nil {
		return "", stats.Report{}, err
	}
	allRefs := append(append([]string{}, fm.Include...), bodyRefs...)

	model, err := rc.mergeModelForRefs(allRefs)
	if err != nil {
		return "", stats.Report{}, err
	}
	if opts.Provider != "" {
		model, err = adaptive.ValidateProviderSupport(model, opts.Provider, name)
		if err != nil {
			return "", stats.Report{}, err
		}
	}

	cond := rc.conditionFor(model)
	tmplCtx := template.NewContext(cond)
	proc := template.NewProcessor(tmplCtx)
	proc.SetModeResolver(model)
	proc.SetIncludeResolver(&engineIncludeResolver{e: e})
	proc.SetSectionHandler(func(ref pipeline.SectionRef, _ *template.Context) (string, error) {
		return rc.renderSection(ref.Name)
	})

	text, err := proc.ProcessText(body, name)
	if err != nil {
		return "", stats.Report{}, err
	}

	collector.SetFinalText(text)
	report, err := collector.ComputeReport("context")
	return text, report, err
}
