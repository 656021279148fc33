package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/lgctx/lgctx/internal/condition"
	"github.com/lgctx/lgctx/internal/pipeline"
)

// SectionHandler renders a `${name}` section placeholder to text, given the
// template-level context it was encountered under.
type SectionHandler func(ref pipeline.SectionRef, ctx *Context) (string, error)

// IncludeResolver loads `${tpl:name}`/`${ctx:name}` include targets. It
// returns the included text (not yet processed); the processor recursively
// runs it back through ProcessText, letting includes nest.
type IncludeResolver interface {
	LoadTemplate(name string) (text string, err error)
	LoadContext(name string) (text string, err error)
}

var (
	commentRe     = regexp.MustCompile(`\{#.*?#\}`)
	placeholderRe = regexp.MustCompile(`\$\{([^}]*)\}`)
)

// Processor coordinates placeholder substitution, conditional blocks, and
// includes across a template document. Grounded on
// original_source's TemplateProcessor (tests/template/test_processor.py):
// comments are stripped first, conditional blocks are resolved next, then
// placeholders are substituted, with tpl:/ctx: includes recursively run
// back through the same pipeline.
type Processor struct {
	ctx            *Context
	sectionHandler SectionHandler
	resolver       IncludeResolver
	modeResolver   ModeResolver

	mu            sync.Mutex
	templateCache map[string]string
	includeStack  []string
}

// NewProcessor constructs a Processor evaluating conditions against ctx.
func NewProcessor(ctx *Context) *Processor {
	return &Processor{ctx: ctx, templateCache: map[string]string{}}
}

// SetSectionHandler installs the callback used to render bare `${name}`
// placeholders. Without one, such placeholders are left as a normalized
// "${section:name}" literal, matching the original's no-handler behavior.
func (p *Processor) SetSectionHandler(h SectionHandler) { p.sectionHandler = h }

// SetIncludeResolver installs the callback used to load tpl:/ctx: includes.
func (p *Processor) SetIncludeResolver(r IncludeResolver) { p.resolver = r }

// SetModeResolver installs the callback used to resolve `{% mode %}`
// blocks' tags.
func (p *Processor) SetModeResolver(r ModeResolver) { p.modeResolver = r }

// ProcessText processes one template document's text, returning the fully
// substituted result. label identifies the document in error messages (a
// template name or file path); it may be empty.
func (p *Processor) ProcessText(text, label string) (string, error) {
	if err := p.pushInclude(label); err != nil {
		return "", err
	}
	defer p.popInclude()

	stripped := p.commentStripped(text, label)

	conditioned, err := evalModeAndConditionalBlocks(stripped, p.ctx.Condition(), p.modeResolver)
	if err != nil {
		if uerr, ok := err.(*pipeline.UserError); ok {
			return "", uerr
		}
		return "", pipeline.NewUserError(pipeline.KindTemplateParseError,
			fmt.Sprintf("template %q: %v", label, err), err)
	}

	return p.substitutePlaceholders(conditioned, label)
}

// commentStripped returns text with `{# ... #}` comments removed, caching
// the result by label (when non-empty) so a template included or processed
// more than once under the same name skips re-stripping. Mirrors the
// original processor's _template_cache, which memoizes the parsed form of
// a template keyed by name.
func (p *Processor) commentStripped(text, label string) string {
	if label == "" {
		return commentRe.ReplaceAllString(text, "")
	}

	p.mu.Lock()
	if cached, ok := p.templateCache[label]; ok {
		p.mu.Unlock()
		return cached
	}
	p.mu.Unlock()

	stripped := commentRe.ReplaceAllString(text, "")

	p.mu.Lock()
	p.templateCache[label] = stripped
	p.mu.Unlock()
	return stripped
}

func (p *Processor) pushInclude(label string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if label == "" {
		return nil
	}
	for _, l := range p.includeStack {
		if l == label {
			return pipeline.NewUserError(pipeline.KindTemplateCycle,
				fmt.Sprintf("template include cycle: %s -> %s", strings.Join(p.includeStack, " -> "), label), nil)
		}
	}
	p.includeStack = append(p.includeStack, label)
	return nil
}

func (p *Processor) popInclude() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.includeStack) > 0 {
		p.includeStack = p.includeStack[:len(p.includeStack)-1]
	}
}

func (p *Processor) substitutePlaceholders(text, label string) (string, error) {
	var outerErr error
	result := placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		if outerErr != nil {
			return match
		}
		inner := strings.TrimSpace(placeholderRe.FindStringSubmatch(match)[1])

		switch {
		case strings.HasPrefix(inner, "tpl:"):
			name := strings.TrimSpace(strings.TrimPrefix(inner, "tpl:"))
			included, err := p.includeOne(name, true)
			if err != nil {
				outerErr = err
				return match
			}
			return included

		case strings.HasPrefix(inner, "ctx:"):
			name := strings.TrimSpace(strings.TrimPrefix(inner, "ctx:"))
			included, err := p.includeOne(name, false)
			if err != nil {
				outerErr = err
				return match
			}
			return included

		default:
			name := inner
			if strings.HasPrefix(inner, "section:") {
				name = strings.TrimSpace(strings.TrimPrefix(inner, "section:"))
			}
			if p.sectionHandler == nil {
				return "${section:" + name + "}"
			}
			rendered, err := p.sectionHandler(pipeline.SectionRef{Name: name}, p.ctx)
			if err != nil {
				outerErr = err
				return match
			}
			return rendered
		}
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

func (p *Processor) includeOne(name string, isTemplate bool) (string, error) {
	if p.resolver == nil {
		return "", pipeline.NewUserError(pipeline.KindTemplateProcessingError,
			fmt.Sprintf("include %q: no include resolver configured", name), nil)
	}

	var raw string
	var err error
	if isTemplate {
		raw, err = p.resolver.LoadTemplate(name)
	} else {
		raw, err = p.resolver.LoadContext(name)
	}
	if err != nil {
		return "", pipeline.NewUserError(pipeline.KindTemplateProcessingError,
			fmt.Sprintf("include %q: resolution failed: %v", name, err), err)
	}

	return p.ProcessText(raw, name)
}
