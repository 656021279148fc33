package adapter

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lgctx/lgctx/internal/condition"
)

// MarkdownAdapter strips YAML frontmatter and (optionally) rewrites heading
// levels, and -- when enable_templating is on -- evaluates the
// `<!-- lg:if/elif/else/endif -->` and `<!-- lg:comment:start/end -->`
// directives described in spec.md §4.8's "Markdown-only" row, using the
// same condition grammar as `{% if %}` template blocks.
type MarkdownAdapter struct{}

func (MarkdownAdapter) Name() string        { return "markdown" }
func (MarkdownAdapter) Extensions() []string { return []string{".md", ".markdown"} }

func (MarkdownAdapter) Bind(rawCfg map[string]any) (BoundAdapter, error) {
	cfg := markdownConfig{
		stripFrontmatter: true,
	}
	if v, ok := rawCfg["strip_frontmatter"].(bool); ok {
		cfg.stripFrontmatter = v
	}
	if v, ok := asInt(rawCfg["heading_offset"]); ok {
		cfg.headingOffset = v
	}
	if v, ok := rawCfg["enable_templating"].(bool); ok {
		cfg.enableTemplating = v
	}
	return boundMarkdown{cfg: cfg}, nil
}

type markdownConfig struct {
	stripFrontmatter bool
	headingOffset    int
	enableTemplating bool
}

type boundMarkdown struct {
	cfg markdownConfig
}

var frontmatterRe = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---\r?\n`)

func (b boundMarkdown) ShouldSkip(ctx FileContext) bool {
	text := ctx.RawText
	if b.cfg.stripFrontmatter {
		text = frontmatterRe.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text) == ""
}

func (b boundMarkdown) Process(ctx FileContext) (string, map[string]any, error) {
	text := ctx.RawText
	meta := map[string]any{}

	if b.cfg.stripFrontmatter {
		if loc := frontmatterRe.FindStringSubmatchIndex(text); loc != nil {
			var fm map[string]any
			_ = yaml.Unmarshal([]byte(text[loc[2]:loc[3]]), &fm)
			if fm != nil {
				meta["md.had_frontmatter"] = 1
			}
			text = text[loc[1]:]
		}
	}

	if b.cfg.enableTemplating {
		var err error
		text, err = evalMarkdownDirectives(text, ctx.CondCtx)
		if err != nil {
			return "", nil, err
		}
	}

	if b.cfg.headingOffset != 0 {
		var shifted int
		text, shifted = shiftHeadings(text, b.cfg.headingOffset)
		if shifted > 0 {
			meta["md.headings_shifted"] = shifted
		}
	}

	return text, meta, nil
}

var headingRe = regexp.MustCompile(`(?m)^(#{1,6})(\s+)`)

// shiftHeadings adds offset to every ATX heading's level, clamped to
// [1, 6].
func shiftHeadings(text string, offset int) (string, int) {
	count := 0
	out := headingRe.ReplaceAllStringFunc(text, func(m string) string {
		loc := headingRe.FindStringSubmatch(m)
		level := len(loc[1]) + offset
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		count++
		return strings.Repeat("#", level) + loc[2]
	})
	return out, count
}

var (
	lgIfRe      = regexp.MustCompile(`<!--\s*lg:if\s+(.+?)\s*-->`)
	lgElifRe    = regexp.MustCompile(`<!--\s*lg:elif\s+(.+?)\s*-->`)
	lgElseRe    = regexp.MustCompile(`<!--\s*lg:else\s*-->`)
	lgEndifRe   = regexp.MustCompile(`<!--\s*lg:endif\s*-->`)
	lgCommentOn = regexp.MustCompile(`<!--\s*lg:comment:start\s*-->`)
	lgCommentOf = regexp.MustCompile(`<!--\s*lg:comment:end\s*-->`)
)

// evalMarkdownDirectives strips lg:comment blocks and resolves lg:if/elif/
// else/endif chains against cond, line by line. It mirrors the lexical,
// single-pass evaluation order spec.md §4.8 prescribes for `{% if %}`.
func evalMarkdownDirectives(text string, cond *condition.Context) (string, error) {
	lines := strings.Split(text, "\n")
	var out []string

	inComment := false
	type ifState struct {
		taken     bool // some branch has already matched
		emitting  bool // the currently active branch is emitting
	}
	var stack []ifState

	emitting := func() bool {
		if inComment {
			return false
		}
		for _, s := range stack {
			if !s.emitting {
				return false
			}
		}
		return true
	}

	for _, line := range lines {
		switch {
		case lgCommentOn.MatchString(line):
			inComment = true
			continue
		case lgCommentOf.MatchString(line):
			inComment = false
			continue
		case lgIfRe.MatchString(line):
			m := lgIfRe.FindStringSubmatch(line)
			ok, err := condition.Evaluate(m[1], cond)
			if err != nil {
				return "", err
			}
			stack = append(stack, ifState{taken: ok, emitting: ok})
			continue
		case lgElifRe.MatchString(line):
			if len(stack) == 0 {
				continue
			}
			top := &stack[len(stack)-1]
			if top.taken {
				top.emitting = false
				continue
			}
			m := lgElifRe.FindStringSubmatch(line)
			ok, err := condition.Evaluate(m[1], cond)
			if err != nil {
				return "", err
			}
			top.emitting = ok
			top.taken = top.taken || ok
			continue
		case lgElseRe.MatchString(line):
			if len(stack) == 0 {
				continue
			}
			top := &stack[len(stack)-1]
			top.emitting = !top.taken
			top.taken = true
			continue
		case lgEndifRe.MatchString(line):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}

		if emitting() {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n"), nil
}
