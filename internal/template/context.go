// Package template implements Component M (spec.md §4.8/§4.11): the
// `${…}` placeholder / `{% if %}` block template engine used by
// `.tpl.md`/`.ctx.md` documents, grounded in structure on
// original_source/lg/template (TemplateProcessor/TemplateContext, as
// exercised by tests/template/test_processor.py and test_context.py) and
// reusing internal/condition's grammar for conditional evaluation -- the
// same mechanism internal/adapter's markdown `lg:if` directives use.
package template

import "github.com/lgctx/lgctx/internal/condition"

// Context carries the tag state a template is evaluated against: the
// active tag set conditions query, plus any tags added via AddExtraTag.
// Tags activated by {% mode %} blocks are not stored here; they are kept on
// a stack while evalModeAndConditionalBlocks runs. Ported from
// TemplateContext in the original processor.
type Context struct {
	cond      condition.Context
	extraTags map[string]bool
}

// NewContext builds a Context from a base condition context. The active
// tags its Condition method reports are the union of base.ActiveTags and
// any tags added later via AddExtraTag.
func NewContext(base condition.Context) *Context {
	extra := map[string]bool{}
	return &Context{cond: base, extraTags: extra}
}

// AddExtraTag activates tag for the remainder of this template's
// evaluation.
func (c *Context) AddExtraTag(tag string) {
	c.extraTags[tag] = true
}

// Condition returns the condition.Context to evaluate {% if %} expressions
// against, folding in any tags added via AddExtraTag.
func (c *Context) Condition() condition.Context {
	merged := c.cond
	if len(c.extraTags) > 0 {
		active := make(map[string]bool, len(c.cond.ActiveTags)+len(c.extraTags))
		for t, v := range c.cond.ActiveTags {
			active[t] = v
		}
		for t, v := range c.extraTags {
			active[t] = v
		}
		merged.ActiveTags = active
	}
	return merged
}
