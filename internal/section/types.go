// Package section implements the Section Store (spec.md §3, Component E):
// loading SectionConfig values from sections.yaml and *.sec.yaml, and
// maintaining a per-scope index invalidated by file-set + mtime comparison.
package section

import (
	"github.com/lgctx/lgctx/internal/filter"
	"github.com/lgctx/lgctx/internal/pipeline"
)

// TargetRule is one entry of a section's ordered `targets` list: a glob
// pattern paired with per-adapter option patches, applied to files that
// match it in addition to the section's default adapter config.
type TargetRule struct {
	Pattern          string
	AdapterOverrides map[string]map[string]any
}

// ConditionalOption is one `when` entry of an AdapterConfig: Options is
// merged onto BaseOptions when Condition evaluates true.
type ConditionalOption struct {
	Condition string
	Options   map[string]any
}

// AdapterConfig is the per-adapter configuration carried on a section.
// Effective options are BaseOptions overlaid by each matching Conditional in
// order (later wins), per spec.md §4.1 "AdapterConfig".
type AdapterConfig struct {
	BaseOptions []KV
	Conditional []ConditionalOption
}

// KV preserves source order for base option merges; map[string]any iteration
// order is not stable, and a later key in the same base map must still win
// in a deterministic, documented way (first to last).
type KV struct {
	Key   string
	Value any
}

// Effective merges BaseOptions and every Conditional whose Condition is in
// activeConditions (already evaluated by the caller) into a flat map.
func (a AdapterConfig) Effective(activeConditions map[string]bool) map[string]any {
	out := make(map[string]any, len(a.BaseOptions))
	for _, kv := range a.BaseOptions {
		out[kv.Key] = kv.Value
	}
	for _, cond := range a.Conditional {
		if !activeConditions[cond.Condition] {
			continue
		}
		for k, v := range cond.Options {
			out[k] = v
		}
	}
	return out
}

// SectionConfig is one named section within a scope (spec.md §3).
type SectionConfig struct {
	Name       string
	Extends    []string
	Extensions []string
	Filters    *filter.FilterNode
	Adapters   map[string]AdapterConfig
	Targets    []TargetRule
	ModeSetsRaw map[string]any
	TagSetsRaw  map[string]any
	PathLabels  pipeline.PathLabelPolicy
	SkipEmpty   bool
}

// IsMeta reports whether this section has no filter tree. Meta-sections may
// only be used through extends/frontmatter include; rendering one directly
// is a MetaSectionRenderError.
func (s *SectionConfig) IsMeta() bool {
	return s.Filters == nil
}
