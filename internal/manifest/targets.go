package manifest

import (
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lgctx/lgctx/internal/section"
)

// targetSpec is one target rule prepared with its specificity metric:
// the total length of its patterns with wildcard characters removed. A
// higher specificity wins ties in source order (spec.md §4, "sorted by
// specificity ... then source order"), grounded on
// original_source/lg/filtering/manifest.py's _prepare_target_specs.
type targetSpec struct {
	specificity int
	order       int
	patterns    []string
	overrides   map[string]map[string]any
}

func prepareTargetSpecs(targets []section.TargetRule) []targetSpec {
	specs := make([]targetSpec, 0, len(targets))
	for i, t := range targets {
		clean := strings.NewReplacer("*", "", "?", "").Replace(t.Pattern)
		specs = append(specs, targetSpec{
			specificity: len(clean),
			order:       i,
			patterns:    []string{t.Pattern},
			overrides:   t.AdapterOverrides,
		})
	}
	return specs
}

// adapterOverridesFor computes the shallow-merged adapter option overrides
// that apply to relPath, evaluating specs from least to most specific so
// that a more specific target's patch wins on a shared key.
func adapterOverridesFor(relPath string, specs []targetSpec) map[string]map[string]any {
	ordered := append([]targetSpec{}, specs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].specificity != ordered[j].specificity {
			return ordered[i].specificity < ordered[j].specificity
		}
		return ordered[i].order < ordered[j].order
	})

	overrides := map[string]map[string]any{}
	for _, spec := range ordered {
		matched := false
		for _, pattern := range spec.patterns {
			rel := strings.TrimPrefix(pattern, "/")
			if ok, _ := doublestar.Match(rel, relPath); ok {
				matched = true
				break
			}
			if ok, _ := doublestar.Match(path.Join("**", rel), relPath); ok {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for adapterName, patch := range spec.overrides {
			merged := map[string]any{}
			for k, v := range overrides[adapterName] {
				merged[k] = v
			}
			for k, v := range patch {
				merged[k] = v
			}
			overrides[adapterName] = merged
		}
	}
	return overrides
}
