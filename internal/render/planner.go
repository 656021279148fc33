package render

import "github.com/lgctx/lgctx/internal/pipeline"

// SectionPlan is the Planner's output for one section: whether it renders
// fenced or unfenced, the file-label map, and the language-grouping spans
// over the manifest's (ordered) file list. Grounded on
// original_source/lg/rendering/planner.py's build_section_plan.
type SectionPlan struct {
	Manifest pipeline.SectionManifest
	Labels   map[string]string
	MDOnly   bool
	UseFence bool
	Spans    []pipeline.GroupSpan
}

// Plan builds a SectionPlan for manifest. useFence is
// codeFenceGlobal && sectionCodeFence && !mdOnly, per spec.md §4.7.
func Plan(manifest pipeline.SectionManifest, origin string, codeFenceGlobal, sectionCodeFence bool) SectionPlan {
	if len(manifest.Files) == 0 {
		return SectionPlan{Manifest: manifest, Labels: map[string]string{}, MDOnly: true}
	}

	mdOnly := manifest.IsDocOnly
	useFence := codeFenceGlobal && sectionCodeFence && !mdOnly

	hints := make([]string, len(manifest.Files))
	relPaths := make([]string, len(manifest.Files))
	for i, f := range manifest.Files {
		hints[i] = f.LanguageHint
		relPaths[i] = f.RelPath
	}

	return SectionPlan{
		Manifest: manifest,
		Labels:   BuildLabels(relPaths, manifest.PathLabels, origin),
		MDOnly:   mdOnly,
		UseFence: useFence,
		Spans:    pipeline.PlanGroups(hints, useFence),
	}
}
