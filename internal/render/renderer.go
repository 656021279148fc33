package render

import (
	"strings"

	"github.com/lgctx/lgctx/internal/pipeline"
)

const (
	fileMarkerPrefix = "# —— FILE: "
	fileMarkerSuffix = " ——"
)

// RenderSection assembles a section's final text from its plan and the
// adapter pipeline's processed files, per spec.md §4.7:
//
//   - UseFence: one fenced block per language span, each file inside marked
//     with a "# —— FILE: <label> ——" header.
//   - MDOnly (implies !UseFence): processed texts concatenated, separated by
//     a blank line, no file markers and no fences.
//   - !MDOnly && !UseFence: a single mixed group, file markers but no
//     fences.
//
// Files present in the manifest but absent from processed (dropped by an
// adapter's should_skip) are silently omitted. The result has trailing
// whitespace trimmed and ends with exactly one newline when non-empty.
func RenderSection(plan SectionPlan, processed []pipeline.ProcessedFile) string {
	if len(plan.Manifest.Files) == 0 {
		return ""
	}

	byRel := make(map[string]pipeline.ProcessedFile, len(processed))
	for _, pf := range processed {
		byRel[pf.RelPath] = pf
	}

	var parts []string

	switch {
	case plan.UseFence:
		for _, span := range plan.Spans {
			if block, ok := renderFencedGroup(plan, span, byRel); ok {
				parts = append(parts, block)
			}
		}

	case plan.MDOnly:
		for _, f := range plan.Manifest.Files {
			pf, ok := byRel[f.RelPath]
			if !ok {
				continue
			}
			parts = append(parts, strings.TrimRight(pf.ProcessedText, "\n"))
		}

	default:
		if block := renderMarkedGroup(plan, plan.Manifest.Files, byRel); block != "" {
			parts = append(parts, block)
		}
	}

	if len(parts) == 0 {
		return ""
	}
	text := strings.TrimRight(strings.Join(parts, "\n\n"), " \t\n")
	if text == "" {
		return ""
	}
	return text + "\n"
}

func renderFencedGroup(plan SectionPlan, span pipeline.GroupSpan, byRel map[string]pipeline.ProcessedFile) (string, bool) {
	body := renderMarkedGroup(plan, plan.Manifest.Files[span.Start:span.End], byRel)
	if body == "" {
		return "", false
	}
	return "```" + span.Language + "\n" + body + "\n```", true
}

func renderMarkedGroup(plan SectionPlan, files []pipeline.FileEntry, byRel map[string]pipeline.ProcessedFile) string {
	var lines []string
	for _, f := range files {
		pf, ok := byRel[f.RelPath]
		if !ok {
			continue
		}
		label := plan.Labels[f.RelPath]
		lines = append(lines, fileMarkerPrefix+label+fileMarkerSuffix+"\n"+strings.TrimRight(pf.ProcessedText, "\n"))
	}
	return strings.Join(lines, "\n\n")
}
