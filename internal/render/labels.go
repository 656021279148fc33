// Package render implements Component L: the Planner (language grouping)
// and Renderer (fenced/unfenced markdown assembly) described in spec.md
// §4.7, grounded on original_source/lg/rendering/{labels,planner,renderer}.py.
package render

import (
	"strings"

	"github.com/lgctx/lgctx/internal/pipeline"
)

// BuildLabels computes the {rel_path -> label} map for one section's files
// under the given path-label policy, ported from
// original_source/lg/rendering/labels.py's build_labels.
func BuildLabels(relPaths []string, mode pipeline.PathLabelPolicy, origin string) map[string]string {
	if len(relPaths) == 0 {
		return map[string]string{}
	}

	switch mode {
	case pipeline.PathLabelRelative:
		return identityLabels(relPaths)

	case pipeline.PathLabelBasename:
		parts := make([][]string, len(relPaths))
		for i, p := range relPaths {
			parts[i] = strings.Split(p, "/")
		}
		suffixes := minimalUniqueSuffixes(parts)
		out := make(map[string]string, len(relPaths))
		for i, p := range relPaths {
			out[p] = suffixes[i]
		}
		return out

	case pipeline.PathLabelScopeRelative:
		if origin == "" || origin == "self" {
			return identityLabels(relPaths)
		}
		prefix := strings.TrimRight(origin, "/") + "/"
		bareOrigin := strings.TrimRight(origin, "/")
		out := make(map[string]string, len(relPaths))
		for _, p := range relPaths {
			switch {
			case strings.HasPrefix(p, prefix):
				out[p] = p[len(prefix):]
			case p == bareOrigin:
				parts := strings.Split(p, "/")
				out[p] = parts[len(parts)-1]
			default:
				out[p] = p
			}
		}
		return out

	default:
		return identityLabels(relPaths)
	}
}

func identityLabels(relPaths []string) map[string]string {
	out := make(map[string]string, len(relPaths))
	for _, p := range relPaths {
		out[p] = p
	}
	return out
}

// minimalUniqueSuffixes finds, for each path (as a slice of POSIX
// components), the shortest path-component suffix that disambiguates it
// from every other path in the set, extending every currently-colliding
// path by one more component simultaneously each round until no
// collisions remain. Ported from labels.py's _minimal_unique_suffixes.
func minimalUniqueSuffixes(paths [][]string) []string {
	n := len(paths)
	suffixLen := make([]int, n)
	for i := range suffixLen {
		suffixLen[i] = 1
	}

	key := func(i int) string {
		p := paths[i]
		start := len(p) - suffixLen[i]
		if start < 0 {
			start = 0
		}
		return strings.Join(p[start:], "/")
	}

	for {
		seen := map[string]int{}
		for i := 0; i < n; i++ {
			seen[key(i)]++
		}
		changed := false
		for i := 0; i < n; i++ {
			if seen[key(i)] > 1 && suffixLen[i] < len(paths[i]) {
				suffixLen[i]++
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	out := make([]string, n)
	for i := range out {
		out[i] = key(i)
	}
	return out
}
