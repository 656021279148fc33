package migrate

import (
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// m002ServiceKeys are section-level keys that are never adapter configs, so
// m002 skips them when walking a section's children looking for adapter
// maps to patch. Ported from m002_skip_empty_to_enum.py's _SERVICE_KEYS.
var m002ServiceKeys = map[string]bool{
	"extensions": true, "filters": true, "skip_empty": true,
	"code_fence": true, "targets": true, "path_labels": true,
}

// m002EmptyPolicyEnum rewrites every adapter's skip_empty(bool) field to
// empty_policy(exclude|include). Grounded on
// migrations/m002_skip_empty_to_enum.py: it walks sections.yaml and every
// lg-cfg/**/*.sec.yaml, patching adapter maps both at the section's top
// level and inside each targets[] entry, leaving a section's own
// (unrelated) skip_empty key untouched.
type m002EmptyPolicyEnum struct{}

func (m002EmptyPolicyEnum) ID() int { return 2 }
func (m002EmptyPolicyEnum) Title() string {
	return "adapters: skip_empty(bool) to empty_policy(enum)"
}

func (m002EmptyPolicyEnum) Run(fs *CfgFs, allowSideEffects bool) (bool, error) {
	files, err := m002Candidates(fs)
	if err != nil {
		return false, err
	}
	changedAny := false
	for _, rel := range files {
		changed, err := rewriteYAML(filepath.Join(fs.CfgRoot, rel), m002TransformDoc)
		if err != nil {
			return changedAny, err
		}
		if changed {
			changedAny = true
		}
	}
	return changedAny, nil
}

func m002Candidates(fs *CfgFs) ([]string, error) {
	var files []string
	if fs.Exists("sections.yaml") {
		files = append(files, "sections.yaml")
	}
	secFiles, err := fs.GlobRel("**/*.sec.yaml")
	if err != nil {
		return nil, err
	}
	files = append(files, secFiles...)
	return files, nil
}

// m002TransformDoc patches every section in a sections document (a mapping
// of section name to section body).
func m002TransformDoc(doc *yaml.Node) bool {
	changed := false
	for _, e := range mapNodeEntries(doc) {
		if e.Value.Kind != yaml.MappingNode {
			continue
		}
		if m002PatchSection(e.Value) {
			changed = true
		}
	}
	return changed
}

func m002PatchSection(sec *yaml.Node) bool {
	changed := false
	for _, e := range mapNodeEntries(sec) {
		if m002ServiceKeys[e.Key] {
			continue
		}
		if e.Value.Kind == yaml.MappingNode && m002PatchAdapterMap(e.Value) {
			changed = true
		}
	}
	if targets := mapNodeGet(sec, "targets"); targets != nil && targets.Kind == yaml.SequenceNode {
		if m002PatchTargets(targets) {
			changed = true
		}
	}
	return changed
}

func m002PatchTargets(targets *yaml.Node) bool {
	changed := false
	for _, item := range targets.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		for _, e := range mapNodeEntries(item) {
			if e.Key == "match" {
				continue
			}
			if e.Value.Kind == yaml.MappingNode && m002PatchAdapterMap(e.Value) {
				changed = true
			}
		}
	}
	return changed
}

// m002PatchAdapterMap replaces one adapter map's skip_empty key in place.
// An unrecognized (non-boolean) value is dropped rather than guessed at,
// matching the original's "minimal edit" choice to let the adapter's
// default apply.
func m002PatchAdapterMap(amap *yaml.Node) bool {
	skipEmpty := mapNodeGet(amap, "skip_empty")
	if skipEmpty == nil {
		return false
	}
	b, ok := mapNodeBool(skipEmpty)
	mapNodeDelete(amap, "skip_empty")
	if !ok {
		return true
	}
	policy := "include"
	if b {
		policy = "exclude"
	}
	mapNodeSet(amap, "empty_policy", policy)
	return true
}

func init() { register(m002EmptyPolicyEnum{}) }
