package adaptive

import "fmt"

// ExtractModel builds a Model from a section's raw mode-sets/tag-sets maps
// as decoded from YAML (the shapes stored in section.SectionConfig's
// ModeSetsRaw/TagSetsRaw fields).
func ExtractModel(modeSetsRaw, tagSetsRaw map[string]any) (Model, error) {
	m := NewModel()

	for setID, raw := range modeSetsRaw {
		data, ok := asMap(raw)
		if !ok {
			return Model{}, fmt.Errorf("adaptive: mode-set %q: expected a mapping", setID)
		}
		ms, err := parseModeSet(setID, data)
		if err != nil {
			return Model{}, err
		}
		m.ModeSets[setID] = ms
	}

	for setID, raw := range tagSetsRaw {
		data, ok := asMap(raw)
		if !ok {
			return Model{}, fmt.Errorf("adaptive: tag-set %q: expected a mapping", setID)
		}
		ts, err := parseTagSet(setID, data)
		if err != nil {
			return Model{}, err
		}
		m.TagSets[setID] = ts
	}

	return m, nil
}

func parseModeSet(setID string, data map[string]any) (ModeSet, error) {
	ms := ModeSet{ID: setID, Title: setID, Modes: map[string]Mode{}}
	if title, ok := data["title"].(string); ok {
		ms.Title = title
	}
	modesRaw, ok := asMap(data["modes"])
	if !ok {
		return ms, nil
	}
	for modeID, raw := range modesRaw {
		mode, err := parseMode(modeID, raw)
		if err != nil {
			return ModeSet{}, fmt.Errorf("adaptive: mode-set %q: %w", setID, err)
		}
		ms.Modes[modeID] = mode
	}
	return ms, nil
}

func parseMode(modeID string, raw any) (Mode, error) {
	if s, ok := raw.(string); ok {
		return Mode{ID: modeID, Title: s, VCSMode: "all"}, nil
	}
	data, ok := asMap(raw)
	if !ok {
		return Mode{}, fmt.Errorf("mode %q: expected a mapping or string", modeID)
	}

	mode := Mode{ID: modeID, Title: modeID, VCSMode: "all"}
	if title, ok := data["title"].(string); ok {
		mode.Title = title
	}
	if desc, ok := data["description"].(string); ok {
		mode.Description = desc
	}
	if tags, ok := data["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				mode.Tags = append(mode.Tags, s)
			}
		}
	}
	if dt, ok := data["default_task"].(string); ok {
		mode.DefaultTask = dt
	}
	if vm, ok := data["vcs_mode"].(string); ok {
		mode.VCSMode = vm
	}
	if runs, ok := asMap(data["runs"]); ok {
		mode.Runs = make(map[string]string, len(runs))
		for provider, cmd := range runs {
			if s, ok := cmd.(string); ok {
				mode.Runs[provider] = s
			}
		}
	}
	return mode, nil
}

func parseTagSet(setID string, data map[string]any) (TagSet, error) {
	ts := TagSet{ID: setID, Title: setID, Tags: map[string]Tag{}}
	if title, ok := data["title"].(string); ok {
		ts.Title = title
	}
	tagsRaw, ok := asMap(data["tags"])
	if !ok {
		// Shorthand: a tag-set may list bare tag ids as a sequence.
		if seq, ok := data["tags"].([]any); ok {
			for _, t := range seq {
				if s, ok := t.(string); ok {
					ts.Tags[s] = Tag{ID: s, Title: s}
				}
			}
		}
		return ts, nil
	}
	for tagID, raw := range tagsRaw {
		ts.Tags[tagID] = parseTag(tagID, raw)
	}
	return ts, nil
}

func parseTag(tagID string, raw any) Tag {
	if s, ok := raw.(string); ok {
		return Tag{ID: tagID, Title: s}
	}
	data, ok := asMap(raw)
	if !ok {
		return Tag{ID: tagID, Title: tagID}
	}
	tag := Tag{ID: tagID, Title: tagID}
	if title, ok := data["title"].(string); ok {
		tag.Title = title
	}
	if desc, ok := data["description"].(string); ok {
		tag.Description = desc
	}
	return tag
}

// asMap normalizes the two shapes gopkg.in/yaml.v3 produces for a mapping
// decoded into `any`: map[string]any (already typed) or map[any]any (when
// reached through an interface{} chain without a concrete target type).
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}
