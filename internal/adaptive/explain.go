package adaptive

import "sort"

// ModeView and TagSetView are JSON/human-listing projections of a Model,
// grounded on original_source/lg/adaptive/listing.py's
// _adaptive_model_to_mode_sets_list / _adaptive_model_to_tag_sets_list:
// maps keyed by id become id-sorted slices, so CLI and MCP output is
// deterministic across runs.
type ModeView struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Runs        map[string]string `json:"runs,omitempty"`
}

// ModeSetView is one mode-set's listing projection.
type ModeSetView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Integration bool       `json:"integration"`
	Modes       []ModeView `json:"modes"`
}

// TagView is one tag's listing projection.
type TagView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// TagSetView is one tag-set's listing projection.
type TagSetView struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Tags  []TagView `json:"tags"`
}

// ListModeSets converts m's mode-sets into a sorted, JSON-ready view,
// mirroring list_mode_sets's shape (a provider filter, if any, is expected
// to already have been applied to m via FilterByProvider before calling
// this, matching the Python resolve-then-filter-then-convert order).
func ListModeSets(m Model) []ModeSetView {
	out := make([]ModeSetView, 0, len(m.ModeSets))
	for id, ms := range m.ModeSets {
		modes := make([]ModeView, 0, len(ms.Modes))
		for modeID, mode := range ms.Modes {
			modes = append(modes, ModeView{
				ID:          modeID,
				Title:       mode.Title,
				Description: mode.Description,
				Tags:        mode.Tags,
				Runs:        mode.Runs,
			})
		}
		sort.Slice(modes, func(i, j int) bool { return modes[i].ID < modes[j].ID })
		out = append(out, ModeSetView{
			ID:          id,
			Title:       ms.Title,
			Integration: ms.IsIntegration(),
			Modes:       modes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListTagSets converts m's tag-sets into a sorted, JSON-ready view,
// mirroring list_tag_sets.
func ListTagSets(m Model) []TagSetView {
	out := make([]TagSetView, 0, len(m.TagSets))
	for id, ts := range m.TagSets {
		tags := make([]TagView, 0, len(ts.Tags))
		for tagID, tag := range ts.Tags {
			tags = append(tags, TagView{ID: tagID, Title: tag.Title, Description: tag.Description})
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
		out = append(out, TagSetView{ID: id, Title: ts.Title, Tags: tags})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
