package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractModelStringShorthand(t *testing.T) {
	t.Parallel()
	model, err := ExtractModel(map[string]any{
		"task": map[string]any{
			"modes": map[string]any{
				"ask": "Ask mode",
			},
		},
	}, nil)
	require.NoError(t, err)
	mode := model.ModeSets["task"].Modes["ask"]
	assert.Equal(t, "Ask mode", mode.Title)
	assert.Equal(t, "all", mode.VCSMode)
}

func TestExtractModelFullMapping(t *testing.T) {
	t.Parallel()
	model, err := ExtractModel(map[string]any{
		"ai-interaction": map[string]any{
			"title": "AI Interaction",
			"modes": map[string]any{
				"ask": map[string]any{
					"title": "Ask",
					"tags":  []any{"readonly"},
					"runs": map[string]any{
						"com.test.cli": "--ask",
					},
				},
			},
		},
	}, map[string]any{
		"topic": map[string]any{
			"tags": []any{"readonly", "writable"},
		},
	})
	require.NoError(t, err)

	ms := model.ModeSets["ai-interaction"]
	assert.Equal(t, "AI Interaction", ms.Title)
	assert.True(t, ms.IsIntegration())

	mode := ms.Modes["ask"]
	assert.Equal(t, []string{"readonly"}, mode.Tags)
	assert.True(t, mode.HasProvider("com.test.cli"))

	ts := model.TagSets["topic"]
	assert.Contains(t, ts.Tags, "readonly")
	assert.Contains(t, ts.Tags, "writable")
}

func TestModelMergeChildWins(t *testing.T) {
	t.Parallel()
	parent := NewModel()
	parent.ModeSets["task"] = ModeSet{ID: "task", Title: "Parent", Modes: map[string]Mode{
		"ask":  {ID: "ask", Title: "Ask (parent)"},
		"code": {ID: "code", Title: "Code"},
	}}

	child := NewModel()
	child.ModeSets["task"] = ModeSet{ID: "task", Title: "Child", Modes: map[string]Mode{
		"ask": {ID: "ask", Title: "Ask (child)"},
	}}

	merged := parent.MergeWith(child)
	ms := merged.ModeSets["task"]
	assert.Equal(t, "Child", ms.Title)
	assert.Equal(t, "Ask (child)", ms.Modes["ask"].Title)
	assert.Equal(t, "Code", ms.Modes["code"].Title)
}

func TestModelMergeIdempotent(t *testing.T) {
	t.Parallel()
	m := NewModel()
	m.ModeSets["task"] = ModeSet{ID: "task", Modes: map[string]Mode{"ask": {ID: "ask", Title: "Ask"}}}

	once := m.MergeWith(NewModel())
	twice := once.MergeWith(NewModel())
	assert.Equal(t, once.ModeSets["task"].Modes["ask"].Title, twice.ModeSets["task"].Modes["ask"].Title)
}

func TestModelMergeAssociative(t *testing.T) {
	t.Parallel()
	a := NewModel()
	a.TagSets["topic"] = TagSet{ID: "topic", Tags: map[string]Tag{"x": {ID: "x", Title: "X"}}}
	b := NewModel()
	b.TagSets["topic"] = TagSet{ID: "topic", Tags: map[string]Tag{"y": {ID: "y", Title: "Y"}}}
	c := NewModel()
	c.TagSets["topic"] = TagSet{ID: "topic", Tags: map[string]Tag{"y": {ID: "y", Title: "Y overridden"}}}

	left := a.MergeWith(b).MergeWith(c)
	right := a.MergeWith(b.MergeWith(c))
	assert.Equal(t, left.TagSets["topic"].Tags, right.TagSets["topic"].Tags)
}

func TestFilterByProviderLeavesContentSetsAlone(t *testing.T) {
	t.Parallel()
	m := NewModel()
	m.ModeSets["task"] = ModeSet{ID: "task", Modes: map[string]Mode{
		"ask": {ID: "ask", Runs: map[string]string{"com.a": "--ask"}},
	}}
	m.ModeSets["style"] = ModeSet{ID: "style", Modes: map[string]Mode{
		"terse": {ID: "terse"},
	}}

	filtered := m.FilterByProvider("com.a")
	assert.Len(t, filtered.ModeSets["task"].Modes, 1)
	assert.Len(t, filtered.ModeSets["style"].Modes, 1)

	filteredOut := m.FilterByProvider("com.b")
	assert.Empty(t, filteredOut.ModeSets["task"].Modes)
}

func TestIntegrationAndContentModeSetsSorted(t *testing.T) {
	t.Parallel()
	m := NewModel()
	m.ModeSets["zeta"] = ModeSet{ID: "zeta", Modes: map[string]Mode{"a": {ID: "a", Runs: map[string]string{"p": "x"}}}}
	m.ModeSets["alpha"] = ModeSet{ID: "alpha", Modes: map[string]Mode{"a": {ID: "a", Runs: map[string]string{"p": "x"}}}}
	m.ModeSets["style"] = ModeSet{ID: "style", Modes: map[string]Mode{"a": {ID: "a"}}}

	integration := m.IntegrationModeSets()
	require.Len(t, integration, 2)
	assert.Equal(t, "alpha", integration[0].ID)
	assert.Equal(t, "zeta", integration[1].ID)

	content := m.ContentModeSets()
	require.Len(t, content, 1)
	assert.Equal(t, "style", content[0].ID)
}
