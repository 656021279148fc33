package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgctx/lgctx/internal/cache"
	"github.com/lgctx/lgctx/internal/pipeline"
)

// wordTokenizer is a deterministic stand-in for the real tiktoken-backed
// tokenizer: one token per whitespace-separated word. Keeps the expected
// token counts in these tests simple integers.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

func (wordTokenizer) Name() string { return "word" }

func newTestCollector(t *testing.T, ctxLimit int) *Collector {
	t.Helper()
	c := cache.New(t.TempDir())
	return New(wordTokenizer{}, c, "test-model", ctxLimit)
}

func TestRegisterProcessedFileComputesSavedTokens(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t, 0)

	pf := pipeline.ProcessedFile{
		AbsPath:       t.TempDir() + "/a.go",
		RelPath:       "a.go",
		ProcessedText: "one two three",
		RawText:       "one two three four five six",
	}
	c.RegisterProcessedFile(pf, pipeline.SectionRef{Name: "code"})

	fs := c.files["a.go"]
	require.NotNil(t, fs)
	assert.Equal(t, 3, fs.tokensProcessed)
	assert.Equal(t, 6, fs.tokensRaw)
	assert.Equal(t, 3, fs.savedTokens)
	assert.InDelta(t, 50.0, fs.savedPct, 0.001)
	assert.Equal(t, []string{"code"}, fs.sections)
}

func TestRegisterProcessedFileSecondSectionAppendsWithoutRecounting(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t, 0)

	pf := pipeline.ProcessedFile{
		RelPath:       "a.go",
		ProcessedText: "one two",
		RawText:       "one two three",
	}
	c.RegisterProcessedFile(pf, pipeline.SectionRef{Name: "code"})
	c.RegisterProcessedFile(pf, pipeline.SectionRef{Name: "other"})

	fs := c.files["a.go"]
	require.NotNil(t, fs)
	assert.ElementsMatch(t, []string{"code", "other"}, fs.sections)
	assert.Equal(t, 1, len(c.files), "still a single file entry")
}

func TestRegisterSectionRenderedTalliesUsageAndMetaSummary(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t, 0)

	files := []pipeline.ProcessedFile{
		{AbsPath: "x", Meta: map[string]any{"generic.truncated": true, "generic.trimmed_lines": 4}},
		{AbsPath: "y", Meta: map[string]any{"generic.truncated": false, "generic.trimmed_lines": 2.0}},
	}
	ref := pipeline.SectionRef{Name: "code"}
	c.RegisterSectionRendered(ref, "one two three", files)
	c.RegisterSectionRendered(ref, "one two three", files)

	assert.Equal(t, 2, c.sectionsUsage["code"])
	ss := c.sections["code"]
	require.NotNil(t, ss)
	assert.Equal(t, 3, ss.tokensRendered)
	assert.Equal(t, 1, ss.metaSummary["generic.truncated"])
	assert.Equal(t, 6, ss.metaSummary["generic.trimmed_lines"])
}

func TestComputeReportBeforeSetFinalTextErrors(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t, 0)
	_, err := c.ComputeReport("section")
	assert.Error(t, err)
}

func TestComputeReportSectionScopeOmitsContextBlock(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t, 1000)
	c.SetTargetName("code")

	pf := pipeline.ProcessedFile{
		RelPath:       "a.go",
		ProcessedText: "one two three",
		RawText:       "one two three four",
	}
	c.RegisterProcessedFile(pf, pipeline.SectionRef{Name: "code"})
	c.SetFinalText("one two three")

	report, err := c.ComputeReport("section")
	require.NoError(t, err)
	assert.Equal(t, "section", report.Scope)
	assert.Equal(t, "sec:code", report.Target)
	assert.Nil(t, report.Context)
	assert.Equal(t, "word", report.Encoder)
	assert.Equal(t, "test-model", report.Model)
	require.Len(t, report.Files, 1)
	assert.Equal(t, "a.go", report.Files[0].Path)
	assert.Equal(t, 100.0, report.Files[0].PromptShare)
	assert.InDelta(t, 0.3, report.Files[0].CtxShare, 0.001)
}

func TestComputeReportContextScopeIncludesContextBlock(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t, 100)
	c.SetTargetName("main.lgctx.md")

	pf1 := pipeline.ProcessedFile{RelPath: "a.go", ProcessedText: "one two", RawText: "one two three"}
	pf2 := pipeline.ProcessedFile{RelPath: "b.go", ProcessedText: "four five", RawText: "four five six"}
	ref := pipeline.SectionRef{Name: "code"}
	c.RegisterProcessedFile(pf1, ref)
	c.RegisterProcessedFile(pf2, ref)
	c.RegisterSectionRendered(ref, "one two four five", []pipeline.ProcessedFile{pf1, pf2})

	finalText := "intro\none two four five\noutro"
	c.SetFinalText(finalText)

	report, err := c.ComputeReport("context")
	require.NoError(t, err)
	assert.Equal(t, "ctx:main.lgctx.md", report.Target)
	require.NotNil(t, report.Context)
	assert.Equal(t, "main.lgctx.md", report.Context.TemplateName)
	assert.Equal(t, 1, report.Context.SectionsUsed["code"])
	assert.Equal(t, 6, report.Context.FinalRenderedTokens)
	assert.Equal(t, 2, report.Context.TemplateOnlyTokens) // intro + outro
	assert.Equal(t, 4, report.Total.RenderedTokens)       // sections-only tokens
	assert.True(t, report.Context.TemplateOverheadPct > 0)
}

func TestExtractNumericMetaDropsNonNumericEntries(t *testing.T) {
	t.Parallel()
	meta := map[string]any{
		"flag":   true,
		"count":  3,
		"ratio":  1.5,
		"label":  "skip me",
		"nested": map[string]any{"x": 1},
	}
	out := extractNumericMeta(meta)
	assert.Equal(t, 1, out["flag"])
	assert.Equal(t, 3, out["count"])
	assert.Equal(t, 1, out["ratio"])
	_, hasLabel := out["label"]
	assert.False(t, hasLabel)
	_, hasNested := out["nested"]
	assert.False(t, hasNested)
}
