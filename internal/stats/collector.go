package stats

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/lgctx/lgctx/internal/cache"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/lgctx/lgctx/internal/tokenizer"
)

// Collector accumulates per-file and per-section token accounting as a
// render proceeds, then produces a final Report. Grounded on
// original_source/lg/stats/collector.py's StatsCollector: files register
// once (first registration wins; later registrations from other sections
// just note the extra section), sections register once per render, and the
// final report is only computable once the assembled output text is known.
//
// A Collector is safe for concurrent use: RegisterProcessedFile is called
// from the adapter pipeline's bounded worker pool.
type Collector struct {
	tokenizer  tokenizer.Tokenizer
	cache      *cache.Cache
	model      string
	ctxLimit   int
	targetName string

	mu            sync.Mutex
	files         map[string]*fileStats
	sections      map[string]*sectionStats
	sectionsUsage map[string]int
	finalText     string
	finalTextSet  bool
}

// New constructs a Collector. model identifies the model name stamped on the
// Report; ctxLimit is the model's context window, used to compute ctxShare
// figures (0 disables those figures, leaving them 0.0).
func New(tok tokenizer.Tokenizer, c *cache.Cache, model string, ctxLimit int) *Collector {
	return &Collector{
		tokenizer:     tok,
		cache:         c,
		model:         model,
		ctxLimit:      ctxLimit,
		files:         map[string]*fileStats{},
		sections:      map[string]*sectionStats{},
		sectionsUsage: map[string]int{},
	}
}

// SetTargetName records the addressing target (file, directory, or section
// reference) the run was invoked against, stamped into the Report's Target
// and, when applicable, the ContextBlock's TemplateName.
func (c *Collector) SetTargetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetName = name
}

func (c *Collector) countCached(text string) int {
	if n, ok := c.cache.GetTokens(text, c.model); ok {
		return n
	}
	n := c.tokenizer.Count(text)
	c.cache.PutTokens(text, c.model, n)
	return n
}

// RegisterProcessedFile records one file's raw/processed token accounting
// against a section. If the file was already registered (it appears in more
// than one section), only the section membership is updated; the token
// counts from the first registration are kept, matching collector.py's
// "first registration wins" rule.
func (c *Collector) RegisterProcessedFile(pf pipeline.ProcessedFile, ref pipeline.SectionRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	canon := ref.CanonKey()
	if fs, ok := c.files[pf.RelPath]; ok {
		for _, s := range fs.sections {
			if s == canon {
				return
			}
		}
		fs.sections = append(fs.sections, canon)
		return
	}

	tProc := c.countCached(pf.ProcessedText)
	tRaw := c.countCached(pf.RawText)
	saved := tRaw - tProc
	if saved < 0 {
		saved = 0
	}
	savedPct := 0.0
	if tRaw > 0 {
		savedPct = (1 - float64(tProc)/float64(tRaw)) * 100.0
	}

	var size int64
	if info, err := os.Stat(pf.AbsPath); err == nil {
		size = info.Size()
	}

	c.files[pf.RelPath] = &fileStats{
		path:            pf.RelPath,
		sizeBytes:       size,
		tokensRaw:       tRaw,
		tokensProcessed: tProc,
		savedTokens:     saved,
		savedPct:        savedPct,
		meta:            pf.Meta,
		sections:        []string{canon},
	}
}

// RegisterSectionRendered records a section's rendered text and the files it
// drew on, for use in the ContextBlock's sectionsUsed tally and the sections-
// only token figure subtracted from a template's overhead.
func (c *Collector) RegisterSectionRendered(ref pipeline.SectionRef, text string, files []pipeline.ProcessedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	canon := ref.CanonKey()
	c.sectionsUsage[canon]++

	var totalSize int64
	metaSummary := map[string]int{}
	for _, f := range files {
		if info, err := os.Stat(f.AbsPath); err == nil {
			totalSize += info.Size()
		}
		for k, v := range extractNumericMeta(f.Meta) {
			metaSummary[k] += v
		}
	}

	c.sections[canon] = &sectionStats{
		canonKey:       canon,
		tokensRendered: c.countCached(text),
		totalSizeBytes: totalSize,
		metaSummary:    metaSummary,
	}
}

// SetFinalText records the fully assembled output text (a single section's
// rendered text, or a whole template's rendered output). ComputeReport
// requires this to have been called.
func (c *Collector) SetFinalText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalText = text
	c.finalTextSet = true
}

// ComputeReport produces the final Report, per spec.md §6's report schema.
// scope is "context" for a whole-template render (which attaches a
// ContextBlock) or "section" for a single section render (ContextBlock is
// omitted). SetFinalText must be called first.
func (c *Collector) ComputeReport(scope string) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.finalTextSet {
		return Report{}, fmt.Errorf("stats: ComputeReport called before SetFinalText")
	}

	finalTokens := c.countCached(c.finalText)

	sectionsOnly := 0
	for _, s := range c.sections {
		sectionsOnly += s.tokensRendered
	}

	var totalRaw, totalProc int
	var totalSize int64
	metaSummary := map[string]int{}
	for _, f := range c.files {
		totalRaw += f.tokensRaw
		totalProc += f.tokensProcessed
		totalSize += f.sizeBytes
		for k, v := range extractNumericMeta(f.meta) {
			metaSummary[k] += v
		}
	}

	rows := make([]FileRow, 0, len(c.files))
	for _, f := range c.sortedFiles() {
		promptShare := 0.0
		if totalProc > 0 {
			promptShare = float64(f.tokensProcessed) / float64(totalProc) * 100.0
		}
		ctxShare := 0.0
		if c.ctxLimit > 0 {
			ctxShare = float64(f.tokensProcessed) / float64(c.ctxLimit) * 100.0
		}
		rows = append(rows, FileRow{
			Path:            f.path,
			SizeBytes:       f.sizeBytes,
			TokensRaw:       f.tokensRaw,
			TokensProcessed: f.tokensProcessed,
			SavedTokens:     f.savedTokens,
			SavedPct:        f.savedPct,
			PromptShare:     promptShare,
			CtxShare:        ctxShare,
			Meta:            f.meta,
		})
	}

	savedTotal := totalRaw - totalProc
	if savedTotal < 0 {
		savedTotal = 0
	}
	savedPctTotal := 0.0
	if totalRaw > 0 {
		savedPctTotal = (1 - float64(totalProc)/float64(totalRaw)) * 100.0
	}
	ctxShareTotal := 0.0
	if c.ctxLimit > 0 {
		ctxShareTotal = float64(totalProc) / float64(c.ctxLimit) * 100.0
	}
	renderedOverhead := sectionsOnly - totalProc
	if renderedOverhead < 0 {
		renderedOverhead = 0
	}

	targetPrefix := "sec"
	if scope == "context" {
		targetPrefix = "ctx"
	}

	report := Report{
		Protocol: ReportProtocol,
		Scope:    scope,
		Target:   targetPrefix + ":" + c.targetName,
		Model:    c.model,
		Encoder:  c.tokenizer.Name(),
		CtxLimit: c.ctxLimit,
		Total: Totals{
			SizeBytes:              totalSize,
			TokensProcessed:        totalProc,
			TokensRaw:              totalRaw,
			SavedTokens:            savedTotal,
			SavedPct:               savedPctTotal,
			CtxShare:               ctxShareTotal,
			RenderedTokens:         sectionsOnly,
			RenderedOverheadTokens: renderedOverhead,
			MetaSummary:            metaSummary,
		},
		Files: rows,
	}

	if scope == "context" {
		templateOnly := finalTokens - sectionsOnly
		if templateOnly < 0 {
			templateOnly = 0
		}
		templateOverheadPct := 0.0
		if finalTokens > 0 {
			templateOverheadPct = float64(templateOnly) / float64(finalTokens) * 100.0
		}
		finalCtxShare := 0.0
		if c.ctxLimit > 0 {
			finalCtxShare = float64(finalTokens) / float64(c.ctxLimit) * 100.0
		}
		report.Context = &ContextBlock{
			TemplateName:        c.targetName,
			SectionsUsed:        copyIntMap(c.sectionsUsage),
			FinalRenderedTokens: finalTokens,
			TemplateOnlyTokens:  templateOnly,
			TemplateOverheadPct: templateOverheadPct,
			FinalCtxShare:       finalCtxShare,
		}
	}

	return report, nil
}

func (c *Collector) sortedFiles() []*fileStats {
	out := make([]*fileStats, 0, len(c.files))
	for _, f := range c.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
