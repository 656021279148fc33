// Package stats implements Component N: the incremental token-accounting
// collector described in spec.md §4.9, grounded on
// original_source/lg/stats/collector.py and report_builder.py. The
// collector is registered against as files and sections are processed and
// rendered; ComputeReport produces the final schema from spec.md §6.
package stats

// FileRow is one file's entry in a Report, per spec.md §6's report schema.
type FileRow struct {
	Path            string         `json:"path"`
	SizeBytes       int64          `json:"sizeBytes"`
	TokensRaw       int            `json:"tokensRaw"`
	TokensProcessed int            `json:"tokensProcessed"`
	SavedTokens     int            `json:"savedTokens"`
	SavedPct        float64        `json:"savedPct"`
	PromptShare     float64        `json:"promptShare"`
	CtxShare        float64        `json:"ctxShare"`
	Meta            map[string]any `json:"meta"`
}

// Totals is the report's document-wide numeric summary.
type Totals struct {
	SizeBytes              int64          `json:"sizeBytes"`
	TokensProcessed        int            `json:"tokensProcessed"`
	TokensRaw              int            `json:"tokensRaw"`
	SavedTokens            int            `json:"savedTokens"`
	SavedPct               float64        `json:"savedPct"`
	CtxShare               float64        `json:"ctxShare"`
	RenderedTokens         int            `json:"renderedTokens"`
	RenderedOverheadTokens int            `json:"renderedOverheadTokens"`
	MetaSummary            map[string]int `json:"metaSummary"`
}

// ContextBlock is the report's optional "context" section, present only
// when the report scope is "context" (a full template render, not a single
// section render).
type ContextBlock struct {
	TemplateName        string         `json:"templateName"`
	SectionsUsed        map[string]int `json:"sectionsUsed"`
	FinalRenderedTokens  int           `json:"finalRenderedTokens"`
	TemplateOnlyTokens   int           `json:"templateOnlyTokens"`
	TemplateOverheadPct  float64       `json:"templateOverheadPct"`
	FinalCtxShare        float64       `json:"finalCtxShare"`
}

// Report is the full token-accounting document, per spec.md §6's
// "Report schema".
type Report struct {
	Protocol string        `json:"protocol"`
	Scope    string        `json:"scope"` // "context" | "section"
	Target   string        `json:"target"`
	Model    string        `json:"model"`
	Encoder  string        `json:"encoder"`
	CtxLimit int           `json:"ctxLimit"`
	Total    Totals        `json:"total"`
	Files    []FileRow     `json:"files"`
	Context  *ContextBlock `json:"context,omitempty"`
}

// ReportProtocol is the fixed protocol identifier stamped on every Report.
const ReportProtocol = "lgctx/1"

type fileStats struct {
	path            string
	sizeBytes       int64
	tokensRaw       int
	tokensProcessed int
	savedTokens     int
	savedPct        float64
	meta            map[string]any
	sections        []string
}

type sectionStats struct {
	canonKey       string
	tokensRendered int
	totalSizeBytes int64
	metaSummary    map[string]int
}

// extractNumericMeta extracts the numeric (and boolean, coerced to 0/1)
// entries of meta for aggregation, dropping everything else. Ported from
// collector.py's _extract_numeric_meta.
func extractNumericMeta(meta map[string]any) map[string]int {
	out := map[string]int{}
	for k, v := range meta {
		switch n := v.(type) {
		case bool:
			if n {
				out[k] = 1
			} else {
				out[k] = 0
			}
		case int:
			out[k] = n
		case int64:
			out[k] = int(n)
		case float64:
			out[k] = int(n)
		}
	}
	return out
}
