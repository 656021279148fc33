package adapter

import (
	"context"
	"regexp"
	"strings"
)

// CompressAdapter produces a signature-preserving compression of source
// files: declarations (functions, classes, types) are kept, bodies are
// collapsed. When bound with a `wasm_module` option it delegates extraction
// to a wazero-hosted WASM module (§1's domain-stack table); otherwise it
// falls back to a brace/indentation heuristic that works across the common
// C-like and Python-like language families without per-language grammars.
type CompressAdapter struct{}

func (CompressAdapter) Name() string        { return "compress" }
func (CompressAdapter) Extensions() []string { return compressExtensions }

func (CompressAdapter) Bind(rawCfg map[string]any) (BoundAdapter, error) {
	cfg := compressConfig{}
	if v, ok := rawCfg["wasm_module"].(string); ok && v != "" {
		cfg.wasmModulePath = v
	}
	if v, ok := rawCfg["keep_comments"].(bool); ok {
		cfg.keepComments = v
	}

	b := boundCompress{cfg: cfg}
	if cfg.wasmModulePath != "" {
		ctx := context.Background()
		extractor, err := newWasmExtractor(ctx, cfg.wasmModulePath)
		if err != nil {
			// Degrade to the heuristic extractor rather than failing the
			// whole run over a missing/broken optional WASM module.
			return b, nil
		}
		b.extractor = extractor
	}
	return b, nil
}

type compressConfig struct {
	wasmModulePath string
	keepComments   bool
}

type boundCompress struct {
	cfg       compressConfig
	extractor *wasmExtractor
}

func (b boundCompress) ShouldSkip(ctx FileContext) bool {
	return strings.TrimSpace(ctx.RawText) == ""
}

func (b boundCompress) Process(ctx FileContext) (string, map[string]any, error) {
	if b.extractor != nil {
		out, err := b.extractor.Extract(context.Background(), []byte(ctx.RawText))
		if err == nil {
			return string(out), map[string]any{"compress.engine": "wasm"}, nil
		}
		// Extraction failure degrades to the heuristic path below rather
		// than surfacing an error for one file.
	}

	compressed, kept, total := heuristicSignatures(ctx.RawText, ctx.Extension, b.cfg.keepComments)
	meta := map[string]any{
		"compress.engine":     "heuristic",
		"compress.kept_lines": kept,
		"compress.raw_lines":  total,
	}
	return compressed, meta, nil
}

var signatureKeywords = regexp.MustCompile(
	`^\s*(def |class |func |fn |public |private |protected |static |interface |type |struct |enum |impl |module |namespace |const |var |let |export )`,
)

// heuristicSignatures keeps lines that look like declarations (by keyword,
// independent of language) and collapses everything else into a single
// "..." placeholder per contiguous run, preserving brace/indentation
// structure closers so the result stays readable.
func heuristicSignatures(text, ext string, keepComments bool) (string, int, int) {
	lines := strings.Split(text, "\n")
	var out []string
	bodyRun := false

	isCloser := func(l string) bool {
		t := strings.TrimSpace(l)
		return t == "}" || t == "end" || t == ")"
	}
	isComment := func(l string) bool {
		t := strings.TrimSpace(l)
		return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "*")
	}

	for _, l := range lines {
		keep := signatureKeywords.MatchString(l) || isCloser(l) || (keepComments && isComment(l))
		if keep {
			if bodyRun {
				out = append(out, "    ...")
				bodyRun = false
			}
			out = append(out, l)
			continue
		}
		if strings.TrimSpace(l) == "" {
			continue
		}
		bodyRun = true
	}
	if bodyRun {
		out = append(out, "    ...")
	}
	return strings.Join(out, "\n"), len(out), len(lines)
}
