package adapter

import (
	"fmt"
	"strings"
)

// GenericSourceAdapter is the fallback for any extension without a
// dedicated adapter: it trims boilerplate (shebang lines, trailing
// whitespace, runs of blank lines) but otherwise passes the source through
// unchanged. It is a pure function of (raw_text, cfg): the same input and
// config always yields the same output, independent of call order.
type GenericSourceAdapter struct{}

func (GenericSourceAdapter) Name() string        { return "generic_source" }
func (GenericSourceAdapter) Extensions() []string { return nil }

func (GenericSourceAdapter) Bind(rawCfg map[string]any) (BoundAdapter, error) {
	cfg := genericSourceConfig{
		stripShebang:       true,
		trimTrailingSpace:  true,
		collapseBlankLines: true,
	}
	if v, ok := rawCfg["strip_shebang"].(bool); ok {
		cfg.stripShebang = v
	}
	if v, ok := rawCfg["trim_trailing_whitespace"].(bool); ok {
		cfg.trimTrailingSpace = v
	}
	if v, ok := rawCfg["collapse_blank_lines"].(bool); ok {
		cfg.collapseBlankLines = v
	}
	if v, ok := asInt(rawCfg["max_lines"]); ok {
		cfg.maxLines = v
	}
	return boundGenericSource{cfg: cfg}, nil
}

type genericSourceConfig struct {
	stripShebang       bool
	trimTrailingSpace  bool
	collapseBlankLines bool
	maxLines           int
}

type boundGenericSource struct {
	cfg genericSourceConfig
}

func (b boundGenericSource) ShouldSkip(ctx FileContext) bool {
	return strings.TrimSpace(ctx.RawText) == ""
}

func (b boundGenericSource) Process(ctx FileContext) (string, map[string]any, error) {
	lines := strings.Split(ctx.RawText, "\n")
	origLines := len(lines)

	if b.cfg.stripShebang && len(lines) > 0 && strings.HasPrefix(lines[0], "#!") {
		lines = lines[1:]
	}

	if b.cfg.trimTrailingSpace {
		for i, l := range lines {
			lines[i] = strings.TrimRight(l, " \t")
		}
	}

	if b.cfg.collapseBlankLines {
		lines = collapseBlankRuns(lines)
	}

	truncated := false
	if b.cfg.maxLines > 0 && len(lines) > b.cfg.maxLines {
		lines = lines[:b.cfg.maxLines]
		truncated = true
	}

	out := strings.Join(lines, "\n")
	meta := map[string]any{
		"generic.trimmed_lines": origLines - len(lines),
	}
	if truncated {
		out += fmt.Sprintf("\n# ... truncated after %d lines ...", b.cfg.maxLines)
		meta["generic.truncated"] = true
	}
	return out, meta, nil
}

// collapseBlankRuns replaces any run of 2+ consecutive blank lines with a
// single blank line.
func collapseBlankRuns(lines []string) []string {
	out := make([]string, 0, len(lines))
	blankRun := false
	for _, l := range lines {
		isBlank := strings.TrimSpace(l) == ""
		if isBlank {
			if blankRun {
				continue
			}
			blankRun = true
		} else {
			blankRun = false
		}
		out = append(out, l)
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
