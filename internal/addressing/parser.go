package addressing

import (
	"fmt"
	"strings"

	"github.com/lgctx/lgctx/internal/pipeline"
)

// Parse parses a raw reference string (as it appears after a placeholder's
// prefix, e.g. the "name" in "${name}" or the "path" in "${md@..:path}")
// against cfg, producing a ParsedPath ready for Resolve.
func Parse(raw string, cfg ResourceConfig) (ParsedPath, error) {
	origin := ""
	originExplicit := false
	rest := raw

	if strings.HasPrefix(raw, "@") {
		originExplicit = true
		var err error
		origin, rest, err = SplitOriginPrefix(raw)
		if err != nil {
			return ParsedPath{}, err
		}
	}

	isAbsolute := strings.HasPrefix(rest, "/")
	path := strings.TrimPrefix(rest, "/")

	if cfg.StripMDSyntax {
		path = stripAnchorAndParams(path)
	}
	if cfg.Extension != "" && !strings.HasSuffix(path, cfg.Extension) {
		path += cfg.Extension
	}

	return ParsedPath{
		Config:         cfg,
		Origin:         origin,
		OriginExplicit: originExplicit,
		Path:           path,
		IsAbsolute:     isAbsolute,
	}, nil
}

// SplitOriginPrefix splits a raw reference beginning with "@" into its
// origin and the remaining path, handling both "@origin:name" and the
// bracketed "@[origin]:name" form for origins that themselves contain ":".
// "@/:name" and "@:name" both yield the root-scope origin "/". Exported for
// reuse by packages (e.g. adaptive's extends resolver) that need to parse
// an addressed reference without going through the full Parse/Resolve
// pipeline.
func SplitOriginPrefix(raw string) (origin, rest string, err error) {
	if strings.HasPrefix(raw, "@[") {
		closeIdx := strings.Index(raw, "]:")
		if closeIdx < 0 {
			return "", "", &pipeline.UserError{
				Kind:    pipeline.KindAddressingError,
				Message: fmt.Sprintf("invalid bracketed reference %q: missing \"]:\"", raw),
			}
		}
		origin = raw[2:closeIdx]
		rest = raw[closeIdx+2:]
	} else {
		body := raw[1:]
		idx := strings.Index(body, ":")
		if idx < 0 {
			return "", "", &pipeline.UserError{
				Kind:    pipeline.KindAddressingError,
				Message: fmt.Sprintf("invalid reference %q: missing ':' after '@'", raw),
			}
		}
		origin = body[:idx]
		rest = body[idx+1:]
	}
	if origin == "" || origin == "/" {
		origin = "/"
	}
	return origin, rest, nil
}

// stripAnchorAndParams removes a trailing "#anchor" and/or ",params"
// suffix, per the md: reference's strip_md_syntax handling.
func stripAnchorAndParams(path string) string {
	if idx := strings.IndexAny(path, "#,"); idx >= 0 {
		return path[:idx]
	}
	return path
}
