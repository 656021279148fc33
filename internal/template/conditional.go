package template

import "regexp"

var (
	tplIfRe    = regexp.MustCompile(`\{%\s*if\s+(.+?)\s*%\}`)
	tplElifRe  = regexp.MustCompile(`\{%\s*elif\s+(.+?)\s*%\}`)
	tplElseRe  = regexp.MustCompile(`\{%\s*else\s*%\}`)
	tplEndifRe = regexp.MustCompile(`\{%\s*endif\s*%\}`)
)

// ifFrame tracks one open `{% if %}`/`{% elif %}`/`{% else %}` chain's
// state, shared by evalModeAndConditionalBlocks.
type ifFrame struct {
	taken    bool // some branch in this chain has already matched
	emitting bool // the currently active branch is emitting
}
