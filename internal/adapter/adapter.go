// Package adapter implements Component K: the per-language adapter pipeline
// that turns a selected file's raw text into the processed text that gets
// rendered into a section. Adapters are looked up by file extension from a
// small static registry (built once at init, grounded on
// original_source/lg/adapters/registry.py's "module + class name +
// extensions" contract, reified here as an explicit Go table since the
// language has no runtime import hook to mirror Python's lazy import), bound
// per distinct (name, frozen-config) pair, and invoked through the
// process-files algorithm in pipeline.go (grounded on
// original_source/lg/adapters/processor.py).
package adapter

import (
	"github.com/lgctx/lgctx/internal/condition"
)

// Adapter is a file-type handler: a name, the extensions it claims, and a
// bind step that turns raw per-section config into a BoundAdapter ready to
// process files.
type Adapter interface {
	Name() string
	Extensions() []string
	Bind(rawCfg map[string]any) (BoundAdapter, error)
}

// FileContext is everything a BoundAdapter needs to decide whether to skip a
// file and how to process it. Adapters must be pure functions of these
// fields (plus their bound config) -- spec.md §4.6's cache-correctness
// invariant depends on it.
type FileContext struct {
	AbsPath    string
	RelPath    string
	RawText    string
	Extension  string
	GroupSize  int
	Mixed      bool
	ActiveTags map[string]bool
	CondCtx    *condition.Context
}

// BoundAdapter is an Adapter bound to one frozen configuration.
type BoundAdapter interface {
	// ShouldSkip reports whether ctx's file should be dropped from the
	// section entirely (e.g. an empty file, or one whose content is all
	// boilerplate once stripped). Never called for the "base" adapter.
	ShouldSkip(ctx FileContext) bool

	// Process returns the file's processed text and a meta map of
	// diagnostics (numeric entries aggregate into the stats report).
	Process(ctx FileContext) (text string, meta map[string]any, err error)
}
