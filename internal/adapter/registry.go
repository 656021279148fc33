package adapter

import (
	"path/filepath"
	"strings"
)

// passthroughBasenames mirrors manifest's special-basename set: these files
// are always handed to the "base" (passthrough) adapter regardless of
// extension, since they carry no language-specific structure to strip.
var passthroughBasenames = map[string]bool{
	"readme":         true,
	"dockerfile":     true,
	"makefile":       true,
	"pyproject.toml": true,
}

// compressExtensions lists the source-code extensions routed through the
// signature-preserving "compress" adapter rather than the generic fallback.
var compressExtensions = []string{
	".py", ".go", ".js", ".jsx", ".ts", ".tsx", ".java", ".rb", ".rs",
	".c", ".h", ".cpp", ".cc", ".cs", ".php", ".kt", ".swift",
}

// Registry is the static per-extension adapter table. It is built once at
// construction (NewRegistry); nothing registers into it at runtime, as
// SPEC_FULL.md's adapter section notes (no monkey-patching).
type Registry struct {
	byName   map[string]Adapter
	byExt    map[string]Adapter
	fallback Adapter
}

// NewRegistry builds the registry with the four built-in adapters: base,
// markdown, generic_source, compress.
func NewRegistry() *Registry {
	r := &Registry{byName: map[string]Adapter{}, byExt: map[string]Adapter{}}

	base := &BaseAdapter{}
	markdown := &MarkdownAdapter{}
	generic := &GenericSourceAdapter{}
	compress := &CompressAdapter{}

	r.register(base)
	r.register(markdown)
	r.register(generic)
	r.register(compress)
	r.fallback = generic

	return r
}

func (r *Registry) register(a Adapter) {
	r.byName[a.Name()] = a
	for _, ext := range a.Extensions() {
		r.byExt[strings.ToLower(ext)] = a
	}
}

// AdapterForPath resolves the extension registry lookup for path, per
// spec.md §4.6 step 1: passthrough basenames and markdown/compress
// extensions first, generic_source as the "unknown -> fallback" case.
//
// Unlike the Python original, Go's BaseAdapter is not itself the unknown-
// extension fallback: the expanded spec names generic_source as the
// fallback for "languages with no dedicated adapter", reserving base for the
// passthrough-only basenames above.
func (r *Registry) AdapterForPath(path string) Adapter {
	base := strings.ToLower(filepath.Base(path))
	if passthroughBasenames[base] {
		return r.byName["base"]
	}
	ext := strings.ToLower(filepath.Ext(path))
	if a, ok := r.byExt[ext]; ok {
		return a
	}
	return r.fallback
}

// ByName looks up an adapter by its registered name, used to resolve the
// AdaptersCfg/AdapterOverrides maps keyed by adapter name.
func (r *Registry) ByName(name string) (Adapter, bool) {
	a, ok := r.byName[name]
	return a, ok
}
