// Package addressing implements Component F (spec.md §4.1): parsing and
// resolving the engine's resource-reference syntax — bare names, absolute
// in-scope paths, and addressed cross-scope references — into concrete
// filesystem locations or section lookups.
package addressing

// ResourceConfig controls how one class of reference (section, template,
// context, or markdown-include) is parsed and resolved. Each caller in the
// template engine supplies its own config; the addressing logic itself is
// generic over it.
type ResourceConfig struct {
	// Name identifies the resource kind for diagnostics ("section",
	// "template", "context", "markdown").
	Name string

	// Extension is auto-appended to the parsed path if not already present.
	// Empty means no forced extension.
	Extension string

	// StripMDSyntax strips a trailing "#anchor" and/or ",params" suffix
	// before resolution (used by md: references).
	StripMDSyntax bool

	// ResolveOutsideCfg resolves the path relative to the scope directory
	// itself rather than its lg-cfg/ subdirectory.
	ResolveOutsideCfg bool

	// IsSection marks this as a section reference, resolved through a
	// section.Store rather than the filesystem directly.
	IsSection bool
}

// ParsedPath is the raw, unresolved form of a reference as written in a
// template, before any filesystem lookup.
type ParsedPath struct {
	Config ResourceConfig

	// Origin is "" for an implicit (context-inherited) origin, "/" for the
	// explicit repository-root origin, or a scope path such as ".." or
	// "../sibling" for an explicit addressed origin.
	Origin string

	// OriginExplicit is true iff the reference used an "@" form.
	OriginExplicit bool

	// Path is the resource path as given, after extension/anchor handling,
	// with any leading "/" stripped (see IsAbsolute).
	Path string

	// IsAbsolute is true iff the original (non-addressed) path started with
	// "/", meaning "relative to this scope's lg-cfg/ root" rather than the
	// current directory.
	IsAbsolute bool
}

// ResolvedResource is the common result shape shared by every resolved
// reference kind.
type ResolvedResource struct {
	ScopeDir string // absolute path to the scope directory (parent of lg-cfg/)
	ScopeRel string // scope directory's path relative to the repo root, POSIX
}

// ResolvedFile is the result of resolving a template/context/markdown
// reference to a concrete file.
type ResolvedFile struct {
	ResolvedResource
	CfgRoot      string // absolute path to the scope's lg-cfg/ (or scope dir, if ResolveOutsideCfg)
	ResourcePath string // absolute path to the resolved file
	ResourceRel  string // ResourcePath relative to CfgRoot, POSIX
}
