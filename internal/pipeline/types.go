// Package pipeline defines the data transfer objects shared across the
// engine's stages. Addressing, the adaptive model, manifest building, the
// adapter pipeline, rendering, and stats collection all operate on the same
// DTOs defined here.
//
// This package has zero dependency on any other internal package -- only
// stdlib types -- so every other package can import it without creating an
// import cycle.
package pipeline

import "fmt"

// ExitCode represents the process exit code returned by the lgctx CLI.
type ExitCode int

const (
	// ExitSuccess indicates the run completed successfully.
	ExitSuccess ExitCode = 0

	// ExitError indicates a fatal user-facing error. See UserErrorKind for
	// the full taxonomy.
	ExitError ExitCode = 1
)

// SectionRef identifies a section by the scope it was resolved in and its
// name within that scope. Two sections with the same Name in different
// scopes are distinct resources; CanonKey distinguishes them.
type SectionRef struct {
	// ScopeRel is the scope directory's path relative to the repo root.
	// Empty string denotes the root scope.
	ScopeRel string

	// Name is the section's name as looked up within its scope.
	Name string
}

// CanonKey returns the canonical identity string for a section reference:
// "@<scope_rel>:<name>", or just "<name>" when ScopeRel is the root scope.
func (r SectionRef) CanonKey() string {
	if r.ScopeRel == "" {
		return r.Name
	}
	return fmt.Sprintf("@%s:%s", r.ScopeRel, r.Name)
}

// VCSMode selects how the manifest builder restricts files by version
// control state.
type VCSMode string

const (
	VCSModeAll           VCSMode = "all"
	VCSModeChanges       VCSMode = "changes"
	VCSModeBranchChanges VCSMode = "branch-changes"
)

// EmptyPolicy controls whether a zero-byte file is included in a section's
// manifest, overriding the section's skip_empty setting on a per-adapter
// basis.
type EmptyPolicy string

const (
	EmptyPolicyInherit EmptyPolicy = "inherit"
	EmptyPolicyInclude EmptyPolicy = "include"
	EmptyPolicyExclude EmptyPolicy = "exclude"
)

// PathLabelPolicy selects how file labels are rendered in file markers.
type PathLabelPolicy string

const (
	PathLabelScopeRelative PathLabelPolicy = "scope_relative"
	PathLabelRelative      PathLabelPolicy = "relative"
	PathLabelBasename      PathLabelPolicy = "basename"
)

// FileEntry is one file selected into a section's manifest by the manifest
// builder. AdapterOverrides holds per-path adapter option patches derived
// from the section's `targets` rules, keyed by adapter name.
type FileEntry struct {
	AbsPath          string
	RelPath          string
	LanguageHint     string
	AdapterOverrides map[string]map[string]any
}

// SectionManifest is the manifest builder's output for one resolved section:
// the ordered, filtered set of files plus the resolved per-adapter configs
// that apply to this section.
type SectionManifest struct {
	Ref         SectionRef
	Files       []FileEntry
	PathLabels  PathLabelPolicy
	AdaptersCfg map[string]map[string]any
	IsDocOnly   bool
	UsedVCSMode VCSMode
}

// ProcessedFile is the adapter pipeline's output for one file: the processed
// text plus numeric/string diagnostics in Meta. Numeric Meta entries
// aggregate into the stats report's metaSummary.
type ProcessedFile struct {
	AbsPath       string
	RelPath       string
	LanguageHint  string
	ProcessedText string
	RawText       string
	Meta          map[string]any
	CacheKey      string
}

// IsValid reports whether the ProcessedFile carries the minimum fields
// required to participate in rendering.
func (p *ProcessedFile) IsValid() bool {
	return p.RelPath != ""
}

// FileGroup is one maximal run of files sharing a rendering language (when
// fencing is enabled) or a section's single mixed group (when it is not).
type FileGroup struct {
	Language string
	Files    []ProcessedFile
	Mixed    bool
}
