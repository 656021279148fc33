package section

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lgctx/lgctx/internal/fsutil"
)

// scopeIndex is the cached, parsed view of one scope's section files.
type scopeIndex struct {
	sections map[string]*SectionConfig
	// fileStates maps each contributing file's relative-to-lg-cfg path to
	// its fingerprint, used to invalidate the index on any add/remove/edit.
	fileStates map[string]fsutil.Fingerprint
}

// Store loads and caches SectionConfig values per scope, invalidating a
// scope's cached index whenever the set of *.sec.yaml files (or their
// mtime/size) under its lg-cfg/ changes, per spec.md §3 "Ownership and
// lifecycle".
type Store struct {
	mu     sync.Mutex
	scopes map[string]*scopeIndex // keyed by scope directory (absolute, cleaned)
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{scopes: map[string]*scopeIndex{}}
}

// Load returns the named section within scopeDir, reloading the scope's
// index first if any contributing file has changed since it was last
// cached. Returns ok=false if no such section exists in this scope.
func (s *Store) Load(scopeDir, name string) (*SectionConfig, bool, error) {
	idx, err := s.index(scopeDir)
	if err != nil {
		return nil, false, err
	}
	cfg, ok := idx.sections[name]
	return cfg, ok, nil
}

// Names returns every section name known in scopeDir, sorted.
func (s *Store) Names(scopeDir string) ([]string, error) {
	idx, err := s.index(scopeDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(idx.sections))
	for n := range idx.sections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// index returns the cached scopeIndex for scopeDir, rebuilding it if stale.
func (s *Store) index(scopeDir string) (*scopeIndex, error) {
	clean := filepath.Clean(scopeDir)

	s.mu.Lock()
	cached, ok := s.scopes[clean]
	s.mu.Unlock()

	files, err := discoverSectionFiles(clean)
	if err != nil {
		return nil, err
	}

	if ok && indexIsFresh(cached, files) {
		return cached, nil
	}

	fresh, err := buildIndex(clean, files)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.scopes[clean] = fresh
	s.mu.Unlock()
	return fresh, nil
}

// discoverSectionFiles finds sections.yaml and every *.sec.yaml under
// scopeDir/lg-cfg, returning absolute paths.
func discoverSectionFiles(scopeDir string) ([]string, error) {
	cfgDir := filepath.Join(scopeDir, fsutil.CfgDirName)
	entries, err := os.ReadDir(cfgDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("section: reading %s: %w", cfgDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "sections.yaml" || strings.HasSuffix(name, ".sec.yaml") {
			files = append(files, filepath.Join(cfgDir, name))
		}
	}

	// Recurse into subdirectories of lg-cfg for nested *.sec.yaml files,
	// whose directory path (relative to lg-cfg) becomes their name prefix.
	err = filepath.WalkDir(cfgDir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Dir(p) == cfgDir {
			return nil // top-level files already handled above
		}
		if strings.HasSuffix(d.Name(), ".sec.yaml") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("section: walking %s: %w", cfgDir, err)
	}

	sort.Strings(files)
	return dedupe(files), nil
}

func dedupe(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := files[:0]
	for _, f := range files {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func indexIsFresh(idx *scopeIndex, files []string) bool {
	if len(idx.fileStates) != len(files) {
		return false
	}
	for _, f := range files {
		fp, err := fsutil.ComputeFingerprint(f)
		if err != nil {
			return false
		}
		prev, ok := idx.fileStates[f]
		if !ok || prev != fp {
			return false
		}
	}
	return true
}

func buildIndex(scopeDir string, files []string) (*scopeIndex, error) {
	cfgDir := filepath.Join(scopeDir, fsutil.CfgDirName)

	idx := &scopeIndex{
		sections:   map[string]*SectionConfig{},
		fileStates: map[string]fsutil.Fingerprint{},
	}

	for _, f := range files {
		fp, err := fsutil.ComputeFingerprint(f)
		if err != nil {
			return nil, fmt.Errorf("section: fingerprinting %s: %w", f, err)
		}
		idx.fileStates[f] = fp

		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("section: reading %s: %w", f, err)
		}
		parsed, err := parseSectionFile(data)
		if err != nil {
			return nil, fmt.Errorf("section: %s: %w", f, err)
		}

		prefix := sectionPrefix(cfgDir, f)
		for name, cfg := range parsed {
			full := name
			if prefix != "" {
				full = path.Join(prefix, name)
			}
			cfg.Name = full
			idx.sections[full] = cfg
		}
	}

	return idx, nil
}

// sectionPrefix returns the namespace prefix a section file contributes:
// its directory relative to lg-cfg, POSIX-joined. Files directly inside
// lg-cfg/ (including sections.yaml and top-level *.sec.yaml) have no
// prefix; the filename stem itself is never part of the prefix.
func sectionPrefix(cfgDir, file string) string {
	rel, err := filepath.Rel(cfgDir, filepath.Dir(file))
	if err != nil || rel == "." {
		return ""
	}
	return fsutil.ToPosix(rel)
}
