package adaptive

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/lgctx/lgctx/internal/addressing"
	"github.com/lgctx/lgctx/internal/fsutil"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/lgctx/lgctx/internal/section"
)

// Resolved is the outcome of resolving a section together with its entire
// extends chain: the merged adaptive model plus every other inherited
// field. Filters and targets are never merged through extends (spec.md
// §4.2) and so are reached through Config, the concrete section's own
// (unmerged) configuration.
type Resolved struct {
	Model      Model
	Extensions []string
	Adapters   map[string]section.AdapterConfig
	SkipEmpty  bool
	PathLabels pipeline.PathLabelPolicy
	Config     *section.SectionConfig
}

// ExtendsResolver resolves a section's extends chain depth-first,
// left-to-right, caching results by canonical key and detecting cycles via
// an explicit resolution stack (spec.md §9 "Cyclic reference graphs": arena
// + resolution-stack, not back-pointers), grounded on
// original_source/lg/adaptive/extends_resolver.py.
type ExtendsResolver struct {
	store *section.Store
	stack []string
	cache map[string]Resolved
}

// NewExtendsResolver returns a resolver backed by store. A single resolver
// should be reused across one render so its cache amortizes repeated
// extends lookups.
func NewExtendsResolver(store *section.Store) *ExtendsResolver {
	return &ExtendsResolver{store: store, cache: map[string]Resolved{}}
}

// Resolve resolves the named section (local to scopeDir, looked up via
// currentDir per the "path relative to current directory" addressing rule)
// together with its full extends chain.
func (r *ExtendsResolver) Resolve(name, scopeDir, currentDir string) (Resolved, error) {
	key := cacheKey(name, scopeDir)
	if cached, ok := r.cache[key]; ok {
		return cached, nil
	}
	if idx := indexOf(r.stack, key); idx >= 0 {
		cycle := append(append([]string{}, r.stack[idx:]...), key)
		return Resolved{}, pipeline.NewUserError(pipeline.KindExtendsCycle,
			fmt.Sprintf("extends cycle: %s", strings.Join(cycle, " -> ")), nil)
	}

	cfg, resolvedScope, err := findSection(r.store, name, scopeDir, currentDir)
	if err != nil {
		return Resolved{}, err
	}
	return r.resolveFromConfig(cfg, key, resolvedScope, currentDir)
}

// resolveFromConfig resolves an already-loaded SectionConfig's extends
// chain, caching under cacheKeyStr and pushing it onto the resolution stack
// for the duration of the call.
func (r *ExtendsResolver) resolveFromConfig(cfg *section.SectionConfig, cacheKeyStr, scopeDir, currentDir string) (Resolved, error) {
	if cached, ok := r.cache[cacheKeyStr]; ok {
		return cached, nil
	}
	if idx := indexOf(r.stack, cacheKeyStr); idx >= 0 {
		cycle := append(append([]string{}, r.stack[idx:]...), cacheKeyStr)
		return Resolved{}, pipeline.NewUserError(pipeline.KindExtendsCycle,
			fmt.Sprintf("extends cycle: %s", strings.Join(cycle, " -> ")), nil)
	}

	r.stack = append(r.stack, cacheKeyStr)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	base := Resolved{Model: NewModel(), SkipEmpty: true, PathLabels: pipeline.PathLabelScopeRelative}
	for _, parentRef := range cfg.Extends {
		// Cross-scope extends uses the parent reference's own scope for
		// further lookups, not the root (spec.md §4.2, regression guard for
		// the subdirectory-section bug).
		parentData, err := r.resolveParent(parentRef, scopeDir, currentDir)
		if err != nil {
			return Resolved{}, err
		}
		base = merge(base, parentData)
	}

	own, err := extractSectionData(cfg)
	if err != nil {
		return Resolved{}, err
	}
	result := merge(base, own)
	result.Config = cfg

	r.cache[cacheKeyStr] = result
	return result, nil
}

func (r *ExtendsResolver) resolveParent(ref, scopeDir, currentDir string) (Resolved, error) {
	if strings.HasPrefix(ref, "@") {
		return r.resolveAddressed(ref, scopeDir)
	}
	return r.Resolve(ref, scopeDir, currentDir)
}

func (r *ExtendsResolver) resolveAddressed(ref, currentScopeDir string) (Resolved, error) {
	origin, localName, err := addressing.SplitOriginPrefix(ref)
	if err != nil {
		return Resolved{}, pipeline.NewUserError(pipeline.KindAddressingError, "parsing extends reference", err)
	}

	var targetScope string
	if origin == "" || origin == "/" {
		if root, ok := fsutil.FindRepoRoot(currentScopeDir); ok {
			targetScope = root
		} else {
			targetScope = currentScopeDir
		}
	} else {
		targetScope = filepath.Clean(filepath.Join(currentScopeDir, origin))
	}

	return r.Resolve(localName, targetScope, "")
}

// findSection loads the named section's config, searching the
// current-directory-qualified key first (bare local references only),
// falling back to the scope-root key.
func findSection(store *section.Store, name, scopeDir, currentDir string) (*section.SectionConfig, string, error) {
	candidates := []string{}
	if currentDir != "" {
		candidates = append(candidates, path.Join(currentDir, name))
	}
	candidates = append(candidates, name)

	for _, key := range candidates {
		cfg, ok, err := store.Load(scopeDir, key)
		if err != nil {
			return nil, "", pipeline.NewUserError(pipeline.KindAddressingError, "loading section store", err)
		}
		if ok {
			return cfg, scopeDir, nil
		}
	}
	return nil, "", pipeline.NewUserError(pipeline.KindSectionNotFound,
		fmt.Sprintf("section %q not found (searched: %s)", name, strings.Join(candidates, ", ")), nil)
}

func extractSectionData(cfg *section.SectionConfig) (Resolved, error) {
	model, err := ExtractModel(cfg.ModeSetsRaw, cfg.TagSetsRaw)
	if err != nil {
		return Resolved{}, fmt.Errorf("adaptive: extracting model for section %q: %w", cfg.Name, err)
	}
	return Resolved{
		Model:      model,
		Extensions: append([]string{}, cfg.Extensions...),
		Adapters:   cfg.Adapters,
		SkipEmpty:  cfg.SkipEmpty,
		PathLabels: cfg.PathLabels,
		Config:     cfg,
	}, nil
}

// merge combines base (parent) and override (child); override wins on
// conflicts. extensions union preserving first-seen order; adapters deep
// merge (child base_options win, conditional_options concatenate parent
// then child); skip_empty/path_labels: child wins.
func merge(base, override Resolved) Resolved {
	mergedModel := base.Model.MergeWith(override.Model)

	mergedExtensions := append([]string{}, base.Extensions...)
	seen := make(map[string]bool, len(mergedExtensions))
	for _, e := range mergedExtensions {
		seen[e] = true
	}
	for _, e := range override.Extensions {
		if !seen[e] {
			mergedExtensions = append(mergedExtensions, e)
			seen[e] = true
		}
	}

	mergedAdapters := mergeAdapters(base.Adapters, override.Adapters)

	return Resolved{
		Model:      mergedModel,
		Extensions: mergedExtensions,
		Adapters:   mergedAdapters,
		SkipEmpty:  override.SkipEmpty,
		PathLabels: override.PathLabels,
	}
}

func mergeAdapters(base, override map[string]section.AdapterConfig) map[string]section.AdapterConfig {
	out := make(map[string]section.AdapterConfig, len(base)+len(override))
	for name, cfg := range base {
		out[name] = cfg
	}
	for name, overrideCfg := range override {
		baseCfg, ok := out[name]
		if !ok {
			out[name] = overrideCfg
			continue
		}
		mergedBase := append([]section.KV{}, baseCfg.BaseOptions...)
		keyIndex := make(map[string]int, len(mergedBase))
		for i, kv := range mergedBase {
			keyIndex[kv.Key] = i
		}
		for _, kv := range overrideCfg.BaseOptions {
			if i, ok := keyIndex[kv.Key]; ok {
				mergedBase[i] = kv
			} else {
				mergedBase = append(mergedBase, kv)
				keyIndex[kv.Key] = len(mergedBase) - 1
			}
		}
		out[name] = section.AdapterConfig{
			BaseOptions: mergedBase,
			Conditional: append(append([]section.ConditionalOption{}, baseCfg.Conditional...), overrideCfg.Conditional...),
		}
	}
	return out
}

func cacheKey(name, scopeDir string) string {
	if strings.HasPrefix(name, "@") {
		return name
	}
	return scopeDir + ":" + name
}

func indexOf(stack []string, key string) int {
	for i, s := range stack {
		if s == key {
			return i
		}
	}
	return -1
}
