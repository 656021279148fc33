package adapter

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lgctx/lgctx/internal/buildinfo"
	"github.com/lgctx/lgctx/internal/cache"
	"github.com/lgctx/lgctx/internal/condition"
	"github.com/lgctx/lgctx/internal/pipeline"
)

// Pipeline runs the adapter pipeline (spec.md §4.6) over a section's
// manifest: resolve each file's adapter, bind it to its effective config,
// consult the processed-blob cache, and otherwise invoke the adapter and
// cache the result. Grounded on
// original_source/lg/adapters/processor.py's process_files.
type Pipeline struct {
	Registry *Registry
	Cache    *cache.Cache

	// Concurrency bounds parallel file reads/adapter invocations, mirroring
	// internal/discovery/walker.go's errgroup.SetLimit usage.
	Concurrency int

	mu        sync.Mutex
	boundCache map[string]BoundAdapter // key: adapter name + "\x00" + frozen cfg key
}

// Process runs every file in manifest through its adapter and returns the
// resulting ProcessedFiles sorted by RelPath, per processor.py's final
// `processed_files.sort(key=lambda f: f.rel_path)`.
func (p *Pipeline) Process(ctx context.Context, sectionName string, manifest pipeline.SectionManifest, cond *condition.Context, activeTags map[string]bool) ([]pipeline.ProcessedFile, error) {
	if p.boundCache == nil {
		p.boundCache = map[string]BoundAdapter{}
	}

	hints := make([]string, len(manifest.Files))
	for i, f := range manifest.Files {
		hints[i] = f.LanguageHint
	}
	spans := pipeline.PlanGroups(hints, true)

	limit := p.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([]*pipeline.ProcessedFile, len(manifest.Files))
	skipped := make([]bool, len(manifest.Files))

	for i, entry := range manifest.Files {
		i, entry := i, entry
		span, _ := pipeline.SpanForIndex(spans, i)
		groupSize := span.End - span.Start
		groupLang := span.Language
		groupMixed := span.Mixed

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			pf, skip, err := p.processOne(gctx, sectionName, manifest, entry, groupSize, groupLang, groupMixed, cond, activeTags)
			if err != nil {
				return fmt.Errorf("adapter: processing %s: %w", entry.RelPath, err)
			}
			if skip {
				skipped[i] = true
				return nil
			}
			results[i] = pf
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]pipeline.ProcessedFile, 0, len(results))
	for i, pf := range results {
		if skipped[i] || pf == nil {
			continue
		}
		out = append(out, *pf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

func (p *Pipeline) processOne(
	ctx context.Context,
	sectionName string,
	manifest pipeline.SectionManifest,
	entry pipeline.FileEntry,
	groupSize int,
	groupLang string,
	groupMixed bool,
	cond *condition.Context,
	activeTags map[string]bool,
) (*pipeline.ProcessedFile, bool, error) {
	a := p.Registry.AdapterForPath(entry.AbsPath)

	secCfg := manifest.AdaptersCfg[a.Name()]
	overrideCfg := entry.AdapterOverrides[a.Name()]
	rawCfg := mergeConfig(secCfg, overrideCfg)

	cfgKey := freezeConfigKey(rawCfg)
	boundKey := a.Name() + "\x00" + cfgKey

	p.mu.Lock()
	bound, ok := p.boundCache[boundKey]
	if !ok {
		var err error
		bound, err = a.Bind(rawCfg)
		if err != nil {
			p.mu.Unlock()
			return nil, false, fmt.Errorf("binding adapter %q: %w", a.Name(), err)
		}
		p.boundCache[boundKey] = bound
	}
	p.mu.Unlock()

	rawText, err := os.ReadFile(entry.AbsPath)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", entry.AbsPath, err)
	}

	fctx := FileContext{
		AbsPath:    entry.AbsPath,
		RelPath:    entry.RelPath,
		RawText:    string(rawText),
		Extension:  extOf(entry.AbsPath),
		GroupSize:  groupSize,
		Mixed:      groupMixed,
		ActiveTags: activeTags,
		CondCtx:    cond,
	}

	if a.Name() != "base" && bound.ShouldSkip(fctx) {
		return nil, true, nil
	}

	cacheKey, err := cache.BuildProcessedKey(entry.AbsPath, rawCfg, activeTags, buildinfo.Version)
	if err != nil {
		return nil, false, fmt.Errorf("building cache key for %s: %w", entry.AbsPath, err)
	}

	var processedText string
	var meta map[string]any
	if cached, hit := p.Cache.GetProcessed(cacheKey); hit {
		processedText = cached.ProcessedText
		meta = cached.Meta
	} else {
		processedText, meta, err = bound.Process(fctx)
		if err != nil {
			return nil, false, fmt.Errorf("processing %s: %w", entry.AbsPath, err)
		}
		if meta == nil {
			meta = map[string]any{}
		}
		meta["_group_size"] = groupSize
		meta["_group_mixed"] = groupMixed
		meta["_group_lang"] = groupLang
		meta["_section"] = sectionName
		meta["_adapter_cfg_keys"] = cfgKeys(rawCfg)

		p.Cache.PutProcessed(cacheKey, processedText, meta)
	}

	processedText = strings.TrimRight(processedText, "\n") + "\n"

	return &pipeline.ProcessedFile{
		AbsPath:       entry.AbsPath,
		RelPath:       entry.RelPath,
		LanguageHint:  entry.LanguageHint,
		ProcessedText: processedText,
		RawText:       string(rawText),
		Meta:          meta,
		CacheKey:      cacheKey,
	}, false, nil
}

func mergeConfig(sectionCfg, overrideCfg map[string]any) map[string]any {
	if len(sectionCfg) == 0 && len(overrideCfg) == 0 {
		return nil
	}
	out := make(map[string]any, len(sectionCfg)+len(overrideCfg))
	for k, v := range sectionCfg {
		out[k] = v
	}
	for k, v := range overrideCfg {
		out[k] = v
	}
	return out
}

func cfgKeys(cfg map[string]any) []string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
