// Package cache implements Component D (spec.md §4.10): the two-tier token
// and processed-blob cache. L1 is an in-memory LRU; L2 is a content-addressed
// file cache under <repo>/.lg-cache/, written with temp-file-then-rename so
// concurrent writers never observe a partial file. Every L2 I/O error is
// swallowed and degrades to a cache miss, per spec.md §7.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/lgctx/lgctx/internal/fsutil"
)

// smallTextThreshold is SMALL_TEXT_THRESHOLD from spec.md §4.10: strings
// shorter than this are keyed by their own text in L1; longer strings are
// keyed by a fast non-cryptographic hash to keep L1 memory bounded.
const smallTextThreshold = 200

// l1Capacity is the L1 LRU's entry capacity.
const l1Capacity = 10_000

// Cache is the two-tier cache for one repository root. It is safe for
// concurrent use.
type Cache struct {
	root    string // <repo>/.lg-cache
	enabled bool
	fresh   bool // fresh mode: always miss on read, still writes

	mu sync.Mutex
	l1 *lru
}

// New constructs a Cache rooted at <repoRoot>/.lg-cache. enabled reflects the
// LG_CACHE environment variable (spec.md §6: falsy values {"0","false","off"}
// disable L2; L1 always stays enabled since it is process-local and free).
func New(repoRoot string) *Cache {
	return &Cache{
		root:    filepath.Join(repoRoot, ".lg-cache"),
		enabled: cacheEnabledFromEnv(os.Getenv("LG_CACHE")),
		l1:      newLRU(l1Capacity),
	}
}

// WithFresh returns a copy of c in fresh mode: reads always miss, writes
// still occur (so a fresh run repopulates the cache for next time).
func (c *Cache) WithFresh(fresh bool) *Cache {
	return &Cache{root: c.root, enabled: c.enabled, fresh: fresh, l1: c.l1}
}

// Dir returns the L2 cache's root directory on disk, for tooling (diag
// bundling, cache inspection) that needs to read around the Cache API.
func (c *Cache) Dir() string {
	return c.root
}

// Stats is a snapshot of the L2 cache's on-disk footprint.
type Stats struct {
	Enabled   bool  `json:"enabled"`
	FileCount int   `json:"file_count"`
	TotalSize int64 `json:"total_size_bytes"`
}

// Stat walks the L2 cache directory and reports its file count and total
// size. A missing cache directory (nothing cached yet) is not an error.
func (c *Cache) Stat() (Stats, error) {
	stats := Stats{Enabled: c.enabled}
	err := filepath.Walk(c.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			stats.FileCount++
			stats.TotalSize += info.Size()
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return Stats{}, err
	}
	return stats, nil
}

func cacheEnabledFromEnv(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "off":
		return false
	default:
		return true
	}
}

func (c *Cache) l1Key(text string) string {
	if len(text) < smallTextThreshold {
		return text
	}
	h := xxh3.HashString(text)
	return strconv.FormatUint(h, 16)
}

// GetTokens returns a cached token count for (text, model), consulting L1
// then L2.
func (c *Cache) GetTokens(text, model string) (int, bool) {
	if c.fresh {
		return 0, false
	}
	l1k := c.l1Key(text) + "\x00" + model
	c.mu.Lock()
	if n, ok := c.l1.Get(l1k); ok {
		c.mu.Unlock()
		return n, true
	}
	c.mu.Unlock()

	if !c.enabled || c.fresh {
		return 0, false
	}

	var bucket map[string]int
	if ok, _ := c.readJSON(c.tokensPath(text), &bucket); ok {
		if n, ok := bucket[model]; ok {
			c.mu.Lock()
			c.l1.Put(l1k, n)
			c.mu.Unlock()
			return n, true
		}
	}
	return 0, false
}

// PutTokens stores a token count for (text, model) in both tiers.
func (c *Cache) PutTokens(text, model string, count int) {
	l1k := c.l1Key(text) + "\x00" + model
	c.mu.Lock()
	c.l1.Put(l1k, count)
	c.mu.Unlock()

	if !c.enabled {
		return
	}

	path := c.tokensPath(text)
	var bucket map[string]int
	_, _ = c.readJSON(path, &bucket)
	if bucket == nil {
		bucket = map[string]int{}
	}
	bucket[model] = count
	_ = c.writeJSON(path, bucket)
}

func (c *Cache) tokensPath(text string) string {
	sum := fsutil.SHA1HexString(text)
	return filepath.Join(c.root, "tokens", sum[0:2], sum[2:4], sum+".json")
}

// ProcessedEntry is the cached outcome of running an adapter over one file.
type ProcessedEntry struct {
	ProcessedText string         `json:"processed_text"`
	Meta          map[string]any `json:"meta"`
}

// GetProcessed looks up a processed-blob cache entry by key (as produced by
// BuildProcessedKey).
func (c *Cache) GetProcessed(key string) (ProcessedEntry, bool) {
	if !c.enabled || c.fresh {
		return ProcessedEntry{}, false
	}
	var entry ProcessedEntry
	ok, _ := c.readJSON(c.processedPath(key), &entry)
	return entry, ok
}

// PutProcessed stores a processed-blob cache entry by key.
func (c *Cache) PutProcessed(key, processedText string, meta map[string]any) {
	if !c.enabled {
		return
	}
	_ = c.writeJSON(c.processedPath(key), ProcessedEntry{ProcessedText: processedText, Meta: meta})
}

func (c *Cache) processedPath(key string) string {
	sum := fsutil.SHA1HexString(key)
	return filepath.Join(c.root, "processed", sum[0:2], sum+".json")
}

// BuildProcessedKey derives the processed-blob cache key from a file's
// fingerprint, its frozen (deterministically serialized) adapter config, the
// active tag set, and the tool version, per spec.md §4.6 step 3 and §7's
// "canonical cache key ... depends only on" invariant.
func BuildProcessedKey(absPath string, adapterCfg map[string]any, activeTags map[string]bool, toolVersion string) (string, error) {
	fp, err := fsutil.ComputeFingerprint(absPath)
	if err != nil {
		return "", fmt.Errorf("cache: computing fingerprint for %s: %w", absPath, err)
	}

	tags := make([]string, 0, len(activeTags))
	for t, active := range activeTags {
		if active {
			tags = append(tags, t)
		}
	}
	sortStrings(tags)

	parts := []any{
		fp.Path, fp.Size, fp.ModTimeNs,
		freeze(adapterCfg),
		tags,
		toolVersion,
	}
	data, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("cache: serializing key parts: %w", err)
	}
	return fsutil.SHA1Hex(data), nil
}

// freeze recursively sorts map keys so two configs with the same content but
// different map iteration order produce an identical serialization.
func freeze(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sortStrings(keys)
		out := make([][2]any, 0, len(t))
		for _, k := range keys {
			out = append(out, [2]any{k, freeze(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = freeze(e)
		}
		return out
	default:
		return v
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// readJSON reads and decodes a JSON file into v. A missing file or any
// decode error is a silent miss, never a surfaced error, per spec.md §7.
func (c *Cache) readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// writeJSON writes v to path atomically: encode to a temp file in the same
// directory, then rename over the destination. Any error is swallowed.
func (c *Cache) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return nil
	}
	tmpPath := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		return nil
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil
	}
	return nil
}

// Root returns the cache's on-disk directory, <repo>/.lg-cache.
func (c *Cache) Root() string { return c.root }

// CfgStatePath returns the path the migration runner uses to persist
// per-scope migration state (spec.md §4.10's "cfg_state/..." bucket).
func (c *Cache) CfgStatePath(scopeHash string) string {
	return filepath.Join(c.root, "cfg_state", scopeHash+".json")
}

// ReadCfgState reads and decodes the migration state stored at scopeHash's
// cfg_state file into v. Returns false (never an error) on a miss.
func (c *Cache) ReadCfgState(scopeHash string, v any) bool {
	ok, _ := c.readJSON(c.CfgStatePath(scopeHash), v)
	return ok
}

// WriteCfgState atomically persists v as scopeHash's migration state.
func (c *Cache) WriteCfgState(scopeHash string, v any) {
	_ = c.writeJSON(c.CfgStatePath(scopeHash), v)
}
