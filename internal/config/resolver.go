package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/providers/confmap"
	koanf "github.com/knadh/koanf/v2"
)

// ResolveOptions configures the multi-source configuration resolution.
type ResolveOptions struct {
	// TargetDir is the directory to search for lgctx.toml.
	// Defaults to "." if empty.
	TargetDir string

	// GlobalConfigPath overrides the default ~/.config/lgctx/config.toml.
	// Useful for testing.
	GlobalConfigPath string

	// CLIFlags holds explicit CLI flag overrides (highest precedence).
	// Keys are flat EngineConfig field names: "target", "model", "tags", etc.
	CLIFlags map[string]any
}

// ResolvedConfig is the result of multi-source configuration resolution.
type ResolvedConfig struct {
	// Engine is the final merged config ready for use by internal/engine.
	Engine *EngineConfig

	// Sources tracks which layer each field value came from.
	Sources SourceMap
}

// Resolve runs the 5-layer configuration resolution pipeline:
//  1. Built-in defaults
//  2. Global config (~/.config/lgctx/config.toml)
//  3. Repository config (lgctx.toml in TargetDir)
//  4. Environment variables (LGCTX_* prefix)
//  5. CLI flags (highest precedence)
//
// Missing config files are silently ignored. Invalid files return errors.
func Resolve(opts ResolveOptions) (*ResolvedConfig, error) {
	slog.Debug("resolving config", "targetDir", opts.TargetDir)

	k := koanf.New(".")
	sources := make(SourceMap)

	// ── Layer 1: built-in defaults ─────────────────────────────────────────
	if err := loadLayer(k, engineToFlatMap(DefaultEngineConfig()), sources, SourceDefault); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// ── Layer 2: global config ─────────────────────────────────────────────
	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		if path, err := DiscoverGlobalConfig(); err == nil {
			globalPath = path
		}
	}
	if globalPath != "" {
		if err := loadFileLayer(k, globalPath, sources, SourceGlobal); err != nil {
			return nil, err
		}
	}

	// ── Layer 3: repo config ─────────────────────────────
	targetDir := opts.TargetDir
	if targetDir == "" {
		targetDir = "."
	}
	repoConfigPath, err := DiscoverRepoConfig(targetDir)
	if err != nil {
		return nil, fmt.Errorf("discovering repo config: %w", err)
	}
	if repoConfigPath != "" {
		if err := loadFileLayer(k, repoConfigPath, sources, SourceRepo); err != nil {
			return nil, err
		}
	}

	// ── Layer 4: environment variables ────────────────────────────────────
	envMap := buildEnvMap()
	if len(envMap) > 0 {
		if err := loadLayer(k, envMap, sources, SourceEnv); err != nil {
			return nil, fmt.Errorf("loading env vars: %w", err)
		}
	}

	// ── Layer 5: CLI flags ─────────────────────────────────────────────────
	if len(opts.CLIFlags) > 0 {
		if err := loadLayer(k, opts.CLIFlags, sources, SourceFlag); err != nil {
			return nil, fmt.Errorf("loading CLI flags: %w", err)
		}
	}

	final := flatMapToEngine(k)

	slog.Debug("config resolved",
		"target", final.Target,
		"provider", final.Provider,
		"model", final.Model,
		"vcsMode", final.VCSMode,
	)

	return &ResolvedConfig{Engine: final, Sources: sources}, nil
}

// loadFileLayer loads an lgctx.toml file, merges its explicitly-set [engine]
// fields into k, and records source attribution. A missing file is silently
// skipped. Parse errors are returned.
func loadFileLayer(k *koanf.Koanf, path string, sources SourceMap, src Source) error {
	flat, err := extractEngineFlat(path)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", path, err)
	}
	if flat == nil {
		return nil
	}

	slog.Debug("loading engine config", "path", path, "source", src.String())
	return loadLayer(k, flat, sources, src)
}

// extractEngineFlat parses a TOML config file into a raw Go map and returns a
// flat koanf-compatible map containing only the [engine] fields explicitly
// present in the file. Returns nil if the file does not exist or has no
// [engine] table.
func extractEngineFlat(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			slog.Debug("config file not found, skipping", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	engineRaw, ok := raw["engine"].(map[string]interface{})
	if !ok {
		slog.Debug("no [engine] section in config", "path", path)
		return nil, nil
	}

	return flattenEngineRaw(engineRaw), nil
}

// flattenEngineRaw converts a raw TOML [engine] map (as decoded by
// BurntSushi/toml into map[string]interface{}) into a flat koanf-compatible
// map. Only fields explicitly present in the raw map are included.
func flattenEngineRaw(raw map[string]interface{}) map[string]any {
	flat := make(map[string]any)

	for _, key := range []string{"target", "provider", "model", "tokenizer", "vcs_mode", "target_branch", "cache_dir"} {
		if v, ok := raw[key]; ok {
			flat[key] = v
		}
	}
	if v, ok := raw["code_fence"]; ok {
		flat["code_fence"] = v
	}
	if v, ok := raw["tags"]; ok {
		flat["tags"] = rawToStringSlice(v)
	}

	return flat
}

// rawToStringSlice converts a raw TOML array value ([]interface{}) into
// []string. Returns nil for unrecognised types.
func rawToStringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		result := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// loadLayer merges a flat map into k and marks every key in the map as
// originating from src. This approach correctly attributes source even when
// a later layer provides the same value as a prior layer (e.g. CLI flag
// setting the same value as an env var).
func loadLayer(k *koanf.Koanf, m map[string]any, sources SourceMap, src Source) error {
	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return fmt.Errorf("merge layer %s: %w", src.String(), err)
	}
	for key := range m {
		sources[key] = src
	}
	return nil
}

// engineToFlatMap converts an EngineConfig to a flat map for koanf's confmap
// provider. All fields are included (used for the defaults layer where every
// field has an authoritative default value).
func engineToFlatMap(e *EngineConfig) map[string]any {
	return map[string]any{
		"target":        e.Target,
		"provider":      e.Provider,
		"model":         e.Model,
		"tokenizer":     e.Tokenizer,
		"tags":          e.Tags,
		"vcs_mode":      e.VCSMode,
		"target_branch": e.TargetBranch,
		"code_fence":    e.CodeFence,
		"cache_dir":     e.CacheDir,
	}
}

// flatMapToEngine converts the current koanf state into an EngineConfig.
func flatMapToEngine(k *koanf.Koanf) *EngineConfig {
	return &EngineConfig{
		Target:       k.String("target"),
		Provider:     k.String("provider"),
		Model:        k.String("model"),
		Tokenizer:    k.String("tokenizer"),
		Tags:         k.Strings("tags"),
		VCSMode:      k.String("vcs_mode"),
		TargetBranch: k.String("target_branch"),
		CodeFence:    k.Bool("code_fence"),
		CacheDir:     k.String("cache_dir"),
	}
}
