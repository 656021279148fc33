package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable name constants for LGCTX_ prefixed overrides.
const (
	// EnvTarget selects the default section/context name to render.
	EnvTarget = "LGCTX_TARGET"
	// EnvProvider overrides the default provider id.
	EnvProvider = "LGCTX_PROVIDER"
	// EnvModel overrides the default model selector.
	EnvModel = "LGCTX_MODEL"
	// EnvTokenizer overrides the token counting encoder.
	EnvTokenizer = "LGCTX_TOKENIZER"
	// EnvTags overrides the default active tag list (comma-separated).
	EnvTags = "LGCTX_TAGS"
	// EnvVCSMode overrides the default vcs_mode.
	EnvVCSMode = "LGCTX_VCS_MODE"
	// EnvTargetBranch overrides the default comparison branch.
	EnvTargetBranch = "LGCTX_TARGET_BRANCH"
	// EnvCodeFence overrides the code-fence default.
	EnvCodeFence = "LGCTX_CODE_FENCE"
	// EnvCacheDir sets the cache_dir config field (see EngineConfig.CacheDir).
	EnvCacheDir = "LGCTX_CACHE_DIR"
	// EnvDebug enables debug-level logging regardless of -v/-q flags.
	EnvDebug = "LGCTX_DEBUG"
	// EnvLogFormat overrides the log output format (not an EngineConfig field).
	EnvLogFormat = "LGCTX_LOG_FORMAT"
)

// buildEnvMap reads LGCTX_* environment variables and returns a flat map
// suitable for use with a koanf confmap provider. Only non-empty env vars
// that parse successfully are included. Invalid numeric/boolean values are
// silently skipped so that a bad env var does not block the entire
// resolution pipeline.
func buildEnvMap() map[string]any {
	m := make(map[string]any)

	if v := os.Getenv(EnvTarget); v != "" {
		m["target"] = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		m["provider"] = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		m["model"] = v
	}
	if v := os.Getenv(EnvTokenizer); v != "" {
		m["tokenizer"] = v
	}
	if v := os.Getenv(EnvTags); v != "" {
		parts := strings.Split(v, ",")
		tags := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				tags = append(tags, t)
			}
		}
		if len(tags) > 0 {
			m["tags"] = tags
		}
	}
	if v := os.Getenv(EnvVCSMode); v != "" {
		m["vcs_mode"] = v
	}
	if v := os.Getenv(EnvTargetBranch); v != "" {
		m["target_branch"] = v
	}
	if v := os.Getenv(EnvCodeFence); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			m["code_fence"] = b
		}
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		m["cache_dir"] = v
	}

	return m
}
