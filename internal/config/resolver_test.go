package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

// writeTomlFile writes content to a temporary TOML file and returns its path.
func writeTomlFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ── Layer 1: defaults ─────────────────────────────────────────────────────────

// TestResolve_DefaultsOnly verifies that when no config files, env vars, or
// CLI flags are provided, the resolved engine config equals DefaultEngineConfig().
func TestResolve_DefaultsOnly(t *testing.T) {
	clearLgctxEnv(t)

	dir := t.TempDir()
	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
	})

	require.NoError(t, err)
	require.NotNil(t, rc)

	want := DefaultEngineConfig()
	assert.Equal(t, want.Target, rc.Engine.Target)
	assert.Equal(t, want.Provider, rc.Engine.Provider)
	assert.Equal(t, want.Model, rc.Engine.Model)
	assert.Equal(t, want.Tokenizer, rc.Engine.Tokenizer)
	assert.Equal(t, want.VCSMode, rc.Engine.VCSMode)
	assert.Equal(t, want.TargetBranch, rc.Engine.TargetBranch)
	assert.Equal(t, want.CodeFence, rc.Engine.CodeFence)
}

// TestResolve_DefaultsOnly_SourceTracking verifies that all field sources are
// SourceDefault when no overriding layers are present.
func TestResolve_DefaultsOnly_SourceTracking(t *testing.T) {
	clearLgctxEnv(t)

	dir := t.TempDir()
	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
	})

	require.NoError(t, err)

	for key, src := range rc.Sources {
		assert.Equal(t, SourceDefault, src,
			"field %q must have SourceDefault when only defaults are loaded", key)
	}
}

// ── Layer 2: global config ────────────────────────────────────────────────────

// TestResolve_GlobalConfigOverridesDefaults verifies that a global config file
// overrides the default values for the specified fields.
func TestResolve_GlobalConfigOverridesDefaults(t *testing.T) {
	clearLgctxEnv(t)

	dir := t.TempDir()
	globalPath := writeTomlFile(t, dir, "global.toml", `
[engine]
target = "xml-target"
target_branch = "b100"
cache_dir = "/tmp/global-cache"
`)

	rc, err := Resolve(ResolveOptions{
		TargetDir:        t.TempDir(), // empty target dir → no repo config
		GlobalConfigPath: globalPath,
	})

	require.NoError(t, err)
	assert.Equal(t, "xml-target", rc.Engine.Target)
	assert.Equal(t, "b100", rc.Engine.TargetBranch)
	assert.Equal(t, "/tmp/global-cache", rc.Engine.CacheDir)

	// Fields set by global config must be tracked as SourceGlobal.
	assert.Equal(t, SourceGlobal, rc.Sources["target"])
	assert.Equal(t, SourceGlobal, rc.Sources["target_branch"])
	assert.Equal(t, SourceGlobal, rc.Sources["cache_dir"])

	// Fields not overridden must remain SourceDefault.
	assert.Equal(t, SourceDefault, rc.Sources["tokenizer"])
}

// TestResolve_GlobalConfig_MissingFile verifies that a missing global config
// is silently ignored and the pipeline continues with defaults.
func TestResolve_GlobalConfig_MissingFile(t *testing.T) {
	clearLgctxEnv(t)

	dir := t.TempDir()
	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: "/nonexistent/path/config.toml",
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultEngineConfig().Target, rc.Engine.Target)
}

// ── Layer 3: repo config ──────────────────────────────────────────────────────

// TestResolve_RepoConfigOverridesGlobal verifies that repo config values take
// precedence over global config values.
func TestResolve_RepoConfigOverridesGlobal(t *testing.T) {
	clearLgctxEnv(t)

	globalDir := t.TempDir()
	globalPath := writeTomlFile(t, globalDir, "global.toml", `
[engine]
target = "markdown-target"
target_branch = "b100"
cache_dir = "/tmp/global-cache"
`)

	repoDir := t.TempDir()
	writeTomlFile(t, repoDir, "lgctx.toml", `
[engine]
target = "xml-target"
target_branch = "b200"
cache_dir = "/tmp/repo-cache"
code_fence = false
`)

	rc, err := Resolve(ResolveOptions{
		TargetDir:        repoDir,
		GlobalConfigPath: globalPath,
	})

	require.NoError(t, err)
	assert.Equal(t, "xml-target", rc.Engine.Target)
	assert.Equal(t, "b200", rc.Engine.TargetBranch)
	assert.Equal(t, "/tmp/repo-cache", rc.Engine.CacheDir)
	assert.False(t, rc.Engine.CodeFence)

	// Fields overridden by repo config must be tracked as SourceRepo.
	assert.Equal(t, SourceRepo, rc.Sources["target"])
	assert.Equal(t, SourceRepo, rc.Sources["target_branch"])
	assert.Equal(t, SourceRepo, rc.Sources["cache_dir"])
	assert.Equal(t, SourceRepo, rc.Sources["code_fence"])

	// Tokenizer was only set in defaults, not overridden by global or repo.
	assert.Equal(t, SourceDefault, rc.Sources["tokenizer"])
}

// TestResolve_RepoConfig_MissingFile verifies that a missing lgctx.toml is
// silently ignored.
func TestResolve_RepoConfig_MissingFile(t *testing.T) {
	clearLgctxEnv(t)

	emptyDir := t.TempDir()
	rc, err := Resolve(ResolveOptions{
		TargetDir:        emptyDir,
		GlobalConfigPath: filepath.Join(emptyDir, "nonexistent.toml"),
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultEngineConfig().Target, rc.Engine.Target)
}

// ── Layer 4: environment variables ───────────────────────────────────────────

// TestResolve_EnvOverridesRepo verifies that LGCTX_* env vars override repo
// config values.
func TestResolve_EnvOverridesRepo(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTarget, "xml-target")
	t.Setenv(EnvTargetBranch, "b99")

	repoDir := t.TempDir()
	writeTomlFile(t, repoDir, "lgctx.toml", `
[engine]
target = "markdown-target"
target_branch = "b50"
`)

	rc, err := Resolve(ResolveOptions{
		TargetDir:        repoDir,
		GlobalConfigPath: filepath.Join(repoDir, "nonexistent.toml"),
	})

	require.NoError(t, err)
	assert.Equal(t, "xml-target", rc.Engine.Target)
	assert.Equal(t, "b99", rc.Engine.TargetBranch)

	assert.Equal(t, SourceEnv, rc.Sources["target"])
	assert.Equal(t, SourceEnv, rc.Sources["target_branch"])
}

// TestResolve_EnvTags verifies that LGCTX_TAGS merges into the engine config.
func TestResolve_EnvTags(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTags, "verbose,debug")

	dir := t.TempDir()
	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent.toml"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"verbose", "debug"}, rc.Engine.Tags)
	assert.Equal(t, SourceEnv, rc.Sources["tags"])
}

// ── Layer 5: CLI flags ────────────────────────────────────────────────────────

// TestResolve_CLIFlagsOverrideEnv verifies that CLI flags have the highest
// precedence, overriding even LGCTX_* env vars.
func TestResolve_CLIFlagsOverrideEnv(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTarget, "xml-target")

	dir := t.TempDir()
	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent.toml"),
		CLIFlags: map[string]any{
			"target": "markdown-target",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "markdown-target", rc.Engine.Target,
		"CLI flag must override LGCTX_TARGET env var")
	assert.Equal(t, SourceFlag, rc.Sources["target"])
}

// TestResolve_CLIFlags_OverrideAllLayers verifies that CLI flags win over
// defaults, global config, repo config, and env vars simultaneously.
func TestResolve_CLIFlags_OverrideAllLayers(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTarget, "xml-target")
	t.Setenv(EnvTargetBranch, "b1")

	globalDir := t.TempDir()
	globalPath := writeTomlFile(t, globalDir, "global.toml", `
[engine]
target = "markdown-target"
target_branch = "b2"
`)

	repoDir := t.TempDir()
	writeTomlFile(t, repoDir, "lgctx.toml", `
[engine]
target = "plain-target"
target_branch = "b3"
`)

	rc, err := Resolve(ResolveOptions{
		TargetDir:        repoDir,
		GlobalConfigPath: globalPath,
		CLIFlags: map[string]any{
			"target":        "cli-target",
			"target_branch": "b4",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "cli-target", rc.Engine.Target)
	assert.Equal(t, "b4", rc.Engine.TargetBranch)

	assert.Equal(t, SourceFlag, rc.Sources["target"])
	assert.Equal(t, SourceFlag, rc.Sources["target_branch"])
}

// ── Error cases ───────────────────────────────────────────────────────────────

// TestResolve_InvalidRepoConfig_ReturnsError verifies that a malformed
// lgctx.toml causes Resolve to return an error.
func TestResolve_InvalidRepoConfig_ReturnsError(t *testing.T) {
	clearLgctxEnv(t)

	repoDir := t.TempDir()
	writeTomlFile(t, repoDir, "lgctx.toml", `[broken toml`)

	_, err := Resolve(ResolveOptions{
		TargetDir:        repoDir,
		GlobalConfigPath: filepath.Join(repoDir, "nonexistent.toml"),
	})

	require.Error(t, err)
}

// TestResolve_InvalidGlobalConfig_ReturnsError verifies that a malformed
// global config causes Resolve to return an error.
func TestResolve_InvalidGlobalConfig_ReturnsError(t *testing.T) {
	clearLgctxEnv(t)

	dir := t.TempDir()
	globalPath := writeTomlFile(t, dir, "global.toml", `[broken`)

	_, err := Resolve(ResolveOptions{
		TargetDir:        t.TempDir(),
		GlobalConfigPath: globalPath,
	})

	require.Error(t, err)
}

// ── Full pipeline integration ─────────────────────────────────────────────────

// TestResolve_FullPipeline verifies all 5 layers interact correctly with the
// correct precedence order: default < global < repo < env < flag.
func TestResolve_FullPipeline(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTokenizer, "o200k_base") // env overrides repo
	t.Setenv(EnvCacheDir, "/tmp/env-cache")

	globalDir := t.TempDir()
	globalPath := writeTomlFile(t, globalDir, "global.toml", `
[engine]
target = "markdown-target"
target_branch = "b100"
cache_dir = "/tmp/global-cache"
tokenizer = "cl100k_base"
`)

	repoDir := t.TempDir()
	writeTomlFile(t, repoDir, "lgctx.toml", `
[engine]
target = "xml-target"
target_branch = "b150"
cache_dir = "/tmp/repo-cache"
tokenizer = "cl100k_base"
`)

	rc, err := Resolve(ResolveOptions{
		TargetDir:        repoDir,
		GlobalConfigPath: globalPath,
		CLIFlags: map[string]any{
			"target_branch": "b42", // CLI wins over everything
		},
	})

	require.NoError(t, err)

	// target: repo (xml-target) wins over global (markdown-target)
	assert.Equal(t, "xml-target", rc.Engine.Target)
	assert.Equal(t, SourceRepo, rc.Sources["target"])

	// target_branch: CLI (b42) wins over repo (b150)
	assert.Equal(t, "b42", rc.Engine.TargetBranch)
	assert.Equal(t, SourceFlag, rc.Sources["target_branch"])

	// cache_dir: env (/tmp/env-cache) wins over repo (/tmp/repo-cache)
	assert.Equal(t, "/tmp/env-cache", rc.Engine.CacheDir)
	assert.Equal(t, SourceEnv, rc.Sources["cache_dir"])

	// tokenizer: env (o200k_base) wins over repo (cl100k_base)
	assert.Equal(t, "o200k_base", rc.Engine.Tokenizer)
	assert.Equal(t, SourceEnv, rc.Sources["tokenizer"])
}

// TestResolve_ReturnsNewInstanceEachCall verifies that each Resolve call
// returns a fresh ResolvedConfig (no shared state between calls).
func TestResolve_ReturnsNewInstanceEachCall(t *testing.T) {
	// Not parallel: mutates environment via clearLgctxEnv.
	clearLgctxEnv(t)

	dir := t.TempDir()
	opts := ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent.toml"),
	}

	rc1, err := Resolve(opts)
	require.NoError(t, err)

	rc2, err := Resolve(opts)
	require.NoError(t, err)

	// Mutate rc1; rc2 must not be affected.
	rc1.Engine.Target = "mutated"
	rc1.Sources["target"] = SourceFlag

	assert.NotEqual(t, "mutated", rc2.Engine.Target,
		"mutating rc1 must not affect rc2")
	assert.NotEqual(t, SourceFlag, rc2.Sources["target"],
		"mutating rc1.Sources must not affect rc2.Sources")
}
