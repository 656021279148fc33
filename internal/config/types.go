package config

// Config is the top-level configuration type parsed from an lgctx.toml file.
// One repository has exactly one resolved EngineConfig: adaptive-model
// selection (tags, provider, model) happens at render time, not through
// separate named config trees.
type Config struct {
	// Engine holds the single [engine] table. A nil pointer means the file
	// had no [engine] section at all.
	Engine *EngineConfig `toml:"engine"`
}

// EngineConfig holds the settings that govern a render when no CLI flag
// overrides them. Fields with zero values are considered unset and are
// filled in by the merge pipeline (see resolver.go).
type EngineConfig struct {
	// Target is the default section or context name rendered when none is
	// given on the command line. Example: "default" resolves to
	// lg-cfg/default.ctx.md if it exists, else the section named "default".
	Target string `toml:"target"`

	// Provider is the default provider id passed to adaptive resolution and
	// condition evaluation (e.g. "claude.cli", "openai.chatgpt"). Empty means
	// no provider-scoped filtering or validation is applied by default.
	Provider string `toml:"provider"`

	// Model is the default model selector string resolved against
	// lg-cfg/models.yaml (e.g. "claude-3.5-sonnet (economy)"). Empty disables
	// ctx-share accounting unless overridden by --model.
	Model string `toml:"model"`

	// Tokenizer overrides the encoder implied by Model. Empty means "derive
	// from Model", falling back to the tokenizer package's default encoder.
	Tokenizer string `toml:"tokenizer"`

	// Tags is the list of tags activated on every render. A higher-precedence
	// layer that sets tags (LGCTX_TAGS or --tag) replaces this list; the
	// lists are not merged.
	Tags []string `toml:"tags"`

	// VCSMode selects which files a render considers: "all", "changes", or
	// "branch-changes" (relative to TargetBranch). Empty means "all".
	VCSMode string `toml:"vcs_mode"`

	// TargetBranch is the comparison branch for vcs_mode = "branch-changes".
	TargetBranch string `toml:"target_branch"`

	// CodeFence toggles the CLI-level code-fence default; a doc-only section
	// can still suppress fencing regardless of this setting.
	CodeFence bool `toml:"code_fence"`

	// CacheDir is carried through resolution and reported by `lgctx config
	// debug`; the engine does not read it and always keeps its cache under
	// <repo>/.lg-cache.
	CacheDir string `toml:"cache_dir"`
}
