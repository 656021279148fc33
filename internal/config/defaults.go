package config

// DefaultEngineConfig returns a new EngineConfig populated with lgctx's
// built-in defaults. It is always the first layer loaded by Resolve.
//
// Callers receive a fresh copy each time; mutating the returned value does
// not affect subsequent calls.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Target:       "default",
		Provider:     "",
		Model:        "",
		Tokenizer:    "",
		Tags:         nil,
		VCSMode:      "all",
		TargetBranch: "main",
		CodeFence:    true,
		CacheDir:     "",
	}
}
