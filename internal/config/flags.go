package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// FlagValues collects all parsed global flag values from the CLI. This struct
// is populated by BindFlags and passed to internal/engine as engine.Options.
type FlagValues struct {
	Dir          string
	Target       string // section or context name; empty uses EngineConfig.Target
	Provider     string
	Tags         []string
	Model        string
	Tokenizer    string
	VCSMode      string
	TargetBranch string
	CodeFence    bool
	Output       string
	Stdout       bool
	Verbose      bool
	Quiet        bool
	Yes          bool
	ClearCache   bool
}

// BindFlags registers all global persistent flags on the given Cobra command
// and returns a FlagValues pointer that will be populated when the command is
// executed. Callers should access the returned struct after flag parsing.
func BindFlags(cmd *cobra.Command) *FlagValues {
	fv := &FlagValues{}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&fv.Dir, "dir", "d", ".", "repository root to render from")
	pf.StringVarP(&fv.Target, "target", "t", "", "section or context name to render (defaults to engine config's target)")
	pf.StringVar(&fv.Provider, "provider", "", "provider id for condition evaluation and adaptive filtering (e.g. claude.cli)")
	pf.StringArrayVar(&fv.Tags, "tag", nil, "activate a tag (repeatable)")
	pf.StringVar(&fv.Model, "model", "", "model selector for ctx-share accounting (e.g. \"claude-3.5-sonnet (economy)\")")
	pf.StringVar(&fv.Tokenizer, "tokenizer", "", "token encoder override (defaults to the model's encoder)")
	pf.StringVar(&fv.VCSMode, "vcs-mode", "", "file selection mode: all, changes, branch-changes")
	pf.StringVar(&fv.TargetBranch, "target-branch", "", "comparison branch for --vcs-mode=branch-changes")
	pf.BoolVar(&fv.CodeFence, "code-fence", true, "wrap rendered sections in code fences")
	pf.StringVarP(&fv.Output, "output", "o", "", "write rendered output to this file instead of stdout")
	pf.BoolVar(&fv.Stdout, "stdout", true, "write rendered output to stdout")
	pf.BoolVarP(&fv.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&fv.Quiet, "quiet", "q", false, "suppress all output except errors")
	pf.BoolVar(&fv.Yes, "yes", false, "skip confirmation prompts")
	pf.BoolVar(&fv.ClearCache, "clear-cache", false, "clear cached state before running")

	return fv
}

// ValidateFlags checks the parsed flag values for correctness and mutual
// exclusion. It also applies environment variable fallbacks. Call this from
// PersistentPreRunE after Cobra has parsed the flags.
func ValidateFlags(fv *FlagValues, cmd *cobra.Command) error {
	applyEnvOverrides(fv, cmd)

	if fv.Verbose && fv.Quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}

	info, err := os.Stat(fv.Dir)
	if err != nil {
		return fmt.Errorf("--dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--dir: %s is not a directory", fv.Dir)
	}

	switch fv.VCSMode {
	case "", "all", "changes", "branch-changes":
		// valid
	default:
		return fmt.Errorf("--vcs-mode: invalid value %q (allowed: all, changes, branch-changes)", fv.VCSMode)
	}

	if fv.Output != "" && cmd.Flags().Changed("stdout") && fv.Stdout {
		return fmt.Errorf("--output and --stdout are mutually exclusive")
	}
	if fv.Output != "" {
		fv.Stdout = false
	}

	return nil
}

// applyEnvOverrides applies LGCTX_* environment variable fallbacks for flags
// that were not explicitly set on the command line.
func applyEnvOverrides(fv *FlagValues, cmd *cobra.Command) {
	stringEnv := map[string]struct {
		env   string
		apply func(string)
	}{
		"target":        {EnvTarget, func(v string) { fv.Target = v }},
		"provider":      {EnvProvider, func(v string) { fv.Provider = v }},
		"model":         {EnvModel, func(v string) { fv.Model = v }},
		"tokenizer":     {EnvTokenizer, func(v string) { fv.Tokenizer = v }},
		"vcs-mode":      {EnvVCSMode, func(v string) { fv.VCSMode = v }},
		"target-branch": {EnvTargetBranch, func(v string) { fv.TargetBranch = v }},
	}

	for flagName, e := range stringEnv {
		if v := os.Getenv(e.env); v != "" && !cmd.Flags().Changed(flagName) {
			e.apply(v)
		}
	}

	if v := os.Getenv(EnvTags); v != "" && !cmd.Flags().Changed("tag") {
		parts := strings.Split(v, ",")
		tags := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				tags = append(tags, t)
			}
		}
		fv.Tags = tags
	}

	if v := os.Getenv(EnvCodeFence); v != "" && !cmd.Flags().Changed("code-fence") {
		fv.CodeFence = strings.EqualFold(v, "1") || strings.EqualFold(v, "true")
	}

	if os.Getenv(EnvDebug) == "1" && !cmd.Flags().Changed("verbose") && !fv.Quiet {
		fv.Verbose = true
	}
}
