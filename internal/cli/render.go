package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lgctx/lgctx/internal/config"
	"github.com/lgctx/lgctx/internal/engine"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/lgctx/lgctx/internal/stats"
	"github.com/lgctx/lgctx/internal/tokenizer"
	"github.com/spf13/cobra"
)

// renderStatsJSON toggles emitting the render's stats.Report as JSON on
// stderr alongside the rendered document on stdout/--output.
var renderStatsJSON bool

var renderCmd = &cobra.Command{
	Use:     "render [name]",
	Aliases: []string{"r"},
	Short:   "Render a section or context and print the result",
	Long: `render assembles a named section or context from the repository at
--dir into a single document.

If [name] is omitted, the target from the resolved engine config (lgctx.toml,
environment, or --target) is used. A name that matches a lg-cfg/<name>.ctx.md
file is rendered as a context; otherwise it is looked up as a section.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderStatsJSON, "stats", false, "print the render's token-accounting report as JSON to stderr")
	rootCmd.AddCommand(renderCmd)
}

// runRender resolves configuration, builds an engine.Engine rooted at
// --dir, and renders the requested target -- dispatching between
// RenderSection and RenderContext based on whether a lg-cfg/<name>.ctx.md
// file exists, since the two share no common address space.
func runRender(cmd *cobra.Command, args []string) error {
	fv := GlobalFlags()

	cliFlags := map[string]any{}
	if cmd.Flags().Changed("target") {
		cliFlags["target"] = fv.Target
	}
	if cmd.Flags().Changed("provider") {
		cliFlags["provider"] = fv.Provider
	}
	if cmd.Flags().Changed("model") {
		cliFlags["model"] = fv.Model
	}
	if cmd.Flags().Changed("tokenizer") {
		cliFlags["tokenizer"] = fv.Tokenizer
	}
	if cmd.Flags().Changed("tag") {
		cliFlags["tags"] = fv.Tags
	}
	if cmd.Flags().Changed("vcs-mode") {
		cliFlags["vcs_mode"] = fv.VCSMode
	}
	if cmd.Flags().Changed("target-branch") {
		cliFlags["target_branch"] = fv.TargetBranch
	}
	if cmd.Flags().Changed("code-fence") {
		cliFlags["code_fence"] = fv.CodeFence
	}

	resolved, err := config.Resolve(config.ResolveOptions{
		TargetDir: fv.Dir,
		CLIFlags:  cliFlags,
	})
	if err != nil {
		return pipeline.NewUserError(pipeline.KindAddressingError, "resolving configuration", err)
	}
	ec := resolved.Engine

	name := ec.Target
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return pipeline.NewUserError(pipeline.KindScopeNotFound, "no target given and no default target configured", nil)
	}

	eng, err := engine.New(fv.Dir)
	if err != nil {
		return fmt.Errorf("initializing engine at %s: %w", fv.Dir, err)
	}

	vcsMode := pipeline.VCSMode(ec.VCSMode)
	if vcsMode == "" {
		vcsMode = pipeline.VCSModeAll
	}

	opts := engine.Options{
		Provider:        ec.Provider,
		Tags:            ec.Tags,
		VCSMode:         vcsMode,
		TargetBranch:    ec.TargetBranch,
		CodeFenceGlobal: ec.CodeFence,
		Model:           ec.Model,
	}
	if ec.Tokenizer != "" {
		tok, err := tokenizer.NewTokenizer(ec.Tokenizer)
		if err != nil {
			return pipeline.NewUserError(pipeline.KindAddressingError, "constructing tokenizer", err)
		}
		opts.Tokenizer = tok
	}

	isContext := false
	if _, err := os.Stat(filepath.Join(eng.CfgRoot, name+".ctx.md")); err == nil {
		isContext = true
	}

	var (
		text   string
		report stats.Report
	)
	if isContext {
		text, report, err = eng.RenderContext(name, opts)
	} else {
		text, report, err = eng.RenderSection(name, opts)
	}
	if err != nil {
		return err
	}

	if fv.Output != "" {
		if err := os.WriteFile(fv.Output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing output file %s: %w", fv.Output, err)
		}
	} else if fv.Stdout {
		fmt.Fprint(cmd.OutOrStdout(), text)
	}

	if renderStatsJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling stats report: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), string(data))
	}

	return nil
}
