package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/lgctx/lgctx/internal/cli/tui"
	"github.com/lgctx/lgctx/internal/config"
	"github.com/lgctx/lgctx/internal/engine"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	explainJSON bool
	explainTUI  bool
)

var explainCmd = &cobra.Command{
	Use:   "explain [context]",
	Short: "Show the sections, mode-sets, and tag-sets a context resolves to",
	Long: `explain resolves a context's adaptive model and transitive section list
without rendering any section body, and reports what a full render would use:
which sections it composes, which mode-sets (including any provider-filtered
integration mode-set) it carries, and which tag-sets are available to
condition:tag filters.

If [context] is omitted, the target from the resolved engine config is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().BoolVar(&explainJSON, "json", false, "output as structured JSON")
	explainCmd.Flags().BoolVar(&explainTUI, "tui", false, "open an interactive viewer instead of printing to stdout")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	fv := GlobalFlags()

	resolved, err := config.Resolve(config.ResolveOptions{TargetDir: fv.Dir})
	if err != nil {
		return pipeline.NewUserError(pipeline.KindAddressingError, "resolving configuration", err)
	}
	ec := resolved.Engine

	name := ec.Target
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return pipeline.NewUserError(pipeline.KindScopeNotFound, "no context given and no default target configured", nil)
	}

	eng, err := engine.New(fv.Dir)
	if err != nil {
		return fmt.Errorf("initializing engine at %s: %w", fv.Dir, err)
	}

	if explainTUI {
		return tui.Run(eng, name, ec.Provider, ec.Tags)
	}

	report, err := eng.Explain(name, ec.Provider, ec.Tags)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if explainJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return formatExplainText(report, out)
}

func formatExplainText(report engine.ExplainReport, w io.Writer) error {
	fmt.Fprintf(w, "Context: %s\n", report.Context)
	if report.Provider != "" {
		fmt.Fprintf(w, "Provider: %s\n", report.Provider)
	}

	fmt.Fprintln(w, "\nSections:")
	for _, s := range report.Sections {
		fmt.Fprintf(w, "  %s\n", s)
	}

	fmt.Fprintln(w, "\nMode sets:")
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tTITLE\tINTEGRATION\tMODES")
	for _, ms := range report.ModeSets {
		modeIDs := make([]string, len(ms.Modes))
		for i, m := range ms.Modes {
			modeIDs[i] = m.ID
		}
		fmt.Fprintf(tw, "  %s\t%s\t%v\t%v\n", ms.ID, ms.Title, ms.Integration, modeIDs)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nTag sets:")
	tw = tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tTITLE\tTAGS")
	for _, ts := range report.TagSets {
		tagIDs := make([]string, len(ts.Tags))
		for i, t := range ts.Tags {
			tagIDs[i] = t.ID
		}
		fmt.Fprintf(tw, "  %s\t%s\t%v\n", ts.ID, ts.Title, tagIDs)
	}
	return tw.Flush()
}
