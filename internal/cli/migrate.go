package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/lgctx/lgctx/internal/cli/tui"
	"github.com/lgctx/lgctx/internal/config"
	"github.com/lgctx/lgctx/internal/engine"
	"github.com/lgctx/lgctx/internal/migrate"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	migrateJSON        bool
	migrateInteractive bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Show lg-cfg/ migration status",
	Long: `migrate brings the repository's lg-cfg/ directory up to date -- every
lgctx command does this automatically before rendering anything -- and
reports which registered migrations have applied and when. --interactive
opens the same status alongside an explain viewer in a terminal UI.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateJSON, "json", false, "output as structured JSON")
	migrateCmd.Flags().BoolVar(&migrateInteractive, "interactive", false, "open an interactive viewer instead of printing to stdout")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	fv := GlobalFlags()

	// engine.New runs EnsureCfgActual before returning, so by this point
	// every registered migration has already been applied or has recorded
	// its failure in cfgState.
	eng, err := engine.New(fv.Dir)
	if err != nil {
		return fmt.Errorf("initializing engine at %s: %w", fv.Dir, err)
	}

	if migrateInteractive {
		resolved, err := config.Resolve(config.ResolveOptions{TargetDir: fv.Dir})
		if err != nil {
			return pipeline.NewUserError(pipeline.KindAddressingError, "resolving configuration", err)
		}
		if resolved.Engine.Target == "" {
			return pipeline.NewUserError(pipeline.KindScopeNotFound, "no default target configured for the interactive explain panel", nil)
		}
		return tui.Run(eng, resolved.Engine.Target, resolved.Engine.Provider, resolved.Engine.Tags)
	}

	status := migrate.Status(eng.Cache, eng.CfgRoot)

	out := cmd.OutOrStdout()
	if migrateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	return formatMigrateText(status, out)
}

func formatMigrateText(status migrate.Report, w io.Writer) error {
	fmt.Fprintf(w, "lg-cfg/ schema version: %d / %d\n\n", status.Actual, status.CfgCurrent)

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS")
	for _, step := range status.Steps {
		state := "pending"
		if step.Applied {
			state = "applied " + step.At
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", step.ID, step.Title, state)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if status.LastError != "" {
		fmt.Fprintf(w, "\nlast error: %s\n", status.LastError)
	}
	return nil
}
