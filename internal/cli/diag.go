package cli

import (
	"fmt"
	"os"

	"github.com/lgctx/lgctx/internal/config"
	"github.com/lgctx/lgctx/internal/diag"
	"github.com/lgctx/lgctx/internal/engine"
	"github.com/spf13/cobra"
)

var diagBundlePath string

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Produce a bug-report bundle",
	Long: `diag --bundle writes a zip archive containing the repository's lg-cfg/
configuration directory, the fully resolved configuration, and the L2
cache's on-disk footprint -- everything needed to reproduce a bug report
without the reporter sharing their source tree.`,
	RunE: runDiag,
}

func init() {
	diagCmd.Flags().StringVar(&diagBundlePath, "bundle", "", "write a bug-report bundle to this path (required)")
	rootCmd.AddCommand(diagCmd)
}

func runDiag(cmd *cobra.Command, _ []string) error {
	if diagBundlePath == "" {
		return fmt.Errorf("diag: --bundle <path> is required")
	}

	fv := GlobalFlags()
	resolved, err := config.Resolve(config.ResolveOptions{TargetDir: fv.Dir})
	if err != nil {
		return fmt.Errorf("resolving configuration: %w", err)
	}

	eng, err := engine.New(fv.Dir)
	if err != nil {
		return fmt.Errorf("initializing engine at %s: %w", fv.Dir, err)
	}

	out, err := os.Create(diagBundlePath)
	if err != nil {
		return fmt.Errorf("diag: creating bundle %s: %w", diagBundlePath, err)
	}
	defer out.Close()

	if err := diag.Bundle(out, eng.CfgRoot, resolved, eng.Cache); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote bug-report bundle to %s\n", diagBundlePath)
	return nil
}
