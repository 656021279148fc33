package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/lgctx/lgctx/internal/config"
	"github.com/spf13/cobra"
)

// configCmd is the parent command for configuration-related subcommands.
// Running `lgctx config` with no subcommand prints the help text.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long: `Configuration management commands for lgctx.

Use these subcommands to inspect and debug your lgctx configuration:

  debug  Show the fully resolved configuration with per-field source annotations`,
	// No RunE: default Cobra behaviour will print help when no subcommand is given.
}

// configDebugCmd shows the fully resolved configuration with source annotations.
var configDebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show resolved configuration with source annotations",
	Long: `Displays the complete resolved configuration showing exactly which source
(built-in default, global config, repo config, environment variable, or CLI
flag) provided each value. Useful for diagnosing unexpected configuration
behavior.`,
	RunE: runConfigDebug,
}

func init() {
	configDebugCmd.Flags().Bool("json", false, "output as structured JSON")

	configCmd.AddCommand(configDebugCmd)
	rootCmd.AddCommand(configCmd)
}

// configDebugEntry is one row of the resolved configuration table, used for
// both the text and JSON renderings.
type configDebugEntry struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source"`
}

// configDebugOutput is the full `lgctx config debug --json` payload.
type configDebugOutput struct {
	Dir     string             `json:"dir"`
	Entries []configDebugEntry `json:"config"`
}

// runConfigDebug implements `lgctx config debug`: it runs the same 5-layer
// resolution pipeline a real render would, then reports each field's final
// value alongside the SourceMap layer that produced it.
func runConfigDebug(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	fv := GlobalFlags()
	resolved, err := config.Resolve(config.ResolveOptions{TargetDir: fv.Dir})
	if err != nil {
		return fmt.Errorf("resolving configuration: %w", err)
	}

	entries := buildConfigDebugEntries(resolved)
	out := cmd.OutOrStdout()

	if asJSON {
		return formatConfigDebugJSON(configDebugOutput{Dir: fv.Dir, Entries: entries}, out)
	}
	return formatConfigDebugText(fv.Dir, entries, out)
}

// buildConfigDebugEntries flattens a ResolvedConfig into a stable-ordered
// list of key/value/source rows.
func buildConfigDebugEntries(rc *config.ResolvedConfig) []configDebugEntry {
	ec := rc.Engine
	values := map[string]any{
		"target":        ec.Target,
		"provider":      ec.Provider,
		"model":         ec.Model,
		"tokenizer":     ec.Tokenizer,
		"tags":          ec.Tags,
		"vcs_mode":      ec.VCSMode,
		"target_branch": ec.TargetBranch,
		"code_fence":    ec.CodeFence,
		"cache_dir":     ec.CacheDir,
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]configDebugEntry, 0, len(keys))
	for _, k := range keys {
		src := rc.Sources[k]
		entries = append(entries, configDebugEntry{Key: k, Value: values[k], Source: src.String()})
	}
	return entries
}

// formatConfigDebugText renders entries as a human-readable table.
func formatConfigDebugText(dir string, entries []configDebugEntry, w io.Writer) error {
	fmt.Fprintln(w, "lgctx Configuration Debug")
	fmt.Fprintf(w, "Repository: %s\n\n", dir)
	fmt.Fprintln(w, "Resolved Configuration:")

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%v\t%s\n", e.Key, e.Value, e.Source)
	}
	return tw.Flush()
}

// formatConfigDebugJSON renders entries as structured JSON.
func formatConfigDebugJSON(out configDebugOutput, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
