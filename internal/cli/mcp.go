package cli

import (
	"fmt"

	"github.com/lgctx/lgctx/internal/engine"
	"github.com/lgctx/lgctx/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run lgctx as an MCP server over stdio",
	Long: `mcp starts an MCP server exposing render_context and list_sections as
tools, so an MCP-aware client (an editor integration, an agent harness) can
render and explain sections/contexts without shelling out to the CLI.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	fv := GlobalFlags()

	eng, err := engine.New(fv.Dir)
	if err != nil {
		return fmt.Errorf("initializing engine at %s: %w", fv.Dir, err)
	}

	srv := mcpserver.New(eng)
	return srv.Run(cmd.Context())
}
