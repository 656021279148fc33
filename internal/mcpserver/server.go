// Package mcpserver exposes lgctx's render and explain pipelines as an MCP
// server. Grounded on _examples/standardbeagle-lci/internal/mcp/server.go's
// mcp.NewServer / server.AddTool(&mcp.Tool{...}, handler) pattern with
// jsonschema.Schema input schemas -- the teacher repo never imports
// modelcontextprotocol/go-sdk itself, so this sibling example repo is the
// pack's grounding source for MCP wiring. Response shaping follows that
// same file's createJSONResponse/createErrorResponse helpers.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lgctx/lgctx/internal/buildinfo"
	"github.com/lgctx/lgctx/internal/engine"
	"github.com/lgctx/lgctx/internal/pipeline"
)

// Server wraps an *mcp.Server bound to one repository's engine.Engine,
// exposing render_context and list_sections as MCP tools that reuse the
// same internal/engine entry points the CLI's render and explain commands
// call, per SPEC_FULL.md's "reusing the same internal/engine entry points
// as the CLI" promise.
type Server struct {
	server *mcp.Server
	engine *engine.Engine
}

// New constructs a Server rooted at eng's repository and registers its tools.
func New(eng *engine.Engine) *Server {
	s := &Server{
		engine: eng,
		server: mcp.NewServer(&mcp.Implementation{Name: "lgctx", Version: buildinfo.Version}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the MCP protocol over stdio until ctx is cancelled or the
// transport closes.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "render_context",
		Description: "Render a named lgctx section or context into a single document.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name":     {Type: "string", Description: "Section or context name to render"},
				"provider": {Type: "string", Description: "Provider id for adaptive-model validation and filtering (optional)"},
				"model":    {Type: "string", Description: "Model selector string for ctx-share accounting (optional)"},
			},
			Required: []string{"name"},
		},
	}, s.handleRenderContext)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_sections",
		Description: "List the sections, mode-sets, and tag-sets a context resolves to, without rendering it.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"context":  {Type: "string", Description: "Context name to explain"},
				"provider": {Type: "string", Description: "Provider id to filter integration mode-sets by (optional)"},
			},
			Required: []string{"context"},
		},
	}, s.handleListSections)
}

type renderContextParams struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// handleRenderContext dispatches to RenderContext or RenderSection exactly
// the way internal/cli/render.go's runRender does: a name matching
// lg-cfg/<name>.ctx.md renders as a context, otherwise as a section.
func (s *Server) handleRenderContext(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params renderContextParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("render_context", fmt.Errorf("invalid arguments: %w", err))
	}
	if params.Name == "" {
		return errorResult("render_context", fmt.Errorf("\"name\" is required"))
	}

	opts := engine.Options{Provider: params.Provider, Model: params.Model, VCSMode: pipeline.VCSModeAll}

	var (
		text string
		err  error
	)
	if s.isContext(params.Name) {
		text, _, err = s.engine.RenderContext(params.Name, opts)
	} else {
		text, _, err = s.engine.RenderSection(params.Name, opts)
	}
	if err != nil {
		return errorResult("render_context", err)
	}
	return jsonResult(map[string]any{"name": params.Name, "text": text})
}

type listSectionsParams struct {
	Context  string `json:"context"`
	Provider string `json:"provider"`
}

func (s *Server) handleListSections(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params listSectionsParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("list_sections", fmt.Errorf("invalid arguments: %w", err))
	}
	if params.Context == "" {
		return errorResult("list_sections", fmt.Errorf("\"context\" is required"))
	}

	report, err := s.engine.Explain(params.Context, params.Provider, nil)
	if err != nil {
		return errorResult("list_sections", err)
	}
	return jsonResult(report)
}

// isContext reports whether name addresses a lg-cfg/<name>.ctx.md file.
func (s *Server) isContext(name string) bool {
	_, err := os.Stat(filepath.Join(s.engine.CfgRoot, name+".ctx.md"))
	return err == nil
}

// jsonResult marshals data as the tool's single text content block.
func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: marshaling result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(content)}}}, nil
}

// errorResult reports a tool-level failure inside the result object with
// IsError set, per the MCP spec: a protocol-level error would hide the
// failure from the model instead of letting it see and self-correct.
func errorResult(operation string, err error) (*mcp.CallToolResult, error) {
	result, marshalErr := jsonResult(map[string]any{
		"success":   false,
		"operation": operation,
		"error":     err.Error(),
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	result.IsError = true
	return result, nil
}
