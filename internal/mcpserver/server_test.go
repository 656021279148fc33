package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgctx/lgctx/internal/engine"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func newFixtureServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	cfg := filepath.Join(root, "lg-cfg")

	writeFile(t, filepath.Join(cfg, "sections.yaml"), ""+
		"code:\n"+
		"  extensions: [\".txt\"]\n"+
		"  filters:\n"+
		"    mode: allow\n"+
		"    allow: [\"**\"]\n")
	writeFile(t, filepath.Join(cfg, "notes.ctx.md"), "# Notes\n\n${code}\n")
	writeFile(t, filepath.Join(root, "hello.txt"), "hello from mcp\n")

	eng, err := engine.New(root)
	require.NoError(t, err)
	return New(eng)
}

func callToolRequest(t *testing.T, params any) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "tool result content must be text")
	return tc.Text
}

func TestHandleRenderContextRendersSection(t *testing.T) {
	s := newFixtureServer(t)

	result, err := s.handleRenderContext(context.Background(), callToolRequest(t, renderContextParams{Name: "code"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &payload))
	assert.Contains(t, payload["text"], "hello from mcp")
}

func TestHandleRenderContextRendersContext(t *testing.T) {
	s := newFixtureServer(t)

	result, err := s.handleRenderContext(context.Background(), callToolRequest(t, renderContextParams{Name: "notes"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &payload))
	assert.Contains(t, payload["text"], "# Notes")
	assert.Contains(t, payload["text"], "hello from mcp")
}

func TestHandleRenderContextRequiresName(t *testing.T) {
	s := newFixtureServer(t)

	result, err := s.handleRenderContext(context.Background(), callToolRequest(t, renderContextParams{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRenderContextUnknownNameReportsToolError(t *testing.T) {
	s := newFixtureServer(t)

	result, err := s.handleRenderContext(context.Background(), callToolRequest(t, renderContextParams{Name: "does-not-exist"}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "unknown section/context must be a tool-level error, not a protocol error")
}

func TestHandleListSectionsReturnsSectionList(t *testing.T) {
	s := newFixtureServer(t)

	result, err := s.handleListSections(context.Background(), callToolRequest(t, listSectionsParams{Context: "notes"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var report engine.ExplainReport
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &report))
	assert.Equal(t, "notes", report.Context)
	assert.Contains(t, report.Sections, "code")
}

func TestHandleListSectionsRequiresContext(t *testing.T) {
	s := newFixtureServer(t)

	result, err := s.handleListSections(context.Background(), callToolRequest(t, listSectionsParams{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestNewWiresServerAndEngine(t *testing.T) {
	s := newFixtureServer(t)
	assert.NotNil(t, s.server)
	assert.NotNil(t, s.engine)
}
