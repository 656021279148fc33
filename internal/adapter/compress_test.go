package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressHeuristicKeepsSignaturesCollapsesBodies(t *testing.T) {
	t.Parallel()
	a := CompressAdapter{}
	bound, err := a.Bind(nil)
	require.NoError(t, err)

	raw := "package main\n\nfunc add(a, b int) int {\n\tresult := a + b\n\treturn result\n}\n"
	text, meta, err := bound.Process(FileContext{RawText: raw, Extension: ".go"})
	require.NoError(t, err)
	assert.Contains(t, text, "func add(a, b int) int {")
	assert.Contains(t, text, "...")
	assert.NotContains(t, text, "result := a + b")
	assert.Equal(t, "heuristic", meta["compress.engine"])
}

func TestCompressDegradesGracefullyWithoutWasmModule(t *testing.T) {
	t.Parallel()
	a := CompressAdapter{}
	bound, err := a.Bind(map[string]any{"wasm_module": "/nonexistent/module.wasm"})
	require.NoError(t, err)

	_, meta, err := bound.Process(FileContext{RawText: "func f() {\n\tx := 1\n}\n", Extension: ".go"})
	require.NoError(t, err)
	assert.Equal(t, "heuristic", meta["compress.engine"])
}

func TestCompressSkipsEmptyFiles(t *testing.T) {
	t.Parallel()
	a := CompressAdapter{}
	bound, err := a.Bind(nil)
	require.NoError(t, err)
	assert.True(t, bound.ShouldSkip(FileContext{RawText: "  \n"}))
}
