package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTripThroughL2(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	c := New(root)

	_, ok := c.GetTokens("hello world", "gpt-4")
	assert.False(t, ok)

	c.PutTokens("hello world", "gpt-4", 2)

	fresh := New(root) // new process-local L1, forces an L2 read
	n, ok := fresh.GetTokens("hello world", "gpt-4")
	require.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestTokensDisabledByLGCache(t *testing.T) {
	root := t.TempDir()
	t.Setenv("LG_CACHE", "0")
	c := New(root)
	c.PutTokens("some text", "gpt-4", 5)

	t.Setenv("LG_CACHE", "1")
	fresh := New(root)
	_, ok := fresh.GetTokens("some text", "gpt-4")
	assert.False(t, ok, "L2 write should have been skipped while disabled")
}

func TestFreshModeAlwaysMissesButStillWrites(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	c := New(root).WithFresh(true)

	c.PutTokens("text", "m", 7)
	_, ok := c.GetTokens("text", "m")
	assert.False(t, ok, "fresh mode never reads its own L1 either")

	notFresh := New(root)
	n, ok := notFresh.GetTokens("text", "m")
	require.True(t, ok)
	assert.Equal(t, 7, n)
}

func TestProcessedRoundTrip(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	c := New(root)

	key, err := BuildProcessedKey(writeTempFile(t, root, "a.py", "x=1"), map[string]any{"a": 1}, map[string]bool{"t1": true}, "v1")
	require.NoError(t, err)

	_, ok := c.GetProcessed(key)
	assert.False(t, ok)

	c.PutProcessed(key, "processed", map[string]any{"md.removed_h1": 1})

	entry, ok := c.GetProcessed(key)
	require.True(t, ok)
	assert.Equal(t, "processed", entry.ProcessedText)
}

func TestBuildProcessedKeyStableUnderMapReordering(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := writeTempFile(t, root, "a.py", "x=1")

	k1, err := BuildProcessedKey(path, map[string]any{"a": 1, "b": 2}, map[string]bool{"x": true, "y": true}, "v1")
	require.NoError(t, err)
	k2, err := BuildProcessedKey(path, map[string]any{"b": 2, "a": 1}, map[string]bool{"y": true, "x": true}, "v1")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestBuildProcessedKeyChangesWithToolVersion(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := writeTempFile(t, root, "a.py", "x=1")

	k1, err := BuildProcessedKey(path, nil, nil, "v1")
	require.NoError(t, err)
	k2, err := BuildProcessedKey(path, nil, nil, "v2")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestCfgStateRoundTrip(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	c := New(root)

	type state struct {
		Actual int `json:"actual"`
	}
	var out state
	assert.False(t, c.ReadCfgState("deadbeef", &out))

	c.WriteCfgState("deadbeef", state{Actual: 3})
	require.True(t, c.ReadCfgState("deadbeef", &out))
	assert.Equal(t, 3, out.Actual)
}

func TestL1SmallTextKeyedByIdentityLargeByHash(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	c := New(root)
	short := "short"
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	assert.Equal(t, short, c.l1Key(short))
	assert.NotEqual(t, string(long), c.l1Key(string(long)))
}

func writeTempFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
