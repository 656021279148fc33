package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgctx/lgctx/internal/filter"
	"github.com/lgctx/lgctx/internal/pipeline"
	"github.com/lgctx/lgctx/internal/section"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func allowAllFilter() *filter.FilterNode {
	n := filter.NewNode(filter.ModeAllow)
	n.Allow = []string{"/**"}
	return n
}

func TestBuildFiltersByExtensionAndSortsByPath(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "b.py", "print(1)")
	write(t, root, "a.py", "print(2)")
	write(t, root, "c.txt", "ignored by extension")

	manifest, err := Build(Options{
		Ref:        pipeline.SectionRef{Name: "src"},
		RepoRoot:   root,
		ScopeDir:   root,
		Extensions: []string{".py"},
		Filters:    allowAllFilter(),
		VCSMode:    pipeline.VCSModeAll,
	})
	require.NoError(t, err)
	require.Len(t, manifest.Files, 2)
	assert.Equal(t, "a.py", manifest.Files[0].RelPath)
	assert.Equal(t, "b.py", manifest.Files[1].RelPath)
}

func TestBuildHonoursGitignore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, ".gitignore", "vendor/\n")
	write(t, root, "main.go", "package main")
	write(t, root, "vendor/dep.go", "package dep")

	gi, err := NewGitignore(root)
	require.NoError(t, err)

	manifest, err := Build(Options{
		RepoRoot:   root,
		ScopeDir:   root,
		Extensions: []string{".go"},
		Filters:    allowAllFilter(),
		VCSMode:    pipeline.VCSModeAll,
		Gitignore:  gi,
	})
	require.NoError(t, err)
	require.Len(t, manifest.Files, 1)
	assert.Equal(t, "main.go", manifest.Files[0].RelPath)
}

func TestBuildPrunesBlockedSubtree(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "src/main.go", "package main")
	write(t, root, "internal/secret/secret.go", "package secret")

	tree := filter.NewNode(filter.ModeAllow)
	tree.Allow = []string{"/**"}
	tree.Children["internal"] = filter.NewNode(filter.ModeBlock)
	tree.Children["internal"].Block = []string{"/**"}

	manifest, err := Build(Options{
		RepoRoot:   root,
		ScopeDir:   root,
		Extensions: []string{".go"},
		Filters:    tree,
		VCSMode:    pipeline.VCSModeAll,
	})
	require.NoError(t, err)
	require.Len(t, manifest.Files, 1)
	assert.Equal(t, "src/main.go", manifest.Files[0].RelPath)
}

func TestBuildDocOnlySectionForcesVCSModeAll(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "README.txt", "hello")

	manifest, err := Build(Options{
		RepoRoot:   root,
		ScopeDir:   root,
		Extensions: []string{".txt"},
		Filters:    allowAllFilter(),
		VCSMode:    pipeline.VCSModeChanges,
		VCS:        fakeNoChanges{},
	})
	require.NoError(t, err)
	assert.True(t, manifest.IsDocOnly)
	assert.Equal(t, pipeline.VCSModeAll, manifest.UsedVCSMode)
	assert.Len(t, manifest.Files, 1)
}

type fakeNoChanges struct{}

func (fakeNoChanges) ChangedFiles(root string) (map[string]bool, error) { return map[string]bool{}, nil }
func (fakeNoChanges) BranchChangedFiles(root, target string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func TestBuildVCSModeChangesFiltersToChangedFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "a.go", "package a")
	write(t, root, "b.go", "package b")

	manifest, err := Build(Options{
		RepoRoot:   root,
		ScopeDir:   root,
		Extensions: []string{".go"},
		Filters:    allowAllFilter(),
		VCSMode:    pipeline.VCSModeChanges,
		VCS:        fakeChanges{changed: map[string]bool{"a.go": true}},
	})
	require.NoError(t, err)
	require.Len(t, manifest.Files, 1)
	assert.Equal(t, "a.go", manifest.Files[0].RelPath)
	assert.Equal(t, pipeline.VCSModeChanges, manifest.UsedVCSMode)
}

type fakeChanges struct{ changed map[string]bool }

func (f fakeChanges) ChangedFiles(root string) (map[string]bool, error) { return f.changed, nil }
func (f fakeChanges) BranchChangedFiles(root, target string) (map[string]bool, error) {
	return f.changed, nil
}

func TestBuildSkipsEmptyFilesPerSectionPolicy(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "empty.go", "")
	write(t, root, "full.go", "package main")

	manifest, err := Build(Options{
		RepoRoot:   root,
		ScopeDir:   root,
		Extensions: []string{".go"},
		Filters:    allowAllFilter(),
		VCSMode:    pipeline.VCSModeAll,
		SkipEmpty:  true,
	})
	require.NoError(t, err)
	require.Len(t, manifest.Files, 1)
	assert.Equal(t, "full.go", manifest.Files[0].RelPath)
}

func TestBuildAdapterEmptyPolicyOverridesSectionSkipEmpty(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "empty.go", "")

	manifest, err := Build(Options{
		RepoRoot:   root,
		ScopeDir:   root,
		Extensions: []string{".go"},
		Filters:    allowAllFilter(),
		VCSMode:    pipeline.VCSModeAll,
		SkipEmpty:  true,
		Adapters: map[string]section.AdapterConfig{
			"base": {BaseOptions: []section.KV{{Key: "empty_policy", Value: "include"}}},
		},
		AdapterNameForPath: func(string) string { return "base" },
	})
	require.NoError(t, err)
	require.Len(t, manifest.Files, 1)
}

func TestBuildTargetOverridesAppliedBySpecificity(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "pkg/special.go", "package pkg")

	manifest, err := Build(Options{
		RepoRoot:   root,
		ScopeDir:   root,
		Extensions: []string{".go"},
		Filters:    allowAllFilter(),
		VCSMode:    pipeline.VCSModeAll,
		Targets: []section.TargetRule{
			{Pattern: "/**/*.go", AdapterOverrides: map[string]map[string]any{
				"base": {"heading_offset": 1},
			}},
			{Pattern: "/pkg/special.go", AdapterOverrides: map[string]map[string]any{
				"base": {"heading_offset": 2},
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, manifest.Files, 1)
	assert.Equal(t, 2, manifest.Files[0].AdapterOverrides["base"]["heading_offset"])
}

func TestLanguageForFileAndDocOnly(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "go", LanguageForFile("main.go"))
	assert.Equal(t, "", LanguageForFile("README.md"))
	assert.Equal(t, "dockerfile", LanguageForFile("Dockerfile"))

	assert.True(t, IsDocOnly([]string{"", ""}))
	assert.False(t, IsDocOnly([]string{"", "go"}))
	assert.False(t, IsDocOnly(nil))
}
