package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCommand creates a fresh Cobra command with flags bound for testing.
// Using a fresh command avoids shared state between tests.
func newTestCommand() (*cobra.Command, *FlagValues) {
	cmd := &cobra.Command{
		Use:           "test",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	fv := BindFlags(cmd)
	return cmd, fv
}

func TestFlagDefaults(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, ".", fv.Dir)
	assert.Empty(t, fv.Target)
	assert.Empty(t, fv.Provider)
	assert.Nil(t, fv.Tags)
	assert.Empty(t, fv.Model)
	assert.Empty(t, fv.Tokenizer)
	assert.Empty(t, fv.VCSMode)
	assert.Empty(t, fv.TargetBranch)
	assert.True(t, fv.CodeFence)
	assert.Empty(t, fv.Output)
	assert.True(t, fv.Stdout)
	assert.False(t, fv.Verbose)
	assert.False(t, fv.Quiet)
	assert.False(t, fv.Yes)
	assert.False(t, fv.ClearCache)
}

func TestVerboseQuietMutualExclusion(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--verbose", "--quiet"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestDirNonExistentPath(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--dir", "/nonexistent/path/that/does/not/exist"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--dir")
}

func TestDirNotADirectory(t *testing.T) {
	clearLgctxEnv(t)

	tmp := t.TempDir()
	f := filepath.Join(tmp, "file.txt")
	require.NoError(t, os.WriteFile(f, []byte("hello"), 0o644))

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--dir", f})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestDirValidDirectory(t *testing.T) {
	clearLgctxEnv(t)

	tmp := t.TempDir()

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--dir", tmp})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, tmp, fv.Dir)
}

func TestVCSModeInvalid(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--vcs-mode", "xyz"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--vcs-mode")
	assert.Contains(t, err.Error(), "xyz")
}

func TestVCSModeValidValues(t *testing.T) {
	tests := []string{"all", "changes", "branch-changes"}
	for _, mode := range tests {
		t.Run(mode, func(t *testing.T) {
			clearLgctxEnv(t)

			cmd, fv := newTestCommand()
			cmd.SetArgs([]string{"--vcs-mode", mode})
			require.NoError(t, cmd.Execute())

			err := ValidateFlags(fv, cmd)
			require.NoError(t, err)
			assert.Equal(t, mode, fv.VCSMode)
		})
	}
}

func TestTargetFlag(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--target", "notes"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, "notes", fv.Target)
}

func TestTagRepeatable(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--tag", "verbose", "--tag", "debug"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"verbose", "debug"}, fv.Tags)
}

func TestModelFlag(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--model", "claude-3.5-sonnet (economy)"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, "claude-3.5-sonnet (economy)", fv.Model)
}

func TestProviderFlag(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--provider", "claude.cli"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, "claude.cli", fv.Provider)
}

func TestOutputStdoutMutualExclusion(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--output", "out.md", "--stdout"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestOutputDisablesStdoutByDefault(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--output", "out.md"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.False(t, fv.Stdout, "--output without explicit --stdout must disable stdout")
}

func TestBooleanFlags(t *testing.T) {
	clearLgctxEnv(t)

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{
		"--yes",
		"--clear-cache",
		"--code-fence=false",
	})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)

	assert.True(t, fv.Yes)
	assert.True(t, fv.ClearCache)
	assert.False(t, fv.CodeFence)
}

// --- environment variable overrides ---

func TestEnvTargetOverride(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTarget, "notes")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, "notes", fv.Target)
}

func TestExplicitFlagOverridesEnv(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTarget, "from-env")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--target", "from-flag"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", fv.Target, "explicit --target flag should override LGCTX_TARGET env var")
}

func TestEnvProviderOverride(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvProvider, "openai.chatgpt")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, "openai.chatgpt", fv.Provider)
}

func TestEnvTagsOverride(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTags, "verbose, debug")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"verbose", "debug"}, fv.Tags)
}

func TestEnvTagsNotAppliedWhenFlagSet(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTags, "from-env")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--tag", "from-flag"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"from-flag"}, fv.Tags)
}

func TestEnvVCSModeOverride(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvVCSMode, "branch-changes")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, "branch-changes", fv.VCSMode)
}

func TestEnvTargetBranchOverride(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvTargetBranch, "develop")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.Equal(t, "develop", fv.TargetBranch)
}

func TestEnvCodeFenceOverride(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvCodeFence, "false")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.False(t, fv.CodeFence)
}

func TestEnvCodeFenceNotAppliedWhenFlagSet(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvCodeFence, "false")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--code-fence=true"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.True(t, fv.CodeFence)
}

func TestEnvDebugSetsVerbose(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvDebug, "1")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.True(t, fv.Verbose)
}

func TestEnvDebugNotAppliedWhenVerboseFlagSet(t *testing.T) {
	clearLgctxEnv(t)
	t.Setenv(EnvDebug, "1")

	cmd, fv := newTestCommand()
	cmd.SetArgs([]string{"--verbose=false"})
	require.NoError(t, cmd.Execute())

	err := ValidateFlags(fv, cmd)
	require.NoError(t, err)
	assert.False(t, fv.Verbose)
}
