package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createBinaryTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestIsBinary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
		wantBin bool
	}{
		{
			name:    "plain text file is not binary",
			content: []byte("Hello, this is a plain text file.\nNo binary content here.\n"),
			wantBin: false,
		},
		{
			name:    "empty file is not binary",
			content: []byte{},
			wantBin: false,
		},
		{
			name:    "file with null byte is binary",
			content: []byte("some text\x00more text"),
			wantBin: true,
		},
		{
			name:    "file starting with null byte is binary",
			content: []byte{0x00, 'h', 'e', 'l', 'l', 'o'},
			wantBin: true,
		},
		{
			name:    "file ending with null byte is binary",
			content: []byte{'h', 'e', 'l', 'l', 'o', 0x00},
			wantBin: true,
		},
		{
			name: "PNG header bytes are binary",
			content: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D},
			wantBin: true,
		},
		{
			name: "JPEG header bytes are binary",
			content: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00},
			wantBin: true,
		},
		{
			name: "ELF binary header is binary",
			content: []byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01, 0x01, 0x00, 0x00, 0x00},
			wantBin: true,
		},
		{
			name:    "UTF-8 text with multibyte characters is not binary",
			content: []byte("Hello, world! こんにちは"),
			wantBin: false,
		},
		{
			name:    "file with only whitespace is not binary",
			content: []byte("   \t\t\n\n\r\n   \t   \n"),
			wantBin: false,
		},
		{
			name:    "file with high-bit bytes but no null is not binary",
			content: []byte{0xFF, 0xFE, 0xFD, 0xFC, 0xFB, 0xFA},
			wantBin: false,
		},
		{
			name:    "single null byte is binary",
			content: []byte{0x00},
			wantBin: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			path := createBinaryTestFile(t, dir, "testfile", tt.content)

			got, err := IsBinary(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBin, got)
		})
	}
}

func TestIsBinary_NullByteAfter8KB(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := make([]byte, BinaryDetectionBytes+100)
	for i := range content {
		content[i] = 'A'
	}
	content[BinaryDetectionBytes] = 0x00

	path := createBinaryTestFile(t, dir, "null-after-8kb", content)

	got, err := IsBinary(path)
	require.NoError(t, err)
	assert.False(t, got, "null byte after first 8KB should not be detected")
}

func TestIsBinary_NullByteAtEnd8KB(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := make([]byte, BinaryDetectionBytes)
	for i := range content {
		content[i] = 'A'
	}
	content[BinaryDetectionBytes-1] = 0x00

	path := createBinaryTestFile(t, dir, "null-at-end-8kb", content)

	got, err := IsBinary(path)
	require.NoError(t, err)
	assert.True(t, got, "null byte at end of first 8KB should be detected")
}

func TestIsBinary_PermissionDenied(t *testing.T) {
	t.Parallel()

	if os.Getuid() == 0 {
		t.Skip("skipping permission test when running as root")
	}

	dir := t.TempDir()
	path := createBinaryTestFile(t, dir, "no-perms", []byte("content"))
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() {
		os.Chmod(path, 0o644)
	})

	_, err := IsBinary(path)
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestIsBinary_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := IsBinary("/nonexistent/path/to/file")
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsBinary_Symlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	textPath := createBinaryTestFile(t, dir, "original.txt", []byte("plain text content"))
	symlinkPath := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(textPath, symlinkPath))

	got, err := IsBinary(symlinkPath)
	require.NoError(t, err)
	assert.False(t, got, "symlink to text file should not be binary")

	binPath := createBinaryTestFile(t, dir, "original.bin", []byte{0x89, 0x50, 0x4E, 0x47, 0x00})
	binSymlinkPath := filepath.Join(dir, "link.bin")
	require.NoError(t, os.Symlink(binPath, binSymlinkPath))

	got, err = IsBinary(binSymlinkPath)
	require.NoError(t, err)
	assert.True(t, got, "symlink to binary file should be binary")
}

func TestIsBinary_LargeTextFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := make([]byte, 10*1024*1024)
	for i := range content {
		content[i] = 'A'
	}
	path := createBinaryTestFile(t, dir, "large.txt", content)

	got, err := IsBinary(path)
	require.NoError(t, err)
	assert.False(t, got, "large text file should not be binary")
}
