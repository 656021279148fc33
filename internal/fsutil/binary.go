package fsutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// BinaryDetectionBytes is the number of bytes read from the beginning of a
// file to detect binary content. This matches Git's approach of checking the
// first 8KB for null bytes, keeping detection cost constant regardless of
// file size.
const BinaryDetectionBytes = 8192

// IsBinary reports whether the file at path contains binary content, by
// reading its first BinaryDetectionBytes and checking for a null byte
// (\x00), matching Git's own heuristic. An empty file is not binary. Used by
// the manifest builder to log-and-skip binary files per spec's per-file
// recoverable-error policy, rather than ship null bytes into a rendered
// section.
func IsBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening %s for binary detection: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, BinaryDetectionBytes)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading %s for binary detection: %w", path, err)
	}
	if n == 0 {
		return false, nil
	}
	return bytes.IndexByte(buf[:n], 0) != -1, nil
}
