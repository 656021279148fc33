// Package fsutil provides the POSIX path math, repo-root/scope discovery,
// and file fingerprinting primitives every other engine package builds on.
// It has no dependency on any other internal package.
package fsutil

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// CfgDirName is the name of the directory that marks a scope. A scope is
// any directory containing a subdirectory with this name.
const CfgDirName = "lg-cfg"

// ToPosix normalizes a filesystem path to forward slashes, suitable for glob
// matching and deterministic output ordering.
func ToPosix(path string) string {
	return filepath.ToSlash(path)
}

// IsScope reports whether dir contains a CfgDirName subdirectory.
func IsScope(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, CfgDirName))
	return err == nil && info.IsDir()
}

// FindRepoRoot walks upward from start looking for the top-most scope: the
// highest directory at or above start that contains lg-cfg/. This mirrors
// the resolution original_source's extends resolver uses to find the
// repository root when resolving the bare "@/:name" / "@:name" origin.
func FindRepoRoot(start string) (string, bool) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	found := ""
	for {
		if IsScope(current) {
			found = current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return found, found != ""
		}
		current = parent
	}
}

// IsCfgRelPath reports whether a POSIX-relative path lives inside a scope's
// config directory (the leading path component equals CfgDirName). Used by
// the manifest builder to recognize "virtual section" files that live under
// lg-cfg/ itself.
func IsCfgRelPath(relPosix string) bool {
	relPosix = strings.TrimPrefix(relPosix, "/")
	if relPosix == CfgDirName {
		return true
	}
	return strings.HasPrefix(relPosix, CfgDirName+"/")
}

// SHA1Hex returns the lowercase hex-encoded SHA-1 digest of data. Used for
// content-addressed cache keys and the migration fingerprint; kept distinct
// from the xxh3 hash the cache uses to key long texts in its in-memory L1.
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SHA1HexString is a convenience wrapper over SHA1Hex for string input.
func SHA1HexString(s string) string {
	return SHA1Hex([]byte(s))
}

// Fingerprint identifies a file's content without reading it, by path, size,
// and modification time in nanoseconds. Two fingerprints are equal iff the
// file is believed unchanged.
type Fingerprint struct {
	Path      string
	Size      int64
	ModTimeNs int64
}

// ComputeFingerprint stats the file at path and returns its Fingerprint.
func ComputeFingerprint(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		Path:      path,
		Size:      info.Size(),
		ModTimeNs: info.ModTime().UnixNano(),
	}, nil
}

// RelPosix returns path relative to base, normalized to forward slashes.
func RelPosix(base, path string) (string, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", err
	}
	return ToPosix(rel), nil
}
