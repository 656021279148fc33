// Package diag implements `lgctx diag --bundle`: a single zip archive a user
// can attach to a bug report, grounded on SPEC_FULL.md's diag promise and
// original_source/lg/migrate/runner.py's migration-failure message, which
// tells the user to "run `lg diag --bundle` and attach the resulting
// archive" (_user_msg). archive/zip is used directly: no library in the
// retrieved pack wraps zip writing, and the stdlib package already matches
// what the CLI tools in the pack reach for when they need an archive format.
package diag

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lgctx/lgctx/internal/cache"
	"github.com/lgctx/lgctx/internal/config"
)

// configSnapshot is the JSON shape written as resolved_config.json inside
// the bundle: the fully resolved engine config plus which layer produced
// each field, the same information `lgctx config debug --json` reports.
type configSnapshot struct {
	Engine  *config.EngineConfig `json:"engine"`
	Sources map[string]string    `json:"sources"`
}

// Bundle writes a zip archive to w containing cfgRoot's entire tree, the
// resolved configuration, and the L2 cache's on-disk footprint. It does not
// include any file outside cfgRoot, so source code never leaks into a bug
// report bundle.
func Bundle(w io.Writer, cfgRoot string, resolved *config.ResolvedConfig, c *cache.Cache) error {
	zw := zip.NewWriter(w)

	if err := addDir(zw, cfgRoot, filepath.Base(cfgRoot)); err != nil {
		return fmt.Errorf("diag: bundling %s: %w", cfgRoot, err)
	}

	snapshot := configSnapshot{Engine: resolved.Engine, Sources: make(map[string]string, len(resolved.Sources))}
	for k, src := range resolved.Sources {
		snapshot.Sources[k] = src.String()
	}
	if err := addJSON(zw, "resolved_config.json", snapshot); err != nil {
		return err
	}

	stats, err := c.Stat()
	if err != nil {
		return fmt.Errorf("diag: collecting cache stats: %w", err)
	}
	if err := addJSON(zw, "cache_stats.json", stats); err != nil {
		return err
	}

	return zw.Close()
}

// addDir walks root and copies every regular file into zw under archivePrefix,
// preserving root's relative directory structure.
func addDir(zw *zip.Writer, root, archivePrefix string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		f, err := zw.Create(filepath.ToSlash(filepath.Join(archivePrefix, rel)))
		if err != nil {
			return err
		}

		data, err := os.Open(path)
		if err != nil {
			return err
		}
		defer data.Close()

		_, err = io.Copy(f, data)
		return err
	})
}

// addJSON writes v as pretty-printed JSON to a new entry named name inside
// zw.
func addJSON(zw *zip.Writer, name string, v any) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("diag: creating %s entry: %w", name, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("diag: encoding %s: %w", name, err)
	}
	return nil
}
