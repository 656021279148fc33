package migrate

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lgctx/lgctx/internal/cache"
	"github.com/lgctx/lgctx/internal/fsutil"
	"github.com/lgctx/lgctx/internal/pipeline"
)

// appliedEntry records one migration's successful application in the
// cumulative history, independent of the current fingerprint.
type appliedEntry struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	At    string `json:"at"`
	Tool  string `json:"tool"`
}

// failureInfo records the last migration failure, if any, so a subsequent
// run knows to retry even when the fingerprint hasn't changed.
type failureInfo struct {
	Message string `json:"message"`
	Failed  struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	} `json:"failed"`
	Phase string `json:"phase"` // "run" | "preflight"
	At    string `json:"at"`
}

// cfgState is the full persisted migration state for one config directory,
// per scope hash. Grounded on runner.py's _put_state payload shape.
type cfgState struct {
	Actual      int            `json:"actual"`
	Fingerprint string         `json:"fingerprint"`
	Tool        string         `json:"tool"`
	Applied     []appliedEntry `json:"applied"`
	LastError   *failureInfo   `json:"lastError"`
	UpdatedAt   string         `json:"updatedAt"`
}

// fingerprintCfg returns a deterministic digest of cfgRoot's entire working
// tree content (every file's bytes, not the Git index), so it catches
// uncommitted edits. Ported from runner.py's _fingerprint_cfg.
func fingerprintCfg(repoRoot, cfgRoot string) (string, error) {
	var lines []string
	rr, err := filepath.Abs(repoRoot)
	if err != nil {
		return "", err
	}
	base, err := filepath.Abs(cfgRoot)
	if err != nil {
		return "", err
	}

	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(rr, path)
		if relErr != nil {
			rel = path
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			data = nil
		}
		h := sha1.Sum(data)
		lines = append(lines, fmt.Sprintf("F %s %s", hex.EncodeToString(h[:]), filepath.ToSlash(rel)))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	sort.Strings(lines)

	hasher := sha1.New()
	for _, ln := range lines {
		hasher.Write([]byte(ln))
		hasher.Write([]byte("\n"))
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func scopeHash(cfgRoot string) string {
	abs, err := filepath.Abs(cfgRoot)
	if err != nil {
		abs = cfgRoot
	}
	return fsutil.SHA1HexString(filepath.ToSlash(abs))
}

func gitPresent(repoRoot string) bool {
	info, err := os.Stat(filepath.Join(repoRoot, ".git"))
	return err == nil && info.IsDir()
}

func allowNoGit() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("LGCTX_MIGRATE_ALLOW_NO_GIT")))
	switch v {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// userMessage builds a human-facing message for a fatal migration failure,
// varying its remediation tips by phase. Grounded on runner.py's _user_msg
// (translated from its Russian original into the teacher's English tone).
func userMessage(id int, title, phase string, cause error) string {
	var action, tips string
	switch phase {
	case "preflight":
		action = "start applying this migration — it requires Git or an explicit opt-out"
		tips = "  - Run inside a Git repository (or initialize one: git init && git add lg-cfg && git commit -m \"init lg-cfg\").\n" +
			"  - Or set LGCTX_MIGRATE_ALLOW_NO_GIT=1 and retry.\n"
	default:
		action = "run this migration"
		tips = "  - Run `lgctx diag --bundle` and attach the resulting archive.\n" +
			"  - Temporarily revert local edits under lg-cfg/ (e.g. `git restore -- lg-cfg/`) and retry.\n"
	}
	return fmt.Sprintf("migration #%d %q failed to %s: %v\n\nWhat to do:\n%s", id, title, action, cause, tips)
}

// EnsureCfgActual brings cfgRoot up to CfgCurrent: it fingerprints the
// working tree, short-circuits if nothing changed and the prior run fully
// succeeded, otherwise runs every registered migration in order under an
// advisory lock, persisting partial progress after each one. Grounded on
// runner.py's ensure_cfg_actual.
func EnsureCfgActual(c *cache.Cache, repoRoot, cfgRoot, toolVersion string) error {
	hash := scopeHash(cfgRoot)

	var state cfgState
	c.ReadCfgState(hash, &state)

	if state.Actual > CfgCurrent {
		return pipeline.NewUserError(pipeline.KindMigrationFatal,
			fmt.Sprintf("config format (%d) is newer than this tool supports (up to %d); upgrade lgctx", state.Actual, CfgCurrent), nil)
	}

	fp, err := fingerprintCfg(repoRoot, cfgRoot)
	if err != nil {
		return err
	}
	if state.Fingerprint == fp && state.Actual >= CfgCurrent && state.LastError == nil {
		return nil
	}

	lockDir := filepath.Join(c.Root(), "locks", hash)
	lock, err := AcquireLock(lockDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	allowSideEffects := gitPresent(repoRoot) || allowNoGit()

	actual := 0
	applied := append([]appliedEntry(nil), state.Applied...)
	cfgFs := NewCfgFs(repoRoot, cfgRoot)

	putState := func(lastErr *failureInfo) {
		fp, fpErr := fingerprintCfg(repoRoot, cfgRoot)
		if fpErr != nil {
			fp = state.Fingerprint
		}
		c.WriteCfgState(hash, cfgState{
			Actual:      actual,
			Fingerprint: fp,
			Tool:        toolVersion,
			Applied:     applied,
			LastError:   lastErr,
			UpdatedAt:   nowUTC(),
		})
	}

	for _, m := range Migrations() {
		id, title := m.ID(), m.Title()

		changed, runErr := m.Run(cfgFs, allowSideEffects)
		if runErr != nil {
			var uerr *pipeline.UserError
			phase := "run"
			if asUserError(runErr, &uerr) && uerr.Kind == pipeline.KindPreflightRequired {
				phase = "preflight"
			}
			putState(&failureInfo{
				Message: runErr.Error(),
				Phase:   phase,
				At:      nowUTC(),
				Failed: struct {
					ID    int    `json:"id"`
					Title string `json:"title"`
				}{ID: id, Title: title},
			})
			return pipeline.NewUserError(pipeline.KindMigrationFatal, userMessage(id, title, phase, runErr), runErr)
		}

		actual = max(actual, id)
		if changed {
			seen := false
			for _, a := range applied {
				if a.ID == id {
					seen = true
					break
				}
			}
			if !seen {
				applied = append(applied, appliedEntry{ID: id, Title: title, At: nowUTC(), Tool: toolVersion})
			}
		}
		putState(nil)
	}

	actual = max(actual, CfgCurrent)
	putState(nil)
	return nil
}

func asUserError(err error, target **pipeline.UserError) bool {
	if uerr, ok := err.(*pipeline.UserError); ok {
		*target = uerr
		return true
	}
	return false
}
