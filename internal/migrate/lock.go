package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lgctx/lgctx/internal/pipeline"
)

// lockInfo is the holder metadata recorded inside a lock directory, useful
// for a human diagnosing a stuck lock (stale PID, a holder ID to mention in
// a bug report).
type lockInfo struct {
	Holder     string `json:"holder"`
	PID        int    `json:"pid"`
	AcquiredAt string `json:"acquiredAt"`
}

// Lock is an acquired advisory lock, held by creating lockDir. Release
// must be called to free it.
type Lock struct {
	dir    string
	holder string
}

// AcquireLock takes the advisory lock at lockDir, re-expressing the
// original's intent (serialize concurrent `lg migrate` runs against the
// same config directory) with Go's os.Mkdir: directory creation is atomic
// on every platform Go supports, so two processes racing to create lockDir
// can never both succeed. Unlike the Python original (which this port has
// no direct counterpart for — runner.py relied on the cache layer's own
// atomic writes and never serialized full migration runs), this gives
// concurrent `lgctx migrate` invocations an explicit mutual-exclusion point.
func AcquireLock(lockDir string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(lockDir), 0o755); err != nil {
		return nil, err
	}

	holder := uuid.NewString()
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, pipeline.NewUserError(pipeline.KindMigrationFatal,
				fmt.Sprintf("migration lock %s is already held by another process", lockDir), err)
		}
		return nil, err
	}

	info := lockInfo{Holder: holder, PID: os.Getpid(), AcquiredAt: time.Now().UTC().Format(time.RFC3339)}
	data, _ := json.Marshal(info)
	if err := os.WriteFile(filepath.Join(lockDir, "lock.json"), data, 0o644); err != nil {
		os.RemoveAll(lockDir)
		return nil, err
	}

	return &Lock{dir: lockDir, holder: holder}, nil
}

// Release frees the lock by removing its directory.
func (l *Lock) Release() error {
	return os.RemoveAll(l.dir)
}

// Holder returns this lock's holder ID.
func (l *Lock) Holder() string { return l.holder }
