package migrate

import "sort"

// Migration is one versioned, idempotent transformation of the config
// directory. Grounded on registry.py's Migration Protocol, collapsed to a
// single Run method: the original's probe()/apply() split (used only by
// m002) is folded into each migration's own Run, since no caller ever needs
// to probe without applying.
type Migration interface {
	ID() int
	Title() string
	// Run applies the migration if needed and reports whether it changed
	// anything. allowSideEffects gates migrations that require a Git
	// checkout (or an explicit opt-out) as a safety net before rewriting
	// files; such a migration returns a PreflightRequired UserError when
	// side effects are needed but not allowed.
	Run(fs *CfgFs, allowSideEffects bool) (changed bool, err error)
}

var registered []Migration

// register adds m to the registry, keeping it sorted by ID. Called from
// each migration file's init(), mirroring migrations/__init__.py's
// side-effect registration.
func register(m Migration) {
	registered = append(registered, m)
	sort.Slice(registered, func(i, j int) bool { return registered[i].ID() < registered[j].ID() })
}

// Migrations returns the registered migrations in ascending ID order.
func Migrations() []Migration {
	out := make([]Migration, len(registered))
	copy(out, registered)
	return out
}

// CfgCurrent is the config schema version this tool's migrations bring a
// config directory up to. Bumped alongside new migrations/m0NN files.
const CfgCurrent = 2
