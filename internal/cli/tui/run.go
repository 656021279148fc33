package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lgctx/lgctx/internal/engine"
	"github.com/lgctx/lgctx/internal/migrate"
)

// Run starts the interactive explain/migrate-status viewer for name,
// blocking until the user quits. It resolves explain and status data once
// up front -- the view never re-resolves or re-renders anything on its
// own, matching the read-only scope of `lgctx explain --tui`.
func Run(eng *engine.Engine, name, provider string, tags []string) error {
	report, err := eng.Explain(name, provider, tags)
	if err != nil {
		return err
	}
	status := migrate.Status(eng.Cache, eng.CfgRoot)

	_, err = tea.NewProgram(New(report, status), tea.WithAltScreen()).Run()
	return err
}
