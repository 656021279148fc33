// Package tui implements an interactive explain/migrate-status viewer,
// grounded on _examples/groblegark-gasboat/controller/internal/tui/decision's
// Bubbletea model shape (bubbles/key + bubbles/help + bubbles/viewport,
// lipgloss styling, tea.Model's Init/Update/View) -- the pack's only
// repository that builds a Bubbletea TUI, adapted here from a decision
// inbox to a read-only panel switcher over an engine.ExplainReport and a
// migrate.Report.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lgctx/lgctx/internal/adaptive"
	"github.com/lgctx/lgctx/internal/engine"
	"github.com/lgctx/lgctx/internal/migrate"
)

// panel identifies which of the model's read-only views is active.
type panel int

const (
	panelSections panel = iota
	panelModeSets
	panelTagSets
	panelMigrate
	panelCount
)

func (p panel) title() string {
	switch p {
	case panelSections:
		return "Sections"
	case panelModeSets:
		return "Mode sets"
	case panelTagSets:
		return "Tag sets"
	case panelMigrate:
		return "Migrate status"
	default:
		return ""
	}
}

// keyMap is this view's key bindings, grounded on the teacher TUI's
// key.Binding/DefaultKeyMap pattern.
type keyMap struct {
	Next key.Binding
	Prev key.Binding
	Up   key.Binding
	Down key.Binding
	Help key.Binding
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab", "next panel")),
		Prev: key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab", "prev panel")),
		Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Up, k.Down, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Model is the Bubbletea model for `lgctx explain --tui` /
// `lgctx migrate --interactive`: it renders one engine.ExplainReport and
// one migrate.Report as switchable panels, with no mutating actions --
// every migration has already run by the time engine.New returned.
type Model struct {
	width, height int

	explain engine.ExplainReport
	status  migrate.Report

	active   panel
	keys     keyMap
	help     help.Model
	showHelp bool
	vp       viewport.Model
}

// New constructs the explain/migrate-status viewer model.
func New(explain engine.ExplainReport, status migrate.Report) Model {
	h := help.New()
	h.ShowAll = false
	return Model{
		explain: explain,
		status:  status,
		keys:    defaultKeyMap(),
		help:    h,
		vp:      viewport.New(0, 0),
	}
}

// Init satisfies tea.Model; there is nothing to fetch, every panel's data
// is already resolved before the program starts.
func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle(fmt.Sprintf("lgctx explain: %s", m.explain.Context))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width - 2
		m.vp.Height = msg.Height - 6
		m.vp.SetContent(m.renderPanel())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
		case key.Matches(msg, m.keys.Next):
			m.active = (m.active + 1) % panelCount
			m.vp.SetContent(m.renderPanel())
			m.vp.GotoTop()
		case key.Matches(msg, m.keys.Prev):
			m.active = (m.active - 1 + panelCount) % panelCount
			m.vp.SetContent(m.renderPanel())
			m.vp.GotoTop()
		case key.Matches(msg, m.keys.Up):
			m.vp.LineUp(1)
		case key.Matches(msg, m.keys.Down):
			m.vp.LineDown(1)
		}
	}
	return m, nil
}

func (m Model) View() string {
	tabs := make([]string, panelCount)
	for p := panel(0); p < panelCount; p++ {
		style := tabStyle
		if p == m.active {
			style = activeTabStyle
		}
		tabs[p] = style.Render(p.title())
	}

	header := titleStyle.Render(fmt.Sprintf("lgctx explain: %s", m.explain.Context))
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	body := panelStyle.Width(m.width - 2).Render(m.vp.View())

	view := lipgloss.JoinVertical(lipgloss.Left, header, tabBar, body)
	if m.showHelp {
		view = lipgloss.JoinVertical(lipgloss.Left, view, m.help.View(m.keys))
	}
	return view
}

// renderPanel renders the currently active panel's plain-text content.
func (m Model) renderPanel() string {
	switch m.active {
	case panelSections:
		return renderSections(m.explain.Sections)
	case panelModeSets:
		return renderModeSets(m.explain.ModeSets)
	case panelTagSets:
		return renderTagSets(m.explain.TagSets)
	case panelMigrate:
		return renderMigrateStatus(m.status)
	default:
		return ""
	}
}

func renderSections(sections []string) string {
	if len(sections) == 0 {
		return mutedStyle.Render("(no sections)")
	}
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "  %s\n", s)
	}
	return b.String()
}

func renderModeSets(modeSets []adaptive.ModeSetView) string {
	if len(modeSets) == 0 {
		return mutedStyle.Render("(no mode-sets)")
	}
	var b strings.Builder
	for _, ms := range modeSets {
		fmt.Fprintf(&b, "%s  %s\n", labelStyle.Render(ms.ID), ms.Title)
		for _, mode := range ms.Modes {
			fmt.Fprintf(&b, "  - %s: %s\n", mode.ID, mode.Title)
		}
	}
	return b.String()
}

func renderTagSets(tagSets []adaptive.TagSetView) string {
	if len(tagSets) == 0 {
		return mutedStyle.Render("(no tag-sets)")
	}
	var b strings.Builder
	for _, ts := range tagSets {
		fmt.Fprintf(&b, "%s  %s\n", labelStyle.Render(ts.ID), ts.Title)
		for _, tag := range ts.Tags {
			fmt.Fprintf(&b, "  - %s: %s\n", tag.ID, tag.Title)
		}
	}
	return b.String()
}

func renderMigrateStatus(status migrate.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema version: %d / %d\n\n", status.Actual, status.CfgCurrent)
	for _, step := range status.Steps {
		mark := "pending"
		style := pendingStyle
		if step.Applied {
			mark = "applied " + step.At
			style = appliedStyle
		}
		fmt.Fprintf(&b, "  #%d %-40s %s\n", step.ID, step.Title, style.Render(mark))
	}
	if status.LastError != "" {
		fmt.Fprintf(&b, "\n%s\n", errorStyle.Render(status.LastError))
	}
	return b.String()
}
