package tui

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"strava-dashboard/internal/analysis"
	"strava-dashboard/internal/config"
	"strava-dashboard/internal/service"
	"strava-dashboard/internal/store"
)

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenActivities
	ScreenBreakdown
	ScreenRefresh
	ScreenHelp
)

// Options wires the app to its data sources
type Options struct {
	Context    context.Context
	Snapshot   *service.Snapshot
	Pipeline   Refresher // nil disables the refresh screen
	RunOptions service.RunOptions
	Runs       *store.RunLog
	Display    config.DisplayConfig
}

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	dashboard  DashboardModel
	activities ActivitiesModel
	breakdown  BreakdownModel
	refresh    RefreshModel
	help       HelpModel

	keys    keyMap
	helpBar help.Model

	snapshot *service.Snapshot
	units    Units
	view     service.DashboardView

	// Window dimensions
	width  int
	height int

	// Status message
	status string
}

// NewApp creates a new App with all dependencies
func NewApp(opts Options) *App {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	units := NewUnits(opts.Display)

	a := &App{
		screen:     ScreenDashboard,
		dashboard:  NewDashboardModel(units),
		activities: NewActivitiesModel(units),
		breakdown:  NewBreakdownModel(units),
		refresh:    NewRefreshModel(ctx, opts.Pipeline, opts.RunOptions, opts.Runs),
		help:       NewHelpModel(),
		keys:       defaultKeyMap(),
		helpBar:    help.New(),
		snapshot:   opts.Snapshot,
		units:      units,
	}
	if w := opts.Snapshot.State().Warning; w != nil {
		a.status = w.Error()
	}
	a.recompute(analysis.Selection{}, analysis.Selection{})
	return a
}

// Selection returns the active filter selection
func (a *App) Selection() analysis.Selection {
	return a.view.Selection
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.dashboard.Init()
}

// recompute resolves prev -> next against the current table and pushes the
// resulting view to every screen
func (a *App) recompute(prev, next analysis.Selection) {
	a.view = service.BuildDashboard(a.snapshot.Current(), prev, next, a.units.Locale())
	a.dashboard = a.dashboard.SetView(a.view)
	a.activities = a.activities.SetView(a.view)
	a.breakdown = a.breakdown.SetView(a.view)
}

// tableChanged keeps as much of the selection as the new table supports
func (a *App) tableChanged() {
	sel := a.view.Selection
	if sel.Year != analysis.All && !slices.Contains(analysis.AvailableYears(a.snapshot.Current()), sel.Year) {
		sel = analysis.Selection{}
	}
	a.recompute(analysis.Selection{Year: sel.Year}, sel)
}

func (a *App) applyFilter(field byte, step int) {
	next := nextSelection(a.view.Selection, a.view.Options, field, step)
	a.recompute(a.view.Selection, next)
	a.status = ""
}

func (a *App) reload() {
	if err := a.snapshot.Reload(); err != nil {
		a.status = fmt.Sprintf("Reload failed: %v", err)
		return
	}
	a.tableChanged()
	a.status = fmt.Sprintf("Reloaded %d activities from %s", a.snapshot.Current().Len(), a.snapshot.Path())
}

// filterScreen reports whether filter keys apply on the current screen
func (a *App) filterScreen() bool {
	switch a.screen {
	case ScreenDashboard, ScreenActivities, ScreenBreakdown:
		return true
	}
	return false
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings (unless a refresh is running)
		if !a.refresh.Running() {
			switch {
			case key.Matches(msg, a.keys.Quit):
				return a, tea.Quit
			case key.Matches(msg, a.keys.Dashboard):
				a.screen = ScreenDashboard
				return a, nil
			case key.Matches(msg, a.keys.Activities):
				a.screen = ScreenActivities
				return a, nil
			case key.Matches(msg, a.keys.Breakdown):
				a.screen = ScreenBreakdown
				return a, nil
			case key.Matches(msg, a.keys.Refresh):
				if a.screen != ScreenRefresh {
					a.screen = ScreenRefresh
					return a, a.refresh.Init()
				}
				// Let 's' fall through to the refresh screen when already there
			case key.Matches(msg, a.keys.Help):
				if a.screen != ScreenHelp {
					a.prevScreen = a.screen
					a.screen = ScreenHelp
				}
				return a, nil
			case key.Matches(msg, a.keys.Back):
				if a.screen == ScreenHelp {
					a.screen = a.prevScreen
					return a, nil
				}
			}
		} else if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		if a.filterScreen() {
			switch {
			case key.Matches(msg, a.keys.NextYear):
				a.applyFilter('y', 1)
				return a, nil
			case key.Matches(msg, a.keys.PrevYear):
				a.applyFilter('y', -1)
				return a, nil
			case key.Matches(msg, a.keys.NextMonth):
				a.applyFilter('m', 1)
				return a, nil
			case key.Matches(msg, a.keys.PrevMonth):
				a.applyFilter('m', -1)
				return a, nil
			case key.Matches(msg, a.keys.NextDay):
				a.applyFilter('d', 1)
				return a, nil
			case key.Matches(msg, a.keys.PrevDay):
				a.applyFilter('d', -1)
				return a, nil
			case key.Matches(msg, a.keys.ResetAll):
				a.recompute(a.view.Selection, analysis.Selection{})
				a.status = ""
				return a, nil
			case key.Matches(msg, a.keys.Reload):
				a.reload()
				return a, nil
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.helpBar.Width = msg.Width
		// Every screen needs the width, not only the visible one
		m, _ := a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
		return a, nil

	case RefreshCompleteMsg:
		if msg.Result != nil && msg.Result.Written() {
			a.snapshot.Replace(msg.Result.Table)
			a.tableChanged()
			a.status = fmt.Sprintf("Loaded %d activities from Strava", msg.Result.Table.Len())
		}
		return a, nil
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenActivities:
		var m tea.Model
		m, cmd = a.activities.Update(msg)
		a.activities = m.(ActivitiesModel)
	case ScreenBreakdown:
		var m tea.Model
		m, cmd = a.breakdown.Update(msg)
		a.breakdown = m.(BreakdownModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	// The refresh screen keeps receiving pipeline messages while hidden
	if a.screen == ScreenRefresh || a.refresh.Running() || isRefreshMsg(msg) {
		m, rcmd := a.refresh.Update(msg)
		a.refresh = m.(RefreshModel)
		cmd = tea.Batch(cmd, rcmd)
	}

	return a, cmd
}

func isRefreshMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case refreshProgressMsg, refreshDoneMsg:
		return true
	}
	return false
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenActivities:
		content = a.activities.View()
	case ScreenBreakdown:
		content = a.breakdown.View()
	case ScreenRefresh:
		content = a.refresh.View()
	case ScreenHelp:
		content = a.help.View()
	}

	footer := a.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, footer)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("Strava Running Dashboard")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Activities", ScreenActivities},
		{"3", "Breakdown", ScreenBreakdown},
		{"4", "Refresh", ScreenRefresh},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	var lines []string
	if a.status != "" {
		lines = append(lines, statusStyle.Render(a.status))
	}
	if a.filterScreen() {
		lines = append(lines, a.helpBar.View(a.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
