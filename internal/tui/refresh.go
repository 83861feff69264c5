package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"strava-dashboard/internal/auth"
	"strava-dashboard/internal/service"
	"strava-dashboard/internal/store"
	"strava-dashboard/internal/strava"
)

// Refresher runs the ETL pipeline
type Refresher interface {
	Run(ctx context.Context, opts service.RunOptions) (*service.RunResult, error)
}

// refreshProgressMsg carries one pipeline progress event
type refreshProgressMsg service.Progress

// refreshDoneMsg is sent when the pipeline returns
type refreshDoneMsg struct {
	Result *service.RunResult
	Err    error
}

// RefreshCompleteMsg tells the app a run finished and may have replaced the table
type RefreshCompleteMsg struct {
	Result *service.RunResult
}

// RefreshModel is the refresh screen model
type RefreshModel struct {
	ctx      context.Context
	pipeline Refresher
	opts     service.RunOptions
	runs     *store.RunLog

	spinner    spinner.Model
	running    bool
	progressCh chan service.Progress
	progress   service.Progress
	result     *service.RunResult
	err        error
	lastRun    *store.Run
}

// NewRefreshModel creates a new refresh model. A nil pipeline disables refreshing.
func NewRefreshModel(ctx context.Context, pipeline Refresher, opts service.RunOptions, runs *store.RunLog) RefreshModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	m := RefreshModel{
		ctx:      ctx,
		pipeline: pipeline,
		opts:     opts,
		runs:     runs,
		spinner:  s,
	}
	m.lastRun = m.loadLastRun()
	return m
}

// Running reports whether a refresh is in flight
func (m RefreshModel) Running() bool {
	return m.running
}

// Init initializes the refresh screen
func (m RefreshModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m RefreshModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshProgressMsg:
		m.progress = service.Progress(msg)
		return m, waitForProgress(m.progressCh)

	case refreshDoneMsg:
		m.running = false
		m.result = msg.Result
		m.err = msg.Err
		m.lastRun = m.loadLastRun()
		return m, func() tea.Msg { return RefreshCompleteMsg{Result: msg.Result} }

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.running || m.pipeline == nil {
			return m, nil
		}
		switch msg.String() {
		case "enter", "s":
			return m.start()
		}
	}
	return m, nil
}

func (m RefreshModel) start() (RefreshModel, tea.Cmd) {
	ch := make(chan service.Progress, 8)
	opts := m.opts
	opts.Progress = ch

	m.running = true
	m.err = nil
	m.result = nil
	m.progress = service.Progress{}
	m.progressCh = ch

	pipeline := m.pipeline
	ctx := m.ctx
	run := func() tea.Msg {
		result, err := pipeline.Run(ctx, opts)
		return refreshDoneMsg{Result: result, Err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run, waitForProgress(ch))
}

// waitForProgress blocks until the next progress event. The pipeline closes
// the channel when it returns, which ends the listener.
func waitForProgress(ch <-chan service.Progress) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		p, open := <-ch
		if !open {
			return nil
		}
		return refreshProgressMsg(p)
	}
}

func (m RefreshModel) loadLastRun() *store.Run {
	if m.runs == nil {
		return nil
	}
	run, err := m.runs.LatestRun()
	if err != nil {
		if !errors.Is(err, store.ErrNoRuns) {
			log.Warn().Err(err).Msg("Failed to read last ETL run")
		}
		return nil
	}
	return &run
}

// View renders the refresh screen
func (m RefreshModel) View() string {
	var sections []string

	sections = append(sections, cardTitleStyle.Render("Refresh from Strava"))

	if m.pipeline == nil {
		sections = append(sections, warningStyle.Render("\n  Strava credentials are not configured."))
		sections = append(sections, statusStyle.Render("  Run 'strava-dashboard login' or set STRAVA_CLIENT_ID, STRAVA_CLIENT_SECRET and STRAVA_REFRESH_TOKEN."))
		sections = append(sections, m.renderLastRun())
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	switch {
	case m.running:
		sections = append(sections, m.renderProgress())
	case m.err != nil:
		sections = append(sections, errorStyle.Render(fmt.Sprintf("\n  %s", describeRefreshError(m.err))))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press 's' or Enter to retry"))
	case m.result != nil:
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press '1' to go to dashboard"))
	default:
		sections = append(sections, m.renderStartPrompt())
	}

	sections = append(sections, m.renderLastRun())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m RefreshModel) renderStartPrompt() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, "  This will rebuild the activity table:")
	lines = append(lines, "")
	lines = append(lines, "  1. Renew the Strava access token")
	lines = append(lines, fmt.Sprintf("  2. Fetch up to %d pages of %d activities", m.opts.MaxPages, m.opts.PerPage))
	lines = append(lines, "  3. Clean and enrich the records")
	lines = append(lines, "  4. Save "+m.opts.OutputPath)
	lines = append(lines, "")
	lines = append(lines, statusStyle.Render("  Press 's' or Enter to start"))

	return strings.Join(lines, "\n")
}

func (m RefreshModel) renderProgress() string {
	steps := []struct {
		phase string
		label string
	}{
		{service.PhaseAuth, "Renewing access token"},
		{service.PhaseFetch, "Fetching activities"},
		{service.PhaseTransform, "Transforming records"},
		{service.PhaseSave, "Saving table"},
	}

	current := -1
	for i, s := range steps {
		if s.phase == m.progress.Phase {
			current = i
		}
	}

	var lines []string
	lines = append(lines, "")
	for i, s := range steps {
		label := s.label
		if s.phase == service.PhaseFetch && m.progress.Page > 0 {
			label = fmt.Sprintf("%s (page %d, %d records)", label, m.progress.Page, m.progress.Fetched)
		}
		switch {
		case i < current:
			lines = append(lines, successStyle.Render("  ✓ "+label))
		case i == current:
			lines = append(lines, "  "+m.spinner.View()+" "+label)
		default:
			lines = append(lines, statusStyle.Render("    "+label))
		}
	}
	lines = append(lines, "")
	if m.progress.Phase == service.PhaseFetch && m.opts.MaxPages > 0 {
		pct := float64(m.progress.Page) / float64(m.opts.MaxPages)
		lines = append(lines, "  "+RenderProgressBar(pct, 40)+statusStyle.Render(fmt.Sprintf(" %d/%d pages max", m.progress.Page, m.opts.MaxPages)))
		lines = append(lines, "")
	}
	lines = append(lines, statusStyle.Render("  This may take a moment..."))

	return strings.Join(lines, "\n")
}

func (m RefreshModel) renderSummary() string {
	r := m.result
	if r == nil {
		return ""
	}

	var lines []string
	lines = append(lines, "")

	switch r.Status {
	case store.RunSuccess:
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d activities saved", r.Rows)))
	case store.RunPartial:
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d activities saved, a page failed after %d pages", r.Rows, r.Pages)))
	case store.RunEmpty:
		lines = append(lines, statusStyle.Render("  No activities found, existing table kept"))
	case store.RunFailed:
		lines = append(lines, statusStyle.Render("  Nothing was written"))
	}

	if r.Fetched > 0 {
		lines = append(lines, RenderMetric("  Fetched", fmt.Sprintf("%d records in %d pages", r.Fetched, r.Pages)))
	}
	if d := r.Stats.Dropped(); d > 0 {
		lines = append(lines, RenderMetric("  Dropped", fmt.Sprintf("%d (missing id %d, bad date %d, duplicates %d)",
			d, r.Stats.MissingID, r.Stats.BadDate, r.Stats.Duplicates)))
	}

	return strings.Join(lines, "\n")
}

func (m RefreshModel) renderLastRun() string {
	if m.lastRun == nil {
		return ""
	}
	r := m.lastRun
	return "\n" + statusStyle.Render(fmt.Sprintf("  Last run %s: %s, %d rows (%s)",
		humanize.Time(r.FinishedAt), r.Status, r.Rows, r.Duration().Round(100*time.Millisecond)))
}

func describeRefreshError(err error) string {
	switch {
	case errors.Is(err, auth.ErrAuthFailure):
		return "Authentication failed: " + err.Error()
	case errors.Is(err, strava.ErrFetchFailure):
		return "Fetch failed: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
