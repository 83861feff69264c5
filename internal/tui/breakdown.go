package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"strava-dashboard/internal/analysis"
	"strava-dashboard/internal/service"
)

const breakdownPageSize = 12

// BreakdownModel shows per-month stats and per-category aggregates
type BreakdownModel struct {
	view     service.DashboardView
	months   []analysis.MonthlyStat
	units    Units
	cursor   int
	offset   int
	pageSize int
}

// NewBreakdownModel creates a new breakdown model
func NewBreakdownModel(units Units) BreakdownModel {
	return BreakdownModel{
		units:    units,
		pageSize: breakdownPageSize,
	}
}

// SetView installs a new dashboard view, most recent month first
func (m BreakdownModel) SetView(view service.DashboardView) BreakdownModel {
	m.view = view
	m.months = slices.Clone(view.Summary.MonthlyStats)
	slices.Reverse(m.months)
	m.cursor = 0
	m.offset = 0
	return m
}

// Init initializes the breakdown screen
func (m BreakdownModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m BreakdownModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	total := len(m.months)
	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else if m.offset > 0 {
			m.offset -= m.pageSize
			m.cursor = m.pageSize - 1
		}
	case "down", "j":
		if m.cursor < m.visibleCount()-1 {
			m.cursor++
		} else if m.offset+m.visibleCount() < total {
			m.offset += m.pageSize
			m.cursor = 0
		}
	case "pgup":
		if m.offset > 0 {
			m.offset = max(m.offset-m.pageSize, 0)
			m.cursor = 0
		}
	case "pgdown":
		if m.offset+m.pageSize < total {
			m.offset += m.pageSize
			m.cursor = 0
		}
	}
	return m, nil
}

func (m BreakdownModel) visibleCount() int {
	return min(len(m.months)-m.offset, m.pageSize)
}

// View renders the breakdown screen
func (m BreakdownModel) View() string {
	var sections []string
	sections = append(sections, renderFilterBar(m.view, m.units))

	if m.view.Summary.Empty {
		sections = append(sections, "\n  No data available. Refresh from Strava or clear the filters.")
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	left := m.renderMonths()
	right := lipgloss.JoinVertical(lipgloss.Left, m.renderCategories(), m.renderTypes())
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "   ", right))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BreakdownModel) renderMonths() string {
	var lines []string

	endNum := m.offset + m.visibleCount()
	lines = append(lines, cardTitleStyle.Render(fmt.Sprintf("Monthly (%d-%d of %d)", m.offset+1, endNum, len(m.months))))
	lines = append(lines, tableHeaderStyle.Render(fmt.Sprintf("  %-9s  %5s  %10s  %8s  %6s",
		"Month", "Runs", "Distance", "Time", "Pace")))

	for i := m.offset; i < endNum; i++ {
		s := m.months[i]
		row := fmt.Sprintf("  %-9s  %5d  %10s  %8s  %6s",
			m.units.PeriodLabel(s.Period),
			s.Runs,
			m.units.FormatDistance(s.DistanceKm),
			m.units.FormatDuration(s.DurationMin),
			m.units.FormatPace(s.MeanPace),
		)
		if i-m.offset == m.cursor {
			lines = append(lines, tableSelectedStyle.Render(row))
		} else {
			lines = append(lines, tableRowStyle.Render(row))
		}
	}

	lines = append(lines, statusStyle.Render("  j/k: navigate  pgup/pgdn: page"))
	return strings.Join(lines, "\n")
}

func (m BreakdownModel) renderCategories() string {
	var lines []string
	lines = append(lines, cardTitleStyle.Render("Mean pace by distance"))
	if len(m.view.Summary.CategoryPaceMeans) == 0 {
		lines = append(lines, statusStyle.Render("  No pace data"))
	}
	for _, c := range m.view.Summary.CategoryPaceMeans {
		lines = append(lines, RenderMetric(fmt.Sprintf("%-24s", c.Label), analysis.FormatPaceValue(c.Value)+" /km"))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func (m BreakdownModel) renderTypes() string {
	var lines []string
	lines = append(lines, cardTitleStyle.Render("Activity types"))
	for _, t := range m.view.Summary.TypeDistribution {
		lines = append(lines, RenderMetric(fmt.Sprintf("%-24s", t.Label), fmt.Sprintf("%d", t.Count)))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}
