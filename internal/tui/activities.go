package tui

import (
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/service"
)

// ActivitiesModel lists the activities of the current filter, newest first
type ActivitiesModel struct {
	view     service.DashboardView
	rows     []activity.Activity
	units    Units
	cursor   int
	offset   int
	pageSize int
}

// NewActivitiesModel creates a new activities model
func NewActivitiesModel(units Units) ActivitiesModel {
	return ActivitiesModel{
		units:    units,
		pageSize: service.ActivitiesPageSize,
	}
}

// SetView installs the rows of a new dashboard view and resets scrolling
func (m ActivitiesModel) SetView(view service.DashboardView) ActivitiesModel {
	m.view = view
	m.rows = view.Filtered.SortedByDate().Rows()
	slices.Reverse(m.rows)
	m.cursor = 0
	m.offset = 0
	return m
}

// Init initializes the activities screen
func (m ActivitiesModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m ActivitiesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	total := len(m.rows)
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
			m.offset -= m.pageSize
			if m.offset < 0 {
				m.offset = 0
			}
			m.cursor = 0
		}
	case "pgdown":
		if m.offset+m.pageSize < total {
			m.offset += m.pageSize
			m.cursor = 0
		}
	case "home", "g":
		m.offset = 0
		m.cursor = 0
	}
	return m, nil
}

func (m ActivitiesModel) visibleCount() int {
	remaining := len(m.rows) - m.offset
	if remaining > m.pageSize {
		return m.pageSize
	}
	return remaining
}

// View renders the activities list
func (m ActivitiesModel) View() string {
	var sections []string
	sections = append(sections, renderFilterBar(m.view, m.units))

	if len(m.rows) == 0 {
		sections = append(sections, "\n  No activities for this selection.")
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	startNum := m.offset + 1
	endNum := m.offset + m.visibleCount()
	title := cardTitleStyle.Render(fmt.Sprintf("Activities (%d-%d of %d)", startNum, endNum, len(m.rows)))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("  %-10s  %-28s  %-8s  %8s  %8s  %7s  %6s  %5s",
		"Date", "Name", "Type", "Distance", "Time", "Pace", "Elev", "Kudos"))
	sections = append(sections, header)

	for i := m.offset; i < endNum; i++ {
		a := m.rows[i]

		cursor := "  "
		if i-m.offset == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-10s  %-28s  %-8s  %8s  %8s  %7s  %5.0fm  %5d",
			cursor,
			m.units.FormatDate(a),
			truncateName(a.Name, 28),
			truncateName(a.Type, 8),
			m.units.FormatDistance(a.DistanceKm),
			m.units.FormatDuration(a.DurationMin),
			m.units.FormatPace(a.Pace),
			a.ElevationM,
			a.Kudos,
		)

		if i-m.offset == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	help := statusStyle.Render("  j/k: navigate  pgup/pgdn: page  g: top")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
