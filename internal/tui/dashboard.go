package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"strava-dashboard/internal/chart"
	"strava-dashboard/internal/service"
)

const (
	chartHeight   = 8
	wideLayoutMin = 120
)

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	view       service.DashboardView
	units      Units
	chartIndex int
	width      int
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(units Units) DashboardModel {
	return DashboardModel{units: units}
}

// SetView installs a freshly computed dashboard view
func (m DashboardModel) SetView(view service.DashboardView) DashboardModel {
	m.view = view
	if n := len(m.charts()); n > 0 {
		m.chartIndex %= n
	} else {
		m.chartIndex = 0
	}
	return m
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		n := len(m.charts())
		if n == 0 {
			return m, nil
		}
		switch msg.String() {
		case "tab":
			m.chartIndex = (m.chartIndex + m.chartsPerPage()) % n
		case "shift+tab":
			m.chartIndex = ((m.chartIndex-m.chartsPerPage())%n + n) % n
		}
	}
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	var sections []string

	sections = append(sections, renderFilterBar(m.view, m.units))
	sections = append(sections, m.renderKPIs())

	if m.view.Summary.Empty {
		sections = append(sections, cardStyle.Render(warningStyle.Render(chart.NoData+" for this selection. Press 'a' to clear filters.")))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections, m.renderCharts())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderKPIs() string {
	k := m.view.KPIs
	pace := k.MeanPace
	if !m.view.Summary.Empty && m.view.Summary.MeanPace != nil {
		pace += " /km"
	}
	cards := []string{
		RenderKPI("Total runs", k.TotalRuns, 16),
		RenderKPI("Total distance", k.TotalKm, 18),
		RenderKPI("Mean pace", pace, 16),
		RenderKPI("Total time", k.TotalTime, 16),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// charts returns the non-indicator specs in display order
func (m DashboardModel) charts() []chart.Spec {
	var out []chart.Spec
	for _, s := range m.view.Charts {
		if s.Kind != chart.KindIndicator {
			out = append(out, s)
		}
	}
	return out
}

func (m DashboardModel) chartsPerPage() int {
	if m.width >= wideLayoutMin {
		return 2
	}
	return 1
}

func (m DashboardModel) renderCharts() string {
	specs := m.charts()
	if len(specs) == 0 {
		return ""
	}

	perPage := m.chartsPerPage()
	width := 60
	if perPage == 2 {
		width = m.width/2 - 14
	}

	var cards []string
	for i := 0; i < perPage && i < len(specs); i++ {
		spec := specs[(m.chartIndex+i)%len(specs)]
		title := cardTitleStyle.Render(spec.Title)
		body := chart.RenderASCII(spec, width, chartHeight)
		cards = append(cards, cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, body)))
	}

	pager := statusStyle.Render(fmt.Sprintf("  chart %d/%d  (tab / shift+tab)", m.chartIndex+1, len(specs)))
	return lipgloss.JoinVertical(lipgloss.Left, lipgloss.JoinHorizontal(lipgloss.Top, cards...), pager)
}

// renderFilterBar shows the current year/month/day selectors
func renderFilterBar(view service.DashboardView, u Units) string {
	sel := view.Selection
	parts := []string{
		filterLabelStyle.Render("Year "),
		filterValueStyle.Render(u.YearLabel(sel.Year)),
		filterLabelStyle.Render("   Month "),
		filterValueStyle.Render(u.MonthLabel(sel.Month)),
		filterLabelStyle.Render("   Day "),
		filterValueStyle.Render(u.DayLabel(sel.Day)),
		filterLabelStyle.Render(fmt.Sprintf("   %d activities", view.Rows)),
	}
	return lipgloss.NewStyle().MarginBottom(1).Render(lipgloss.JoinHorizontal(lipgloss.Left, parts...))
}

func truncateName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
