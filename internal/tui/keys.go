package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the global and filter bindings
type keyMap struct {
	Dashboard  key.Binding
	Activities key.Binding
	Breakdown  key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Back       key.Binding
	Quit       key.Binding

	NextYear  key.Binding
	PrevYear  key.Binding
	NextMonth key.Binding
	PrevMonth key.Binding
	NextDay   key.Binding
	PrevDay   key.Binding
	ResetAll  key.Binding
	Reload    key.Binding
	NextChart key.Binding
	PrevChart key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Dashboard:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "dashboard")),
		Activities: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "activities")),
		Breakdown:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "breakdown")),
		Refresh:    key.NewBinding(key.WithKeys("4", "s"), key.WithHelp("4/s", "refresh from Strava")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		NextYear:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y/Y", "year")),
		PrevYear:  key.NewBinding(key.WithKeys("Y")),
		NextMonth: key.NewBinding(key.WithKeys("m"), key.WithHelp("m/M", "month")),
		PrevMonth: key.NewBinding(key.WithKeys("M")),
		NextDay:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d/D", "day")),
		PrevDay:   key.NewBinding(key.WithKeys("D")),
		ResetAll:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all")),
		Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload file")),
		NextChart: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "charts")),
		PrevChart: key.NewBinding(key.WithKeys("shift+tab")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextYear, k.NextMonth, k.NextDay, k.ResetAll, k.Reload, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Dashboard, k.Activities, k.Breakdown, k.Refresh, k.Help, k.Back, k.Quit},
		{k.NextYear, k.NextMonth, k.NextDay, k.ResetAll, k.Reload, k.NextChart},
	}
}
