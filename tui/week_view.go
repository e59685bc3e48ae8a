// ABOUTME: TUI week view listing this week's events day by day
// ABOUTME: Handles selection, link opening, weekend toggling, and manual refresh
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/weekcal/agenda"
	"github.com/harperreed/weekcal/auth"
	"github.com/harperreed/weekcal/colors"
	"github.com/harperreed/weekcal/week"
)

var (
	dayHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	todayHeaderStyle = dayHeaderStyle.
				Underline(true)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(8)

	declinedStyle = lipgloss.NewStyle().
			Strikethrough(true).
			Faint(true)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

func (m Model) renderWeekView() string {
	var s strings.Builder

	title := "This week"
	if len(m.days) > 0 {
		first, last := m.days[0], m.days[len(m.days)-1]
		title = fmt.Sprintf("This week · %s – %s", first.Date.Format("Jan 2"), last.Date.Format("Jan 2"))
	}
	s.WriteString(titleStyle.Render(title))
	if m.refreshing {
		s.WriteString("  " + m.spinner.View() + " refreshing")
	} else if !m.lastRefresh.IsZero() {
		s.WriteString(emptyStyle.Render("  updated " + m.lastRefresh.Format("15:04")))
	}
	s.WriteString("\n")

	if m.banner != "" {
		s.WriteString(bannerStyle.Render(m.banner))
		s.WriteString("\n")
	}
	if m.lastResult != nil && !m.lastResult.Success {
		s.WriteString(errorStyle.Render("✗ " + m.lastResult.Error))
		s.WriteString("\n")
	}
	if m.flash != "" {
		s.WriteString(errorStyle.Render(m.flash))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	today := m.now().Format("2006-01-02")
	index := 0
	for _, day := range m.days {
		header := fmt.Sprintf("%s %s", day.Label, day.Date.Format("Jan 2"))
		if day.Key == today {
			s.WriteString(todayHeaderStyle.Render(header))
		} else {
			s.WriteString(dayHeaderStyle.Render(header))
		}
		s.WriteString("\n")

		if len(day.Events) == 0 {
			s.WriteString(emptyStyle.Render("    No events"))
			s.WriteString("\n")
		}
		for _, ev := range day.Events {
			s.WriteString(m.renderEventRow(ev, index == m.selected))
			s.WriteString("\n")
			index++
		}
	}

	s.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return s.String()
}

func (m Model) renderEventRow(ev agenda.EventBlock, selected bool) string {
	var row strings.Builder
	if selected {
		row.WriteString("▶ ")
	} else {
		row.WriteString("  ")
	}

	chip := lipgloss.NewStyle().
		Background(lipgloss.Color(ev.Color)).
		Foreground(lipgloss.Color(colors.ContrastTextColor(ev.Color))).
		Render(" ")
	row.WriteString(chip + " ")

	when := "all day"
	if !ev.AllDay() {
		when = week.FormatTime(ev.Start.DateTime, m.now().Location())
	}
	row.WriteString(timeStyle.Render(when))

	summary := ev.Summary
	if summary == "" {
		summary = "(no title)"
	}
	switch {
	case selected:
		summary = selectedStyle.Render(summary)
	case ev.Declined():
		summary = declinedStyle.Render(summary)
	}
	row.WriteString(summary)

	if ev.CalendarSummary != "" {
		row.WriteString(emptyStyle.Render("  " + ev.CalendarSummary))
	}
	return row.String()
}

func (m Model) handleWeekKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.visibleEvents())-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Open):
		events := m.visibleEvents()
		if m.selected < len(events) {
			return m, m.openLink(events[m.selected].HTMLLink)
		}
	case key.Matches(msg, m.keys.Refresh):
		if !m.refreshing {
			m.refreshing = true
			m.flash = ""
			return m, tea.Batch(m.spinner.Tick, m.refresh())
		}
	case key.Matches(msg, m.keys.Weekends):
		m.showWeekends = !m.showWeekends
		m.relayout()
	case key.Matches(msg, m.keys.Status):
		m.viewMode = ViewStatus
		m.loadSyncStates()
	}
	return m, nil
}

func (m Model) openLink(link string) tea.Cmd {
	open := m.open
	return func() tea.Msg {
		return openedMsg{err: auth.OpenExternalURL(link, open)}
	}
}

func (m Model) handleRefreshDone(msg refreshDoneMsg) Model {
	m.refreshing = false
	result := msg.cycle.Result
	m.lastResult = &result
	m.lastRefresh = m.now()
	m.events = msg.events

	switch n := len(msg.cycle.Notified); {
	case n == 1:
		m.banner = "1 new or changed event"
	case n > 1:
		m.banner = fmt.Sprintf("%d new or changed events", n)
	default:
		m.banner = ""
	}

	m.relayout()
	return m
}

// relayout rebuilds the day columns from the current events and weekend toggle.
func (m *Model) relayout() {
	settings := m.settings.Settings()
	settings.ShowWeekends = m.showWeekends
	m.days = agenda.LayoutWeek(m.events, m.now(), settings)

	if n := len(m.visibleEvents()); m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) visibleEvents() []agenda.EventBlock {
	var out []agenda.EventBlock
	for _, day := range m.days {
		out = append(out, day.Events...)
	}
	return out
}
