// ABOUTME: TUI view for per-account and per-calendar sync state
// ABOUTME: Reads the sync_state table and the notification log
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/weekcal/db"
)

var (
	syncHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	syncServiceStyle = lipgloss.NewStyle().
				Bold(true).
				Width(40)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	syncErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	syncMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

// SyncStateDisplay is one sync_state row prepared for rendering.
type SyncStateDisplay struct {
	Service      string
	Status       string
	LastSyncTime string
	ErrorMessage string
}

func (m Model) renderStatusView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Sync Status"))
	s.WriteString("\n\n")

	if m.db == nil || len(m.syncStates) == 0 {
		s.WriteString(syncMessageStyle.Render("No sync data found. Run a refresh first."))
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("r: Reload • Esc: Back • q: Quit"))
		return s.String()
	}

	s.WriteString(syncHeaderStyle.Render("Service Status"))
	s.WriteString("\n\n")

	for _, state := range m.syncStates {
		var row strings.Builder
		row.WriteString("  ")
		row.WriteString(syncServiceStyle.Render(state.Service))

		switch state.Status {
		case db.StatusSyncing:
			row.WriteString(syncSyncingStyle.Render("  ⟳ Syncing..."))
		case db.StatusError:
			row.WriteString(syncErrorStyle.Render("  ✗ Error"))
			if state.ErrorMessage != "" {
				row.WriteString(syncErrorStyle.Render(": " + state.ErrorMessage))
			}
		default:
			row.WriteString(syncIdleStyle.Render("  ✓ Idle"))
			if state.LastSyncTime != "" {
				row.WriteString(syncMessageStyle.Render(" • Last synced " + state.LastSyncTime))
			}
		}

		s.WriteString(row.String())
		s.WriteString("\n")
	}
	s.WriteString("\n")

	if len(m.notifications) > 0 {
		s.WriteString(syncHeaderStyle.Render("Recent Notifications"))
		s.WriteString("\n\n")
		for _, line := range m.notifications {
			s.WriteString(syncMessageStyle.Render("  " + line))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("r: Reload • Esc: Back • q: Quit"))
	return s.String()
}

func (m *Model) loadSyncStates() {
	m.syncStates = []SyncStateDisplay{}
	m.notifications = nil
	if m.db == nil {
		return
	}

	states, err := db.GetAllSyncStates(m.db)
	if err != nil {
		return
	}
	now := m.now()
	for _, state := range states {
		display := SyncStateDisplay{
			Service: state.Service,
			Status:  state.Status,
		}
		if state.LastSyncTime != nil {
			display.LastSyncTime = formatTimeSince(now.Sub(*state.LastSyncTime))
		}
		if state.ErrorMessage != nil {
			display.ErrorMessage = *state.ErrorMessage
		}
		m.syncStates = append(m.syncStates, display)
	}

	notes, err := db.RecentNotifications(m.db, 5)
	if err != nil {
		return
	}
	for _, n := range notes {
		m.notifications = append(m.notifications, fmt.Sprintf("[%s] %s", n.NotifiedAt.In(now.Location()).Format("15:04:05"), n.EventID))
	}
}

func (m Model) handleStatusKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		m.loadSyncStates()
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Status):
		m.viewMode = ViewWeek
	}
	return m, nil
}

// formatTimeSince formats a time duration in a human-readable way.
func formatTimeSince(duration time.Duration) string {
	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
