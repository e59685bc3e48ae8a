// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Interactive week view over the aggregator with a sync status screen
package tui

import (
	"context"
	"database/sql"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/weekcal/agenda"
	"github.com/harperreed/weekcal/auth"
	"github.com/harperreed/weekcal/config"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewWeek ViewMode = iota
	ViewStatus
)

// Source is the aggregator surface the week view drives.
type Source interface {
	RefreshCycle(ctx context.Context) agenda.Cycle
	LastEvents() []agenda.CalendarEvent
}

// Model is the main bubbletea model
type Model struct {
	ctx      context.Context
	source   Source
	settings config.Provider
	db       *sql.DB
	now      func() time.Time
	open     auth.BrowserOpener
	autoTick bool

	viewMode ViewMode
	keys     keyMap
	help     help.Model
	spinner  spinner.Model

	// Week view state
	events       []agenda.CalendarEvent
	days         []agenda.DayColumn
	showWeekends bool
	selected     int
	refreshing   bool
	lastResult   *agenda.Result
	lastRefresh  time.Time
	banner       string
	flash        string

	// Status view state
	syncStates    []SyncStateDisplay
	notifications []string

	// UI state
	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithDatabase enables the sync status screen.
func WithDatabase(db *sql.DB) Option {
	return func(m *Model) { m.db = db }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithBrowserOpener replaces the platform browser launcher.
func WithBrowserOpener(open auth.BrowserOpener) Option {
	return func(m *Model) { m.open = open }
}

// WithoutAutoRefresh disables the interval tick. Useful in tests.
func WithoutAutoRefresh() Option {
	return func(m *Model) { m.autoTick = false }
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, source Source, settings config.Provider, opts ...Option) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	m := Model{
		ctx:          ctx,
		source:       source,
		settings:     settings,
		now:          time.Now,
		open:         auth.OpenBrowser,
		autoTick:     true,
		viewMode:     ViewWeek,
		keys:         defaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		showWeekends: settings.Settings().ShowWeekends,
		refreshing:   true,
		width:        80,
		height:       24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.events = source.LastEvents()
	m.relayout()
	return m
}

// refreshDoneMsg carries the outcome of one aggregator cycle.
type refreshDoneMsg struct {
	cycle  agenda.Cycle
	events []agenda.CalendarEvent
}

// tickMsg fires on the refresh interval.
type tickMsg time.Time

// openedMsg reports the result of opening an event link.
type openedMsg struct {
	err error
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.refresh()}
	if m.autoTick {
		cmds = append(cmds, m.tick())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case refreshDoneMsg:
		return m.handleRefreshDone(msg), nil
	case tickMsg:
		if m.refreshing {
			return m, m.tick()
		}
		m.refreshing = true
		return m, tea.Batch(m.refresh(), m.tick())
	case openedMsg:
		if msg.err != nil {
			m.flash = msg.err.Error()
		} else {
			m.flash = ""
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewStatus:
		return m.renderStatusView()
	default:
		return m.renderWeekView()
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewStatus:
		return m.handleStatusKeys(msg)
	default:
		return m.handleWeekKeys(msg)
	}
}

// refresh runs one aggregator cycle off the update loop.
func (m Model) refresh() tea.Cmd {
	source, ctx := m.source, m.ctx
	return func() tea.Msg {
		cycle := source.RefreshCycle(ctx)
		return refreshDoneMsg{cycle: cycle, events: source.LastEvents()}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(agenda.Interval(m.settings.Settings()), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("11")).
			Padding(0, 1)
)
