// ABOUTME: Multi-account week aggregator over Google Calendar
// ABOUTME: Fans out per account and calendar, tags colors and responses, and detects new or changed events
package agenda

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/harperreed/weekcal/config"
	"github.com/harperreed/weekcal/metrics"
	"github.com/harperreed/weekcal/week"
)

// ErrNotAuthenticated is reported when no account yields a usable token.
const ErrNotAuthenticated = "Not authenticated. Sign in again."

// Aggregator owns the last successful snapshot and the change-detection state.
type Aggregator struct {
	tokens   TokenProvider
	fetcher  Fetcher
	settings config.Provider
	obs      Observers

	now      func() time.Time
	loc      *time.Location
	logger   *slog.Logger
	recorder Recorder

	mu             sync.Mutex
	lastEvents     []CalendarEvent
	lastCalendars  []CalendarListEntry
	lastIDs        map[string]struct{}
	lastSignatures map[string]string

	schedMu sync.Mutex
	cron    *cron.Cron
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the zone the week window is computed in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithRecorder persists every cycle report.
func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) { a.recorder = r }
}

// New creates an Aggregator.
func New(tokens TokenProvider, fetcher Fetcher, settings config.Provider, obs Observers, opts ...Option) *Aggregator {
	a := &Aggregator{
		tokens:         tokens,
		fetcher:        fetcher,
		settings:       settings,
		obs:            obs,
		now:            time.Now,
		loc:            time.Local,
		logger:         slog.Default(),
		lastEvents:     []CalendarEvent{},
		lastCalendars:  []CalendarListEntry{},
		lastIDs:        map[string]struct{}{},
		lastSignatures: map[string]string{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh runs one cycle and returns its result.
func (a *Aggregator) Refresh(ctx context.Context) Result {
	return a.RefreshCycle(ctx).Result
}

// RefreshCycle runs one cycle and returns the full report.
func (a *Aggregator) RefreshCycle(ctx context.Context) (cycle Cycle) {
	wallStart := time.Now()
	cycle = Cycle{ID: uuid.NewString(), StartedAt: a.now()}
	logger := a.logger.With(slog.String("cycle_id", cycle.ID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("refresh panicked", slog.Any("panic", r))
			a.emitEvents(a.LastEvents())
			cycle.Result = Result{Error: fmt.Sprint(r)}
		}
		cycle.FinishedAt = a.now()
		metrics.ObserveRefresh(resultLabel(cycle.Result), wallStart)
		if a.recorder != nil {
			if err := a.recorder.RecordCycle(cycle); err != nil {
				logger.Warn("failed to record cycle", slog.Any("err", err))
			}
		}
	}()

	tokens := a.tokens.ValidAccessTokens(ctx)
	if len(tokens) == 0 {
		a.emitEvents(a.LastEvents())
		a.emitCalendars([]CalendarListEntry{})
		cycle.Result = Result{Error: ErrNotAuthenticated}
		return cycle
	}

	fail := func(err error) Cycle {
		logger.Warn("refresh failed", slog.Any("err", err))
		a.emitEvents(a.LastEvents())
		cycle.Result = Result{Error: err.Error()}
		return cycle
	}

	tokenByEmail := make(map[string]string, len(tokens))
	var calendars []CalendarListEntry
	for _, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		tokenByEmail[tok.Email] = tok.AccessToken

		entries, err := a.fetcher.ListCalendars(ctx, tok.AccessToken)
		cycle.Items = append(cycle.Items, ItemResult{Kind: KindAccount, Key: tok.Email, Err: err})
		if err != nil {
			metrics.FetchFailures.WithLabelValues(string(KindAccount)).Inc()
			logger.Warn("skipping account", slog.String("account", tok.Email), slog.Any("err", err))
			continue
		}
		for _, entry := range entries {
			if entry == nil || entry.Id == "" {
				continue
			}
			calendars = append(calendars, mapCalendar(entry, tok.Email))
		}
	}
	if calendars == nil {
		calendars = []CalendarListEntry{}
	}
	a.emitCalendars(calendars)

	now := a.now().In(a.loc)
	timeMin, timeMax := week.StartISO(now), week.EndISO(now)

	events := []CalendarEvent{}
	for _, cal := range selectCalendars(calendars, a.settings.Settings().SelectedCalendarIDs) {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		accessToken, ok := tokenByEmail[cal.AccountEmail]
		if !ok || accessToken == "" {
			continue
		}

		items, err := a.fetcher.ListEvents(ctx, accessToken, cal.ID, timeMin, timeMax)
		cycle.Items = append(cycle.Items, ItemResult{Kind: KindCalendar, Key: cal.ID, Err: err})
		if err != nil {
			metrics.FetchFailures.WithLabelValues(string(KindCalendar)).Inc()
			logger.Warn("skipping calendar", slog.String("calendar", cal.ID), slog.Any("err", err))
			continue
		}

		color := calendarColor(cal)
		for _, item := range items {
			if item == nil || item.Id == "" {
				continue
			}
			events = append(events, mapEvent(item, cal, color))
		}
	}

	notified := a.commit(events)
	if len(notified) > 0 && a.obs.OnNewEvents != nil {
		a.obs.OnNewEvents(notified)
	}
	metrics.Notifications.Add(float64(len(notified)))
	metrics.EventsInWeek.Set(float64(len(events)))
	a.emitEvents(events)

	cycle.EventCount = len(events)
	cycle.Notified = notified
	cycle.Result = Result{Success: true}
	logger.Debug("refresh complete",
		slog.Int("events", len(events)),
		slog.Int("calendars", len(calendars)),
		slog.Int("notified", len(notified)),
	)
	return cycle
}

// commit swaps in the new snapshot and returns the ids that are new or changed.
// Nothing is reported when there was no previous snapshot.
func (a *Aggregator) commit(events []CalendarEvent) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	notified := []string{}
	if len(a.lastIDs) > 0 {
		for _, e := range events {
			_, seen := a.lastIDs[e.ID]
			prev, hadSig := a.lastSignatures[e.ID]
			if !seen || (hadSig && prev != signature(e)) {
				notified = append(notified, e.ID)
			}
		}
	}

	ids := make(map[string]struct{}, len(events))
	sigs := make(map[string]string, len(events))
	for _, e := range events {
		ids[e.ID] = struct{}{}
		sigs[e.ID] = signature(e)
	}
	a.lastIDs = ids
	a.lastSignatures = sigs
	a.lastEvents = events
	return notified
}

// LastEvents returns a copy of the last successful snapshot.
func (a *Aggregator) LastEvents() []CalendarEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]CalendarEvent{}, a.lastEvents...)
}

// LastCalendars returns the calendar list most recently sent to OnCalendars.
func (a *Aggregator) LastCalendars() []CalendarListEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]CalendarListEntry{}, a.lastCalendars...)
}

// ReemitEvents sends the last snapshot to OnEvents again.
func (a *Aggregator) ReemitEvents() {
	a.emitEvents(a.LastEvents())
}

func (a *Aggregator) emitEvents(events []CalendarEvent) {
	if a.obs.OnEvents != nil {
		a.obs.OnEvents(events)
	}
}

// emitCalendars records calendars as the current list and sends it to OnCalendars.
func (a *Aggregator) emitCalendars(calendars []CalendarListEntry) {
	a.mu.Lock()
	a.lastCalendars = append([]CalendarListEntry{}, calendars...)
	a.mu.Unlock()

	if a.obs.OnCalendars != nil {
		a.obs.OnCalendars(calendars)
	}
}

func resultLabel(r Result) string {
	switch {
	case r.Success:
		return "success"
	case r.Error == ErrNotAuthenticated:
		return "unauthenticated"
	default:
		return "error"
	}
}
