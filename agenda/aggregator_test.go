// ABOUTME: Tests for the week aggregator: fan-out, selection, colors, and change detection
// ABOUTME: Uses in-memory token and calendar fakes with a fixed clock
package agenda

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/harperreed/weekcal/auth"
	"github.com/harperreed/weekcal/config"
)

type fakeTokens struct {
	tokens []auth.AccountToken
}

func (f *fakeTokens) ValidAccessTokens(context.Context) []auth.AccountToken {
	return f.tokens
}

type eventsCall struct {
	token, calendarID, timeMin, timeMax string
}

type fakeFetcher struct {
	mu          sync.Mutex
	calendars   map[string][]*calendar.CalendarListEntry // by access token
	listErr     map[string]error
	events      map[string][]*calendar.Event // by calendar id
	eventsErr   map[string]error
	eventsCalls []eventsCall
	panicOn     string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calendars: map[string][]*calendar.CalendarListEntry{},
		listErr:   map[string]error{},
		events:    map[string][]*calendar.Event{},
		eventsErr: map[string]error{},
	}
}

func (f *fakeFetcher) ListCalendars(_ context.Context, token string) ([]*calendar.CalendarListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[token]; err != nil {
		return nil, err
	}
	return f.calendars[token], nil
}

func (f *fakeFetcher) ListEvents(_ context.Context, token, calendarID, timeMin, timeMax string) ([]*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if calendarID == f.panicOn {
		panic("boom")
	}
	f.eventsCalls = append(f.eventsCalls, eventsCall{token, calendarID, timeMin, timeMax})
	if err := f.eventsErr[calendarID]; err != nil {
		return nil, err
	}
	return f.events[calendarID], nil
}

func (f *fakeFetcher) setEvents(calendarID string, events ...*calendar.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[calendarID] = events
}

func (f *fakeFetcher) calledCalendars() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, c := range f.eventsCalls {
		ids = append(ids, c.calendarID)
	}
	return ids
}

type capture struct {
	mu        sync.Mutex
	events    [][]CalendarEvent
	calendars [][]CalendarListEntry
	newIDs    [][]string
}

func (c *capture) observers() Observers {
	return Observers{
		OnEvents: func(e []CalendarEvent) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.events = append(c.events, e)
		},
		OnCalendars: func(cals []CalendarListEntry) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.calendars = append(c.calendars, cals)
		},
		OnNewEvents: func(ids []string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.newIDs = append(c.newIDs, ids)
		},
	}
}

func (c *capture) lastEvents() []CalendarEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

func calendarIDs(cals []CalendarListEntry) []string {
	ids := make([]string, 0, len(cals))
	for _, c := range cals {
		ids = append(ids, c.ID)
	}
	return ids
}

type recorderFunc func(Cycle) error

func (f recorderFunc) RecordCycle(c Cycle) error { return f(c) }

// Wednesday 2025-02-12 10:00 UTC.
var wednesday = time.Date(2025, 2, 12, 10, 0, 0, 0, time.UTC)

func timed(id, summary, start string) *calendar.Event {
	return &calendar.Event{
		Id:      id,
		Summary: summary,
		Status:  "confirmed",
		Start:   &calendar.EventDateTime{DateTime: start},
		End:     &calendar.EventDateTime{DateTime: start},
	}
}

func settingsWith(selected ...string) config.Static {
	s := config.Defaults()
	s.SelectedCalendarIDs = selected
	return config.Static(s)
}

func newAggregator(tokens *fakeTokens, fetcher *fakeFetcher, settings config.Provider, c *capture, opts ...Option) *Aggregator {
	opts = append([]Option{WithClock(func() time.Time { return wednesday }), WithLocation(time.UTC)}, opts...)
	return New(tokens, fetcher, settings, c.observers(), opts...)
}

func singleAccount() (*fakeTokens, *fakeFetcher) {
	tokens := &fakeTokens{tokens: []auth.AccountToken{{Email: "me@x.com", AccessToken: "tok-me"}}}
	fetcher := newFakeFetcher()
	fetcher.calendars["tok-me"] = []*calendar.CalendarListEntry{
		{Id: "me@x.com", Summary: "Me", Primary: true, BackgroundColor: "#123456"},
	}
	return tokens, fetcher
}

func TestNotAuthenticated(t *testing.T) {
	c := &capture{}
	a := newAggregator(&fakeTokens{}, newFakeFetcher(), settingsWith(), c)

	cycle := a.RefreshCycle(context.Background())
	assert.Equal(t, Result{Error: ErrNotAuthenticated}, cycle.Result)
	require.Len(t, c.events, 1)
	assert.Empty(t, c.events[0])
	require.Len(t, c.calendars, 1)
	assert.Empty(t, c.calendars[0])
	assert.NotEmpty(t, cycle.ID)
}

func TestNotAuthenticatedReemitsRetainedEvents(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.setEvents("me@x.com", timed("e1", "Standup", "2025-02-12T09:00:00Z"))
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)

	require.True(t, a.Refresh(context.Background()).Success)
	tokens.tokens = nil

	require.Len(t, a.LastCalendars(), 1)
	res := a.Refresh(context.Background())
	assert.False(t, res.Success)
	require.Len(t, c.lastEvents(), 1)
	assert.Equal(t, "e1", c.lastEvents()[0].ID)
	assert.Empty(t, c.calendars[len(c.calendars)-1])
	assert.Empty(t, a.LastCalendars(), "snapshot matches the empty list sent to observers")
}

func TestRefreshMapsEvents(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.setEvents("me@x.com",
		&calendar.Event{
			Id:          "e1",
			Summary:     "Review",
			Description: "notes",
			Status:      "confirmed",
			HtmlLink:    "https://calendar.google.com/e1",
			HangoutLink: "https://meet.google.com/abc",
			ColorId:     "5",
			Start:       &calendar.EventDateTime{DateTime: "2025-02-12T09:00:00Z"},
			End:         &calendar.EventDateTime{DateTime: "2025-02-12T10:00:00Z"},
			Attendees: []*calendar.EventAttendee{
				{Email: "other@x.com", ResponseStatus: "accepted"},
				{Email: "ME@X.COM", DisplayName: "Me", ResponseStatus: "tentative"},
			},
		},
		&calendar.Event{Summary: "no id, dropped"},
	)
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)

	cycle := a.RefreshCycle(context.Background())
	require.True(t, cycle.Result.Success)
	assert.Equal(t, 1, cycle.EventCount)

	events := c.lastEvents()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, "me@x.com", e.CalendarID)
	assert.Equal(t, "Me", e.CalendarSummary)
	assert.Equal(t, "#123456", e.CalendarColor, "declared background color wins")
	assert.Equal(t, "tentative", e.MyResponseStatus, "attendee match ignores case")
	assert.Equal(t, EventTime{DateTime: "2025-02-12T09:00:00Z"}, e.Start)
	assert.Len(t, e.Attendees, 2)
	assert.Equal(t, "https://meet.google.com/abc", e.HangoutLink)

	require.Len(t, c.calendars, 1)
	assert.Equal(t, []CalendarListEntry{{ID: "me@x.com", Summary: "Me", Primary: true, BackgroundColor: "#123456", AccountEmail: "me@x.com"}}, c.calendars[0])
}

func TestRefreshRequestsCurrentWeek(t *testing.T) {
	tokens, fetcher := singleAccount()
	a := newAggregator(tokens, fetcher, settingsWith(), &capture{})

	require.True(t, a.Refresh(context.Background()).Success)
	require.Len(t, fetcher.eventsCalls, 1)
	call := fetcher.eventsCalls[0]
	assert.Equal(t, "tok-me", call.token)
	assert.Equal(t, "2025-02-10T00:00:00.000Z", call.timeMin)
	assert.Equal(t, "2025-02-16T23:59:59.999Z", call.timeMax)
}

func TestSummaryFallsBackToID(t *testing.T) {
	tokens := &fakeTokens{tokens: []auth.AccountToken{{Email: "me@x.com", AccessToken: "tok"}}}
	fetcher := newFakeFetcher()
	fetcher.calendars["tok"] = []*calendar.CalendarListEntry{{Id: "work@example.com"}}
	fetcher.setEvents("work@example.com", timed("e1", "x", "2025-02-12T09:00:00Z"))
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)

	require.True(t, a.Refresh(context.Background()).Success)
	assert.Equal(t, "work@example.com", c.calendars[0][0].Summary)
	assert.Equal(t, "#8e24aa", c.lastEvents()[0].CalendarColor, "derived from the id hash")
}

func TestBaselineCycleNotifiesNothing(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.setEvents("me@x.com", timed("e1", "A", "2025-02-12T09:00:00Z"), timed("e2", "B", "2025-02-13T09:00:00Z"))
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)

	cycle := a.RefreshCycle(context.Background())
	require.True(t, cycle.Result.Success)
	assert.Empty(t, c.newIDs)
	assert.Empty(t, cycle.Notified)
}

func TestSecondCycleReportsNewAndChanged(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.setEvents("me@x.com", timed("e1", "A", "2025-02-12T09:00:00Z"), timed("e2", "B", "2025-02-13T09:00:00Z"))
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)
	require.True(t, a.Refresh(context.Background()).Success)

	fetcher.setEvents("me@x.com",
		timed("e1", "A", "2025-02-12T09:00:00Z"),
		timed("e2", "B moved", "2025-02-13T11:00:00Z"),
		timed("e3", "C", "2025-02-14T09:00:00Z"),
	)
	cycle := a.RefreshCycle(context.Background())
	require.True(t, cycle.Result.Success)
	assert.Equal(t, [][]string{{"e2", "e3"}}, c.newIDs)
	assert.Equal(t, []string{"e2", "e3"}, cycle.Notified)

	third := a.RefreshCycle(context.Background())
	require.True(t, third.Result.Success)
	assert.Len(t, c.newIDs, 1, "unchanged snapshot raises nothing")
	assert.Empty(t, third.Notified)
}

func TestStatusChangeCountsAsChanged(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.setEvents("me@x.com", timed("e1", "A", "2025-02-12T09:00:00Z"))
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)
	require.True(t, a.Refresh(context.Background()).Success)

	cancelled := timed("e1", "A", "2025-02-12T09:00:00Z")
	cancelled.Status = "cancelled"
	fetcher.setEvents("me@x.com", cancelled)
	require.True(t, a.Refresh(context.Background()).Success)
	assert.Equal(t, [][]string{{"e1"}}, c.newIDs)
}

func TestAllDayDatePreferredInSignature(t *testing.T) {
	e := CalendarEvent{
		ID:      "e",
		Summary: "Offsite",
		Start:   EventTime{Date: "2025-02-12", DateTime: "ignored"},
		End:     EventTime{DateTime: "2025-02-13T00:00:00Z"},
	}
	assert.Equal(t, "e|Offsite|2025-02-12|2025-02-13T00:00:00Z|", signature(e))
}

func TestSelectionFiltersAndDropsStaleIDs(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.calendars["tok-me"] = append(fetcher.calendars["tok-me"], &calendar.CalendarListEntry{Id: "team", Summary: "Team"})
	a := newAggregator(tokens, fetcher, settingsWith("team", "gone"), &capture{})

	require.True(t, a.Refresh(context.Background()).Success)
	assert.Equal(t, []string{"team"}, fetcher.calledCalendars())
}

func TestStaleSelectionFallsBackToAll(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.calendars["tok-me"] = append(fetcher.calendars["tok-me"], &calendar.CalendarListEntry{Id: "team", Summary: "Team"})
	a := newAggregator(tokens, fetcher, settingsWith("deleted-calendar"), &capture{})

	require.True(t, a.Refresh(context.Background()).Success)
	assert.Equal(t, []string{"me@x.com", "team"}, fetcher.calledCalendars())
}

func TestPartialAccountFailure(t *testing.T) {
	tokens := &fakeTokens{tokens: []auth.AccountToken{
		{Email: "broken@x.com", AccessToken: "tok-broken"},
		{Email: "ok@x.com", AccessToken: "tok-ok"},
	}}
	fetcher := newFakeFetcher()
	fetcher.listErr["tok-broken"] = errors.New("Not authorized. Sign out and sign in again.")
	fetcher.calendars["tok-ok"] = []*calendar.CalendarListEntry{{Id: "ok@x.com", Summary: "OK"}}
	fetcher.setEvents("ok@x.com", timed("e1", "A", "2025-02-12T09:00:00Z"))
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)

	cycle := a.RefreshCycle(context.Background())
	require.True(t, cycle.Result.Success)
	require.Len(t, c.lastEvents(), 1)
	require.Len(t, c.calendars, 1)
	assert.Equal(t, []string{"ok@x.com"}, calendarIDs(c.calendars[0]))
	assert.Equal(t, "ok@x.com", c.calendars[0][0].AccountEmail)
	assert.Equal(t, []string{"ok@x.com"}, calendarIDs(a.LastCalendars()))

	failures := cycle.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, KindAccount, failures[0].Kind)
	assert.Equal(t, "broken@x.com", failures[0].Key)
}

func TestPartialCalendarFailure(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.calendars["tok-me"] = append(fetcher.calendars["tok-me"], &calendar.CalendarListEntry{Id: "flaky"})
	fetcher.eventsErr["flaky"] = errors.New("Calendar API error: 500")
	fetcher.setEvents("me@x.com", timed("e1", "A", "2025-02-12T09:00:00Z"))
	a := newAggregator(tokens, fetcher, settingsWith(), &capture{})

	cycle := a.RefreshCycle(context.Background())
	require.True(t, cycle.Result.Success)
	assert.Equal(t, 1, cycle.EventCount)
	require.Len(t, cycle.Failures(), 1)
	assert.Equal(t, ItemResult{Kind: KindCalendar, Key: "flaky", Err: fetcher.eventsErr["flaky"]}, cycle.Failures()[0])
}

func TestEachAccountUsesItsOwnToken(t *testing.T) {
	tokens := &fakeTokens{tokens: []auth.AccountToken{
		{Email: "a@x.com", AccessToken: "tok-a"},
		{Email: "b@x.com", AccessToken: "tok-b"},
	}}
	fetcher := newFakeFetcher()
	fetcher.calendars["tok-a"] = []*calendar.CalendarListEntry{{Id: "a@x.com"}}
	fetcher.calendars["tok-b"] = []*calendar.CalendarListEntry{{Id: "b@x.com"}}
	fetcher.setEvents("b@x.com", &calendar.Event{
		Id:        "shared",
		Attendees: []*calendar.EventAttendee{{Email: "a@x.com", ResponseStatus: "accepted"}, {Email: "b@x.com", ResponseStatus: "declined"}},
	})
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)

	require.True(t, a.Refresh(context.Background()).Success)
	require.Len(t, fetcher.eventsCalls, 2)
	assert.Equal(t, "tok-a", fetcher.eventsCalls[0].token)
	assert.Equal(t, "tok-b", fetcher.eventsCalls[1].token)
	assert.Equal(t, "declined", c.lastEvents()[0].MyResponseStatus, "status is resolved for the owning account")
}

func TestSharedCalendarFetchedOnce(t *testing.T) {
	tokens := &fakeTokens{tokens: []auth.AccountToken{
		{Email: "a@x.com", AccessToken: "tok-a"},
		{Email: "b@x.com", AccessToken: "tok-b"},
	}}
	fetcher := newFakeFetcher()
	fetcher.calendars["tok-a"] = []*calendar.CalendarListEntry{{Id: "team", Summary: "Team (a)"}}
	fetcher.calendars["tok-b"] = []*calendar.CalendarListEntry{{Id: "team", Summary: "Team (b)"}}
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)

	require.True(t, a.Refresh(context.Background()).Success)
	assert.Len(t, c.calendars[0], 2, "the calendar list keeps every listing")
	require.Len(t, fetcher.eventsCalls, 1)
	assert.Equal(t, "tok-b", fetcher.eventsCalls[0].token, "the last account listing the calendar owns it")
}

func TestPanicReemitsRetainedEvents(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.setEvents("me@x.com", timed("e1", "A", "2025-02-12T09:00:00Z"))
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)
	require.True(t, a.Refresh(context.Background()).Success)

	fetcher.panicOn = "me@x.com"
	res := a.Refresh(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
	require.Len(t, c.lastEvents(), 1)
	assert.Equal(t, "e1", c.lastEvents()[0].ID)
	assert.Len(t, a.LastEvents(), 1, "retained snapshot is untouched")
}

func TestCancelledContextFails(t *testing.T) {
	tokens, fetcher := singleAccount()
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := a.Refresh(ctx)
	assert.False(t, res.Success)
	assert.Equal(t, context.Canceled.Error(), res.Error)
	assert.Empty(t, fetcher.calledCalendars())
}

func TestRecorderReceivesCycle(t *testing.T) {
	tokens, fetcher := singleAccount()
	var got []Cycle
	a := newAggregator(tokens, fetcher, settingsWith(), &capture{}, WithRecorder(recorderFunc(func(c Cycle) error {
		got = append(got, c)
		return errors.New("disk full")
	})))

	res := a.Refresh(context.Background())
	assert.True(t, res.Success, "recorder errors do not fail the cycle")
	require.Len(t, got, 1)
	assert.True(t, got[0].Result.Success)
	assert.Equal(t, wednesday, got[0].StartedAt)
	assert.Len(t, got[0].Items, 2)
}

func TestLastCalendarsAndReemit(t *testing.T) {
	tokens, fetcher := singleAccount()
	fetcher.setEvents("me@x.com", timed("e1", "A", "2025-02-12T09:00:00Z"))
	c := &capture{}
	a := newAggregator(tokens, fetcher, settingsWith(), c)
	require.True(t, a.Refresh(context.Background()).Success)

	assert.Len(t, a.LastCalendars(), 1)
	a.ReemitEvents()
	assert.Len(t, c.events, 2)
	assert.Equal(t, c.events[0], c.events[1])
}

func TestNilObserversAreSkipped(t *testing.T) {
	tokens, fetcher := singleAccount()
	a := New(tokens, fetcher, settingsWith(), Observers{}, WithClock(func() time.Time { return wednesday }))
	assert.True(t, a.Refresh(context.Background()).Success)
}
