// ABOUTME: Calendar, event, and cycle report types produced by the aggregator
// ABOUTME: JSON tags follow the Calendar API field names
package agenda

import (
	"context"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harperreed/weekcal/auth"
)

// CalendarListEntry is one calendar visible to a signed-in account.
type CalendarListEntry struct {
	ID              string `json:"id"`
	Summary         string `json:"summary"`
	Primary         bool   `json:"primary,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	AccountEmail    string `json:"accountEmail"`
}

// EventTime holds either a timed instant or an all-day date.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Attendee is a guest on an event.
type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

// CalendarEvent is an event of the current week, enriched with calendar metadata.
type CalendarEvent struct {
	ID               string     `json:"id"`
	CalendarID       string     `json:"calendarId"`
	CalendarSummary  string     `json:"calendarSummary,omitempty"`
	Summary          string     `json:"summary"`
	Description      string     `json:"description,omitempty"`
	Start            EventTime  `json:"start"`
	End              EventTime  `json:"end"`
	HTMLLink         string     `json:"htmlLink,omitempty"`
	ColorID          string     `json:"colorId,omitempty"`
	Status           string     `json:"status,omitempty"`
	CalendarColor    string     `json:"calendarColor,omitempty"`
	MyResponseStatus string     `json:"myResponseStatus,omitempty"`
	Attendees        []Attendee `json:"attendees,omitempty"`
	HangoutLink      string     `json:"hangoutLink,omitempty"`
}

// Result is the outcome reported to callers of Refresh.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ItemKind names what a per-item outcome refers to.
type ItemKind string

const (
	KindAccount  ItemKind = "account"
	KindCalendar ItemKind = "calendar"
)

// ItemResult is the outcome of fetching one account's calendar list or one calendar's events.
type ItemResult struct {
	Kind ItemKind
	Key  string
	Err  error
}

// OK reports whether the item was fetched.
func (r ItemResult) OK() bool { return r.Err == nil }

// Cycle is the full report of one refresh.
type Cycle struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Result     Result
	Items      []ItemResult
	EventCount int
	Notified   []string
}

// Failures returns the items that were skipped because of an error.
func (c Cycle) Failures() []ItemResult {
	var out []ItemResult
	for _, item := range c.Items {
		if !item.OK() {
			out = append(out, item)
		}
	}
	return out
}

// Observers receive the aggregator output. Nil callbacks are skipped.
type Observers struct {
	OnEvents    func(events []CalendarEvent)
	OnCalendars func(calendars []CalendarListEntry)
	OnNewEvents func(ids []string)
}

// TokenProvider supplies one access token per signed-in account.
type TokenProvider interface {
	ValidAccessTokens(ctx context.Context) []auth.AccountToken
}

// Fetcher reads calendars and events from the provider.
type Fetcher interface {
	ListCalendars(ctx context.Context, accessToken string) ([]*calendar.CalendarListEntry, error)
	ListEvents(ctx context.Context, accessToken, calendarID, timeMin, timeMax string) ([]*calendar.Event, error)
}

// Recorder persists cycle reports. Errors are logged and otherwise ignored.
type Recorder interface {
	RecordCycle(cycle Cycle) error
}
