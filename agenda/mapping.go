package agenda

import (
	"strings"

	"google.golang.org/api/calendar/v3"
)

func mapCalendar(entry *calendar.CalendarListEntry, accountEmail string) CalendarListEntry {
	summary := entry.Summary
	if summary == "" {
		summary = entry.Id
	}
	return CalendarListEntry{
		ID:              entry.Id,
		Summary:         summary,
		Primary:         entry.Primary,
		BackgroundColor: entry.BackgroundColor,
		AccountEmail:    accountEmail,
	}
}

// mapEvent converts a provider event. The caller drops items without an id.
func mapEvent(item *calendar.Event, cal CalendarListEntry, color string) CalendarEvent {
	var attendees []Attendee
	for _, a := range item.Attendees {
		if a == nil {
			continue
		}
		attendees = append(attendees, Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}

	return CalendarEvent{
		ID:               item.Id,
		CalendarID:       cal.ID,
		CalendarSummary:  cal.Summary,
		Summary:          item.Summary,
		Description:      item.Description,
		Start:            eventTime(item.Start),
		End:              eventTime(item.End),
		HTMLLink:         item.HtmlLink,
		ColorID:          item.ColorId,
		Status:           item.Status,
		CalendarColor:    color,
		MyResponseStatus: responseStatus(attendees, cal.AccountEmail),
		Attendees:        attendees,
		HangoutLink:      item.HangoutLink,
	}
}

func eventTime(t *calendar.EventDateTime) EventTime {
	if t == nil {
		return EventTime{}
	}
	return EventTime{DateTime: t.DateTime, Date: t.Date}
}

// responseStatus finds the owning account among the attendees, ignoring case.
func responseStatus(attendees []Attendee, accountEmail string) string {
	if accountEmail == "" {
		return ""
	}
	for _, a := range attendees {
		if strings.EqualFold(a.Email, accountEmail) {
			return a.ResponseStatus
		}
	}
	return ""
}

// signature captures the fields whose change triggers a notification.
func signature(e CalendarEvent) string {
	start := e.Start.Date
	if start == "" {
		start = e.Start.DateTime
	}
	end := e.End.Date
	if end == "" {
		end = e.End.DateTime
	}
	return strings.Join([]string{e.ID, e.Summary, start, end, e.Status}, "|")
}
