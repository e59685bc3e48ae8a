// ABOUTME: Groups a week snapshot into day columns for display
// ABOUTME: Shared by the status page and the terminal week view
package agenda

import (
	"sort"
	"time"

	"github.com/harperreed/weekcal/colors"
	"github.com/harperreed/weekcal/config"
	"github.com/harperreed/weekcal/week"
)

// DayColumn is one day of the week with the events that start on it.
type DayColumn struct {
	week.Day
	Events []EventBlock
}

// EventBlock is an event with its display color resolved.
type EventBlock struct {
	CalendarEvent
	Color string
}

// AllDay reports whether the block is a date-only event.
func (b EventBlock) AllDay() bool {
	return week.IsAllDay(b.Start.DateTime, b.Start.Date)
}

// Declined reports whether the signed-in attendee declined.
func (b EventBlock) Declined() bool {
	return b.MyResponseStatus == "declined"
}

// LayoutWeek buckets events by start day in now's location. Saturday and
// Sunday are dropped unless ShowWeekends is set. Within a day all-day events
// come first, then timed events by start.
func LayoutWeek(events []CalendarEvent, now time.Time, settings config.Settings) []DayColumn {
	loc := now.Location()
	var days []DayColumn
	index := map[string]int{}
	for _, d := range week.Days(now) {
		if !settings.ShowWeekends && (d.Date.Weekday() == time.Saturday || d.Date.Weekday() == time.Sunday) {
			continue
		}
		index[d.Key] = len(days)
		days = append(days, DayColumn{Day: d})
	}

	for _, e := range events {
		start, ok := week.ParseEventDate(e.Start.DateTime, e.Start.Date, loc)
		if !ok {
			continue
		}
		i, ok := index[start.Format("2006-01-02")]
		if !ok {
			continue
		}
		color := e.CalendarColor
		if settings.MuteCalendarColors {
			color = colors.MuteCalendarColor(color)
		}
		days[i].Events = append(days[i].Events, EventBlock{CalendarEvent: e, Color: color})
	}

	for i := range days {
		evs := days[i].Events
		sort.SliceStable(evs, func(a, b int) bool {
			if evs[a].AllDay() != evs[b].AllDay() {
				return evs[a].AllDay()
			}
			ta, _ := week.ParseEventDate(evs[a].Start.DateTime, evs[a].Start.Date, loc)
			tb, _ := week.ParseEventDate(evs[b].Start.DateTime, evs[b].Start.Date, loc)
			return ta.Before(tb)
		})
	}
	return days
}
