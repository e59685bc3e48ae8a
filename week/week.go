// ABOUTME: Week window and event time helpers for the Monday-start calendar week
// ABOUTME: Computes week bounds in a given location and parses Google date/dateTime values
package week

import (
	"time"
)

// isoMillis matches the instant format the Calendar API receives for timeMin/timeMax.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// dayLabels are the short weekday names, Monday first.
var dayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Day is one column of the week view.
type Day struct {
	Key   string // YYYY-MM-DD
	Label string
	Date  time.Time
}

// Start returns Monday 00:00:00.000 of the week containing t, in t's location.
func Start(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset = 6 // Sunday belongs to the week that started six days earlier
	}
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// End returns Sunday 23:59:59.999 of the week containing t, in t's location.
func End(t time.Time) time.Time {
	y, m, d := Start(t).Date()
	return time.Date(y, m, d+6, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// StartISO formats Start(t) as a UTC instant with millisecond precision.
func StartISO(t time.Time) string {
	return Start(t).UTC().Format(isoMillis)
}

// EndISO formats End(t) as a UTC instant with millisecond precision.
func EndISO(t time.Time) string {
	return End(t).UTC().Format(isoMillis)
}

// Days returns the seven days (Mon..Sun) of the week containing t.
func Days(t time.Time) []Day {
	start := Start(t)
	y, m, d := start.Date()
	days := make([]Day, 0, 7)
	for i := 0; i < 7; i++ {
		date := time.Date(y, m, d+i, 0, 0, 0, 0, start.Location())
		days = append(days, Day{
			Key:   date.Format("2006-01-02"),
			Label: dayLabels[i],
			Date:  date,
		})
	}
	return days
}

// MinutesSinceMidnight returns the wall-clock minutes elapsed since midnight of t.
func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ParseEventDate parses a dateTime (RFC 3339) or date (YYYY-MM-DD) value.
// dateTime wins when both are present. Date-only values are midnight in loc.
func ParseEventDate(dateTime, date string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if dateTime != "" {
		t, err := time.Parse(time.RFC3339, dateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t.In(loc), true
	}
	if date != "" {
		t, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// IsAllDay reports whether a start value is date-only.
func IsAllDay(dateTime, date string) bool {
	return date != "" && dateTime == ""
}

// FormatTime renders an RFC 3339 dateTime (or a date) as HH:MM in loc.
// Unparseable input yields an empty string.
func FormatTime(value string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02", value, loc)
		if err != nil {
			return ""
		}
	}
	return t.In(loc).Format("15:04")
}
