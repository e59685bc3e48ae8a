// ABOUTME: Tests for week window helpers
// ABOUTME: Verifies Monday/Sunday bounds, day keys, and event date parsing
package week

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartForWednesday(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	wed := time.Date(2025, time.February, 12, 15, 30, 0, 0, loc)

	start := Start(wed)

	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, 10, start.Day())
	assert.Equal(t, time.February, start.Month())
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 0, start.Minute())
	assert.Equal(t, 0, start.Nanosecond())
	assert.Equal(t, loc, start.Location())
}

func TestStartForMondayAndSunday(t *testing.T) {
	mon := time.Date(2025, time.February, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 10, Start(mon).Day())

	sun := time.Date(2025, time.February, 16, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 10, Start(sun).Day(), "sunday belongs to the week that began on monday")
}

func TestEndForWednesday(t *testing.T) {
	wed := time.Date(2025, time.February, 12, 8, 0, 0, 0, time.UTC)

	end := End(wed)

	assert.Equal(t, time.Sunday, end.Weekday())
	assert.Equal(t, 16, end.Day())
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.Equal(t, 59, end.Second())
	assert.Equal(t, 999*int(time.Millisecond), end.Nanosecond())
}

func TestWeekAcrossMonthBoundary(t *testing.T) {
	thu := time.Date(2025, time.January, 2, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC), Start(thu))
	assert.Equal(t, time.January, End(thu).Month())
	assert.Equal(t, 5, End(thu).Day())
}

func TestISOBounds(t *testing.T) {
	wed := time.Date(2025, time.February, 12, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-02-10T00:00:00.000Z", StartISO(wed))
	assert.Equal(t, "2025-02-16T23:59:59.999Z", EndISO(wed))
}

func TestDays(t *testing.T) {
	days := Days(time.Date(2025, time.February, 12, 0, 0, 0, 0, time.UTC))

	require.Len(t, days, 7)
	assert.Equal(t, "Mon", days[0].Label)
	assert.Equal(t, "2025-02-10", days[0].Key)
	assert.Equal(t, "Sun", days[6].Label)
	assert.Equal(t, "2025-02-16", days[6].Key)
}

func TestMinutesSinceMidnight(t *testing.T) {
	assert.Equal(t, 0, MinutesSinceMidnight(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 90, MinutesSinceMidnight(time.Date(2025, 1, 1, 1, 30, 0, 0, time.UTC)))
}

func TestParseEventDate(t *testing.T) {
	got, ok := ParseEventDate("2025-02-12T10:00:00Z", "", time.UTC)
	require.True(t, ok)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, 10, got.Hour())

	got, ok = ParseEventDate("", "2025-02-12", time.UTC)
	require.True(t, ok)
	assert.Equal(t, 12, got.Day())

	_, ok = ParseEventDate("", "", time.UTC)
	assert.False(t, ok)

	_, ok = ParseEventDate("garbage", "", time.UTC)
	assert.False(t, ok)
}

func TestIsAllDay(t *testing.T) {
	assert.True(t, IsAllDay("", "2025-02-12"))
	assert.False(t, IsAllDay("2025-02-12T10:00:00Z", ""))
	assert.False(t, IsAllDay("", ""))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "14:30", FormatTime("2025-02-12T14:30:00.000Z", time.UTC))
	assert.Equal(t, "", FormatTime("invalid", time.UTC))
}
