package agenda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/weekcal/config"
)

func layoutEvents() []CalendarEvent {
	return []CalendarEvent{
		{ID: "late", CalendarColor: "#3f51b5", Start: EventTime{DateTime: "2025-02-12T15:00:00Z"}},
		{ID: "early", CalendarColor: "#f6bf26", Start: EventTime{DateTime: "2025-02-12T08:00:00Z"}},
		{ID: "allday", CalendarColor: "#0b8043", Start: EventTime{Date: "2025-02-12"}},
		{ID: "weekend", Start: EventTime{Date: "2025-02-15"}},
		{ID: "nextweek", Start: EventTime{Date: "2025-02-20"}},
		{ID: "broken", Start: EventTime{DateTime: "not a time"}},
	}
}

func TestLayoutWeekHidesWeekendsAndOrders(t *testing.T) {
	days := LayoutWeek(layoutEvents(), wednesday, config.Defaults())
	require.Len(t, days, 5)
	assert.Equal(t, "Mon", days[0].Label)
	assert.Equal(t, "Fri", days[4].Label)

	wed := days[2]
	require.Len(t, wed.Events, 3)
	assert.Equal(t, "allday", wed.Events[0].ID)
	assert.True(t, wed.Events[0].AllDay())
	assert.Equal(t, "early", wed.Events[1].ID)
	assert.Equal(t, "late", wed.Events[2].ID)
	assert.Equal(t, "#3f51b5", wed.Events[2].Color)
}

func TestLayoutWeekWithWeekendsAndMutedColors(t *testing.T) {
	s := config.Defaults()
	s.ShowWeekends = true
	s.MuteCalendarColors = true

	days := LayoutWeek(layoutEvents(), wednesday, s)
	require.Len(t, days, 7)
	require.Len(t, days[5].Events, 1)
	assert.Equal(t, "weekend", days[5].Events[0].ID)
	assert.NotEqual(t, "#3f51b5", days[2].Events[2].Color)
}

func TestEventBlockDeclined(t *testing.T) {
	assert.True(t, EventBlock{CalendarEvent: CalendarEvent{MyResponseStatus: "declined"}}.Declined())
	assert.False(t, EventBlock{CalendarEvent: CalendarEvent{MyResponseStatus: "accepted"}}.Declined())
}
