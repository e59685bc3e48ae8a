package agenda

import "unicode/utf16"

// Palette is used for calendars that declare no background color.
var Palette = []string{
	"#7986cb", "#33b679", "#8e24aa", "#e67c73", "#f6bf26",
	"#f4511e", "#039be5", "#616161", "#3f51b5", "#0b8043",
}

// DeriveColor picks a stable palette entry for a calendar id.
// The hash is h = h*31 + c over UTF-16 code units with signed 32-bit wraparound.
func DeriveColor(calendarID string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(calendarID)) {
		h = h*31 + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return Palette[abs%int64(len(Palette))]
}

func calendarColor(cal CalendarListEntry) string {
	if cal.BackgroundColor != "" {
		return cal.BackgroundColor
	}
	return DeriveColor(cal.ID)
}
