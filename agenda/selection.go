package agenda

// selectCalendars returns the calendars to fetch, each id once.
// A configured selection is intersected with what was fetched; when nothing is
// configured or nothing survives the intersection, every calendar is used.
func selectCalendars(all []CalendarListEntry, selected []string) []CalendarListEntry {
	byID := make(map[string]CalendarListEntry, len(all))
	var order []string
	for _, cal := range all {
		if existing, ok := byID[cal.ID]; ok {
			// Later accounts own the calendar; metadata stays from the first listing.
			existing.AccountEmail = cal.AccountEmail
			byID[cal.ID] = existing
			continue
		}
		byID[cal.ID] = cal
		order = append(order, cal.ID)
	}

	var picked []CalendarListEntry
	seen := make(map[string]bool, len(selected))
	for _, id := range selected {
		cal, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		picked = append(picked, cal)
	}
	if len(picked) > 0 {
		return picked
	}

	picked = make([]CalendarListEntry, 0, len(order))
	for _, id := range order {
		picked = append(picked, byID[id])
	}
	return picked
}
