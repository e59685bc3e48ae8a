// ABOUTME: Calendar CLI commands
// ABOUTME: One-shot refresh, calendar listing, and this week's events
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/weekcal/agenda"
	"github.com/harperreed/weekcal/week"
)

// snapshot is what one cycle produced.
type snapshot struct {
	cycle     agenda.Cycle
	events    []agenda.CalendarEvent
	calendars []agenda.CalendarListEntry
}

func runCycle(ctx context.Context, app *App) snapshot {
	var snap snapshot
	agg := app.Aggregator(agenda.Observers{
		OnEvents:    func(events []agenda.CalendarEvent) { snap.events = events },
		OnCalendars: func(calendars []agenda.CalendarListEntry) { snap.calendars = calendars },
	})
	snap.cycle = agg.RefreshCycle(ctx)
	return snap
}

// RefreshCommand runs one refresh cycle and reports what happened.
func RefreshCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap := runCycle(ctx, app)
	if !snap.cycle.Result.Success {
		return errors.New(snap.cycle.Result.Error)
	}

	app.printf("✓ Refreshed %d events from %d calendars\n", snap.cycle.EventCount, len(snap.calendars))
	for _, item := range snap.cycle.Failures() {
		app.printf("  ✗ %s %s: %v\n", item.Kind, item.Key, item.Err)
	}
	return nil
}

// CalendarsCommand lists every calendar visible to the signed-in accounts.
func CalendarsCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("calendars", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap := runCycle(ctx, app)
	if !snap.cycle.Result.Success {
		return errors.New(snap.cycle.Result.Error)
	}
	if *asJSON {
		return printJSON(app, snap.calendars)
	}

	selected := map[string]bool{}
	for _, id := range app.Settings.Settings().SelectedCalendarIDs {
		selected[id] = true
	}
	for _, cal := range snap.calendars {
		marker := " "
		if len(selected) == 0 || selected[cal.ID] {
			marker = "✓"
		}
		primary := ""
		if cal.Primary {
			primary = " (primary)"
		}
		app.printf("%s %s%s\n    id: %s  account: %s\n", marker, cal.Summary, primary, cal.ID, cal.AccountEmail)
	}
	return nil
}

// EventsCommand prints this week's events grouped by day.
func EventsCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap := runCycle(ctx, app)
	if !snap.cycle.Result.Success {
		return errors.New(snap.cycle.Result.Error)
	}
	if *asJSON {
		return printJSON(app, snap.events)
	}

	printWeek(app, snap.events, time.Now())
	return nil
}

func printWeek(app *App, events []agenda.CalendarEvent, now time.Time) {
	for _, day := range agenda.LayoutWeek(events, now, app.Settings.Settings()) {
		app.printf("%s %s\n", day.Label, day.Date.Format("Jan 2"))
		if len(day.Events) == 0 {
			app.println("  No events")
			continue
		}
		for _, ev := range day.Events {
			when := "all day"
			if !ev.AllDay() {
				when = week.FormatTime(ev.Start.DateTime, now.Location())
			}
			line := fmt.Sprintf("  %-7s %s", when, ev.Summary)
			if ev.Declined() {
				line += " (declined)"
			}
			app.println(line)
		}
	}
}

func printJSON(app *App, v any) error {
	enc := json.NewEncoder(app.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
