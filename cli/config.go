// ABOUTME: Settings CLI commands
// ABOUTME: Reads and partially updates settings, reacting to selection and interval changes
package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/harperreed/weekcal/agenda"
	"github.com/harperreed/weekcal/config"
)

// ConfigCommand handles "config get [key]" and "config set key=value...".
func ConfigCommand(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return errors.New("config requires a subcommand: get or set")
	}

	switch args[0] {
	case "get":
		return configGet(app, args[1:])
	case "set":
		return configSet(ctx, app, args[1:])
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

func configGet(app *App, args []string) error {
	settings := app.Settings.Settings()
	keys := args
	if len(keys) == 0 {
		keys = config.Keys()
	}
	for _, key := range keys {
		value, err := config.Get(settings, key)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			app.println(value)
		} else {
			app.printf("%s=%s\n", key, value)
		}
	}
	return nil
}

func configSet(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return errors.New("config set requires at least one key=value")
	}

	var patches []config.Patch
	for _, arg := range args {
		p, err := config.ParseAssignment(arg)
		if err != nil {
			return err
		}
		patches = append(patches, p)
	}

	agg := app.Aggregator(agenda.Observers{})
	for _, p := range patches {
		if _, err := applySettings(ctx, app, agg, p); err != nil {
			return err
		}
	}
	app.println("✓ Settings saved")
	return nil
}

// applySettings persists p. A calendar selection change triggers a refresh and
// an interval change restarts a running schedule.
func applySettings(ctx context.Context, app *App, agg *agenda.Aggregator, p config.Patch) (config.Settings, error) {
	settings, err := app.Settings.Update(p)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	react(ctx, app, agg, p.TouchesSelection(), p.TouchesInterval())
	return settings, nil
}

// reloadSettings re-reads the settings file and reacts to what changed.
func reloadSettings(ctx context.Context, app *App, agg *agenda.Aggregator) error {
	before := app.Settings.Settings()
	after, err := app.Settings.Reload()
	if err != nil {
		return err
	}
	selection := !slices.Equal(before.SelectedCalendarIDs, after.SelectedCalendarIDs)
	interval := agenda.Interval(before) != agenda.Interval(after)
	react(ctx, app, agg, selection, interval)
	return nil
}

func react(ctx context.Context, app *App, agg *agenda.Aggregator, selection, interval bool) {
	if selection {
		if res := agg.Refresh(ctx); res.Success {
			app.println("✓ Refreshed with the new calendar selection")
		} else {
			app.printf("✗ Refresh failed: %s\n", res.Error)
		}
	}
	if interval && agg.SchedulerRunning() {
		agg.StartScheduler()
		app.printf("✓ Refreshing every %s\n", agenda.Interval(app.Settings.Settings()))
	}
}
