// ABOUTME: Long-running CLI commands
// ABOUTME: watch keeps the week fresh on a schedule behind a status server; tui runs the terminal view
package cli

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/weekcal/agenda"
	"github.com/harperreed/weekcal/tui"
	"github.com/harperreed/weekcal/web"
)

// DefaultStatusAddr is where watch serves health, metrics, and the week page.
const DefaultStatusAddr = "127.0.0.1:8787"

// WatchCommand refreshes on the configured interval until interrupted.
// SIGHUP reloads the settings file.
func WatchCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	addr := fs.String("metrics-addr", DefaultStatusAddr, "Status server address (empty to disable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := app.Aggregator(agenda.Observers{
		OnNewEvents: func(ids []string) {
			app.printf("🔔 %d new or changed events this week\n", len(ids))
		},
	})

	if res := agg.Refresh(ctx); res.Success {
		app.printf("✓ Loaded %d events\n", len(agg.LastEvents()))
	} else {
		app.printf("✗ Initial refresh failed: %s\n", res.Error)
	}

	agg.StartScheduler()
	defer agg.StopScheduler()
	app.printf("✓ Refreshing every %s\n", agenda.Interval(app.Settings.Settings()))

	serverErr := make(chan error, 1)
	if *addr != "" {
		srv, err := web.NewServer(agg, app.DB, app.Settings)
		if err != nil {
			return err
		}
		go func() { serverErr <- srv.Start(ctx, *addr) }()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			app.println("\nStopping...")
			return nil
		case err := <-serverErr:
			if err != nil {
				return err
			}
		case <-hup:
			if err := reloadSettings(ctx, app, agg); err != nil {
				app.Logger.Warn("failed to reload settings", slog.Any("err", err))
				continue
			}
			app.println("✓ Settings reloaded")
		}
	}
}

// TUICommand runs the interactive week view.
func TUICommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	agg := app.Aggregator(agenda.Observers{})
	model := tui.NewModel(ctx, agg, app.Settings, tui.WithDatabase(app.DB))
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
