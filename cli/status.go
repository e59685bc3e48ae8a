// ABOUTME: Sync status CLI command
// ABOUTME: Prints per-service sync state and recently notified events
package cli

import (
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/weekcal/db"
)

// StatusCommand shows the recorded outcome of recent refresh cycles.
func StatusCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "Number of recent notifications to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app.Vault.IsAuthenticated() {
		app.println("✓ Signed in")
	} else {
		app.println("✗ Not signed in")
	}

	if app.DB == nil {
		return nil
	}

	states, err := db.GetAllSyncStates(app.DB)
	if err != nil {
		return fmt.Errorf("failed to read sync state: %w", err)
	}
	if len(states) == 0 {
		app.println("\nNo refresh recorded yet. Run 'weekcal refresh'.")
		return nil
	}

	app.println("\nSync state:")
	for _, s := range states {
		line := fmt.Sprintf("  %-40s %s", s.Service, s.Status)
		if s.LastSyncTime != nil {
			line += "  last synced " + s.LastSyncTime.Local().Format(time.DateTime)
		}
		if s.ErrorMessage != nil {
			line += "  error: " + *s.ErrorMessage
		}
		app.println(line)
	}

	notes, err := db.RecentNotifications(app.DB, *limit)
	if err != nil {
		return fmt.Errorf("failed to read notifications: %w", err)
	}
	if len(notes) > 0 {
		app.println("\nRecent notifications:")
		for _, n := range notes {
			app.printf("  %s  %s\n", n.NotifiedAt.Local().Format(time.DateTime), n.EventID)
		}
	}
	return nil
}
