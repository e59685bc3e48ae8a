// ABOUTME: Log of event ids reported as new or changed
// ABOUTME: Rows are keyed by ULID so they sort by time
package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Notification is one reported event id.
type Notification struct {
	ID         string
	CycleID    string
	EventID    string
	NotifiedAt time.Time
}

// LogNotifications stores one row per event id.
func LogNotifications(ctx context.Context, db Execer, cycleID string, eventIDs []string, at time.Time) error {
	entropy := ulid.Monotonic(rand.Reader, 0)
	for _, eventID := range eventIDs {
		id, err := ulid.New(ulid.Timestamp(at), entropy)
		if err != nil {
			return fmt.Errorf("failed to generate notification id: %w", err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO notification_log (id, cycle_id, event_id, notified_at)
			VALUES (?, ?, ?, ?)
		`, id.String(), cycleID, eventID, at)
		if err != nil {
			return fmt.Errorf("failed to log notification: %w", err)
		}
	}
	return nil
}

// RecentNotifications returns up to limit rows, newest first.
func RecentNotifications(db *sql.DB, limit int) ([]Notification, error) {
	rows, err := db.Query(`
		SELECT id, cycle_id, event_id, notified_at
		FROM notification_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.CycleID, &n.EventID, &n.NotifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}
