// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_state (
	service TEXT PRIMARY KEY,
	last_sync_time DATETIME,
	last_cycle_id TEXT,
	status TEXT CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notification_log (
	id TEXT PRIMARY KEY,
	cycle_id TEXT NOT NULL,
	event_id TEXT NOT NULL,
	notified_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notification_log_event_id ON notification_log(event_id);
CREATE INDEX IF NOT EXISTS idx_notification_log_notified_at ON notification_log(notified_at);
`

// InitSchema creates every table and index that does not exist yet.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
