// ABOUTME: Persists aggregator cycle reports into sync_state and notification_log
// ABOUTME: One transaction per cycle
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/weekcal/agenda"
)

// Recorder writes agenda cycles to the database.
type Recorder struct {
	db *sql.DB
}

// NewRecorder wraps an open database.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordCycle stores per-item outcomes, the cycle outcome, and any notifications.
func (r *Recorder) RecordCycle(cycle agenda.Cycle) error {
	ctx := context.Background()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	at := cycle.FinishedAt
	for _, item := range cycle.Items {
		service := AccountService(item.Key)
		if item.Kind == agenda.KindCalendar {
			service = CalendarService(item.Key)
		}

		if item.OK() {
			err = MarkSynced(ctx, tx, service, cycle.ID, at)
		} else {
			msg := item.Err.Error()
			err = UpdateSyncStatus(ctx, tx, service, StatusError, &msg, at)
		}
		if err != nil {
			return err
		}
	}

	if cycle.Result.Success {
		err = MarkSynced(ctx, tx, CycleService, cycle.ID, at)
	} else {
		msg := cycle.Result.Error
		err = UpdateSyncStatus(ctx, tx, CycleService, StatusError, &msg, at)
	}
	if err != nil {
		return err
	}

	if err := LogNotifications(ctx, tx, cycle.ID, cycle.Notified, at); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cycle: %w", err)
	}
	return nil
}
