// ABOUTME: Database operations for the sync_state table
// ABOUTME: Tracks the last outcome per account, per calendar, and for the whole cycle
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Sync statuses.
const (
	StatusIdle    = "idle"
	StatusSyncing = "syncing"
	StatusError   = "error"
)

// CycleService is the sync_state row describing the latest refresh cycle.
const CycleService = "cycle"

// AccountService names the sync_state row of one account's calendar list.
func AccountService(email string) string { return "account:" + email }

// CalendarService names the sync_state row of one calendar's event fetch.
func CalendarService(id string) string { return "calendar:" + id }

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SyncState represents the sync state for a service.
type SyncState struct {
	Service      string
	LastSyncTime *time.Time
	LastCycleID  *string
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const syncStateColumns = `service, last_sync_time, last_cycle_id, status, error_message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncState(row rowScanner) (*SyncState, error) {
	var state SyncState
	var lastSyncTime sql.NullTime
	var lastCycleID sql.NullString
	var errorMessage sql.NullString

	if err := row.Scan(
		&state.Service,
		&lastSyncTime,
		&lastCycleID,
		&state.Status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if lastSyncTime.Valid {
		state.LastSyncTime = &lastSyncTime.Time
	}
	if lastCycleID.Valid {
		state.LastCycleID = &lastCycleID.String
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}
	return &state, nil
}

// GetSyncState retrieves the sync state for a service. It returns nil when none is stored.
func GetSyncState(db *sql.DB, service string) (*SyncState, error) {
	row := db.QueryRow(`SELECT `+syncStateColumns+` FROM sync_state WHERE service = ?`, service)
	state, err := scanSyncState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return state, nil
}

// UpdateSyncStatus sets the status of a service. A nil errorMsg clears any previous error.
func UpdateSyncStatus(ctx context.Context, db Execer, service, status string, errorMsg *string, at time.Time) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (service, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`, service, status, errorMsgVal, at, at)

	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// MarkSynced records a successful sync of service during cycleID.
func MarkSynced(ctx context.Context, db Execer, service, cycleID string, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (service, last_sync_time, last_cycle_id, status, created_at, updated_at)
		VALUES (?, ?, ?, 'idle', ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			last_cycle_id = excluded.last_cycle_id,
			status = 'idle',
			error_message = NULL,
			updated_at = excluded.updated_at
	`, service, at, cycleID, at, at)

	if err != nil {
		return fmt.Errorf("failed to mark sync: %w", err)
	}

	return nil
}

// GetAllSyncStates retrieves the sync state for all services.
func GetAllSyncStates(db *sql.DB) ([]SyncState, error) {
	rows, err := db.Query(`SELECT ` + syncStateColumns + ` FROM sync_state ORDER BY service`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []SyncState
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		states = append(states, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync states: %w", err)
	}

	return states, nil
}
