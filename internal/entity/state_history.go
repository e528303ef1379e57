package entity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// State history source values.
const (
	// HistorySourceCoordinator marks changes observed after a coordinator update.
	HistorySourceCoordinator = "coordinator"

	// HistorySourceCommand marks changes observed right after a command.
	HistorySourceCommand = "command"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryEntry is one recorded state change.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	UniqueID  string    `json:"unique_id"`
	State     State     `json:"state"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// StateHistoryRepository stores and retrieves entity state changes.
// Implementations must be safe for concurrent use and store UTC timestamps.
type StateHistoryRepository interface {
	RecordStateChange(ctx context.Context, state State, source string) error

	// GetHistory returns up to limit entries, newest first.
	GetHistory(ctx context.Context, uniqueID string, limit int) ([]HistoryEntry, error)
}

// SQLiteStateHistoryRepository stores state snapshots as JSON in the
// state_history table.
type SQLiteStateHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteStateHistoryRepository creates a history repository on an open,
// migrated database.
func NewSQLiteStateHistoryRepository(db *sql.DB) *SQLiteStateHistoryRepository {
	return &SQLiteStateHistoryRepository{db: db}
}

// RecordStateChange inserts a history row. An empty source is recorded as
// a coordinator update.
func (r *SQLiteStateHistoryRepository) RecordStateChange(ctx context.Context, state State, source string) error {
	if state.UniqueID == "" {
		return fmt.Errorf("%w: unique id is required", ErrInvalidRecord)
	}
	if source == "" {
		source = HistorySourceCoordinator
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	ts := state.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO state_history (unique_id, state, source, created_at) VALUES (?, ?, ?, ?)",
		state.UniqueID,
		string(stateJSON),
		source,
		ts.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// GetHistory returns recent entries for an entity, newest first. The limit
// defaults to 50 and is capped at 200.
func (r *SQLiteStateHistoryRepository) GetHistory(ctx context.Context, uniqueID string, limit int) ([]HistoryEntry, error) {
	if uniqueID == "" {
		return nil, fmt.Errorf("%w: unique id is required", ErrInvalidRecord)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, unique_id, state, source, created_at
		 FROM state_history
		 WHERE unique_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		uniqueID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			entry     HistoryEntry
			stateJSON string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.UniqueID, &stateJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}
		if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes entries older than the given age and returns the
// number of rows removed.
func (r *SQLiteStateHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, "DELETE FROM state_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
