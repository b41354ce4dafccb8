package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/bulkcase/internal/ctxutil"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// EventLogRepository implements secondary.EventLog with SQLite.
type EventLogRepository struct {
	db *sql.DB
}

// NewEventLogRepository creates a new SQLite event log.
func NewEventLogRepository(db *sql.DB) *EventLogRepository {
	return &EventLogRepository{db: db}
}

// LogEvent records one accepted operation. The actor is taken from the entry,
// falling back to the actor in context.
func (r *EventLogRepository) LogEvent(ctx context.Context, entry secondary.EventEntry) error {
	actorID := entry.ActorID
	if actorID == "" {
		actorID = ctxutil.ActorFromContext(ctx)
	}

	var actor, stateBefore sql.NullString
	if actorID != "" {
		actor = sql.NullString{String: actorID, Valid: true}
	}
	if entry.StateBefore != "" {
		stateBefore = sql.NullString{String: entry.StateBefore, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO case_events (case_id, operation_id, actor_id, state_before, state_after, version) VALUES (?, ?, ?, ?, ?, ?)",
		entry.CaseID, entry.OperationID, actor, stateBefore, entry.StateAfter, entry.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to log event %s for case %s: %w", entry.OperationID, entry.CaseID, err)
	}
	return nil
}

// ListEvents returns the audit trail of a case, oldest first.
func (r *EventLogRepository) ListEvents(ctx context.Context, caseID string) ([]*secondary.EventEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT case_id, operation_id, actor_id, state_before, state_after, version, created_at FROM case_events WHERE case_id = ? ORDER BY id ASC",
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var entries []*secondary.EventEntry
	for rows.Next() {
		var (
			actor       sql.NullString
			stateBefore sql.NullString
			createdAt   time.Time
		)
		entry := &secondary.EventEntry{}
		if err := rows.Scan(&entry.CaseID, &entry.OperationID, &actor, &stateBefore, &entry.StateAfter, &entry.Version, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		entry.ActorID = actor.String
		entry.StateBefore = stateBefore.String
		entry.CreatedAt = createdAt.Format(time.RFC3339)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Ensure EventLogRepository implements the interface
var _ secondary.EventLog = (*EventLogRepository)(nil)
