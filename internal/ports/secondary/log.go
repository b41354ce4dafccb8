package secondary

import "context"

// EventLog defines the interface for writing the case audit trail.
// Implementations extract the actor from context.
type EventLog interface {
	// LogEvent records one accepted operation against a case.
	LogEvent(ctx context.Context, entry EventEntry) error

	// ListEvents returns the audit trail of a case, oldest first.
	ListEvents(ctx context.Context, caseID string) ([]*EventEntry, error)
}

// EventEntry is one audit row.
type EventEntry struct {
	CaseID      string
	OperationID string
	ActorID     string
	StateBefore string
	StateAfter  string
	Version     string
	CreatedAt   string
}
