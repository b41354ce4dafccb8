package primary

import "context"

// CaseService defines the primary port for individual case records.
type CaseService interface {
	// CreateCase creates a case awaiting pronouncement unless a state is given.
	CreateCase(ctx context.Context, req CreateCaseRequest) (*Case, error)

	// GetCase retrieves a case by ID.
	GetCase(ctx context.Context, caseID string) (*Case, error)

	// ListCases retrieves cases matching the filters.
	ListCases(ctx context.Context, filters CaseFilters) ([]*Case, error)

	// ListEvents returns the audit trail of a case or bulk action.
	ListEvents(ctx context.Context, caseID string) ([]*CaseEvent, error)
}

// CreateCaseRequest contains parameters for creating a case.
type CreateCaseRequest struct {
	State          string
	ApplicantLabel string
	Data           map[string]any
}

// CaseFilters contains filter options for listing cases.
type CaseFilters struct {
	State    string
	BulkID   string
	Unlinked bool
	Limit    int
}

// Case represents a case at the port boundary.
type Case struct {
	ID        string
	CaseType  string
	State     string
	Version   string
	BulkID    string
	Data      map[string]any
	CreatedAt string
	UpdatedAt string
}

// CaseEvent is one audit entry.
type CaseEvent struct {
	OperationID string
	ActorID     string
	StateBefore string
	StateAfter  string
	Version     string
	CreatedAt   string
}
