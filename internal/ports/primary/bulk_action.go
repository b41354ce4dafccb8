// Package primary holds the interfaces the CLI and scheduler drive the engine through.
package primary

import (
	"context"
	"time"
)

// BulkActionService defines the primary port for bulk action operations.
type BulkActionService interface {
	// CreateBulkAction groups the given cases under a new bulk action and
	// links each of them to it.
	CreateBulkAction(ctx context.Context, req CreateBulkActionRequest) (*CreateBulkActionResponse, error)

	// GetBulkAction retrieves a bulk action by ID.
	GetBulkAction(ctx context.Context, bulkID string) (*BulkAction, error)

	// ListBulkActions retrieves bulk actions matching the filters.
	ListBulkActions(ctx context.Context, filters BulkActionFilters) ([]*BulkAction, error)

	// ScheduleCases lists every outstanding case of a bulk action for its hearing.
	ScheduleCases(ctx context.Context, req ScheduleCasesRequest) (*BulkAction, error)

	// PronounceCases records the judge's pronouncement on every outstanding case.
	PronounceCases(ctx context.Context, req PronounceCasesRequest) (*BulkAction, error)

	// RemoveCases unlinks the given cases and drops them from the bulk action.
	RemoveCases(ctx context.Context, req RemoveCasesRequest) (*BulkAction, error)

	// DropBulkList unlinks every member and retires the bulk action.
	DropBulkList(ctx context.Context, bulkID string) (*BulkAction, error)
}

// CreateBulkActionRequest contains parameters for creating a bulk action.
type CreateBulkActionRequest struct {
	CaseIDs              []string
	DateAndTimeOfHearing time.Time // zero leaves the hearing unset
	Court                string
}

// CreateBulkActionResponse contains the result of creating a bulk action.
type CreateBulkActionResponse struct {
	BulkID        string
	BulkAction    *BulkAction
	FailedCaseIDs []string
}

// ScheduleCasesRequest contains parameters for scheduling. Zero values keep
// the hearing details already stored on the bulk action.
type ScheduleCasesRequest struct {
	BulkID               string
	DateAndTimeOfHearing time.Time
	Court                string
}

// PronounceCasesRequest contains parameters for pronouncement. An empty judge
// keeps the judge already stored on the bulk action.
type PronounceCasesRequest struct {
	BulkID             string
	PronouncementJudge string
}

// RemoveCasesRequest contains parameters for removing cases.
type RemoveCasesRequest struct {
	BulkID  string
	CaseIDs []string
}

// BulkActionFilters contains filter options for listing bulk actions.
type BulkActionFilters struct {
	State string
	Limit int
}

// BulkAction represents a bulk action at the port boundary.
type BulkAction struct {
	ID                   string
	State                string
	Version              string
	DateAndTimeOfHearing string
	Court                string
	PronouncementJudge   string
	HasJudgePronounced   bool
	SchemaVersion        int
	Pending              []CaseRef
	Errored              []CaseRef
	Processed            []CaseRef
	CreatedAt            string
	UpdatedAt            string
}

// CaseRef identifies a member case of a bulk action.
type CaseRef struct {
	ID    string
	Label string
}
