// Package secondary holds the interfaces the engine drives, such as the case
// store and the audit log.
package secondary

import (
	"context"

	"github.com/example/bulkcase/internal/core/query"
)

// Case types held by the store.
const (
	CaseTypeCase       = "case"
	CaseTypeBulkAction = "bulk_action"
)

// CaseStore defines the secondary port for the external case record store.
// Every record carries an opaque version token; a submit succeeds only when the
// caller presents the token it fetched.
type CaseStore interface {
	// Fetch retrieves a case record with its current version token.
	// Returns an error wrapping ErrNotFound for an unknown id.
	Fetch(ctx context.Context, id string) (*CaseRecord, error)

	// Submit writes a new state and payload under the given version token and
	// returns the new token. Fails with ErrConflict on a stale token,
	// ErrNotFound on an unknown id and ErrTransient for retryable faults.
	Submit(ctx context.Context, req SubmitRequest) (string, error)

	// Search returns one page of records matching the request, plus the total
	// number of matches across all pages.
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)

	// Create persists a new record and returns it with its assigned id and token.
	Create(ctx context.Context, req CreateRequest) (*CaseRecord, error)
}

// CaseRecord represents a case as stored in persistence.
type CaseRecord struct {
	ID        string
	CaseType  string
	State     string
	Version   string
	Data      map[string]any
	CreatedAt string
	UpdatedAt string
}

// Clone returns a copy whose payload can be modified without touching r.
// Nested maps and slices are copied as well.
func (r *CaseRecord) Clone() *CaseRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Data = cloneMap(r.Data)
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// SubmitRequest carries one optimistic write.
type SubmitRequest struct {
	CaseID      string
	Version     string
	OperationID string
	State       string
	Data        map[string]any
}

// CreateRequest carries a new record. The store assigns the id.
type CreateRequest struct {
	CaseType    string
	State       string
	OperationID string
	Data        map[string]any
}

// SearchRequest describes a paginated search. Page is 1-based.
type SearchRequest struct {
	CaseType  string
	Predicate query.Predicate // nil matches every record of CaseType
	Page      int
	PageSize  int
}

// SearchResult is one page of search results.
type SearchResult struct {
	Cases []*CaseRecord
	Total int
}
