package app

import (
	"context"
	"fmt"

	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/core/query"
	"github.com/example/bulkcase/internal/ports/primary"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// OpCreateCase is recorded when a case is entered by hand.
const OpCreateCase = "create-case"

// CaseServiceImpl implements the CaseService interface.
type CaseServiceImpl struct {
	store    secondary.CaseStore
	events   secondary.EventLog
	pageSize int
}

// NewCaseService creates a new CaseService with injected dependencies.
func NewCaseService(store secondary.CaseStore, events secondary.EventLog, pageSize int) *CaseServiceImpl {
	return &CaseServiceImpl{
		store:    store,
		events:   events,
		pageSize: pageSize,
	}
}

// CreateCase creates a new case record.
func (s *CaseServiceImpl) CreateCase(ctx context.Context, req primary.CreateCaseRequest) (*primary.Case, error) {
	state := req.State
	if state == "" {
		state = casetask.CaseStateAwaitingPronouncement
	}

	data := make(map[string]any, len(req.Data)+1)
	for k, v := range req.Data {
		data[k] = v
	}
	if req.ApplicantLabel != "" {
		data[casetask.FieldApplicantLabel] = req.ApplicantLabel
	}

	rec, err := s.store.Create(ctx, secondary.CreateRequest{
		CaseType:    secondary.CaseTypeCase,
		State:       state,
		OperationID: OpCreateCase,
		Data:        data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}

	if err := s.events.LogEvent(ctx, secondary.EventEntry{
		CaseID:      rec.ID,
		OperationID: OpCreateCase,
		StateAfter:  rec.State,
		Version:     rec.Version,
	}); err != nil {
		return nil, err
	}

	return toPortCase(rec), nil
}

// GetCase retrieves a case by ID.
func (s *CaseServiceImpl) GetCase(ctx context.Context, caseID string) (*primary.Case, error) {
	rec, err := s.store.Fetch(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return toPortCase(rec), nil
}

// ListCases retrieves cases matching the filters.
func (s *CaseServiceImpl) ListCases(ctx context.Context, filters primary.CaseFilters) ([]*primary.Case, error) {
	var preds []query.Predicate
	if filters.State != "" {
		preds = append(preds, query.StateIn{States: []string{filters.State}})
	}
	if filters.BulkID != "" {
		preds = append(preds, query.FieldEquals{Field: casetask.FieldBulkListCaseReference, Value: filters.BulkID})
	}
	if filters.Unlinked {
		preds = append(preds, query.Not{Predicate: query.FieldExists{Field: casetask.FieldBulkListCaseReference}})
	}

	var pred query.Predicate
	if len(preds) > 0 {
		pred = query.AllOf(preds...)
	}

	records, err := searchAll(ctx, s.store, secondary.CaseTypeCase, pred, s.pageSize, filters.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	cases := make([]*primary.Case, len(records))
	for i, rec := range records {
		cases[i] = toPortCase(rec)
	}
	return cases, nil
}

// ListEvents returns the audit trail of a case or bulk action.
func (s *CaseServiceImpl) ListEvents(ctx context.Context, caseID string) ([]*primary.CaseEvent, error) {
	entries, err := s.events.ListEvents(ctx, caseID)
	if err != nil {
		return nil, err
	}

	events := make([]*primary.CaseEvent, len(entries))
	for i, e := range entries {
		events[i] = &primary.CaseEvent{
			OperationID: e.OperationID,
			ActorID:     e.ActorID,
			StateBefore: e.StateBefore,
			StateAfter:  e.StateAfter,
			Version:     e.Version,
			CreatedAt:   e.CreatedAt,
		}
	}
	return events, nil
}

func toPortCase(rec *secondary.CaseRecord) *primary.Case {
	bulkID, _ := rec.Data[casetask.FieldBulkListCaseReference].(string)
	return &primary.Case{
		ID:        rec.ID,
		CaseType:  rec.CaseType,
		State:     rec.State,
		Version:   rec.Version,
		BulkID:    bulkID,
		Data:      rec.Data,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// Ensure CaseServiceImpl implements the interface
var _ primary.CaseService = (*CaseServiceImpl)(nil)
