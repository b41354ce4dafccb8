package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/core/query"
	"github.com/example/bulkcase/internal/ports/primary"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// BulkActionServiceImpl implements the BulkActionService interface.
type BulkActionServiceImpl struct {
	store      secondary.CaseStore
	identity   secondary.IdentityProvider
	trigger    *BulkTrigger
	dispatcher *casetask.Dispatcher
	creator    *bulkCreator
	pageSize   int
	logger     *zap.Logger
	now        func() time.Time
}

// NewBulkActionService creates a new BulkActionService with injected dependencies.
func NewBulkActionService(
	store secondary.CaseStore,
	events secondary.EventLog,
	identity secondary.IdentityProvider,
	trigger *BulkTrigger,
	reconciler *FailureReconciler,
	dispatcher *casetask.Dispatcher,
	schemaVersion int,
	pageSize int,
	logger *zap.Logger,
) *BulkActionServiceImpl {
	return &BulkActionServiceImpl{
		store:      store,
		identity:   identity,
		trigger:    trigger,
		dispatcher: dispatcher,
		creator: &bulkCreator{
			store:         store,
			events:        events,
			trigger:       trigger,
			reconciler:    reconciler,
			dispatcher:    dispatcher,
			schemaVersion: schemaVersion,
			logger:        logger,
		},
		pageSize: pageSize,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBulkAction groups existing cases under a new bulk action.
func (s *BulkActionServiceImpl) CreateBulkAction(ctx context.Context, req primary.CreateBulkActionRequest) (*primary.CreateBulkActionResponse, error) {
	ctx = context.WithoutCancel(ctx)
	if len(req.CaseIDs) == 0 {
		return nil, fmt.Errorf("a bulk action needs at least one case")
	}

	creds, err := LoadCredentials(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(req.CaseIDs))
	refs := make([]bulkaction.CaseReference, 0, len(req.CaseIDs))
	for _, id := range req.CaseIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, err := s.store.Fetch(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch case %s: %w", id, err)
		}
		if rec.CaseType != secondary.CaseTypeCase {
			return nil, fmt.Errorf("%s is not a case", id)
		}
		refs = append(refs, caseRef(rec))
	}

	bulk, failed, err := s.creator.create(ctx, refs, bulkParams{hearing: req.DateAndTimeOfHearing, court: req.Court}, creds)
	if err != nil {
		return nil, err
	}

	return &primary.CreateBulkActionResponse{
		BulkID:        bulk.ID,
		BulkAction:    toPortBulkAction(bulk, nil),
		FailedCaseIDs: bulkaction.IDs(failed),
	}, nil
}

// GetBulkAction retrieves a bulk action by ID.
func (s *BulkActionServiceImpl) GetBulkAction(ctx context.Context, bulkID string) (*primary.BulkAction, error) {
	rec, bulk, err := s.load(ctx, bulkID)
	if err != nil {
		return nil, err
	}
	return toPortBulkAction(bulk, rec), nil
}

// ListBulkActions retrieves bulk actions, optionally filtered by state.
func (s *BulkActionServiceImpl) ListBulkActions(ctx context.Context, filters primary.BulkActionFilters) ([]*primary.BulkAction, error) {
	var pred query.Predicate
	if filters.State != "" {
		pred = query.StateIn{States: []string{filters.State}}
	}

	records, err := searchAll(ctx, s.store, secondary.CaseTypeBulkAction, pred, s.pageSize, filters.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bulk actions: %w", err)
	}

	out := make([]*primary.BulkAction, 0, len(records))
	for _, rec := range records {
		bulk, err := bulkaction.FromRecord(rec)
		if err != nil {
			s.logger.Warn("skipping unreadable bulk action", zap.String("bulk_id", rec.ID), zap.Error(err))
			continue
		}
		out = append(out, toPortBulkAction(bulk, rec))
	}
	return out, nil
}

// ScheduleCases lists every outstanding case for the bulk action's hearing.
// A new hearing date or court in req replaces the stored one.
func (s *BulkActionServiceImpl) ScheduleCases(ctx context.Context, req primary.ScheduleCasesRequest) (*primary.BulkAction, error) {
	ctx = context.WithoutCancel(ctx)
	_, bulk, err := s.load(ctx, req.BulkID)
	if err != nil {
		return nil, err
	}

	hearingChanged := !req.DateAndTimeOfHearing.IsZero() && !req.DateAndTimeOfHearing.Equal(bulk.DateAndTimeOfHearing)
	if hearingChanged {
		bulk.DateAndTimeOfHearing = req.DateAndTimeOfHearing
	}
	if req.Court != "" {
		bulk.Court = req.Court
	}

	guard := bulkaction.CanSchedule(bulkaction.ScheduleContext{
		BulkID:               bulk.ID,
		State:                bulk.State,
		DateAndTimeOfHearing: bulk.DateAndTimeOfHearing,
		Court:                bulk.Court,
		HearingChanged:       hearingChanged,
		Now:                  s.now(),
	})
	if err := guard.Error(); err != nil {
		return nil, err
	}

	hearing, court := bulk.DateAndTimeOfHearing, bulk.Court
	return s.runPass(ctx, bulk, casetask.OpUpdateCourtHearing, casetask.OpScheduleCases, func(next *bulkaction.BulkAction) {
		next.DateAndTimeOfHearing = hearing
		next.Court = court
		next.State = bulkaction.StateListed
	})
}

// PronounceCases records the judge's pronouncement on every outstanding case.
func (s *BulkActionServiceImpl) PronounceCases(ctx context.Context, req primary.PronounceCasesRequest) (*primary.BulkAction, error) {
	ctx = context.WithoutCancel(ctx)
	_, bulk, err := s.load(ctx, req.BulkID)
	if err != nil {
		return nil, err
	}

	if req.PronouncementJudge != "" {
		bulk.PronouncementJudge = req.PronouncementJudge
	}

	guard := bulkaction.CanPronounce(bulkaction.PronounceContext{
		BulkID:             bulk.ID,
		State:              bulk.State,
		PronouncementJudge: bulk.PronouncementJudge,
		HasHearing:         !bulk.DateAndTimeOfHearing.IsZero(),
	})
	if err := guard.Error(); err != nil {
		return nil, err
	}

	judge := bulk.PronouncementJudge
	return s.runPass(ctx, bulk, casetask.OpPronounceCase, casetask.OpPronounceCases, func(next *bulkaction.BulkAction) {
		next.PronouncementJudge = judge
		next.HasJudgePronounced = true
		next.State = bulkaction.StatePronounced
	})
}

// RemoveCases unlinks the given cases from the bulk action. Unlinked cases
// leave every list; cases that could not be unlinked stay pending so a later
// removal retries them. Ids that are not members are ignored.
func (s *BulkActionServiceImpl) RemoveCases(ctx context.Context, req primary.RemoveCasesRequest) (*primary.BulkAction, error) {
	ctx = context.WithoutCancel(ctx)
	rec, bulk, err := s.load(ctx, req.BulkID)
	if err != nil {
		return nil, err
	}
	if err := bulkaction.CanChangeMembership(bulkaction.MembershipContext{BulkID: bulk.ID, State: bulk.State}).Error(); err != nil {
		return nil, err
	}
	if len(req.CaseIDs) == 0 {
		return toPortBulkAction(bulk, rec), nil
	}

	members := make(map[string]bulkaction.CaseReference)
	for _, r := range bulk.Members() {
		members[r.ID] = r
	}
	seen := make(map[string]bool, len(req.CaseIDs))
	refs := make([]bulkaction.CaseReference, 0, len(req.CaseIDs))
	for _, id := range req.CaseIDs {
		ref, ok := members[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, ref)
	}
	if len(refs) == 0 {
		return toPortBulkAction(bulk, rec), nil
	}

	return s.unlink(ctx, bulk, refs, casetask.OpRemoveCasesFromBulk, nil)
}

// DropBulkList unlinks every member. The bulk action becomes Dropped once no
// member failed to unlink.
func (s *BulkActionServiceImpl) DropBulkList(ctx context.Context, bulkID string) (*primary.BulkAction, error) {
	ctx = context.WithoutCancel(ctx)
	_, bulk, err := s.load(ctx, bulkID)
	if err != nil {
		return nil, err
	}
	if err := bulkaction.CanChangeMembership(bulkaction.MembershipContext{BulkID: bulk.ID, State: bulk.State}).Error(); err != nil {
		return nil, err
	}

	return s.unlink(ctx, bulk, bulk.Members(), casetask.OpDropBulkList, func(next *bulkaction.BulkAction, failed []bulkaction.CaseReference) {
		if len(failed) == 0 {
			next.State = bulkaction.StateDropped
		}
	})
}

// runPass triggers caseOp over the outstanding cases, then records the
// outcome on the bulk action under bulkOp. finish sets the bulk action's
// state and parameters unless it has reached a terminal state meanwhile.
func (s *BulkActionServiceImpl) runPass(ctx context.Context, bulk *bulkaction.BulkAction, caseOp, bulkOp string, finish func(*bulkaction.BulkAction)) (*primary.BulkAction, error) {
	creds, err := LoadCredentials(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	task, err := s.dispatcher.Task(caseOp, bulk)
	if err != nil {
		return nil, err
	}

	outstanding := bulk.Outstanding()
	failed := s.trigger.Trigger(ctx, outstanding, caseOp, task, creds)

	rec, err := s.trigger.Update(ctx, bulk.ID, bulkOp, func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		current, err := bulkaction.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		current.Partition = current.Partition.Apply(outstanding, failed)
		if !bulkaction.IsTerminal(current.State) {
			finish(current)
		}
		return current.ApplyTo(rec), nil
	}, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to record %s on bulk action %s: %w", bulkOp, bulk.ID, err)
	}

	return s.result(rec, len(outstanding), len(failed), bulkOp)
}

// unlink removes refs from the bulk action, keeping the ones that fail to
// unlink in pending.
func (s *BulkActionServiceImpl) unlink(ctx context.Context, bulk *bulkaction.BulkAction, refs []bulkaction.CaseReference, bulkOp string, finish func(*bulkaction.BulkAction, []bulkaction.CaseReference)) (*primary.BulkAction, error) {
	creds, err := LoadCredentials(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	task, err := s.dispatcher.Task(casetask.OpRemoveBulkCase, bulk)
	if err != nil {
		return nil, err
	}

	failed := s.trigger.Trigger(ctx, refs, casetask.OpRemoveBulkCase, task, creds)
	failedIDs := make(map[string]bool, len(failed))
	for _, r := range failed {
		failedIDs[r.ID] = true
	}
	var removed []string
	for _, r := range refs {
		if !failedIDs[r.ID] {
			removed = append(removed, r.ID)
		}
	}

	rec, err := s.trigger.Update(ctx, bulk.ID, bulkOp, func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		current, err := bulkaction.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		var keep []bulkaction.CaseReference
		for _, r := range failed {
			if current.Partition.Contains(r.ID) {
				keep = append(keep, r)
			}
		}
		current.Partition = current.Partition.Remove(removed...).AddPending(keep...)
		if finish != nil && !bulkaction.IsTerminal(current.State) {
			finish(current, failed)
		}
		return current.ApplyTo(rec), nil
	}, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to record %s on bulk action %s: %w", bulkOp, bulk.ID, err)
	}

	return s.result(rec, len(refs), len(failed), bulkOp)
}

func (s *BulkActionServiceImpl) result(rec *secondary.CaseRecord, attempted, failed int, bulkOp string) (*primary.BulkAction, error) {
	updated, err := bulkaction.FromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to read bulk action %s: %w", rec.ID, err)
	}

	s.logger.Info("bulk action pass complete",
		zap.String("bulk_id", updated.ID),
		zap.String("operation", bulkOp),
		zap.String("state", updated.State),
		zap.Int("attempted", attempted),
		zap.Int("failed", failed),
	)
	return toPortBulkAction(updated, rec), nil
}

func (s *BulkActionServiceImpl) load(ctx context.Context, bulkID string) (*secondary.CaseRecord, *bulkaction.BulkAction, error) {
	rec, err := s.store.Fetch(ctx, bulkID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bulk action %s: %w", bulkID, err)
	}
	bulk, err := bulkaction.FromRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	return rec, bulk, nil
}

func toPortBulkAction(bulk *bulkaction.BulkAction, rec *secondary.CaseRecord) *primary.BulkAction {
	out := &primary.BulkAction{
		ID:                 bulk.ID,
		State:              bulk.State,
		Version:            bulk.Version,
		Court:              bulk.Court,
		PronouncementJudge: bulk.PronouncementJudge,
		HasJudgePronounced: bulk.HasJudgePronounced,
		SchemaVersion:      bulk.SchemaVersion,
		Pending:            toPortRefs(bulk.Pending),
		Errored:            toPortRefs(bulk.Errored),
		Processed:          toPortRefs(bulk.Processed),
	}
	if !bulk.DateAndTimeOfHearing.IsZero() {
		out.DateAndTimeOfHearing = bulk.DateAndTimeOfHearing.UTC().Format(time.RFC3339)
	}
	if rec != nil {
		out.CreatedAt = rec.CreatedAt
		out.UpdatedAt = rec.UpdatedAt
	}
	return out
}

func toPortRefs(refs []bulkaction.CaseReference) []primary.CaseRef {
	out := make([]primary.CaseRef, len(refs))
	for i, r := range refs {
		out[i] = primary.CaseRef{ID: r.ID, Label: r.Label}
	}
	return out
}

// Ensure BulkActionServiceImpl implements the interface
var _ primary.BulkActionService = (*BulkActionServiceImpl)(nil)
